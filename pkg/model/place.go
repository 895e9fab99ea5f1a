package model

// BusinessStatus is the operating status reported for a place.
type BusinessStatus string

const (
	BusinessOperational       BusinessStatus = "OPERATIONAL"
	BusinessClosedTemporarily BusinessStatus = "CLOSED_TEMPORARILY"
	BusinessClosedPermanently BusinessStatus = "CLOSED_PERMANENTLY"
)

// ParseBusinessStatus normalizes an upstream status, defaulting to OPERATIONAL.
func ParseBusinessStatus(s string) BusinessStatus {
	switch BusinessStatus(s) {
	case BusinessClosedTemporarily, BusinessClosedPermanently:
		return BusinessStatus(s)
	}
	return BusinessOperational
}

// PlaceCandidate is a raw Nearby Search result as returned by Google.
type PlaceCandidate struct {
	PlaceID          string          `json:"place_id"`
	Name             string          `json:"name"`
	Vicinity         string          `json:"vicinity,omitempty"`
	FormattedAddress string          `json:"formatted_address,omitempty"`
	Types            []string        `json:"types"`
	Rating           *float64        `json:"rating,omitempty"`
	UserRatingsTotal *int            `json:"user_ratings_total,omitempty"`
	PriceLevel       *int            `json:"price_level,omitempty"`
	BusinessStatus   string          `json:"business_status,omitempty"`
	Geometry         Geometry        `json:"geometry"`
	Photos           []UpstreamPhoto `json:"photos,omitempty"`
}

// HasType reports whether the candidate carries the given type.
func (c PlaceCandidate) HasType(t string) bool {
	for _, have := range c.Types {
		if have == t {
			return true
		}
	}
	return false
}

// Geometry wraps the upstream location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is Google's {lat,lng} point shape.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpstreamPhoto is a photo reference as returned by Google.
type UpstreamPhoto struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// NormalizedPlace is the shape returned to clients from /places.
type NormalizedPlace struct {
	ID               string         `json:"id"`
	DisplayName      string         `json:"displayName"`
	FormattedAddress string         `json:"formattedAddress"`
	Location         Location       `json:"location"`
	Rating           *float64       `json:"rating"`
	UserRatingCount  int            `json:"userRatingCount"`
	PriceLevel       *int           `json:"priceLevel"`
	PrimaryType      *string        `json:"primaryType"`
	BusinessStatus   BusinessStatus `json:"businessStatus"`
	Photos           []Photo        `json:"photos"`
}

// Location is the {latitude,longitude} point shape used in responses.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Photo is a normalized photo reference.
type Photo struct {
	Reference string `json:"reference"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// PlacesResponse is the /places success body.
type PlacesResponse struct {
	Places []NormalizedPlace `json:"places"`
}

// SearchQuery is a validated nearby-search request.
type SearchQuery struct {
	Latitude       float64        `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude      float64        `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusMeters   int            `json:"radiusMeters" validate:"gte=500,lte=50000"`
	RankPreference RankPreference `json:"rankPreference" validate:"oneof=RADIUS DISTANCE"`
}
