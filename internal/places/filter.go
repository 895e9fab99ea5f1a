// Package places filters Nearby Search results down to sit-down restaurants
// and maps them to the response shape.
package places

import (
	"strings"

	"github.com/me/lunchwheel/pkg/model"
)

// RequiredType must be present on every kept place.
const RequiredType = "restaurant"

// DefaultPrimaryType is used when a place carries no descriptive type.
const DefaultPrimaryType = "Restaurant"

// ExcludedTypes disqualify a place even when it is tagged as a restaurant
// (gas stations with a grill, supermarkets with a deli counter).
var ExcludedTypes = map[string]struct{}{
	"gas_station":            {},
	"convenience_store":      {},
	"department_store":       {},
	"supermarket":            {},
	"shopping_mall":          {},
	"grocery_or_supermarket": {},
	"car_rental":             {},
	"car_repair":             {},
	"car_wash":               {},
	"parking":                {},
	"automotive_repair_shop": {},
	"hardware_store":         {},
	"home_improvement_store": {},
	"furniture_store":        {},
	"clothing_store":         {},
	"pharmacy":               {},
	"health_and_beauty":      {},
}

// genericTypes are skipped when choosing a primary type.
var genericTypes = map[string]struct{}{
	"restaurant":        {},
	"food":              {},
	"point_of_interest": {},
	"establishment":     {},
}

// IsTrueRestaurant reports whether c is a restaurant and nothing on the exclusion list.
func IsTrueRestaurant(c model.PlaceCandidate) bool {
	if !c.HasType(RequiredType) {
		return false
	}
	for _, t := range c.Types {
		if _, excluded := ExcludedTypes[t]; excluded {
			return false
		}
	}
	return true
}

// FilterAndNormalize keeps the true restaurants in input order and maps them.
// It never returns nil.
func FilterAndNormalize(candidates []model.PlaceCandidate) []model.NormalizedPlace {
	out := make([]model.NormalizedPlace, 0, len(candidates))
	for _, c := range candidates {
		if IsTrueRestaurant(c) {
			out = append(out, Normalize(c))
		}
	}
	return out
}

// Normalize maps an upstream candidate to a NormalizedPlace.
func Normalize(c model.PlaceCandidate) model.NormalizedPlace {
	p := model.NormalizedPlace{
		ID:               c.PlaceID,
		DisplayName:      c.Name,
		FormattedAddress: c.Vicinity,
		Location: model.Location{
			Latitude:  c.Geometry.Location.Lat,
			Longitude: c.Geometry.Location.Lng,
		},
		BusinessStatus: model.ParseBusinessStatus(c.BusinessStatus),
		Photos:         make([]model.Photo, 0, len(c.Photos)),
	}
	if p.FormattedAddress == "" {
		p.FormattedAddress = c.FormattedAddress
	}
	if c.Rating != nil {
		rating := *c.Rating
		p.Rating = &rating
	}
	if c.UserRatingsTotal != nil {
		p.UserRatingCount = *c.UserRatingsTotal
	}
	if c.PriceLevel != nil && *c.PriceLevel >= 1 && *c.PriceLevel <= 4 {
		level := *c.PriceLevel
		p.PriceLevel = &level
	}
	primary := PrimaryType(c.Types)
	p.PrimaryType = &primary
	for _, ph := range c.Photos {
		p.Photos = append(p.Photos, model.Photo{
			Reference: ph.PhotoReference,
			Width:     ph.Width,
			Height:    ph.Height,
		})
	}
	return p
}

// PrimaryType returns the first descriptive type, title-cased
// ("mexican_restaurant" becomes "Mexican Restaurant").
func PrimaryType(types []string) string {
	for _, t := range types {
		if _, generic := genericTypes[t]; generic {
			continue
		}
		return titleCase(t)
	}
	return DefaultPrimaryType
}

func titleCase(t string) string {
	words := strings.Split(t, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
