package model

// ErrorBody is the error envelope returned to callers. Extra details are
// merged into the top-level object by the response builder.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp"`
}

// GeocodeResponse is the subset of the Google Geocoding payload the CLI reads.
// The server passes the upstream payload through untouched.
type GeocodeResponse struct {
	Status  string          `json:"status"`
	Results []GeocodeResult `json:"results"`
}

// GeocodeResult is a single geocoding match.
type GeocodeResult struct {
	FormattedAddress string   `json:"formatted_address"`
	PlaceID          string   `json:"place_id"`
	Types            []string `json:"types"`
	Geometry         Geometry `json:"geometry"`
}

// HealthResponse is the /test body.
type HealthResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	GoVersion string `json:"goVersion"`
}
