// Package validate cleans and checks request input for the proxy handlers.
// The CLI uses the same helpers before it submits anything.
package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/me/lunchwheel/pkg/model"
)

// Radius bounds in meters.
const (
	DefaultRadius = 1500
	MinRadius     = 500
	MaxRadius     = 50000
)

// MaxInputLength is the sanitized input limit in UTF-16 code units.
const MaxInputLength = 1000

var (
	structValidator = validator.New()
	usZipPattern    = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// ZipCode accepts any ZIP that is non-blank after trimming. The stricter
// US format check is IsUSZipCode and belongs to the client.
func ZipCode(zip string) error {
	if strings.TrimSpace(zip) == "" {
		return model.NewValidationError("zipCode", model.MsgInvalidZipCode)
	}
	return nil
}

// IsUSZipCode reports whether zip is a 5-digit or ZIP+4 code.
func IsUSZipCode(zip string) bool {
	return usZipPattern.MatchString(strings.TrimSpace(zip))
}

// Coordinates parses and range-checks a latitude/longitude pair.
func Coordinates(latStr, lngStr string) (lat, lng float64, err error) {
	lat, ok := parseFinite(latStr)
	if !ok {
		return 0, 0, model.NewValidationError("lat", model.MsgInvalidCoordinates)
	}
	lng, ok = parseFinite(lngStr)
	if !ok {
		return 0, 0, model.NewValidationError("lng", model.MsgInvalidCoordinates)
	}

	point := struct {
		Lat float64 `validate:"gte=-90,lte=90"`
		Lng float64 `validate:"gte=-180,lte=180"`
	}{lat, lng}
	if err := structValidator.Struct(point); err != nil {
		return 0, 0, model.NewValidationError(fieldOf(err), model.MsgInvalidCoordinates)
	}
	return lat, lng, nil
}

// Radius coerces a radius parameter into [MinRadius, MaxRadius]. It never fails.
func Radius(s string) int {
	return Clamp(ParseNumberOr(s, DefaultRadius), MinRadius, MaxRadius)
}

// ParseNumberOr parses s as a finite number, truncated toward zero, or returns def.
func ParseNumberOr(s string, def int) int {
	f, ok := parseFinite(s)
	if !ok {
		return def
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// SearchQuery builds a validated query from request parameters. DISTANCE
// ranking ignores the radius, which is then left at the default.
func SearchQuery(lat, lng, radius, rankBy string) (model.SearchQuery, error) {
	la, ln, err := Coordinates(lat, lng)
	if err != nil {
		return model.SearchQuery{}, err
	}
	q := model.SearchQuery{
		Latitude:       la,
		Longitude:      ln,
		RadiusMeters:   DefaultRadius,
		RankPreference: model.ParseRankPreference(rankBy),
	}
	if q.RankPreference == model.RankByRadius {
		q.RadiusMeters = Radius(radius)
	}
	if err := structValidator.Struct(q); err != nil {
		return model.SearchQuery{}, model.NewValidationError(fieldOf(err), model.MsgInvalidCoordinates)
	}
	return q, nil
}

// RequiredConfig returns a ConfigurationError naming every key in names whose
// value in values is blank.
func RequiredConfig(values map[string]string, names ...string) error {
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &model.ConfigurationError{Missing: missing}
	}
	return nil
}

// SanitizeInput strips angle brackets, trims, and truncates to MaxInputLength
// UTF-16 code units without splitting a character.
func SanitizeInput(s string) string {
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = strings.TrimSpace(s)

	units := 0
	for i, r := range s {
		n := 1
		if r >= 0x10000 && r <= utf8.MaxRune {
			n = 2
		}
		if units+n > MaxInputLength {
			return s[:i]
		}
		units += n
	}
	return s
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func fieldOf(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return strings.ToLower(verrs[0].Field())
	}
	return ""
}
