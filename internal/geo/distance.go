// Package geo computes great-circle distances between points.
package geo

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/me/lunchwheel/pkg/model"
)

// EarthRadiusMiles is the mean Earth radius used for distances.
const EarthRadiusMiles = 3958.8

// Point is a normalized geographic point. Like orb.Point it is stored as
// [lng, lat]; build one with FromLatLng rather than a literal.
type Point orb.Point

// FromLatLng builds a Point from latitude and longitude in degrees.
func FromLatLng(lat, lng float64) Point {
	return Point{lng, lat}
}

// FromLatLngShape converts Google's {lat,lng} shape.
func FromLatLngShape(p model.LatLng) Point {
	return FromLatLng(p.Lat, p.Lng)
}

// FromLocation converts the {latitude,longitude} shape used in responses.
func FromLocation(l model.Location) Point {
	return FromLatLng(l.Latitude, l.Longitude)
}

// Lat returns the latitude in degrees.
func (p Point) Lat() float64 { return orb.Point(p).Lat() }

// Lng returns the longitude in degrees.
func (p Point) Lng() float64 { return orb.Point(p).Lon() }

// DistanceMiles returns the haversine distance between a and b in miles.
func DistanceMiles(a, b Point) float64 {
	lat1 := deg2rad(a.Lat())
	lat2 := deg2rad(b.Lat())
	dLat := lat2 - lat1
	dLng := deg2rad(b.Lng() - a.Lng())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMiles * c
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}
