package geo

import olc "github.com/google/open-location-code/go"

// PlusCodeLength gives roughly 14 m precision, enough to find a storefront.
const PlusCodeLength = 10

// PlusCode returns the full Open Location Code for p.
func PlusCode(p Point) string {
	return olc.Encode(p.Lat(), p.Lng(), PlusCodeLength)
}
