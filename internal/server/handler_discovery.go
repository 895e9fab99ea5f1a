package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w, discoveryResponse{
		Name:        "Lunch Wheel API",
		Version:     "v1",
		Description: "Google Maps proxy for the lunch wheel: ZIP geocoding and nearby restaurant search",
		Endpoints: []endpointInfo{
			{"/api/geocode", []string{"GET"}, "Geocode a ZIP code (?zipCode=)"},
			{"/api/places", []string{"GET"}, "Nearby restaurants (?lat=&lng=&radius= or &rankBy=distance)"},
			{"/api/test", []string{"GET"}, "Liveness check"},
			{"/api/diagnostic", []string{"GET"}, "Runtime and upstream diagnostics"},
		},
	})
}
