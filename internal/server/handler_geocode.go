package server

import (
	"net/http"

	"github.com/me/lunchwheel/internal/config"
	"github.com/me/lunchwheel/internal/validate"
	"github.com/me/lunchwheel/pkg/model"
)

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	tr := s.trace(r, "geocode")

	zip := r.URL.Query().Get("zipCode")
	if err := validate.ZipCode(zip); err != nil {
		s.respondFailure(w, tr, geocodeFailures, err)
		return
	}
	zip = validate.SanitizeInput(zip)

	if err := validate.RequiredConfig(s.config.Secrets(), config.EnvGoogleAPIKey); err != nil {
		s.respondFailure(w, tr, geocodeFailures, err)
		return
	}
	tr.to(model.RequestStateValidated, "zip", zip)

	requestURL, signed, err := s.google.GeocodeURL(zip)
	if err != nil {
		s.respondFailure(w, tr, geocodeFailures, err)
		return
	}
	if signed {
		tr.to(model.RequestStateSigned)
	}

	tr.to(model.RequestStateUpstreamCalled)
	res, err := s.google.FetchGeocode(r.Context(), requestURL)
	if err != nil {
		s.respondFailure(w, tr, geocodeFailures, err)
		return
	}
	tr.to(model.RequestStateSucceeded, "google_status", res.Status)

	tr.to(model.RequestStateResponded, "http_status", http.StatusOK)
	s.respondOK(w, res.Payload)
}
