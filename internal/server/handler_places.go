package server

import (
	"net/http"

	"github.com/me/lunchwheel/internal/config"
	"github.com/me/lunchwheel/internal/places"
	"github.com/me/lunchwheel/internal/validate"
	"github.com/me/lunchwheel/pkg/model"
)

func (s *Server) handlePlaces(w http.ResponseWriter, r *http.Request) {
	tr := s.trace(r, "places")

	q := r.URL.Query()
	query, err := validate.SearchQuery(q.Get("lat"), q.Get("lng"), q.Get("radius"), q.Get("rankBy"))
	if err != nil {
		s.respondFailure(w, tr, placesFailures, err)
		return
	}
	if err := validate.RequiredConfig(s.config.Secrets(), config.EnvGoogleAPIKey); err != nil {
		s.respondFailure(w, tr, placesFailures, err)
		return
	}
	tr.to(model.RequestStateValidated,
		"lat", query.Latitude,
		"lng", query.Longitude,
		"radius", query.RadiusMeters,
		"rank", query.RankPreference,
	)

	requestURL, signed, err := s.google.NearbySearchURL(query)
	if err != nil {
		s.respondFailure(w, tr, placesFailures, err)
		return
	}
	if signed {
		tr.to(model.RequestStateSigned)
	}

	tr.to(model.RequestStateUpstreamCalled)
	candidates, err := s.google.FetchNearby(r.Context(), requestURL)
	if err != nil {
		s.respondFailure(w, tr, placesFailures, err)
		return
	}

	kept := places.FilterAndNormalize(candidates)
	tr.to(model.RequestStateSucceeded, "upstream_results", len(candidates), "restaurants", len(kept))

	tr.to(model.RequestStateResponded, "http_status", http.StatusOK)
	s.respondOK(w, model.PlacesResponse{Places: kept})
}
