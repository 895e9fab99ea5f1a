package server

import (
	"errors"
	"net/http"

	"github.com/me/lunchwheel/pkg/model"
)

// failureMessages are the caller-facing messages for one proxy operation.
type failureMessages struct {
	upstream  string // upstream returned a non-success status
	transport string // network failure, timeout or anything unexpected
}

var (
	geocodeFailures = failureMessages{upstream: "Geocoding failed", transport: "Failed to geocode ZIP code"}
	placesFailures  = failureMessages{upstream: "Google Places API error", transport: "Failed to fetch restaurants"}
)

// respondFailure maps err onto the error taxonomy, records the outcome on
// the trace and writes the error envelope. Internal detail stays in the log.
func (s *Server) respondFailure(w http.ResponseWriter, tr *requestTrace, msgs failureMessages, err error) {
	var (
		ve *model.ValidationError
		ce *model.ConfigurationError
		ue *model.UpstreamStatusError
	)

	status := http.StatusInternalServerError
	message := msgs.transport
	var details map[string]any

	switch {
	case errors.As(err, &ve):
		status, message = http.StatusBadRequest, ve.Message
	case errors.As(err, &ce):
		message = model.MsgConfiguration
		tr.logger.Error("missing server configuration", "missing", ce.Missing)
	case errors.As(err, &ue):
		status, message = http.StatusBadRequest, msgs.upstream
		details = map[string]any{"status": ue.Status}
	}

	if tr.state == model.RequestStateUpstreamCalled {
		outcome := model.RequestStateTransportError
		if ue != nil {
			outcome = model.RequestStateUpstreamError
		}
		tr.to(outcome, "error", err.Error())
	} else if ce == nil {
		tr.logger.Info("request rejected", "error", err.Error())
	}
	tr.to(model.RequestStateResponded, "http_status", status)

	s.respondError(w, status, message, details)
}
