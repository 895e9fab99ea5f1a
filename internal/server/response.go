package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// timestampLayout is ISO 8601 UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// setCORSHeaders applies the CORS policy: any origin, unless the server runs
// in production, where only the configured origin is allowed.
func (s *Server) setCORSHeaders(w http.ResponseWriter) {
	origin := "*"
	if s.config.IsProduction() {
		origin = s.config.AllowedOrigin
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Set("Access-Control-Max-Age", "3600")
	if origin != "*" {
		h.Add("Vary", "Origin")
	}
}

// respondSuccess writes data as the JSON body.
func (s *Server) respondSuccess(w http.ResponseWriter, status int, data any) {
	s.respondJSON(w, status, data)
}

// respondOK writes a 200 success response.
func (s *Server) respondOK(w http.ResponseWriter, data any) {
	s.respondSuccess(w, http.StatusOK, data)
}

// respondError writes the error envelope: {error, ...details, timestamp}.
// Details are merged at the top level and cannot replace error or timestamp.
func (s *Server) respondError(w http.ResponseWriter, status int, message string, details map[string]any) {
	body := make(map[string]any, len(details)+2)
	for k, v := range details {
		body[k] = v
	}
	body["error"] = message
	body["timestamp"] = s.timestamp()
	s.respondJSON(w, status, body)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	s.setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
