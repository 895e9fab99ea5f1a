package server

import (
	"net/http"
	"runtime"

	"github.com/me/lunchwheel/pkg/model"
)

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w, model.HealthResponse{
		Message:   "OK",
		Timestamp: s.timestamp(),
		GoVersion: runtime.Version(),
	})
}
