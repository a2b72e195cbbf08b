package api

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) handleConversionStats(w http.ResponseWriter, r *http.Request) {
	if s.converter == nil || s.converter.Stats() == nil {
		jsonError(w, "conversion stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"converter":   s.converter.BaseURL(),
		"stats":       s.converter.Stats().Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"jobs":        s.orchestrator.ActiveJobs(),
	})
}

func (s *Server) handleConverterHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if s.converter == nil || !s.converter.Healthy(ctx) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
