package api

import (
	"encoding/json"
	"net/http"

	"github.com/domafordarwin/readingpro-docgen/internal/chart"
)

type radarRequest struct {
	Data []chart.Datum `json:"data"`
}

func (s *Server) handleRadarChart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req radarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write([]byte(s.charts.Render(req.Data)))
	case "png":
		img := s.charts.RenderPNG(r.Context(), req.Data)
		if img == nil {
			jsonError(w, "chart rasterization unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img.Data)
	default:
		jsonError(w, "format must be svg or png", http.StatusBadRequest)
	}
}
