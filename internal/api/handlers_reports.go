package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
	"github.com/domafordarwin/readingpro-docgen/internal/pipeline"
	"github.com/domafordarwin/readingpro-docgen/internal/report"
)

const maxJSONBody = 4 << 20

type createReportRequest struct {
	Report   report.Report `json:"report"`
	Format   string        `json:"format"`
	Anchor   string        `json:"anchor"`
	WidthPx  int           `json:"width_px"`
	HeightPx int           `json:"height_px"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Report.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	format, err := pipeline.ParseFormat(req.Format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	placement, err := s.placement(req.Anchor, req.WidthPx, req.HeightPx)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(req.Report, format, placement)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":       job.ID,
		"status":       pipeline.StatusQueued,
		"format":       job.Format,
		"poll_url":     fmt.Sprintf("/api/reports/%s/status", job.ID),
		"download_url": fmt.Sprintf("/api/reports/%s/download", job.ID),
	})
}

// placement resolves request overrides against the configured chart placement.
func (s *Server) placement(anchor string, widthPx, heightPx int) (hwpx.Placement, error) {
	if anchor == "" {
		anchor = s.cfg.Chart.Anchor
	}
	a, err := hwpx.ParseAnchor(anchor)
	if err != nil {
		return hwpx.Placement{}, err
	}
	if widthPx < 0 || heightPx < 0 {
		return hwpx.Placement{}, errors.New("width_px and height_px must not be negative")
	}
	p := hwpx.Placement{WidthPx: s.cfg.Chart.WidthPx, HeightPx: s.cfg.Chart.HeightPx, Anchor: a}
	if widthPx > 0 {
		p.WidthPx = widthPx
	}
	if heightPx > 0 {
		p.HeightPx = heightPx
	}
	return p, nil
}

func (s *Server) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleReportDownload(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	switch snap.Status {
	case pipeline.StatusCompleted:
	case pipeline.StatusFailed:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "job failed",
			"status": snap.Status,
			"errors": snap.Errors,
		})
		return
	default:
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job not completed",
			"status": snap.Status,
		})
		return
	}

	writeAttachment(w, snap.Format.ContentType(), snap.Filename, job.Result())
	s.log.Info("report downloaded", "job_id", snap.ID, "bytes", snap.ResultBytes)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": sanitizeFilename(filename),
	}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
