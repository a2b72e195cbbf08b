package api

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
)

// handleInject embeds an uploaded PNG into an uploaded HWPX document. A document
// that cannot be patched is returned unchanged with X-Image-Embedded: false.
func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, docName, err := s.readUpload(r, "document")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	pngData, _, err := s.readUpload(r, "image")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	imgCfg, format, err := image.DecodeConfig(bytes.NewReader(pngData))
	if err != nil || format != "png" {
		jsonError(w, "image must be a PNG", http.StatusBadRequest)
		return
	}

	width, err1 := formInt(r, "width_px")
	height, err2 := formInt(r, "height_px")
	if err1 != nil || err2 != nil {
		jsonError(w, "width_px and height_px must be integers", http.StatusBadRequest)
		return
	}
	placement, err := s.placement(r.FormValue("anchor"), width, height)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	img := hwpx.RasterImage{Data: pngData, WidthPx: imgCfg.Width, HeightPx: imgCfg.Height}
	out, asset := s.injector.Inject(doc, img, placement)
	if asset != nil {
		w.Header().Set("X-Image-Embedded", "true")
		w.Header().Set("X-Image-Asset-Id", asset.ID)
	} else {
		w.Header().Set("X-Image-Embedded", "false")
	}
	writeAttachment(w, "application/hwp+zip", docName, out)
}

func (s *Server) readUpload(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("%s is required: %w", field, err)
	}
	defer file.Close()
	return readLimited(file, header, s.cfg.MaxUploadBytes)
}

func readLimited(file multipart.File, header *multipart.FileHeader, limit int64) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s", header.Filename)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("%s exceeds max size (%d bytes)", header.Filename, limit)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%s is empty", header.Filename)
	}
	return data, header.Filename, nil
}

func formInt(r *http.Request, key string) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
