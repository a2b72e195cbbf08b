package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/domafordarwin/readingpro-docgen/internal/chart"
	"github.com/domafordarwin/readingpro-docgen/internal/docx"
	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
	"github.com/domafordarwin/readingpro-docgen/internal/report"
)

// Converter turns report Markdown into an HWPX archive.
type Converter interface {
	ConvertAndDownload(ctx context.Context, markdown, filename string) ([]byte, error)
}

// ChartRenderer produces the radar chart image, or nil when none is available.
type ChartRenderer interface {
	RenderPNG(ctx context.Context, data []chart.Datum) *hwpx.RasterImage
}

// Deps are the collaborators a worker needs.
type Deps struct {
	Converter Converter
	Charts    ChartRenderer
	Injector  *hwpx.Injector
	DOCX      *docx.Builder
}

// Worker processes a single report job.
type Worker struct {
	deps       Deps
	log        *slog.Logger
	maxRetries int
	backoff    func(attempt int) time.Duration
}

func NewWorker(deps Deps, log *slog.Logger, maxRetries int) *Worker {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if deps.Injector == nil {
		deps.Injector = hwpx.NewInjector(log)
	}
	if deps.DOCX == nil {
		deps.DOCX = docx.NewBuilder(log)
	}
	return &Worker{
		deps:       deps,
		log:        log,
		maxRetries: maxRetries,
		backoff:    Backoff,
	}
}

// Process runs the full build pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "format", job.Format)
	start := time.Now()

	// Phase 1: Markdown
	job.SetStatus(StatusBuilding, "building")
	if err := job.Report.Validate(); err != nil {
		w.fail(log, job, "building", err)
		return
	}
	markdown := report.BuildMarkdown(job.Report)

	// Phase 2: Chart (best effort)
	job.SetStatus(StatusCharting, "charting")
	var img *hwpx.RasterImage
	if w.deps.Charts != nil && len(job.Report.Scores) > 0 {
		img = w.deps.Charts.RenderPNG(ctx, job.Report.Scores)
	}
	if img == nil {
		log.Info("continuing without chart")
	}

	if job.Format == FormatDOCX {
		data, err := w.deps.DOCX.Build(report.Outline(markdown), img)
		if err != nil {
			w.fail(log, job, "building", err)
			return
		}
		w.complete(log, job, data, img != nil, start)
		return
	}

	// Phase 3: Convert
	job.SetStatus(StatusConverting, "converting")
	doc, err := w.convert(ctx, log, job, markdown)
	if err != nil {
		w.fail(log, job, "converting", err)
		return
	}

	// Phase 4: Inject
	embedded := false
	if img != nil {
		job.SetStatus(StatusInjecting, "injecting")
		var asset *hwpx.Asset
		doc, asset = w.deps.Injector.Inject(doc, *img, job.Placement)
		embedded = asset != nil
		if embedded {
			log.Info("chart embedded", "asset_id", asset.ID)
		}
	}
	w.complete(log, job, doc, embedded, start)
}

// convert calls the conversion service, retrying transient failures.
func (w *Worker) convert(ctx context.Context, log *slog.Logger, job *Job, markdown string) ([]byte, error) {
	var lastErr error
	for attempt := range w.maxRetries {
		job.IncrAttempts()
		doc, err := w.deps.Converter.ConvertAndDownload(ctx, markdown, job.Report.Filename())
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == w.maxRetries-1 {
			break
		}
		log.Warn("retryable conversion error", "attempt", attempt, "error", err)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("job failed", "phase", phase, "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
}

func (w *Worker) complete(log *slog.Logger, job *Job, data []byte, chartEmbedded bool, start time.Time) {
	job.SetResult(data, chartEmbedded)
	job.SetStatus(StatusCompleted, "done")
	log.Info("job completed", "bytes", len(data), "chart_embedded", chartEmbedded, "elapsed", time.Since(start))
}
