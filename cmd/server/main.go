package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/domafordarwin/readingpro-docgen/internal/api"
	"github.com/domafordarwin/readingpro-docgen/internal/chart"
	"github.com/domafordarwin/readingpro-docgen/internal/config"
	"github.com/domafordarwin/readingpro-docgen/internal/converter"
	"github.com/domafordarwin/readingpro-docgen/internal/docx"
	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
	"github.com/domafordarwin/readingpro-docgen/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Info(fmt.Sprintf(format, args...))
	}))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	conv := converter.NewClient(cfg.ConverterURL)

	chartOpts := []chart.Option{
		chart.WithLogger(log),
		chart.WithPalette(chart.DefaultPalette().With(cfg.Chart.GroupColors)),
	}
	var raster *chart.RodRasterizer
	if cfg.Chart.Rasterize {
		raster = chart.NewRodRasterizer(cfg.Chart.BrowserBin, cfg.Chart.RenderTimeout)
		chartOpts = append(chartOpts, chart.WithRasterizer(raster))
	} else {
		log.Warn("chart rasterization disabled; reports are built without charts")
	}
	charts := chart.NewGenerator(chartOpts...)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(pipeline.Options{
		Workers:      cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		MaxRetries:   cfg.MaxRetries,
		JobTTL:       cfg.JobTTL,
	}, pipeline.Deps{
		Converter: conv,
		Charts:    charts,
		Injector:  hwpx.NewInjector(log),
		DOCX:      docx.NewBuilder(log),
	}, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, conv, charts, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting requests before the pipeline closes its queue.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown failed", "error", err)
		}

		orch.Stop()

		conv.Close()
		if raster != nil {
			if err := raster.Close(); err != nil {
				log.Warn("browser close failed", "error", err)
			}
		}
	}()

	log.Info("starting docgen", "port", cfg.Port, "converter", cfg.ConverterURL, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
