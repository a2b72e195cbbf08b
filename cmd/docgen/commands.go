package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	flag "github.com/spf13/pflag"

	"github.com/domafordarwin/readingpro-docgen/internal/chart"
	"github.com/domafordarwin/readingpro-docgen/internal/converter"
	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
	"github.com/domafordarwin/readingpro-docgen/internal/report"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	verbose bool
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log progress to stderr")
}

func (f commonFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// browserFlags configure PNG rasterization.
type browserFlags struct {
	bin     string
	timeout time.Duration
}

func addBrowserFlags(fs *flag.FlagSet, f *browserFlags) {
	fs.StringVar(&f.bin, "browser", os.Getenv("ROD_BROWSER_BIN"), "Chrome/Chromium binary (default: auto-detect)")
	fs.DurationVar(&f.timeout, "render-timeout", 15*time.Second, "PNG rendering timeout")
}

// parse runs fs over args. A help request is reported as done=true with no error.
func parse(fs *flag.FlagSet, args []string, stderr io.Writer) (done bool, err error) {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return true, fmt.Errorf("%w: %v", errUsage, err)
	}
	return false, nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}

// decodeFile reads JSON or YAML (by extension) from path into v.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadScores accepts either a bare list of data points or an object with a
// "data" list.
func loadScores(path string) ([]chart.Datum, error) {
	var list []chart.Datum
	if err := decodeFile(path, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Data []chart.Datum `json:"data" yaml:"data"`
	}
	if err := decodeFile(path, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Data, nil
}

func runChart(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		common  commonFlags
		browser browserFlags
		in, out string
	)
	fs := flag.NewFlagSet("chart", flag.ContinueOnError)
	addCommonFlags(fs, &common)
	addBrowserFlags(fs, &browser)
	fs.StringVarP(&in, "in", "i", "", "score data (.json or .yaml)")
	fs.StringVarP(&out, "out", "o", "", "output file (.svg or .png)")
	if done, err := parse(fs, args, stderr); done {
		return err
	}
	if err := errors.Join(requireFlag("in", in), requireFlag("out", out)); err != nil {
		return err
	}

	data, err := loadScores(in)
	if err != nil {
		return err
	}
	log := common.logger(stderr)

	var output []byte
	switch strings.ToLower(filepath.Ext(out)) {
	case ".svg":
		output = []byte(chart.NewGenerator(chart.WithLogger(log)).Render(data))
	case ".png":
		raster := chart.NewRodRasterizer(browser.bin, browser.timeout)
		defer raster.Close()
		img := chart.NewGenerator(chart.WithLogger(log), chart.WithRasterizer(raster)).RenderPNG(ctx, data)
		if img == nil {
			return fmt.Errorf("%w: see log output", chart.ErrChartRender)
		}
		output = img.Data
	default:
		return fmt.Errorf("--out must end in .svg or .png, got %q", out)
	}

	if err := os.WriteFile(out, output, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d points, %d bytes)\n", out, len(data), len(output))
	return nil
}

func runInject(args []string, stdout, stderr io.Writer) error {
	var (
		common            commonFlags
		doc, image, out   string
		anchor            string
		widthPx, heightPx int
	)
	fs := flag.NewFlagSet("inject", flag.ContinueOnError)
	addCommonFlags(fs, &common)
	fs.StringVarP(&doc, "doc", "d", "", "input HWPX document")
	fs.StringVar(&image, "image", "", "PNG image to embed")
	fs.StringVarP(&out, "out", "o", "", "output HWPX document")
	fs.StringVar(&anchor, "anchor", string(hwpx.AnchorAfterFirstHeading), "after_first_heading or before_last_section_close")
	fs.IntVar(&widthPx, "width", hwpx.DefaultWidthPx, "display width in pixels")
	fs.IntVar(&heightPx, "height", hwpx.DefaultHeightPx, "display height in pixels")
	if done, err := parse(fs, args, stderr); done {
		return err
	}
	if err := errors.Join(requireFlag("doc", doc), requireFlag("image", image), requireFlag("out", out)); err != nil {
		return err
	}
	a, err := hwpx.ParseAnchor(anchor)
	if err != nil {
		return err
	}

	archive, err := os.ReadFile(doc)
	if err != nil {
		return err
	}
	pngData, err := os.ReadFile(image)
	if err != nil {
		return err
	}

	injector := hwpx.NewInjector(common.logger(stderr))
	result, asset, err := injector.TryInject(archive,
		hwpx.RasterImage{Data: pngData, WidthPx: widthPx, HeightPx: heightPx},
		hwpx.Placement{WidthPx: widthPx, HeightPx: heightPx, Anchor: a},
	)
	if err != nil {
		return fmt.Errorf("inject %s: %w", doc, err)
	}
	if err := os.WriteFile(out, result, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (embedded %s)\n", out, asset.Path())
	return nil
}

func runConvert(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		common    commonFlags
		browser   browserFlags
		in, out   string
		serverURL string
		withChart bool
	)
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	addCommonFlags(fs, &common)
	addBrowserFlags(fs, &browser)
	fs.StringVarP(&in, "in", "i", "", "Markdown file, or a report as .json/.yaml")
	fs.StringVarP(&out, "out", "o", "", "output HWPX document")
	fs.StringVar(&serverURL, "url", envOr("CONVERTER_URL", "http://localhost:8000"), "conversion service URL")
	fs.BoolVar(&withChart, "chart", false, "render and embed the radar chart (report input only)")
	if done, err := parse(fs, args, stderr); done {
		return err
	}
	if err := errors.Join(requireFlag("in", in), requireFlag("out", out)); err != nil {
		return err
	}
	log := common.logger(stderr)

	var (
		markdown string
		filename = filepath.Base(in)
		scores   []chart.Datum
	)
	switch strings.ToLower(filepath.Ext(in)) {
	case ".json", ".yaml", ".yml":
		var r report.Report
		if err := decodeFile(in, &r); err != nil {
			return err
		}
		if err := r.Validate(); err != nil {
			return err
		}
		markdown, filename, scores = report.BuildMarkdown(r), r.Filename(), r.Scores
	default:
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		markdown = string(data)
		if withChart {
			return errors.New("--chart needs a report file (.json or .yaml)")
		}
	}

	client := converter.NewClient(serverURL)
	defer client.Close()
	doc, err := client.ConvertAndDownload(ctx, markdown, filename)
	if err != nil {
		return err
	}
	log.Debug("converted", "bytes", len(doc))

	if withChart && len(scores) > 0 {
		raster := chart.NewRodRasterizer(browser.bin, browser.timeout)
		defer raster.Close()
		gen := chart.NewGenerator(chart.WithLogger(log), chart.WithRasterizer(raster))
		if img := gen.RenderPNG(ctx, scores); img != nil {
			doc, _ = hwpx.NewInjector(log).Inject(doc, *img, hwpx.DefaultPlacement())
		}
	}

	if err := os.WriteFile(out, doc, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", out, len(doc))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
