package chart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
)

var (
	ErrChartRender    = errors.New("chart rasterization failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
)

// Rasterizer turns an SVG document into PNG bytes of the given pixel size.
type Rasterizer interface {
	Rasterize(ctx context.Context, svgDoc string, width, height int) ([]byte, error)
	Close() error
}

var _ Rasterizer = (*RodRasterizer)(nil)

// RodRasterizer screenshots SVG documents in headless Chrome. The browser is
// launched on first use and shared by later calls.
type RodRasterizer struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	bin      string
	timeout time.Duration
}

// NewRodRasterizer returns a rasterizer that launches bin, or a browser found by
// the rod launcher when bin is empty.
func NewRodRasterizer(bin string, timeout time.Duration) *RodRasterizer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RodRasterizer{bin: bin, timeout: timeout}
}

func (r *RodRasterizer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()
	if r.bin != "" {
		l = l.Bin(r.bin).NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.browser, r.launcher = b, l
	return b, nil
}

// discard drops b if it is still the shared browser, so the next call
// relaunches. Callers use it when b stops answering.
func (r *RodRasterizer) discard(b *rod.Browser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b == nil || r.browser != b {
		return
	}
	_ = r.shutdown()
}

// shutdown closes the browser and kills its process. r.mu must be held.
func (r *RodRasterizer) shutdown() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
	}
	if r.launcher != nil {
		r.launcher.Kill()
	}
	r.browser, r.launcher = nil, nil
	return err
}

func (r *RodRasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shutdown()
}

func (r *RodRasterizer) Rasterize(ctx context.Context, svgDoc string, width, height int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "chart-*.svg")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.WriteString(svgDoc); err != nil {
		f.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + path})
	if err != nil {
		r.discard(browser)
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("load svg: %w", err)
	}

	png, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			Width:  float64(width),
			Height: float64(height),
			Scale:  1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return png, nil
}

// RenderPNG draws data and rasterizes it. Rasterization is best effort: without a
// rasterizer, or on failure, it logs and returns nil.
func (g *Generator) RenderPNG(ctx context.Context, data []Datum) *hwpx.RasterImage {
	if g.raster == nil {
		g.log.Warn("chart png requested without a rasterizer", "error", ErrChartRender)
		return nil
	}
	doc := g.Render(data)
	png, err := g.raster.Rasterize(ctx, doc, g.layout.Width, g.layout.Height)
	if err == nil && len(png) == 0 {
		err = errors.New("empty image")
	}
	if err != nil {
		g.log.Warn("chart rasterization failed",
			"error", fmt.Errorf("%w: %v", ErrChartRender, err),
			"points", len(data),
		)
		return nil
	}
	return &hwpx.RasterImage{Data: png, WidthPx: g.layout.Width, HeightPx: g.layout.Height}
}
