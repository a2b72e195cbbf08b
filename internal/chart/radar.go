// Package chart draws competency radar charts as SVG and, optionally, PNG.
package chart

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"
)

// Datum is one axis of a radar chart. Order determines angular position:
// index 0 sits at the top and the rest follow clockwise.
type Datum struct {
	Name  string  `json:"name" yaml:"name"`
	Group string  `json:"group" yaml:"group"`
	Score float64 `json:"score" yaml:"score"`
}

// Layout is the canvas geometry in pixels.
type Layout struct {
	Width     int
	Height    int
	CenterX   int
	CenterY   int
	Radius    int
	RingCount int
}

// labelOffset is the distance of axis labels beyond the outer ring.
const labelOffset = 28

// DefaultLayout is the 460x420 canvas used in generated reports.
func DefaultLayout() Layout {
	return Layout{
		Width:     460,
		Height:    420,
		CenterX:   230,
		CenterY:   210,
		Radius:    140,
		RingCount: 5,
	}
}

func (l Layout) withDefaults() Layout {
	d := DefaultLayout()
	if l.Width <= 0 {
		l.Width = d.Width
	}
	if l.Height <= 0 {
		l.Height = d.Height
	}
	if l.CenterX <= 0 {
		l.CenterX = l.Width / 2
	}
	if l.CenterY <= 0 {
		l.CenterY = l.Height / 2
	}
	if l.Radius <= 0 {
		l.Radius = d.Radius
	}
	if l.RingCount <= 0 {
		l.RingCount = d.RingCount
	}
	return l
}

// Generator renders radar charts. It holds no mutable state and is safe for
// concurrent use.
type Generator struct {
	layout  Layout
	palette Palette
	raster  Rasterizer
	log     *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

func WithLayout(l Layout) Option {
	return func(g *Generator) { g.layout = l.withDefaults() }
}

func WithPalette(p Palette) Option {
	return func(g *Generator) { g.palette = p }
}

// WithRasterizer enables RenderPNG.
func WithRasterizer(r Rasterizer) Option {
	return func(g *Generator) { g.raster = r }
}

func WithLogger(log *slog.Logger) Option {
	return func(g *Generator) {
		if log != nil {
			g.log = log
		}
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		layout:  DefaultLayout(),
		palette: DefaultPalette(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Layout reports the canvas geometry used by Render.
func (g *Generator) Layout() Layout {
	return g.layout
}

// Render draws data as an SVG document. Identical input yields identical bytes.
func (g *Generator) Render(data []Datum) string {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	l := g.layout

	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, "fill:#ffffff")

	if len(data) == 0 {
		canvas.Text(l.CenterX, l.CenterY, "데이터 없음",
			"text-anchor:middle;dominant-baseline:middle;font-size:16px;fill:#8395a7", `class="placeholder"`)
		canvas.End()
		return buf.String()
	}

	n := len(data)
	g.drawGrid(canvas, n)
	g.drawSeries(canvas, data)
	g.drawLabels(canvas, data)

	canvas.End()
	return buf.String()
}

func (g *Generator) drawGrid(canvas *svg.SVG, n int) {
	l := g.layout

	// Outermost first so inner rings paint over it.
	for ring := l.RingCount; ring >= 1; ring-- {
		r := float64(l.Radius) * float64(ring) / float64(l.RingCount)
		xs, ys := g.polygon(n, func(int) float64 { return r })

		fill := "#ffffff"
		if ring%2 == 0 {
			fill = "#f1f2f6"
		}
		stroke := "stroke:#dfe4ea;stroke-width:1"
		if ring == l.RingCount {
			stroke = "stroke:#8395a7;stroke-width:1.5"
		}
		canvas.Polygon(xs, ys, "fill:"+fill+";"+stroke, `class="ring"`)
	}

	for i := 0; i < n; i++ {
		x, y := g.point(i, n, float64(l.Radius))
		canvas.Line(l.CenterX, l.CenterY, x, y, "stroke:#c8d6e5;stroke-width:1", `class="spoke"`)
	}

	for ring := 1; ring <= l.RingCount; ring++ {
		if ring%2 != 0 && ring != l.RingCount {
			continue
		}
		r := l.Radius * ring / l.RingCount
		label := strconv.Itoa(ring * 100 / l.RingCount)
		canvas.Text(l.CenterX+4, l.CenterY-r-2, label, "font-size:10px;fill:#8395a7", `class="scale"`)
	}
}

func (g *Generator) drawSeries(canvas *svg.SVG, data []Datum) {
	n := len(data)
	radius := float64(g.layout.Radius)
	xs, ys := g.polygon(n, func(i int) float64 {
		return radius * clampScore(data[i].Score) / 100
	})
	canvas.Polygon(xs, ys, "fill:#2e86de;fill-opacity:0.25;stroke:#2e86de;stroke-width:2", `class="series"`)

	for i, d := range data {
		color := g.palette.Color(d.Group)
		canvas.Circle(xs[i], ys[i], 4, "fill:"+color+";stroke:#ffffff;stroke-width:1.5", `class="marker"`)
	}
}

func (g *Generator) drawLabels(canvas *svg.SVG, data []Datum) {
	n := len(data)
	r := float64(g.layout.Radius + labelOffset)
	for i, d := range data {
		x, y := g.point(i, n, r)
		color := g.palette.Color(d.Group)
		anchor := textAnchor(angle(i, n))
		score := fmt.Sprintf("%d점", int(math.Round(clampScore(d.Score))))

		canvas.Text(x, y, d.Name,
			"text-anchor:"+anchor+";font-size:12px;fill:"+color, `class="label-name"`)
		canvas.Text(x, y+15, score,
			"text-anchor:"+anchor+";font-size:11px;font-weight:bold;fill:"+color, `class="label-score"`)
	}
}

// polygon returns the vertices of an n-gon whose i-th vertex lies at radius(i).
func (g *Generator) polygon(n int, radius func(int) float64) ([]int, []int) {
	xs := make([]int, n)
	ys := make([]int, n)
	for i := 0; i < n; i++ {
		xs[i], ys[i] = g.point(i, n, radius(i))
	}
	return xs, ys
}

func (g *Generator) point(i, n int, r float64) (int, int) {
	a := angle(i, n)
	x := float64(g.layout.CenterX) + r*math.Cos(a)
	y := float64(g.layout.CenterY) + r*math.Sin(a)
	return int(math.Round(x)), int(math.Round(y))
}

// angle places index 0 at the top and proceeds clockwise. n must be positive.
func angle(i, n int) float64 {
	return float64(i)*2*math.Pi/float64(n) - math.Pi/2
}

func textAnchor(a float64) string {
	c := math.Cos(a)
	switch {
	case c > 0.1:
		return "start"
	case c < -0.1:
		return "end"
	default:
		return "middle"
	}
}

func clampScore(s float64) float64 {
	switch {
	case math.IsNaN(s) || s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}
