package chart

import "strings"

// DefaultColor is used for groups with no palette entry.
const DefaultColor = "#576574"

// Palette maps competency group names to stroke and fill colours.
type Palette struct {
	colors   map[string]string
	fallback string
}

// DefaultPalette covers the competency groups of the reading diagnostic.
func DefaultPalette() Palette {
	return NewPalette(map[string]string{
		"이해 역량": "#2E86DE",
		"사고 역량": "#10AC84",
		"표현 역량": "#EE5253",
		"소통 역량": "#FF9F43",
		"태도":    "#8854D0",
	}, DefaultColor)
}

// NewPalette copies colors. An empty fallback selects DefaultColor.
func NewPalette(colors map[string]string, fallback string) Palette {
	p := Palette{colors: make(map[string]string, len(colors)), fallback: fallback}
	for group, c := range colors {
		p.colors[strings.TrimSpace(group)] = c
	}
	if p.fallback == "" {
		p.fallback = DefaultColor
	}
	return p
}

// With returns a copy of p with overrides applied on top.
func (p Palette) With(overrides map[string]string) Palette {
	merged := make(map[string]string, len(p.colors)+len(overrides))
	for k, v := range p.colors {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[strings.TrimSpace(k)] = v
	}
	return NewPalette(merged, p.fallback)
}

// Color returns the colour for group.
func (p Palette) Color(group string) string {
	if c, ok := p.colors[strings.TrimSpace(group)]; ok && c != "" {
		return c
	}
	if p.fallback == "" {
		return DefaultColor
	}
	return p.fallback
}
