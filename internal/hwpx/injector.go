package hwpx

import (
	"errors"
	"fmt"
	"log/slog"
)

// Default picture size in pixels, matching the radar chart canvas.
const (
	DefaultWidthPx  = 460
	DefaultHeightPx = 420
)

var ErrEmptyImage = errors.New("image has no data")

// Placement controls the displayed size and position of an injected picture.
type Placement struct {
	WidthPx  int
	HeightPx int
	Anchor   Anchor
}

// DefaultPlacement returns the chart-sized placement after the first heading.
func DefaultPlacement() Placement {
	return Placement{
		WidthPx:  DefaultWidthPx,
		HeightPx: DefaultHeightPx,
		Anchor:   AnchorAfterFirstHeading,
	}
}

func (p Placement) withDefaults() Placement {
	if p.WidthPx <= 0 {
		p.WidthPx = DefaultWidthPx
	}
	if p.HeightPx <= 0 {
		p.HeightPx = DefaultHeightPx
	}
	if p.Anchor == "" {
		p.Anchor = AnchorAfterFirstHeading
	}
	return p
}

// Injector embeds images into HWPX archives.
type Injector struct {
	log *slog.Logger
}

func NewInjector(log *slog.Logger) *Injector {
	if log == nil {
		log = slog.Default()
	}
	return &Injector{log: log}
}

// Inject returns a copy of archive with img embedded at p. Embedding is best effort:
// on any failure the original archive is returned unchanged and the asset is nil.
func (i *Injector) Inject(archive []byte, img RasterImage, p Placement) ([]byte, *Asset) {
	out, asset, err := i.TryInject(archive, img, p)
	if err != nil {
		i.log.Warn("image injection skipped", "error", err, "archive_bytes", len(archive))
		return archive, nil
	}
	return out, asset
}

// TryInject is Inject with the failure reported instead of absorbed.
func (i *Injector) TryInject(archive []byte, img RasterImage, p Placement) (out []byte, asset *Asset, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, asset, err = nil, nil, fmt.Errorf("internal error: %v", r)
		}
	}()

	if len(img.Data) == 0 {
		return nil, nil, ErrEmptyImage
	}
	p = p.withDefaults()

	a, err := NewPNGAsset()
	if err != nil {
		return nil, nil, err
	}
	geometry := GeometryFor(p.WidthPx, p.HeightPx)
	log := i.log.With("asset_id", a.ID)

	transforms := map[string]Transform{
		ManifestEntry: func(data []byte) ([]byte, error) {
			patched, ok := AddManifestItem(data, a)
			if !ok {
				log.Warn("manifest item list not found, asset left unreferenced", "entry", ManifestEntry)
			}
			return patched, nil
		},
		SectionEntry: func(data []byte) ([]byte, error) {
			fragment := BuildPictureParagraph(a, geometry, newInstanceID())
			patched, ok := InsertParagraph(data, fragment, p.Anchor)
			if !ok {
				log.Warn("section not patched, picture paragraph omitted", "entry", SectionEntry)
			}
			return patched, nil
		},
	}
	additions := []Entry{{Name: a.Path(), Data: img.Data}}

	out, err = RewriteBytes(archive, transforms, additions)
	if err != nil {
		return nil, nil, err
	}
	log.Info("image injected",
		"width_units", geometry.Width,
		"height_units", geometry.Height,
		"anchor", string(p.Anchor),
	)
	return out, &a, nil
}
