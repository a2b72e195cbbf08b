// Package docx renders report outlines as Word documents.
package docx

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	godocx "github.com/fumiama/go-docx"

	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
	"github.com/domafordarwin/readingpro-docgen/internal/report"
)

// Half-point font sizes per heading level; body text uses bodySize.
var headingSizes = map[int]string{1: "36", 2: "28", 3: "24"}

const (
	bodySize    = "21"
	defaultSize = "22"
)

// Builder writes .docx files. Chart placement follows the HWPX policy: the
// picture goes in its own paragraph right after the first heading.
type Builder struct {
	log *slog.Logger
}

func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// Build renders blocks, embedding img when it is non-nil. A chart that cannot be
// embedded is logged and left out; the document is still produced.
func (b *Builder) Build(blocks []report.Block, img *hwpx.RasterImage) ([]byte, error) {
	doc := godocx.New().WithDefaultTheme()

	pending := img != nil && len(img.Data) > 0
	for _, blk := range blocks {
		switch blk.Kind {
		case report.BlockHeading:
			size, ok := headingSizes[blk.Level]
			if !ok {
				size = defaultSize
			}
			doc.AddParagraph().AddText(blk.Text).Size(size).Bold()
			if pending {
				b.addChart(doc, img)
				pending = false
			}

		case report.BlockListItem:
			indent := strings.Repeat("    ", max(blk.Level-1, 0))
			doc.AddParagraph().AddText(indent + "• " + blk.Text).Size(bodySize)

		case report.BlockTableRow:
			run := doc.AddParagraph().AddText(strings.Join(blk.Cells, "\t")).Size(bodySize)
			if blk.Header {
				run.Bold()
			}

		default:
			for _, line := range strings.Split(blk.Text, "\n") {
				doc.AddParagraph().AddText(line).Size(bodySize)
			}
		}
	}
	// No heading to anchor on: the chart closes the document.
	if pending {
		b.addChart(doc, img)
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) addChart(doc *godocx.Docx, img *hwpx.RasterImage) {
	if _, err := doc.AddParagraph().AddInlineDrawing(img.Data); err != nil {
		b.log.Warn("chart not embedded in docx", "error", err, "image_bytes", len(img.Data))
	}
}
