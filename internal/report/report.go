// Package report assembles diagnostic report content into Markdown for conversion.
package report

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/domafordarwin/readingpro-docgen/internal/chart"
)

var ErrInvalidReport = errors.New("invalid report")

// Section is one narrative block of a report. Body may contain Markdown or a
// limited HTML fragment; HTML is reduced to Markdown by BuildMarkdown.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Report is the content of one student's diagnostic report.
type Report struct {
	Title       string        `json:"title"`
	StudentName string        `json:"student_name,omitempty"`
	School      string        `json:"school,omitempty"`
	Grade       string        `json:"grade,omitempty"`
	AssessedOn  string        `json:"assessed_on,omitempty"`
	Scores      []chart.Datum `json:"scores"`
	Sections    []Section     `json:"sections"`
}

// Validate rejects reports that cannot be rendered meaningfully.
func (r Report) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidReport)
	}
	for i, s := range r.Scores {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: score %d has no name", ErrInvalidReport, i)
		}
		if math.IsNaN(s.Score) || s.Score < 0 || s.Score > 100 {
			return fmt.Errorf("%w: score %q is %v, want 0..100", ErrInvalidReport, s.Name, s.Score)
		}
	}
	for i, s := range r.Sections {
		if strings.TrimSpace(s.Heading) == "" {
			return fmt.Errorf("%w: section %d has no heading", ErrInvalidReport, i)
		}
	}
	return nil
}

// Filename is the Markdown file name sent to the conversion service.
func (r Report) Filename() string {
	name := strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return c
	}, strings.TrimSpace(r.StudentName))
	if name == "" {
		return "report.md"
	}
	return strings.ReplaceAll(name, " ", "_") + "_report.md"
}

// BuildMarkdown renders r as a single Markdown document: the title heading, a
// student information table, a score table and one second-level section per
// narrative block. The title is the first paragraph after conversion, which is
// where the radar chart is anchored.
func BuildMarkdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", oneLine(r.Title))

	info := [][2]string{
		{"학생", r.StudentName},
		{"학교", r.School},
		{"학년", r.Grade},
		{"진단일", r.AssessedOn},
	}
	var rows [][2]string
	for _, kv := range info {
		if strings.TrimSpace(kv[1]) != "" {
			rows = append(rows, kv)
		}
	}
	if len(rows) > 0 {
		b.WriteString("| 항목 | 내용 |\n|---|---|\n")
		for _, kv := range rows {
			fmt.Fprintf(&b, "| %s | %s |\n", kv[0], cell(kv[1]))
		}
		b.WriteString("\n")
	}

	if len(r.Scores) > 0 {
		b.WriteString("## 역량별 점수\n\n")
		b.WriteString("| 영역 | 역량 | 점수 |\n|---|---|---:|\n")
		for _, s := range r.Scores {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", cell(s.Group), cell(s.Name), int(math.Round(s.Score)))
		}
		b.WriteString("\n")
	}

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n", oneLine(s.Heading))
		if body := SanitizeBody(s.Body); body != "" {
			b.WriteString(body)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}
