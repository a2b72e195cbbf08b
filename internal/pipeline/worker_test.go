package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domafordarwin/readingpro-docgen/internal/chart"
	"github.com/domafordarwin/readingpro-docgen/internal/converter"
	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
	"github.com/domafordarwin/readingpro-docgen/internal/report"
)

const (
	fixtureManifest = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<opf:package xmlns:opf="http://www.idpf.org/2007/opf/"><opf:manifest>` +
		`<opf:item id="section0" href="Contents/section0.xml" media-type="application/xml"/>` +
		`</opf:manifest></opf:package>`
	fixtureSection = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<hs:sec xmlns:hs="http://www.hancom.co.kr/hwpml/2011/section" xmlns:hp="http://www.hancom.co.kr/hwpml/2011/paragraph">` +
		`<hp:p id="1"><hp:run><hp:secPr/></hp:run></hp:p>` +
		`<hp:p id="2"><hp:run><hp:t>읽기 진단 보고서</hp:t></hp:run></hp:p>` +
		`</hs:sec>`
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixtureHWPX(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, e := range []struct{ name, data string }{
		{"mimetype", "application/hwp+zip"},
		{hwpx.ManifestEntry, fixtureManifest},
		{hwpx.SectionEntry, fixtureSection},
	} {
		fw, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(e.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func fixturePNG(t *testing.T) *hwpx.RasterImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 46, G: 134, B: 222, A: 255})
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return &hwpx.RasterImage{Data: buf.Bytes(), WidthPx: 4, HeightPx: 4}
}

func sampleReport() report.Report {
	return report.Report{
		Title:       "읽기 진단 보고서",
		StudentName: "김하늘",
		Scores: []chart.Datum{
			{Name: "사실적 이해", Group: "이해 역량", Score: 80},
			{Name: "추론적 사고", Group: "사고 역량", Score: 65},
			{Name: "글쓰기", Group: "표현 역량", Score: 72},
		},
		Sections: []report.Section{{Heading: "종합 의견", Body: "꾸준히 읽고 있습니다."}},
	}
}

// fakeConverter fails with errs in order and then returns doc.
type fakeConverter struct {
	mu       sync.Mutex
	errs     []error
	doc      []byte
	calls    int
	markdown string
	filename string
}

func (f *fakeConverter) ConvertAndDownload(_ context.Context, markdown, filename string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.markdown, f.filename = markdown, filename
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.doc, nil
}

func (f *fakeConverter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCharts struct {
	img   *hwpx.RasterImage
	calls int
}

func (f *fakeCharts) RenderPNG(_ context.Context, data []chart.Datum) *hwpx.RasterImage {
	f.calls++
	return f.img
}

func newTestWorker(conv Converter, charts ChartRenderer, maxRetries int) *Worker {
	w := NewWorker(Deps{Converter: conv, Charts: charts}, discardLogger(), maxRetries)
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

func unavailable() error {
	return &converter.ConversionError{Op: converter.OpSubmit, StatusCode: 503, Body: "busy"}
}

func archiveNames(t *testing.T, archive []byte) []string {
	t.Helper()
	entries, err := hwpx.Entries(archive)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestWorker_HWPXWithChart(t *testing.T) {
	conv := &fakeConverter{doc: fixtureHWPX(t)}
	charts := &fakeCharts{img: fixturePNG(t)}
	job := NewJob(sampleReport(), FormatHWPX, hwpx.DefaultPlacement())

	newTestWorker(conv, charts, 3).Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, snap.Errors)
	assert.True(t, snap.ChartEmbedded)
	assert.Equal(t, 1, snap.Attempts)
	assert.Equal(t, 1, charts.calls)
	assert.Equal(t, "김하늘_report.md", conv.filename)
	assert.True(t, strings.HasPrefix(conv.markdown, "# 읽기 진단 보고서\n"))

	names := archiveNames(t, job.Result())
	require.Len(t, names, 4)
	assert.Equal(t, []string{"mimetype", hwpx.ManifestEntry, hwpx.SectionEntry}, names[:3])
	assert.True(t, strings.HasPrefix(names[3], "BinData/image"), names[3])
}

func TestWorker_HWPXWithoutChart(t *testing.T) {
	doc := fixtureHWPX(t)
	conv := &fakeConverter{doc: doc}
	job := NewJob(sampleReport(), FormatHWPX, hwpx.DefaultPlacement())

	newTestWorker(conv, &fakeCharts{}, 3).Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status)
	assert.False(t, snap.ChartEmbedded)
	assert.Equal(t, doc, job.Result())
}

func TestWorker_NoScoresSkipsChart(t *testing.T) {
	r := sampleReport()
	r.Scores = nil
	charts := &fakeCharts{img: fixturePNG(t)}
	job := NewJob(r, FormatHWPX, hwpx.DefaultPlacement())

	newTestWorker(&fakeConverter{doc: fixtureHWPX(t)}, charts, 1).Process(context.Background(), job)

	assert.Equal(t, StatusCompleted, job.Snapshot().Status)
	assert.Zero(t, charts.calls)
}

func TestWorker_InjectionFailureKeepsDocument(t *testing.T) {
	doc := []byte("not a zip archive")
	job := NewJob(sampleReport(), FormatHWPX, hwpx.DefaultPlacement())

	newTestWorker(&fakeConverter{doc: doc}, &fakeCharts{img: fixturePNG(t)}, 1).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.False(t, snap.ChartEmbedded)
	assert.Equal(t, doc, job.Result())
}

func TestWorker_RetriesTransientErrors(t *testing.T) {
	conv := &fakeConverter{errs: []error{unavailable(), unavailable()}, doc: fixtureHWPX(t)}
	job := NewJob(sampleReport(), FormatHWPX, hwpx.DefaultPlacement())

	newTestWorker(conv, nil, 3).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 3, snap.Attempts)
	assert.Equal(t, 3, conv.Calls())
}

func TestWorker_RetriesExhausted(t *testing.T) {
	conv := &fakeConverter{errs: []error{unavailable(), unavailable(), unavailable()}}
	job := NewJob(sampleReport(), FormatHWPX, hwpx.DefaultPlacement())

	newTestWorker(conv, nil, 2).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "converting", snap.Phase)
	assert.Equal(t, 2, conv.Calls())
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "status 503")
	assert.Nil(t, job.Result())
}

func TestWorker_NonRetryableFailsFast(t *testing.T) {
	conv := &fakeConverter{errs: []error{
		&converter.ConversionError{Op: converter.OpDownload, StatusCode: 404, Body: "conversion not found"},
	}}
	job := NewJob(sampleReport(), FormatHWPX, hwpx.DefaultPlacement())

	newTestWorker(conv, nil, 3).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, 1, conv.Calls())
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "404")
}

func TestWorker_CancelledDuringBackoff(t *testing.T) {
	conv := &fakeConverter{errs: []error{unavailable()}}
	job := NewJob(sampleReport(), FormatHWPX, hwpx.DefaultPlacement())
	w := newTestWorker(conv, nil, 3)
	w.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	w.Process(ctx, job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, 1, conv.Calls())
}

func TestWorker_InvalidReport(t *testing.T) {
	r := sampleReport()
	r.Scores[0].Score = 140
	conv := &fakeConverter{doc: fixtureHWPX(t)}
	job := NewJob(r, FormatHWPX, hwpx.DefaultPlacement())

	newTestWorker(conv, nil, 3).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "building", snap.Phase)
	assert.Zero(t, conv.Calls())
}

func TestWorker_DOCX(t *testing.T) {
	conv := &fakeConverter{}
	job := NewJob(sampleReport(), FormatDOCX, hwpx.DefaultPlacement())

	newTestWorker(conv, &fakeCharts{img: fixturePNG(t)}, 3).Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, snap.Errors)
	assert.True(t, snap.ChartEmbedded)
	assert.Zero(t, conv.Calls(), "docx export never calls the conversion service")

	zr, err := zip.NewReader(bytes.NewReader(job.Result()), int64(len(job.Result())))
	require.NoError(t, err)
	var hasDocument bool
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			hasDocument = true
		}
	}
	assert.True(t, hasDocument)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(unavailable()))
	assert.True(t, IsRetryable(&converter.ConversionError{Op: converter.OpSubmit, Err: io.ErrUnexpectedEOF}))
	assert.False(t, IsRetryable(&converter.ConversionError{Op: converter.OpSubmit, StatusCode: 400}))
	assert.False(t, IsRetryable(&converter.ConversionError{Op: converter.OpSubmit, StatusCode: 200, Err: converter.ErrMissingID}))
	assert.False(t, IsRetryable(io.EOF))
}

func TestBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/2)
	}
	assert.GreaterOrEqual(t, Backoff(10), maxBackoff)
	assert.Less(t, Backoff(10), maxBackoff+maxBackoff/2)
}
