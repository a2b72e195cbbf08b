package main

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
)

const testSection = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<hs:sec xmlns:hs="http://www.hancom.co.kr/hwpml/2011/section" xmlns:hp="http://www.hancom.co.kr/hwpml/2011/paragraph">` +
	`<hp:p id="1"><hp:run><hp:t>제목</hp:t></hp:run></hp:p>` +
	`</hs:sec>`

const testManifest = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<opf:package xmlns:opf="http://www.idpf.org/2007/opf/"><opf:manifest/></opf:package>`

func writeHWPX(t *testing.T, dir string) string {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, data := range map[string]string{hwpx.ManifestEntry: testManifest, hwpx.SectionEntry: testSection} {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	path := filepath.Join(dir, "in.hwpx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runArgs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Usage(t *testing.T) {
	_, stderr, err := runArgs(t)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "Commands:")

	_, stderr, err = runArgs(t, "bogus")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, `unknown command "bogus"`)

	stdout, _, err := runArgs(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "docgen dev\n", stdout)
}

func TestChart_SVG(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "scores.json",
		`{"data": [{"name": "사실적 이해", "group": "이해 역량", "score": 80}, {"name": "추론", "score": 55}, {"name": "표현", "score": 70}]}`)
	out := filepath.Join(dir, "chart.svg")

	stdout, _, err := runArgs(t, "chart", "--in", in, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 points")

	svgDoc, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(svgDoc), "80점")
}

func TestChart_YAMLList(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "scores.yaml", "- name: 이해\n  score: 40\n- name: 사고\n  score: 90\n")
	out := filepath.Join(dir, "chart.svg")

	stdout, _, err := runArgs(t, "chart", "-i", in, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 points")
}

func TestChart_Errors(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "scores.json", `[{"name": "a", "score": 1}]`)

	_, _, err := runArgs(t, "chart", "--in", in)
	assert.ErrorContains(t, err, "--out is required")

	_, _, err = runArgs(t, "chart", "--in", in, "--out", filepath.Join(dir, "chart.gif"))
	assert.ErrorContains(t, err, ".svg or .png")

	_, _, err = runArgs(t, "chart", "--in", filepath.Join(dir, "missing.json"), "--out", filepath.Join(dir, "c.svg"))
	assert.Error(t, err)

	_, _, err = runArgs(t, "chart", "--nope")
	assert.ErrorIs(t, err, errUsage)
}

func TestInject(t *testing.T) {
	dir := t.TempDir()
	doc := writeHWPX(t, dir)
	img := writeFile(t, dir, "chart.png", "\x89PNG\r\n\x1a\nfake")
	out := filepath.Join(dir, "out.hwpx")

	stdout, _, err := runArgs(t, "inject", "--doc", doc, "--image", img, "--out", out, "--anchor", "before_last_section_close")
	require.NoError(t, err)
	assert.Contains(t, stdout, "BinData/image")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	entries, err := hwpx.Entries(data)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestInject_Errors(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "in.hwpx", "not a zip")
	img := writeFile(t, dir, "chart.png", "png")
	out := filepath.Join(dir, "out.hwpx")

	_, _, err := runArgs(t, "inject", "--doc", doc, "--image", img, "--out", out)
	assert.ErrorIs(t, err, hwpx.ErrArchive)
	assert.NoFileExists(t, out)

	_, _, err = runArgs(t, "inject", "--doc", doc, "--image", img, "--out", out, "--anchor", "top")
	assert.Error(t, err)

	_, _, err = runArgs(t, "inject", "--doc", doc)
	assert.ErrorContains(t, err, "--image is required")
	assert.ErrorContains(t, err, "--out is required")
}

func converterStub(t *testing.T, doc []byte) (*httptest.Server, *string) {
	t.Helper()
	var filename string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/conversions", func(w http.ResponseWriter, r *http.Request) {
		filename = r.FormValue("filename")
		w.Write([]byte(`{"conversion_id":"c-1"}`))
	})
	mux.HandleFunc("GET /v1/conversions/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		w.Write(doc)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, &filename
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	hwpxData, err := os.ReadFile(writeHWPX(t, dir))
	require.NoError(t, err)
	ts, filename := converterStub(t, hwpxData)

	t.Run("markdown", func(t *testing.T) {
		in := writeFile(t, dir, "notes.md", "# 제목\n\n본문\n")
		out := filepath.Join(dir, "notes.hwpx")
		_, _, err := runArgs(t, "convert", "--in", in, "--out", out, "--url", ts.URL)
		require.NoError(t, err)
		assert.Equal(t, "notes.md", *filename)
		got, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, hwpxData, got)
	})

	t.Run("report", func(t *testing.T) {
		in := writeFile(t, dir, "report.json", `{"title": "읽기 진단", "student_name": "이서준", "scores": [{"name": "a", "score": 50}]}`)
		out := filepath.Join(dir, "report.hwpx")
		_, _, err := runArgs(t, "convert", "--in", in, "--out", out, "--url", ts.URL)
		require.NoError(t, err)
		assert.Equal(t, "이서준_report.md", *filename)
	})

	t.Run("invalid report", func(t *testing.T) {
		in := writeFile(t, dir, "bad.yaml", "title: \"\"\n")
		_, _, err := runArgs(t, "convert", "--in", in, "--out", filepath.Join(dir, "bad.hwpx"), "--url", ts.URL)
		assert.ErrorContains(t, err, "title is required")
	})

	t.Run("chart needs report", func(t *testing.T) {
		in := writeFile(t, dir, "plain.md", "text")
		_, _, err := runArgs(t, "convert", "--in", in, "--out", filepath.Join(dir, "p.hwpx"), "--url", ts.URL, "--chart")
		assert.Error(t, err)
	})
}

func TestConvert_ServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Error(w, "bad markdown", http.StatusBadRequest)
	}))
	defer ts.Close()

	dir := t.TempDir()
	in := writeFile(t, dir, "notes.md", "text")
	_, _, err := runArgs(t, "convert", "--in", in, "--out", filepath.Join(dir, "x.hwpx"), "--url", ts.URL)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status 400"), err.Error())
}
