// Package converter talks to the external Markdown to HWPX conversion service.
package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Timeout bounds each request to the service: connecting, waiting for headers and
// reading the body. Exceeding it is a ConversionError.
const Timeout = 30 * time.Second

// maxDocumentBytes caps a downloaded document.
const maxDocumentBytes = 64 << 20

// Client communicates with the conversion service HTTP API. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	stats      *Stats
}

func NewClient(baseURL string) *Client {
	return newClient(baseURL, Timeout)
}

func newClient(baseURL string, timeout time.Duration) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.ResponseHeaderTimeout = timeout
	transport.TLSHandshakeTimeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		timeout:    timeout,
		stats:      NewStats(time.Hour),
	}
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Stats returns the round-trip latency tracker for completed conversions.
func (c *Client) Stats() *Stats {
	return c.stats
}

type submitResponse struct {
	ConversionID string `json:"conversion_id"`
}

// Submit uploads markdown for conversion and returns the conversion id.
func (c *Client) Submit(ctx context.Context, markdown, filename string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{
		{"markdown", markdown},
		{"filename", filename},
		{"preprocess", "true"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", &ConversionError{Op: OpSubmit, Err: fmt.Errorf("write field %s: %w", f[0], err)}
		}
	}
	if err := mw.Close(); err != nil {
		return "", &ConversionError{Op: OpSubmit, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/conversions", &body)
	if err != nil {
		return "", &ConversionError{Op: OpSubmit, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ConversionError{Op: OpSubmit, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &ConversionError{Op: OpSubmit, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ConversionError{Op: OpSubmit, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var sr submitResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return "", &ConversionError{Op: OpSubmit, StatusCode: resp.StatusCode, Body: string(respBody), Err: fmt.Errorf("decode response: %w", err)}
	}
	if strings.TrimSpace(sr.ConversionID) == "" {
		return "", &ConversionError{Op: OpSubmit, StatusCode: resp.StatusCode, Body: string(respBody), Err: ErrMissingID}
	}
	return sr.ConversionID, nil
}

// Download fetches the converted document.
func (c *Client) Download(ctx context.Context, conversionID string) ([]byte, error) {
	u := c.baseURL + "/v1/conversions/" + url.PathEscape(conversionID) + "/download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &ConversionError{Op: OpDownload, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConversionError{Op: OpDownload, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ConversionError{Op: OpDownload, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	doc, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, &ConversionError{Op: OpDownload, StatusCode: resp.StatusCode, Err: fmt.Errorf("read document: %w", err)}
	}
	if len(doc) > maxDocumentBytes {
		return nil, &ConversionError{Op: OpDownload, StatusCode: resp.StatusCode, Err: fmt.Errorf("document exceeds %d bytes", maxDocumentBytes)}
	}
	return doc, nil
}

// ConvertAndDownload submits markdown and downloads the resulting document.
func (c *Client) ConvertAndDownload(ctx context.Context, markdown, filename string) ([]byte, error) {
	start := time.Now()
	id, err := c.Submit(ctx, markdown, filename)
	if err != nil {
		c.stats.RecordFailure()
		return nil, err
	}
	doc, err := c.Download(ctx, id)
	if err != nil {
		c.stats.RecordFailure()
		return nil, err
	}
	c.stats.Record(time.Since(start).Milliseconds())
	return doc, nil
}

// Healthy reports whether the service answers its liveness probe with 200.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode == http.StatusOK
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
