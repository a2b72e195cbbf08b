package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Port string

	// Conversion service
	ConverterURL string

	// Auth
	DocgenAPIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int
	MaxRetries   int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	Chart ChartConfig
}

// ChartConfig controls radar chart rendering and placement.
type ChartConfig struct {
	Rasterize     bool
	BrowserBin    string
	RenderTimeout time.Duration
	WidthPx       int
	HeightPx      int
	Anchor        string
	// GroupColors overrides the built-in competency group palette. File only.
	GroupColors map[string]string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:           "8090",
		ConverterURL:   "http://localhost:8000",
		WorkerCount:    4,
		MaxQueueSize:   100,
		MaxRetries:     3,
		MaxUploadBytes: 20 << 20,
		JobTTL:         time.Hour,
		Chart: ChartConfig{
			Rasterize:     true,
			RenderTimeout: 15 * time.Second,
			WidthPx:       hwpx.DefaultWidthPx,
			HeightPx:      hwpx.DefaultHeightPx,
			Anchor:        string(hwpx.AnchorAfterFirstHeading),
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// DOCGEN_CONFIG if set, and then environment variables, in that order.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("DOCGEN_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.ConverterURL = envOr("CONVERTER_URL", c.ConverterURL)
	c.DocgenAPIKey = envOr("DOCGEN_API_KEY", c.DocgenAPIKey)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxRetries = envInt("MAX_RETRIES", c.MaxRetries)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)

	c.Chart.Rasterize = envBool("CHART_RASTERIZE", c.Chart.Rasterize)
	c.Chart.BrowserBin = envOr("ROD_BROWSER_BIN", c.Chart.BrowserBin)
	c.Chart.RenderTimeout = envDuration("CHART_RENDER_TIMEOUT", c.Chart.RenderTimeout)
	c.Chart.WidthPx = envInt("CHART_WIDTH_PX", c.Chart.WidthPx)
	c.Chart.HeightPx = envInt("CHART_HEIGHT_PX", c.Chart.HeightPx)
	c.Chart.Anchor = envOr("CHART_ANCHOR", c.Chart.Anchor)
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	d := Defaults()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.Chart.RenderTimeout <= 0 {
		c.Chart.RenderTimeout = d.Chart.RenderTimeout
	}
	if c.Chart.WidthPx <= 0 {
		c.Chart.WidthPx = d.Chart.WidthPx
	}
	if c.Chart.HeightPx <= 0 {
		c.Chart.HeightPx = d.Chart.HeightPx
	}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func (c Config) Validate() error {
	if c.DocgenAPIKey == "" {
		return fmt.Errorf("%w: DOCGEN_API_KEY is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.ConverterURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: CONVERTER_URL %q must be an http(s) URL", ErrInvalidConfig, c.ConverterURL)
	}
	if _, err := hwpx.ParseAnchor(c.Chart.Anchor); err != nil {
		return fmt.Errorf("%w: CHART_ANCHOR: %v", ErrInvalidConfig, err)
	}
	for group, color := range c.Chart.GroupColors {
		if !hexColor.MatchString(color) {
			return fmt.Errorf("%w: chart.groupColors[%q] = %q is not a hex colour", ErrInvalidConfig, group, color)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
