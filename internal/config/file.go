package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// MaxFileSize limits the configuration file (1MB).
const MaxFileSize = 1 << 20

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
)

// fileConfig mirrors the YAML layout. Secrets are never read from the file.
type fileConfig struct {
	Port           string `yaml:"port"`
	ConverterURL   string `yaml:"converterURL"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`

	Workers struct {
		Count        int    `yaml:"count"`
		MaxQueueSize int    `yaml:"maxQueueSize"`
		MaxRetries   int    `yaml:"maxRetries"`
		JobTTL       string `yaml:"jobTTL"`
	} `yaml:"workers"`

	Chart struct {
		Rasterize     *bool             `yaml:"rasterize"`
		BrowserBin    string            `yaml:"browserBin"`
		RenderTimeout string            `yaml:"renderTimeout"`
		WidthPx       int               `yaml:"widthPx"`
		HeightPx      int               `yaml:"heightPx"`
		Anchor        string            `yaml:"anchor"`
		GroupColors   map[string]string `yaml:"groupColors"`
	} `yaml:"chart"`
}

// applyFile overlays the non-zero settings of the YAML file at path.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) > MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes (max %d)", ErrConfigParse, path, len(data), MaxFileSize)
	}

	var fc fileConfig
	if len(data) > 0 {
		if err := yaml.UnmarshalWithOptions(data, &fc, yaml.Strict()); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
		}
	}

	setString(&c.Port, fc.Port)
	setString(&c.ConverterURL, fc.ConverterURL)
	if fc.MaxUploadBytes > 0 {
		c.MaxUploadBytes = fc.MaxUploadBytes
	}
	setInt(&c.WorkerCount, fc.Workers.Count)
	setInt(&c.MaxQueueSize, fc.Workers.MaxQueueSize)
	setInt(&c.MaxRetries, fc.Workers.MaxRetries)
	if err := setDuration(&c.JobTTL, fc.Workers.JobTTL, "workers.jobTTL"); err != nil {
		return err
	}

	if fc.Chart.Rasterize != nil {
		c.Chart.Rasterize = *fc.Chart.Rasterize
	}
	setString(&c.Chart.BrowserBin, fc.Chart.BrowserBin)
	if err := setDuration(&c.Chart.RenderTimeout, fc.Chart.RenderTimeout, "chart.renderTimeout"); err != nil {
		return err
	}
	setInt(&c.Chart.WidthPx, fc.Chart.WidthPx)
	setInt(&c.Chart.HeightPx, fc.Chart.HeightPx)
	setString(&c.Chart.Anchor, fc.Chart.Anchor)
	if len(fc.Chart.GroupColors) > 0 {
		c.Chart.GroupColors = fc.Chart.GroupColors
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, field string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigParse, field, err)
	}
	*dst = d
	return nil
}
