// Package config holds the directory conventions and tuning knobs of the
// harvester. Every value has a default; environment variables prefixed with
// IICM_ override them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "IICM"

// Config is the full runtime configuration.
type Config struct {
	RawDir   string `envconfig:"RAW_DIR" default:"artifacts/iicm-glossary"`
	CSVDir   string `envconfig:"CSV_DIR" default:"artifacts/iicm-glossary-csv"`
	XLSXPath string `envconfig:"XLSX_PATH" default:"artifacts/iicm_glossary.xlsx"`
	DBPath   string `envconfig:"DB_PATH" default:"artifacts/iicm_glossary.db"`
	TBXPath  string `envconfig:"TBX_PATH" default:"artifacts/iicm_glossary.tbx"`

	PageURL       string        `envconfig:"PAGE_URL" default:"https://web.archive.org/web/http://www.iicm.org.tw/term/termb_%s.htm"`
	UserAgent     string        `envconfig:"USER_AGENT" default:"iicmterm"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	FetchInterval time.Duration `envconfig:"FETCH_INTERVAL" default:"1s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// Validate checks that paths are set and the page URL has a letter slot.
func (c *Config) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"RAW_DIR":   c.RawDir,
		"CSV_DIR":   c.CSVDir,
		"XLSX_PATH": c.XLSXPath,
		"DB_PATH":   c.DBPath,
		"TBX_PATH":  c.TBXPath,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s_%s must not be empty", Prefix, name))
		}
	}
	if strings.Count(c.PageURL, "%s") != 1 {
		errs = append(errs, fmt.Errorf("%s_PAGE_URL must contain exactly one %%s, got %q", Prefix, c.PageURL))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s_HTTP_TIMEOUT must be positive", Prefix))
	}
	if c.FetchInterval < 0 {
		errs = append(errs, fmt.Errorf("%s_FETCH_INTERVAL must not be negative", Prefix))
	}
	return errors.Join(errs...)
}
