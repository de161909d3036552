package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// BackendConfig locates the finance backend that owns accounts and sessions.
type BackendConfig struct {
	// URL is the backend origin, e.g. "https://finance.example.com".
	URL string `env:"BACKEND_URL"`

	// Timeout bounds each backend round trip. Zero leaves the transport default.
	Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"0s"`
}

// Sanitize trims the URL and clamps a negative timeout to zero.
func (b *BackendConfig) Sanitize() {
	b.URL = strings.TrimRight(strings.TrimSpace(b.URL), "/")
	if b.Timeout < 0 {
		b.Timeout = 0
	}
}

// Validate reports a missing or malformed backend URL.
func (b BackendConfig) Validate() error {
	if b.URL == "" {
		return errors.New("BACKEND_URL is required")
	}
	u, err := url.Parse(b.URL)
	if err != nil {
		return fmt.Errorf("BACKEND_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("BACKEND_URL must be http or https, got %q", b.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("BACKEND_URL has no host: %q", b.URL)
	}
	return nil
}
