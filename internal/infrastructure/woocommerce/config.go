// Package woocommerce implements the storefront port against the WooCommerce
// v3 REST API.
package woocommerce

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
)

// ErrInvalidConfig indicates missing or malformed adapter configuration.
var ErrInvalidConfig = errors.New("woocommerce: invalid configuration")

// Config holds the credentials and tuning for one WooCommerce site.
type Config struct {
	Site           fulfillment.Site
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string

	// TimeoutSeconds bounds a single API call. Zero means 15 seconds.
	TimeoutSeconds int
	// BatchSize is the number of orders per batch write. The platform caps
	// batches at 100; zero means 20, which the shared hosting tolerates.
	BatchSize int
	// BatchPause is the delay between consecutive batch writes. Zero means
	// 500ms.
	BatchPause time.Duration
	// PageSize is the per_page value for list calls. Zero means 100.
	PageSize int
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if !c.Site.IsValid() {
		return fmt.Errorf("%w: unknown site %q", ErrInvalidConfig, c.Site)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("%w: base URL must include scheme", ErrInvalidConfig)
	}
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return fmt.Errorf("%w: consumer key and secret are required", ErrInvalidConfig)
	}
	return nil
}

// isTLS reports whether the site is reached over HTTPS, which decides the
// authentication style: query-string credentials over TLS, basic auth
// otherwise.
func (c *Config) isTLS() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

func (c *Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) batchSize() int {
	if c.BatchSize <= 0 {
		return 20
	}
	return c.BatchSize
}

func (c *Config) batchPause() time.Duration {
	if c.BatchPause <= 0 {
		return 500 * time.Millisecond
	}
	return c.BatchPause
}

func (c *Config) pageSize() int {
	if c.PageSize <= 0 {
		return 100
	}
	return c.PageSize
}
