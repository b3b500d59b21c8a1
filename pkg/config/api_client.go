package config

import (
	"fmt"
	"strings"
	"time"
)

// APIClientConfig holds the settings the job runner uses to reach the CRM API.
// ProbeTimeout bounds the heartbeat liveness probe; Timeout bounds
// mutation-style calls (restock, order scans).
type APIClientConfig struct {
	BaseURL      string        `koanf:"baseUrl"`
	ProbeTimeout time.Duration `koanf:"probeTimeout"`
	Timeout      time.Duration `koanf:"timeout"`
}

// String returns a string representation of the API client configuration.
func (c *APIClientConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- API client ---\n")
	b.WriteString(fmt.Sprintf("  baseUrl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  probeTimeout: %s\n", c.ProbeTimeout))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *APIClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("API base URL is not configured")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("API base URL must start with 'http://' or 'https://': %s", c.BaseURL)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid API probe timeout: %v", c.ProbeTimeout)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid API call timeout: %v", c.Timeout)
	}
	return nil
}
