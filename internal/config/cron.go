package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/gocrm/pkg/config"
	"github.com/abgdnv/gocrm/pkg/configloader"
)

var _ configloader.Validator = (*CronConfig)(nil)

// CronConfig is the configuration of the one-shot job runner.
type CronConfig struct {
	API     config.APIClientConfig `koanf:"api"`
	JobLogs config.JobLogConfig    `koanf:"joblogs"`
	Log     config.LogConfig       `koanf:"log"`
}

func (c *CronConfig) String() string {
	var b strings.Builder
	b.WriteString(c.API.String())
	b.WriteString(c.JobLogs.String())
	b.WriteString(fmt.Sprintf("\n--- Logging ---\n  log.level: %s\n", c.Log.Level))
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *CronConfig) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.JobLogs.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}
