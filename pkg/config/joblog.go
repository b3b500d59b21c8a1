package config

import (
	"fmt"
	"strings"
)

// JobLogConfig configures the append-only outcome logs the maintenance
// jobs write to. Each job appends to its own file under Dir.
type JobLogConfig struct {
	Dir string `koanf:"dir"`
}

// String returns a string representation of the job log configuration.
func (c *JobLogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Job logs ---\n")
	b.WriteString(fmt.Sprintf("  dir: %s\n", c.Dir))
	return b.String()
}

func (c *JobLogConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("job log directory is not configured")
	}
	return nil
}
