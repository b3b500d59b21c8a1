package jobs

import (
	"context"
	"log/slog"
	"time"
)

// heartbeatTimeLayout renders DD/MM/YYYY-HH:MM:SS.
const heartbeatTimeLayout = "02/01/2006-15:04:05"

// Heartbeat appends a timestamped alive line on every run, decorated with
// the outcome of a liveness probe against the API.
type Heartbeat struct {
	client *Client
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewHeartbeat creates a heartbeat job writing to the given sink.
func NewHeartbeat(client *Client, sink Sink, logger *slog.Logger) *Heartbeat {
	return &Heartbeat{
		client: client,
		sink:   sink,
		logger: logger.With("job", "heartbeat"),
		now:    time.Now,
	}
}

// Run appends one alive line. The probe only decorates the line; a probe
// failure must never suppress the base heartbeat. Run never reports failure
// to its scheduler.
func (j *Heartbeat) Run(ctx context.Context) {
	line := j.now().Format(heartbeatTimeLayout) + " CRM is alive"

	if err := j.client.Hello(ctx); err != nil {
		line += " - CRM API unreachable: " + err.Error()
	} else {
		line += " - CRM API responsive"
	}

	if err := j.sink.Append(line); err != nil {
		j.logger.ErrorContext(ctx, "Failed to append heartbeat line", "error", err)
	}
}
