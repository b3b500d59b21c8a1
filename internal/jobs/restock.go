package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RestockJob triggers the store-side low-stock replenishment and appends the
// outcome per product. Idempotent at the fixed point: when nothing is below
// threshold it only logs that no updates were needed.
type RestockJob struct {
	client *Client
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewRestockJob creates a stock reconciliation job writing to the given sink.
func NewRestockJob(client *Client, sink Sink, logger *slog.Logger) *RestockJob {
	return &RestockJob{
		client: client,
		sink:   sink,
		logger: logger.With("job", "restock"),
		now:    time.Now,
	}
}

// Run performs one reconciliation pass. Every failure is logged and
// swallowed; a single bad run must not crash the periodic scheduler loop.
func (j *RestockJob) Run(ctx context.Context) {
	ts := j.now().Format(heartbeatTimeLayout)

	outcome, err := j.client.RestockLowStock(ctx)
	if err != nil {
		j.append(ctx, fmt.Sprintf("[%s] Low stock update failed: %v", ts, err))
		return
	}
	if !outcome.Success {
		j.append(ctx, fmt.Sprintf("[%s] Low stock update failed: %s", ts, outcome.Message))
		return
	}

	j.append(ctx, fmt.Sprintf("[%s] Low stock update successful", ts))
	if len(outcome.UpdatedProducts) == 0 {
		j.append(ctx, fmt.Sprintf("[%s] No products required stock updates", ts))
		return
	}
	for _, product := range outcome.UpdatedProducts {
		j.append(ctx, fmt.Sprintf("[%s] Updated: %s - New stock: %d", ts, product.Name, product.Stock))
	}
}

func (j *RestockJob) append(ctx context.Context, line string) {
	if err := j.sink.Append(line); err != nil {
		j.logger.ErrorContext(ctx, "Failed to append restock line", "error", err)
	}
}
