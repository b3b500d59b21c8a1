package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// reminderWindow is the trailing scan window for order reminders.
const reminderWindow = 7 * 24 * time.Hour

// reminderTimeLayout renders YYYY-MM-DD HH:MM:SS.
const reminderTimeLayout = "2006-01-02 15:04:05"

// ReminderJob scans orders in the trailing window and appends one reminder
// line per order.
type ReminderJob struct {
	client *Client
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewReminderJob creates an order reminder job writing to the given sink.
func NewReminderJob(client *Client, sink Sink, logger *slog.Logger) *ReminderJob {
	return &ReminderJob{
		client: client,
		sink:   sink,
		logger: logger.With("job", "reminders"),
		now:    time.Now,
	}
}

// Run performs one reminder scan over orders dated within the last 7 days,
// boundary inclusive. Unlike the restock job, a failure is fatal to the run:
// the error propagates so the invoking process exits non-zero.
func (j *ReminderJob) Run(ctx context.Context) error {
	ts := j.now().Format(reminderTimeLayout)
	windowStart := j.now().Add(-reminderWindow)

	orders, err := j.client.OrdersSince(ctx, windowStart)
	if err != nil {
		j.append(ctx, fmt.Sprintf("[%s] ERROR: %v", ts, err))
		return fmt.Errorf("order reminder scan failed: %w", err)
	}

	j.append(ctx, fmt.Sprintf("[%s] Order reminders processing started", ts))
	if len(orders) == 0 {
		j.append(ctx, fmt.Sprintf("[%s] No recent orders found", ts))
	}
	for _, order := range orders {
		j.append(ctx, fmt.Sprintf("[%s] Order ID: %s, Customer: %s, Email: %s, Date: %s",
			ts, order.ID, order.CustomerName, order.CustomerEmail, order.OrderDate))
	}
	j.append(ctx, fmt.Sprintf("[%s] Processed %d orders", ts, len(orders)))
	return nil
}

func (j *ReminderJob) append(ctx context.Context, line string) {
	if err := j.sink.Append(line); err != nil {
		j.logger.ErrorContext(ctx, "Failed to append reminder line", "error", err)
	}
}
