// Command cron runs one maintenance job per invocation. The external
// scheduler owns the cadence:
//
//	*/5 * * * *   cron heartbeat
//	0 */12 * * *  cron reconcile-stock
//	0 8 * * 1    cron order-reminders
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/abgdnv/gocrm/internal/config"
	"github.com/abgdnv/gocrm/internal/jobs"
	"github.com/abgdnv/gocrm/pkg/configloader"
)

const appName = "cron"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) != 2 {
		log.Printf("usage: %s <heartbeat|reconcile-stock|order-reminders>", filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	if err := run(ctx, os.Args[1]); err != nil {
		log.Printf("job run failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, jobName string) error {
	cfg, cfgErr := configloader.Load[*config.CronConfig](appName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	client := jobs.NewClient(cfg.API.BaseURL, cfg.API.ProbeTimeout, cfg.API.Timeout)
	sinkFor := func(name string) jobs.Sink {
		return jobs.NewFileSink(filepath.Join(cfg.JobLogs.Dir, name+"_log.txt"))
	}

	switch jobName {
	case "heartbeat":
		jobs.NewHeartbeat(client, sinkFor("crm_heartbeat"), logger).Run(ctx)
		return nil
	case "reconcile-stock":
		jobs.NewRestockJob(client, sinkFor("low_stock_updates"), logger).Run(ctx)
		return nil
	case "order-reminders":
		// The reminder job is the only one whose failure must reach the
		// invoking process.
		return jobs.NewReminderJob(client, sinkFor("order_reminders"), logger).Run(ctx)
	default:
		return fmt.Errorf("unknown job: %s", jobName)
	}
}

// newLogger creates a new slog.Logger instance with the specified log level.
func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
