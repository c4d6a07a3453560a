// Package cron runs a job on a cron schedule.
//
// The CronTrigger type wraps a callback and executes it according to a cron schedule.
// It is designed to be started once and run until the context is cancelled.
//
// Example usage:
//
//	trigger, err := cron.NewCronTrigger("0 * * * *", reporter.Run, logger)
//	if err != nil {
//	    return err
//	}
//	trigger.Start(ctx)  // Returns immediately, runs in background
//	<-trigger.Done()    // Closed once ctx is cancelled and the loop exits
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// CronTrigger executes a callback according to a cron schedule.
type CronTrigger struct {
	spec     string
	schedule cron.Schedule
	callback func() error
	logger   *slog.Logger
	done     chan struct{}
}

// NewCronTrigger creates a new CronTrigger with the given cron specification.
// The spec follows standard cron format (5 fields: minute, hour, day, month, weekday).
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewCronTrigger(spec string, callback func() error, logger *slog.Logger) (*CronTrigger, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	return &CronTrigger{
		spec:     spec,
		schedule: schedule,
		callback: callback,
		logger:   logger.With("schedule", spec),
		done:     make(chan struct{}),
	}, nil
}

// Start launches a goroutine that triggers runs according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// Done is closed after the loop started by Start has exited.
func (ct *CronTrigger) Done() <-chan struct{} {
	return ct.done
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(time.Now())
}

func (ct *CronTrigger) loop(ctx context.Context) {
	defer close(ct.done)

	for {
		nextRun := ct.schedule.Next(time.Now())
		waitDuration := time.Until(nextRun)

		ct.logger.Debug("waiting for next scheduled run",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			ct.execute()
		}
	}
}

func (ct *CronTrigger) execute() {
	ct.logger.Debug("starting scheduled run")

	if err := ct.callback(); err != nil {
		ct.logger.Warn("scheduled run completed with error", "error", err)
	} else {
		ct.logger.Debug("scheduled run completed successfully")
	}
}
