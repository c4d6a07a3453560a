package cron

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// everySchedule fires at a fixed short interval so tests don't wait for the
// next wall-clock minute.
type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestNewCronTrigger(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "valid spec - daily at 2am", spec: "0 2 * * *"},
		{name: "valid spec - every hour", spec: "0 * * * *"},
		{name: "valid spec - every minute", spec: "* * * * *"},
		{name: "invalid spec - empty", spec: "", wantErr: true},
		{name: "invalid spec - wrong format", spec: "not a cron spec", wantErr: true},
		{name: "invalid spec - too few fields", spec: "0 2 *", wantErr: true},
		{name: "invalid spec - invalid value", spec: "60 2 * * *", wantErr: true},
		{name: "invalid spec - seconds field", spec: "0 0 2 * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewCronTrigger(tt.spec, func() error { return nil }, testLogger())

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCronSpec)
				assert.Nil(t, trigger)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, trigger)
				assert.Equal(t, tt.spec, trigger.spec)
			}
		})
	}
}

func TestCronTrigger_NextRun(t *testing.T) {
	trigger, err := NewCronTrigger("0 2 * * *", func() error { return nil }, testLogger())
	require.NoError(t, err)

	nextRun := trigger.NextRun()
	assert.True(t, nextRun.After(time.Now()), "next run should be in the future")
	assert.Equal(t, 2, nextRun.Hour(), "next run should be at 2am")
	assert.Equal(t, 0, nextRun.Minute(), "next run should be at minute 0")
}

func TestCronTrigger_Start_CancellationStopsLoop(t *testing.T) {
	var runs atomic.Int32
	trigger, err := NewCronTrigger("0 2 * * *", func() error {
		runs.Add(1)
		return nil
	}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	trigger.Start(ctx)
	cancel()

	select {
	case <-trigger.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("trigger loop did not exit after cancellation")
	}
	assert.Equal(t, int32(0), runs.Load())
}

func TestCronTrigger_RunsCallback(t *testing.T) {
	var runs atomic.Int32
	trigger, err := NewCronTrigger("* * * * *", func() error {
		if runs.Add(1) == 2 {
			return errors.New("report failed")
		}
		return nil
	}, testLogger())
	require.NoError(t, err)
	trigger.schedule = everySchedule(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trigger.Start(ctx)

	// Errors from the callback are logged and the loop keeps going.
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	<-trigger.Done()
}
