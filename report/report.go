// Package report produces periodic occupancy reports for the activity directory.
//
// Each report logs one line per activity and publishes participant and
// capacity gauges to a metrics registry. If the registry buffers samples
// (metrics.Flusher) they are flushed at the end of every report.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/signup/directory"
	"github.com/nomis52/signup/metrics"
)

const flushTimeout = 10 * time.Second

// OccupancyProvider provides a point-in-time view of roster sizes.
type OccupancyProvider interface {
	Occupancy() []directory.Occupancy
}

// Reporter logs and publishes roster occupancy.
type Reporter struct {
	provider     OccupancyProvider
	logger       *slog.Logger
	registry     metrics.Registry
	participants metrics.GaugeVec
	capacity     metrics.GaugeVec
	reports      metrics.Counter
}

// New creates a Reporter that publishes to reg.
func New(provider OccupancyProvider, reg metrics.Registry, logger *slog.Logger) (*Reporter, error) {
	participants, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "activity_participants",
		Help: "Participants signed up for each activity at the last report.",
	}, []string{"activity"})
	if err != nil {
		return nil, fmt.Errorf("creating participants gauge: %w", err)
	}

	capacity, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "activity_capacity",
		Help: "Advisory max_participants of each activity.",
	}, []string{"activity"})
	if err != nil {
		return nil, fmt.Errorf("creating capacity gauge: %w", err)
	}

	reports, err := reg.NewCounter(prometheus.CounterOpts{
		Name: "occupancy_reports_total",
		Help: "Occupancy reports produced.",
	})
	if err != nil {
		return nil, fmt.Errorf("creating reports counter: %w", err)
	}

	return &Reporter{
		provider:     provider,
		logger:       logger,
		registry:     reg,
		participants: participants,
		capacity:     capacity,
		reports:      reports,
	}, nil
}

// Report publishes the current occupancy and returns it.
func (r *Reporter) Report(ctx context.Context) ([]directory.Occupancy, error) {
	occupancy := r.provider.Occupancy()

	total := 0
	for _, o := range occupancy {
		total += o.Participants
		attrs := []any{
			"activity", o.Activity,
			"participants", o.Participants,
			"max_participants", o.MaxParticipants,
			"spots_left", o.SpotsLeft(),
		}
		if o.SpotsLeft() < 0 {
			r.logger.Warn("activity over capacity", attrs...)
		} else {
			r.logger.Info("activity occupancy", attrs...)
		}

		labels := prometheus.Labels{"activity": o.Activity}
		r.participants.With(labels).Set(float64(o.Participants))
		r.capacity.With(labels).Set(float64(o.MaxParticipants))
	}
	r.reports.Inc()

	r.logger.Info("occupancy report complete", "activities", len(occupancy), "participants", total)

	if f, ok := r.registry.(metrics.Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			return occupancy, fmt.Errorf("flushing occupancy metrics: %w", err)
		}
	}
	return occupancy, nil
}

// Run produces one report. It matches the callback signature used by the cron
// trigger.
func (r *Reporter) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	_, err := r.Report(ctx)
	return err
}
