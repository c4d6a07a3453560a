package directory

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/signup/metrics"
)

const (
	opSignUp     = "signup"
	opUnregister = "unregister"

	resultOK       = "ok"
	resultNotFound = "not_found"
	resultRejected = "rejected"
)

// directoryMetrics records roster changes. A nil *directoryMetrics is a no-op.
type directoryMetrics struct {
	operations metrics.CounterVec
	roster     metrics.GaugeVec
}

func newDirectoryMetrics(reg metrics.Registry) (*directoryMetrics, error) {
	operations, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_operations_total",
		Help: "Signup and unregister requests by outcome.",
	}, []string{"operation", "result"})
	if err != nil {
		return nil, err
	}

	roster, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roster_size",
		Help: "Number of participants signed up for each activity.",
	}, []string{"activity"})
	if err != nil {
		return nil, err
	}

	return &directoryMetrics{
		operations: operations,
		roster:     roster,
	}, nil
}

func (m *directoryMetrics) operation(op, result string) {
	if m == nil {
		return
	}
	m.operations.With(prometheus.Labels{"operation": op, "result": result}).Inc()
}

func (m *directoryMetrics) rosterSize(activity string, n int) {
	if m == nil {
		return
	}
	m.roster.With(prometheus.Labels{"activity": activity}).Set(float64(n))
}
