package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second
)

// PushRegistry implements Registry for push-based metrics collection.
// Samples are buffered as metrics are updated and sent to a
// VictoriaMetrics/Prometheus remote write endpoint by Flush.
type PushRegistry struct {
	url        string
	httpClient *http.Client
	prefix     string
	job        string
	instance   string

	mu      sync.Mutex
	pending map[string]*sample // protected by mu
}

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the remote write endpoint (e.g., "http://localhost:8428").
	URL string
	// Prefix is the metric name prefix. All metric names will be prefixed with this value
	// followed by an underscore.
	Prefix string
	// Job is the job label for all metrics.
	Job string
	// Instance is the instance label for all metrics.
	Instance string
	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
}

type sample struct {
	name       string
	labels     map[string]string
	value      float64
	at         time.Time
	cumulative bool // counters keep their running total across flushes
}

// NewPushRegistry creates a new PushRegistry that pushes metrics to the given URL.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &PushRegistry{
		url:        strings.TrimSuffix(cfg.URL, "/") + "/api/v1/write",
		httpClient: &http.Client{Timeout: timeout},
		prefix:     cfg.Prefix,
		job:        cfg.Job,
		instance:   cfg.Instance,
		pending:    make(map[string]*sample),
	}
}

// NewGauge creates a new push-based Gauge.
func (r *PushRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return &pushGauge{registry: r, name: opts.Name}, nil
}

// NewGaugeVec creates a new push-based GaugeVec.
func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	return &pushGaugeVec{registry: r, name: opts.Name}, nil
}

// NewCounter creates a new push-based Counter.
func (r *PushRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return &pushCounter{registry: r, name: opts.Name}, nil
}

// NewCounterVec creates a new push-based CounterVec.
func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	return &pushCounterVec{registry: r, name: opts.Name}, nil
}

// Pending returns the number of buffered series waiting to be flushed.
func (r *PushRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// record stores the latest value of a series. add accumulates into the
// existing value instead of replacing it.
func (r *PushRegistry) record(name string, labels map[string]string, v float64, add bool) {
	key := seriesKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.pending[key]
	if !ok {
		s = &sample{name: name, labels: labels, cumulative: add}
		r.pending[key] = s
	}
	if add {
		s.value += v
	} else {
		s.value = v
	}
	s.at = time.Now()
}

// Flush sends all buffered series in a single remote write request. On success
// gauge samples are dropped from the buffer while counters are kept so later
// flushes resend their running totals. On failure everything is kept.
func (r *PushRegistry) Flush(ctx context.Context) error {
	r.mu.Lock()
	series := make([]prompb.TimeSeries, 0, len(r.pending))
	keys := make([]string, 0, len(r.pending))
	for key := range r.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		series = append(series, r.toTimeSeries(r.pending[key]))
	}
	r.mu.Unlock()

	if len(series) == 0 {
		return nil
	}

	data, err := proto.Marshal(&prompb.WriteRequest{Timeseries: series})
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	r.mu.Lock()
	for _, key := range keys {
		if s, ok := r.pending[key]; ok && !s.cumulative {
			delete(r.pending, key)
		}
	}
	r.mu.Unlock()

	return nil
}

// toTimeSeries converts a buffered sample to Prometheus TimeSeries format.
func (r *PushRegistry) toTimeSeries(s *sample) prompb.TimeSeries {
	labels := make([]prompb.Label, 0, len(s.labels)+3)

	name := s.name
	if r.prefix != "" {
		name = r.prefix + "_" + name
	}
	labels = append(labels, prompb.Label{Name: "__name__", Value: name})

	if r.job != "" {
		labels = append(labels, prompb.Label{Name: "job", Value: r.job})
	}
	if r.instance != "" {
		labels = append(labels, prompb.Label{Name: "instance", Value: r.instance})
	}

	for k, v := range s.labels {
		labels = append(labels, prompb.Label{Name: k, Value: v})
	}

	return prompb.TimeSeries{
		Labels: labels,
		Samples: []prompb.Sample{{
			Value:     s.value,
			Timestamp: s.at.UnixMilli(),
		}},
	}
}

// seriesKey creates a stable map key from a name and its labels.
func seriesKey(name string, labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString(",")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(labels[k])
	}
	return b.String()
}

type pushGauge struct {
	registry *PushRegistry
	name     string
	labels   map[string]string
}

func (g *pushGauge) Set(v float64) {
	g.registry.record(g.name, g.labels, v, false)
}

type pushGaugeVec struct {
	registry *PushRegistry
	name     string
}

func (g *pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return &pushGauge{registry: g.registry, name: g.name, labels: labels}
}

type pushCounter struct {
	registry *PushRegistry
	name     string
	labels   map[string]string
}

func (c *pushCounter) Inc() {
	c.Add(1)
}

func (c *pushCounter) Add(v float64) {
	if v < 0 {
		panic("counter cannot decrease in value")
	}
	c.registry.record(c.name, c.labels, v, true)
}

type pushCounterVec struct {
	registry *PushRegistry
	name     string
}

func (c *pushCounterVec) With(labels prometheus.Labels) Counter {
	return &pushCounter{registry: c.registry, name: c.name, labels: labels}
}
