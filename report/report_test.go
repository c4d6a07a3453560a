package report

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/signup/directory"
	"github.com/nomis52/signup/metrics"
)

type fakeProvider struct {
	occupancy []directory.Occupancy
}

func (f *fakeProvider) Occupancy() []directory.Occupancy {
	return f.occupancy
}

func testProvider() *fakeProvider {
	return &fakeProvider{occupancy: []directory.Occupancy{
		{Activity: "Chess Club", Participants: 2, MaxParticipants: 12},
		{Activity: "Soccer Team", Participants: 23, MaxParticipants: 22},
	}}
}

func TestReport_ScrapeRegistry(t *testing.T) {
	reg, err := metrics.NewScrapeRegistry("")
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	r, err := New(testProvider(), reg, logger)
	require.NoError(t, err)

	occupancy, err := r.Report(context.Background())
	require.NoError(t, err)
	assert.Len(t, occupancy, 2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, `activity_participants{activity="Chess Club"} 2`)
	assert.Contains(t, body, `activity_capacity{activity="Soccer Team"} 22`)
	assert.Contains(t, body, `occupancy_reports_total 1`)

	out := logs.String()
	assert.Contains(t, out, `"msg":"activity occupancy"`)
	assert.Contains(t, out, `"msg":"activity over capacity"`)
	assert.Contains(t, out, `"spots_left":-1`)
	assert.Contains(t, out, `"participants":25`)
}

func TestReport_WithDirectory(t *testing.T) {
	d, err := directory.New([]directory.Activity{
		{Name: "Art Club", MaxParticipants: 15, Participants: []string{"ava@mergington.edu"}},
	})
	require.NoError(t, err)
	require.NoError(t, d.SignUp("Art Club", "new@mergington.edu"))

	reg, err := metrics.NewScrapeRegistry("")
	require.NoError(t, err)
	r, err := New(d, reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	occupancy, err := r.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, occupancy, 1)
	assert.Equal(t, 2, occupancy[0].Participants)
	assert.Equal(t, 13, occupancy[0].SpotsLeft())
}

func TestReport_PushRegistryFlushes(t *testing.T) {
	var requests atomic.Int32
	received := make(chan []prompb.TimeSeries, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		var writeReq prompb.WriteRequest
		require.NoError(t, proto.Unmarshal(decoded, &writeReq))
		received <- writeReq.Timeseries
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	reg := metrics.NewPushRegistry(metrics.PushConfig{URL: server.URL, Prefix: "signup"})
	r, err := New(testProvider(), reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NoError(t, r.Run())
	assert.Equal(t, int32(1), requests.Load())

	series := <-received
	// 2 activities x 2 gauges + the reports counter.
	assert.Len(t, series, 5)
}

func TestReport_PushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	reg := metrics.NewPushRegistry(metrics.PushConfig{URL: server.URL})
	r, err := New(testProvider(), reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	occupancy, err := r.Report(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flushing occupancy metrics")
	assert.Len(t, occupancy, 2)
}

func TestNew_RegistrationConflict(t *testing.T) {
	reg, err := metrics.NewScrapeRegistry("")
	require.NoError(t, err)

	_, err = New(testProvider(), reg, slog.Default())
	require.NoError(t, err)
	_, err = New(testProvider(), reg, slog.Default())
	assert.Error(t, err)
}
