package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/signup/config"
	"github.com/nomis52/signup/directory"
	"github.com/nomis52/signup/logging"
)

// The server is shared across tests the way a single process would be; each
// test restores the rosters it started with.
var shared *Server

func newTestServer(t *testing.T, cfg config.Config, opts ...Option) *Server {
	t.Helper()
	logger, err := logging.NewWithWriter(logging.Config{Level: "debug"}, io.Discard)
	require.NoError(t, err)

	srv, err := New(cfg, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return srv
}

// client returns an HTTP server for the shared Server and restores its
// rosters when the test ends.
func client(t *testing.T) *httptest.Server {
	t.Helper()
	if shared == nil {
		shared = newTestServer(t, config.Default())
	}
	snap := shared.Directory().Snapshot()
	t.Cleanup(func() {
		require.NoError(t, shared.Directory().Restore(snap))
	})

	ts := httptest.NewServer(shared.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, activity, email string) (int, map[string]string) {
	t.Helper()
	u := ts.URL + "/activities/" + url.PathEscape(activity) + "/signup?email=" + url.QueryEscape(email)
	req, err := http.NewRequest(method, u, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func list(t *testing.T, ts *httptest.Server) map[string]map[string]any {
	t.Helper()
	resp, err := http.Get(ts.URL + "/activities")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	return data
}

func participants(t *testing.T, ts *httptest.Server, activity string) []string {
	t.Helper()
	raw, ok := list(t, ts)[activity]["participants"].([]any)
	require.True(t, ok)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.(string))
	}
	return out
}

func TestGetActivities_ReturnsAll(t *testing.T) {
	ts := client(t)

	data := list(t, ts)
	assert.Len(t, data, 9)
	assert.Len(t, list(t, ts), 9, "count is stable across reads")
}

func TestGetActivities_ExpectedFields(t *testing.T) {
	ts := client(t)

	for name, activity := range list(t, ts) {
		for _, field := range []string{"description", "schedule", "max_participants", "participants"} {
			assert.Contains(t, activity, field, "%s missing %s", name, field)
		}
	}
}

func TestGetActivity(t *testing.T) {
	ts := client(t)

	resp, err := http.Get(ts.URL + "/activities/" + url.PathEscape("Soccer Team"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var activity directory.Activity
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&activity))
	assert.Contains(t, activity.Participants, "lucas@mergington.edu")
}

func TestSignup_Success(t *testing.T) {
	ts := client(t)

	status, body := do(t, ts, http.MethodPost, "Chess Club", "newstudent@mergington.edu")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Signed up newstudent@mergington.edu for Chess Club", body["message"])
	assert.Contains(t, participants(t, ts, "Chess Club"), "newstudent@mergington.edu")
}

func TestSignup_Duplicate(t *testing.T) {
	ts := client(t)
	email := "newstudent@mergington.edu"

	status, _ := do(t, ts, http.MethodPost, "Chess Club", email)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, ts, http.MethodPost, "Chess Club", email)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, strings.ToLower(body["detail"]), "already signed up")

	count := 0
	for _, p := range participants(t, ts, "Chess Club") {
		if p == email {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSignup_UnknownActivity(t *testing.T) {
	ts := client(t)

	status, body := do(t, ts, http.MethodPost, "Unknown Activity", "student@mergington.edu")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, strings.ToLower(body["detail"]), "not found")
}

func TestUnregister_Success(t *testing.T) {
	ts := client(t)

	status, body := do(t, ts, http.MethodDelete, "Soccer Team", "lucas@mergington.edu")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Unregistered lucas@mergington.edu from Soccer Team", body["message"])
	assert.NotContains(t, participants(t, ts, "Soccer Team"), "lucas@mergington.edu")
}

func TestUnregister_Twice(t *testing.T) {
	ts := client(t)

	status, _ := do(t, ts, http.MethodDelete, "Soccer Team", "lucas@mergington.edu")
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, ts, http.MethodDelete, "Soccer Team", "lucas@mergington.edu")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, strings.ToLower(body["detail"]), "not signed up")
}

func TestUnregister_NonParticipant(t *testing.T) {
	ts := client(t)

	status, body := do(t, ts, http.MethodDelete, "Soccer Team", "notregistered@mergington.edu")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, strings.ToLower(body["detail"]), "not signed up")
}

func TestUnregister_UnknownActivity(t *testing.T) {
	ts := client(t)

	status, body := do(t, ts, http.MethodDelete, "Unknown Activity", "lucas@mergington.edu")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, strings.ToLower(body["detail"]), "not found")
}

func TestRosterRestoredBetweenTests(t *testing.T) {
	// Earlier tests removed lucas and added newstudent; the cleanup restored both.
	ts := client(t)
	assert.Contains(t, participants(t, ts, "Soccer Team"), "lucas@mergington.edu")
	assert.NotContains(t, participants(t, ts, "Chess Club"), "newstudent@mergington.edu")
}

func TestMethodNotAllowed(t *testing.T) {
	ts := client(t)

	resp, err := http.Post(ts.URL+"/activities", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthVersionMetrics(t *testing.T) {
	ts := client(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(ts.URL + "/version")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, _ := do(t, ts, http.MethodPost, "Art Club", "metrics@mergington.edu")
	require.Equal(t, http.StatusOK, status)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `signup_roster_size{activity="Art Club"}`)
	assert.Contains(t, string(body), `signup_roster_operations_total{operation="signup",result="ok"}`)
}

func TestNew_WithActivities(t *testing.T) {
	srv := newTestServer(t, config.Default(), WithActivities([]directory.Activity{
		{Name: "Robotics", MaxParticipants: 4, Participants: []string{}},
	}))
	assert.Len(t, srv.Directory().List(), 1)
	assert.Nil(t, srv.NextReport())

	occupancy, err := srv.Reporter().Report(context.Background())
	require.NoError(t, err)
	require.Len(t, occupancy, 1)
	assert.Equal(t, "Robotics", occupancy[0].Activity)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.Default(), WithActivities(nil))
	assert.ErrorContains(t, err, "invalid activities")

	cfg := config.Default()
	cfg.SeedFile = "/does/not/exist.yaml"
	_, err = New(cfg)
	assert.ErrorContains(t, err, "failed to open seed file")

	cfg = config.Default()
	cfg.Report.Schedule = "every tuesday"
	_, err = New(cfg)
	assert.ErrorContains(t, err, "creating report trigger")

	cfg = config.Default()
	cfg.Logging.Format = "xml"
	_, err = New(cfg)
	assert.ErrorContains(t, err, "failed to initialize logger")
}

func TestNew_ReportSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Schedule = "0 * * * *"
	srv := newTestServer(t, cfg)

	next := srv.NextReport()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 0, next.Minute())
}

func TestServe_GracefulShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Schedule = "0 2 * * *"
	srv := newTestServer(t, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
