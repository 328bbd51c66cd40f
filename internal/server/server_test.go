package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kensahq/kensa/internal/logging"
	"github.com/kensahq/kensa/internal/report"
	"github.com/kensahq/kensa/internal/server"
)

func newServer(t *testing.T) (*server.Server, *report.History) {
	t.Helper()
	h, err := report.NewHistory(filepath.Join(t.TempDir(), "history.db"), logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return server.New(h, server.Config{Addr: ":0"}, logging.NewTestLogger(false)), h
}

func seedRun(t *testing.T, h *report.History) *report.Run {
	t.Helper()
	results := []report.Result{
		{Name: "step one", Status: report.StatusPassed, Timestamp: time.Now(), DurationSeconds: 0.2},
	}
	run := &report.Run{
		ID:         uuid.NewString(),
		StartedAt:  time.Now().Add(-time.Second),
		FinishedAt: time.Now(),
		Results:    results,
		Stats:      report.Collect(results),
	}
	if err := h.CommitRun(context.Background(), run); err != nil {
		t.Fatalf("CommitRun: %v", err)
	}
	return run
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()
	srv, h := newServer(t)
	run := seedRun(t, h)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("GET /api/runs: %v", err)
	}
	defer resp.Body.Close()

	var runs []report.Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("decoding runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("expected seeded run, got %+v", runs)
	}
}

func TestListRuns_EmptyIsArray(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("GET /api/runs: %v", err)
	}
	defer resp.Body.Close()

	var body strings.Builder
	if _, err := json.NewDecoder(resp.Body).Token(); err != nil {
		t.Fatalf("body not JSON: %v %s", err, body.String())
	}
}

func TestGetRun_NotFound(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/runs/does-not-exist")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetRun_ReturnsResults(t *testing.T) {
	t.Parallel()
	srv, h := newServer(t)
	run := seedRun(t, h)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/runs/" + run.ID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var got report.Run
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding run: %v", err)
	}
	if len(got.Results) != 1 || got.Results[0].Name != "step one" {
		t.Errorf("expected results in payload, got %+v", got)
	}
}

func TestWS_ReceivesPublishedResults(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing ws: %v", err)
	}
	defer conn.Close()

	// Give the handler a moment to register the connection.
	time.Sleep(100 * time.Millisecond)

	srv.Publish(report.Result{Name: "live step", Status: report.StatusPassed, Timestamp: time.Now()})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading ws message: %v", err)
	}

	var got report.Result
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if got.Name != "live step" {
		t.Errorf("unexpected event %+v", got)
	}
}
