package report_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kensahq/kensa/internal/logging"
	"github.com/kensahq/kensa/internal/report"
)

func sampleResults() []report.Result {
	now := time.Now()
	return []report.Result{
		{Name: "Test Login", Status: report.StatusPassed, Timestamp: now, DurationSeconds: 1.5},
		{Name: "Test Search", Status: report.StatusFailed, Timestamp: now, DurationSeconds: 0.8, Error: "element not found"},
		{Name: "Test Checkout", Status: report.StatusSkipped, Timestamp: now},
	}
}

func TestCollect_Stats(t *testing.T) {
	t.Parallel()
	stats := report.Collect(sampleResults())

	if stats.Total != 3 || stats.Passed != 1 || stats.Failed != 1 || stats.Skipped != 1 {
		t.Errorf("unexpected counters: %+v", stats)
	}
	if stats.DurationSeconds != 2.3 {
		t.Errorf("expected total duration 2.3, got %v", stats.DurationSeconds)
	}
	wantRate := 100.0 / 3.0
	if diff := stats.SuccessRate - wantRate; diff > 0.001 || diff < -0.001 {
		t.Errorf("expected success rate %.2f, got %.2f", wantRate, stats.SuccessRate)
	}
}

func TestCollect_Empty(t *testing.T) {
	t.Parallel()
	stats := report.Collect(nil)
	if stats.Total != 0 || stats.SuccessRate != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestFilename_Format(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	got := report.Filename("report", "json", now)
	if got != "report_20260314_150926.json" {
		t.Errorf("unexpected filename %q", got)
	}
}

func TestWriter_WriteRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := report.NewWriter(dir, logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	results := sampleResults()
	run := &report.Run{
		ID:          uuid.NewString(),
		Environment: "TEST",
		StartedAt:   time.Now().Add(-3 * time.Second),
		FinishedAt:  time.Now(),
		Results:     results,
		Stats:       report.Collect(results),
	}

	path, err := w.WriteRun(run)
	if err != nil {
		t.Fatalf("WriteRun: %v", err)
	}
	if !strings.HasPrefix(path, filepath.Join(dir, "json")) {
		t.Errorf("report written outside json dir: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	var decoded report.Run
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if decoded.ID != run.ID || len(decoded.Results) != 3 {
		t.Errorf("artifact does not round-trip: %+v", decoded)
	}
	if decoded.Stats.Total != 3 {
		t.Errorf("expected statistics in artifact, got %+v", decoded.Stats)
	}
}

func TestWriter_OrganizeScreenshots(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := report.NewWriter(dir, logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	shot := filepath.Join(dir, "raw.png")
	if err := os.WriteFile(shot, []byte("png-bytes"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	organized, err := w.OrganizeScreenshots("Test Login Flow", []string{shot, filepath.Join(dir, "gone.png")})
	if err != nil {
		t.Fatalf("OrganizeScreenshots: %v", err)
	}
	if len(organized) != 1 {
		t.Fatalf("expected 1 organized screenshot (missing file skipped), got %d", len(organized))
	}

	want := filepath.Join(dir, "screenshots", "Test_Login_Flow", "step_1_raw.png")
	if organized[0] != want {
		t.Errorf("expected %s, got %s", want, organized[0])
	}
	if data, err := os.ReadFile(organized[0]); err != nil || string(data) != "png-bytes" {
		t.Errorf("copied screenshot corrupted: %v %q", err, data)
	}
}

func TestHistory_RoundTrip(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	h, err := report.NewHistory(dbPath, logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	results := sampleResults()
	run := &report.Run{
		ID:          uuid.NewString(),
		Environment: "TEST",
		StartedAt:   time.Now().Add(-5 * time.Second),
		FinishedAt:  time.Now(),
		Results:     results,
		Stats:       report.Collect(results),
	}

	if err := h.CommitRun(ctx, run); err != nil {
		t.Fatalf("CommitRun: %v", err)
	}

	runs, err := h.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("expected the committed run, got %+v", runs)
	}
	if runs[0].Stats.Failed != 1 {
		t.Errorf("expected stats persisted, got %+v", runs[0].Stats)
	}

	got, err := h.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got.Results))
	}
	if got.Results[1].Error != "element not found" && got.Results[0].Error != "element not found" && got.Results[2].Error != "element not found" {
		t.Error("expected failure message persisted")
	}
}

func TestHistory_ListRuns_OrdersAcrossFractionalSeconds(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	h, err := report.NewHistory(dbPath, logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// The older run starts on a whole second, the newer one half a second
	// later. A variable-width fraction encoding would sort these backwards.
	older := &report.Run{ID: "older", StartedAt: base, FinishedAt: base.Add(time.Second)}
	newer := &report.Run{ID: "newer", StartedAt: base.Add(500 * time.Millisecond), FinishedAt: base.Add(2 * time.Second)}

	if err := h.CommitRun(ctx, older); err != nil {
		t.Fatalf("CommitRun(older): %v", err)
	}
	if err := h.CommitRun(ctx, newer); err != nil {
		t.Fatalf("CommitRun(newer): %v", err)
	}

	runs, err := h.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "newer" || runs[1].ID != "older" {
		t.Fatalf("expected newest-first ordering [newer older], got %+v", runs)
	}
	if !runs[0].StartedAt.Equal(newer.StartedAt) {
		t.Errorf("start time did not round-trip: %v vs %v", runs[0].StartedAt, newer.StartedAt)
	}
}

func TestHistory_GetRun_NotFound(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	h, err := report.NewHistory(dbPath, logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	defer h.Close()

	_, err = h.GetRun(context.Background(), "nope")
	if !errors.Is(err, report.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestHistory_CommitRun_RequiresID(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	h, err := report.NewHistory(dbPath, logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	defer h.Close()

	if err := h.CommitRun(context.Background(), &report.Run{}); err == nil {
		t.Fatal("expected error for run without id")
	}
}
