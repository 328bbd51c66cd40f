package harness_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kensahq/kensa/internal/config"
	"github.com/kensahq/kensa/internal/harness"
	"github.com/kensahq/kensa/internal/logging"
	"github.com/kensahq/kensa/internal/report"
	"github.com/kensahq/kensa/internal/stubserver"
)

func newHarness(t *testing.T, apiBase string) *harness.Harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ReportsDir = t.TempDir()
	if apiBase != "" {
		cfg.APIBaseURL = apiBase
	}

	h, err := harness.New(cfg, logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("harness.New: %v", err)
	}
	return h
}

func TestRunStep_RecordsOutcomes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")

	if err := h.RunStep("passing step", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("passing step returned error: %v", err)
	}

	stepErr := errors.New("assertion failed")
	if err := h.RunStep("failing step", func(context.Context) error { return stepErr }); !errors.Is(err, stepErr) {
		t.Fatalf("expected step error surfaced, got %v", err)
	}
	h.SkipStep("skipped step", "not applicable on this environment")

	run, err := h.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if run.Stats.Total != 3 || run.Stats.Passed != 1 || run.Stats.Failed != 1 || run.Stats.Skipped != 1 {
		t.Errorf("unexpected stats %+v", run.Stats)
	}
	if run.Results[1].Error != "assertion failed" {
		t.Errorf("expected failure message recorded, got %+v", run.Results[1])
	}
}

func TestOnResult_StreamsProgress(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")

	var seen []report.Result
	h.OnResult(func(r report.Result) { seen = append(seen, r) })

	_ = h.RunStep("one", func(context.Context) error { return nil })
	_ = h.RunStep("two", func(context.Context) error { return errors.New("boom") })

	if len(seen) != 2 {
		t.Fatalf("expected 2 progress events, got %d", len(seen))
	}
	if seen[0].Status != report.StatusPassed || seen[1].Status != report.StatusFailed {
		t.Errorf("unexpected event statuses: %+v", seen)
	}
}

func TestFinish_PersistsRunToHistory(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(stubserver.New().Handler())
	defer ts.Close()

	h := newHarness(t, ts.URL)
	runID := h.RunID()

	_ = h.RunStep("get user", func(ctx context.Context) error {
		resp, err := h.API().Get(ctx, "users/1", nil)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return errors.New("expected 200")
		}
		if _, ok := h.API().Extract(resp, "email"); !ok {
			return errors.New("missing email")
		}
		return nil
	})

	run, err := h.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if run.ID != runID {
		t.Errorf("run id changed: %s vs %s", run.ID, runID)
	}
	if run.Stats.Passed != 1 {
		t.Errorf("expected the api step to pass, got %+v", run.Stats)
	}
}

func TestFinish_OrganizesScreenshotsPerTest(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	cfg.ReportsDir = t.TempDir()

	h, err := harness.New(cfg, logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("harness.New: %v", err)
	}

	shot := filepath.Join(cfg.ReportsDir, "screenshots", "failure_login_page.png")
	if err := os.WriteFile(shot, []byte("png-bytes"), 0644); err != nil {
		t.Fatalf("writing fixture screenshot: %v", err)
	}

	h.Record(report.Result{
		Name:        "login page",
		Status:      report.StatusFailed,
		Timestamp:   time.Now(),
		Error:       "element not found",
		Screenshots: []string{shot},
	})

	run, err := h.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if len(run.Results) != 1 || len(run.Results[0].Screenshots) != 1 {
		t.Fatalf("expected one result with one screenshot, got %+v", run.Results)
	}
	organized := run.Results[0].Screenshots[0]
	wantDir := filepath.Join(cfg.ReportsDir, "screenshots", "login_page")
	if filepath.Dir(organized) != wantDir {
		t.Errorf("screenshot not moved into per-test folder: %s", organized)
	}
	if _, err := os.Stat(organized); err != nil {
		t.Errorf("organized screenshot missing on disk: %v", err)
	}
}

func TestValidator_SharedInstance(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")
	defer h.Finish(context.Background())

	ok, err := h.Validator().Validate(
		map[string]any{"id": 1},
		`{"type": "object", "required": ["id"]}`,
	)
	if err != nil || !ok {
		t.Fatalf("expected conforming doc to validate, ok=%v err=%v", ok, err)
	}
}
