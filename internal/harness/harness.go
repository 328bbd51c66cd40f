// Package harness wires the test-facing pieces together: one Harness per
// run owns the configuration, the API client, a lazily started browser
// session and the reporting sinks.
package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kensahq/kensa/internal/apiclient"
	"github.com/kensahq/kensa/internal/browser"
	"github.com/kensahq/kensa/internal/config"
	"github.com/kensahq/kensa/internal/logging"
	"github.com/kensahq/kensa/internal/report"
	"github.com/kensahq/kensa/internal/schema"
)

// Harness owns the collaborators of one test run. Steps execute strictly
// sequentially; the mutex only guards the results slice against a progress
// listener reading concurrently.
type Harness struct {
	cfg       config.Config
	logger    logging.Logger
	api       *apiclient.Client
	validator *schema.Validator
	writer    *report.Writer
	history   *report.History

	browserMu sync.Mutex
	browser   *browser.Session

	runID     string
	startedAt time.Time

	mu       sync.Mutex
	results  []report.Result
	onResult func(report.Result)
}

// New creates a Harness for one run. The reports directory layout and the
// history database are created eagerly so a misconfigured path fails before
// any step runs.
func New(cfg config.Config, logger logging.Logger) (*Harness, error) {
	writer, err := report.NewWriter(cfg.ReportsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("report writer: %w", err)
	}

	history, err := report.NewHistory(filepath.Join(cfg.ReportsDir, "history.db"), logger)
	if err != nil {
		return nil, fmt.Errorf("report history: %w", err)
	}

	h := &Harness{
		cfg:       cfg,
		logger:    logger.With(logging.Field{Key: "component", Value: "harness"}),
		api:       apiclient.New(cfg, logger, nil),
		validator: schema.New(logger),
		writer:    writer,
		history:   history,
		runID:     uuid.NewString(),
		startedAt: time.Now(),
	}

	h.logger.Info("run started",
		logging.Field{Key: "run_id", Value: h.runID},
		logging.Field{Key: "environment", Value: cfg.Environment})

	return h, nil
}

// RunID identifies this run in reports and history.
func (h *Harness) RunID() string { return h.runID }

// API returns the shared API client.
func (h *Harness) API() *apiclient.Client { return h.api }

// Validator returns the shared schema validator.
func (h *Harness) Validator() *schema.Validator { return h.validator }

// Browser returns the browser session, starting Chrome on first use so
// API-only runs never pay for it.
func (h *Harness) Browser() (*browser.Session, error) {
	h.browserMu.Lock()
	defer h.browserMu.Unlock()

	if h.browser == nil {
		s, err := browser.NewSession(h.cfg, h.logger)
		if err != nil {
			return nil, err
		}
		h.browser = s
	}
	return h.browser, nil
}

// OnResult registers a listener invoked after every recorded step result.
// Used by the results server to stream progress.
func (h *Harness) OnResult(fn func(report.Result)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onResult = fn
}

// RunStep executes one named step, measuring its duration and recording the
// outcome. When a step with an active browser session fails, a screenshot is
// captured and attached to the result. The step's error is returned so the
// caller can decide whether to continue.
func (h *Harness) RunStep(name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(context.Background())

	result := report.Result{
		Name:            name,
		Status:          report.StatusPassed,
		Timestamp:       start,
		DurationSeconds: time.Since(start).Seconds(),
	}

	if err != nil {
		result.Status = report.StatusFailed
		result.Error = err.Error()

		if shot := h.failureScreenshot(name); shot != "" {
			result.Screenshots = []string{shot}
		}

		h.logger.Error("step failed",
			logging.Field{Key: "step", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
	} else {
		h.logger.Info("step passed",
			logging.Field{Key: "step", Value: name},
			logging.Field{Key: "duration", Value: result.DurationSeconds})
	}

	h.record(result)
	return err
}

// SkipStep records a step as skipped without executing anything.
func (h *Harness) SkipStep(name, reason string) {
	h.record(report.Result{
		Name:      name,
		Status:    report.StatusSkipped,
		Timestamp: time.Now(),
		Error:     reason,
	})
}

// Record adds an externally produced result to the run, e.g. from a BDD
// suite that executes its own steps. RunStep and SkipStep go through the
// same path.
func (h *Harness) Record(r report.Result) {
	h.record(r)
}

func (h *Harness) record(r report.Result) {
	h.mu.Lock()
	h.results = append(h.results, r)
	fn := h.onResult
	h.mu.Unlock()

	if fn != nil {
		fn(r)
	}
}

func (h *Harness) failureScreenshot(stepName string) string {
	h.browserMu.Lock()
	session := h.browser
	h.browserMu.Unlock()
	if session == nil {
		return ""
	}

	path, err := session.Screenshot("failure " + stepName)
	if err != nil {
		h.logger.Warn("failure screenshot not captured",
			logging.Field{Key: "step", Value: stepName},
			logging.Field{Key: "error", Value: err.Error()})
		return ""
	}
	return path
}

// Finish closes the run: computes statistics, writes the JSON artifact,
// commits the run to history and shuts down the browser if it was started.
func (h *Harness) Finish(ctx context.Context) (*report.Run, error) {
	h.mu.Lock()
	results := make([]report.Result, len(h.results))
	copy(results, h.results)
	h.mu.Unlock()

	// Move captured screenshots into per-test folders so the report points
	// at the organized copies.
	for i, r := range results {
		if len(r.Screenshots) == 0 {
			continue
		}
		organized, err := h.writer.OrganizeScreenshots(r.Name, r.Screenshots)
		if err != nil {
			h.logger.Warn("organizing screenshots",
				logging.Field{Key: "step", Value: r.Name},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		results[i].Screenshots = organized
	}

	run := &report.Run{
		ID:          h.runID,
		Environment: h.cfg.Environment,
		StartedAt:   h.startedAt,
		FinishedAt:  time.Now(),
		Results:     results,
		Stats:       report.Collect(results),
	}

	if _, err := h.writer.WriteRun(run); err != nil {
		return nil, err
	}
	if err := h.history.CommitRun(ctx, run); err != nil {
		return nil, err
	}

	h.browserMu.Lock()
	if h.browser != nil {
		_ = h.browser.Close()
		h.browser = nil
	}
	h.browserMu.Unlock()

	if err := h.history.Close(); err != nil {
		h.logger.Warn("closing history", logging.Field{Key: "error", Value: err.Error()})
	}

	h.logger.Info("run finished",
		logging.Field{Key: "run_id", Value: run.ID},
		logging.Field{Key: "passed", Value: run.Stats.Passed},
		logging.Field{Key: "failed", Value: run.Stats.Failed})

	return run, nil
}
