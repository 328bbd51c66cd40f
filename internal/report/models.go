package report

import "time"

// Status is the outcome of a single test step or scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result records the outcome of one named test.
type Result struct {
	Name            string    `json:"name"`
	Status          Status    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Error           string    `json:"error,omitempty"`
	Screenshots     []string  `json:"screenshots,omitempty"`
}

// Stats aggregates a run's results.
type Stats struct {
	Total           int     `json:"total"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	DurationSeconds float64 `json:"duration_seconds"`
	SuccessRate     float64 `json:"success_rate"`
}

// Run is a complete harness execution: identity, results and statistics.
// This is the shape serialized into JSON report artifacts.
type Run struct {
	ID          string    `json:"id"`
	Environment string    `json:"environment,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Results     []Result  `json:"results"`
	Stats       Stats     `json:"statistics"`
}

// Collect computes aggregate statistics over a list of results.
func Collect(results []Result) Stats {
	stats := Stats{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			stats.Passed++
		case StatusFailed:
			stats.Failed++
		case StatusSkipped:
			stats.Skipped++
		}
		stats.DurationSeconds += r.DurationSeconds
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Passed) / float64(stats.Total) * 100
	}
	return stats
}
