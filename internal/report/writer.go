// Package report persists test outcomes: JSON artifacts on disk, organized
// screenshots, and a SQLite history for cross-run statistics.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kensahq/kensa/internal/logging"
)

// Writer writes JSON report artifacts and organizes screenshots under a
// reports directory.
type Writer struct {
	reportsDir string
	logger     logging.Logger
}

// NewWriter creates the reports directory layout (json/, screenshots/) and
// returns a Writer rooted there.
func NewWriter(reportsDir string, logger logging.Logger) (*Writer, error) {
	for _, sub := range []string{"json", "screenshots"} {
		if err := os.MkdirAll(filepath.Join(reportsDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("create reports directory: %w", err)
		}
	}
	return &Writer{
		reportsDir: reportsDir,
		logger:     logger.With(logging.Field{Key: "component", Value: "report"}),
	}, nil
}

// Filename builds a timestamped report file name, e.g. report_20260314_150926.json.
func Filename(prefix, extension string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102_150405"), extension)
}

// WriteRun serializes run as an indented JSON artifact under reports/json
// and returns the written path.
func (w *Writer) WriteRun(run *Run) (string, error) {
	data, err := json.MarshalIndent(run, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal run: %w", err)
	}

	path := filepath.Join(w.reportsDir, "json", Filename("report", "json", run.FinishedAt))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	w.logger.Info("json report saved", logging.Field{Key: "path", Value: path})
	return path, nil
}

// OrganizeScreenshots copies the given screenshot files into a per-test
// folder under reports/screenshots and returns the new paths. Files that no
// longer exist are skipped.
func (w *Writer) OrganizeScreenshots(testName string, screenshots []string) ([]string, error) {
	testDir := filepath.Join(w.reportsDir, "screenshots", strings.ReplaceAll(testName, " ", "_"))
	if err := os.MkdirAll(testDir, 0755); err != nil {
		return nil, fmt.Errorf("create test screenshot dir: %w", err)
	}

	var organized []string
	for i, src := range screenshots {
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(testDir, fmt.Sprintf("step_%d_%s", i+1, filepath.Base(src)))
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("copy screenshot %s: %w", src, err)
		}
		organized = append(organized, dst)
	}
	return organized, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
