// Command kensa runs a demo suite against the built-in fixture API and
// writes a JSON report. With -serve it then exposes the run history over
// HTTP. Usage: go run . [-config file] [-env file] [-serve :8080] [-verbose]
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/kensahq/kensa/internal/cli"
	"github.com/kensahq/kensa/internal/config"
	"github.com/kensahq/kensa/internal/harness"
	"github.com/kensahq/kensa/internal/logging"
	"github.com/kensahq/kensa/internal/report"
	"github.com/kensahq/kensa/internal/server"
	"github.com/kensahq/kensa/internal/stubserver"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.FromEnv(args.EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if args.ConfigFile != "" {
		if cfg, err = config.LoadFile(cfg, args.ConfigFile); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	logger := logging.NewZeroLogger(logging.Options{
		Component: "kensa",
		Verbose:   args.Verbose,
		FilePath:  filepath.Join(cfg.ReportsDir, "logs", "kensa.log"),
	})

	run, err := runDemoSuite(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("run %s finished: %d passed, %d failed, %d skipped (%.1f%% success)\n",
		run.ID, run.Stats.Passed, run.Stats.Failed, run.Stats.Skipped, run.Stats.SuccessRate)

	if args.ServeAddr != "" {
		history, err := report.NewHistory(filepath.Join(cfg.ReportsDir, "history.db"), logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "history: %v\n", err)
			os.Exit(1)
		}
		defer history.Close()

		srv := server.New(history, server.Config{Addr: args.ServeAddr}, logger)
		if err := srv.ListenAndServe(); err != nil {
			fmt.Fprintf(os.Stderr, "server: %v\n", err)
			os.Exit(1)
		}
	}

	if run.Stats.Failed > 0 {
		os.Exit(1)
	}
}

// runDemoSuite executes a handful of API steps against the built-in fixture
// server, demonstrating the request, extraction and schema helpers.
func runDemoSuite(cfg config.Config, logger logging.Logger) (*report.Run, error) {
	fixture := httptest.NewServer(stubserver.New().Handler())
	defer fixture.Close()
	cfg.APIBaseURL = fixture.URL

	h, err := harness.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	_ = h.RunStep("fetch existing user", func(ctx context.Context) error {
		resp, err := h.API().Get(ctx, "users/1", nil)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if _, ok := h.API().Extract(resp, "email"); !ok {
			return fmt.Errorf("user document has no email")
		}
		return nil
	})

	_ = h.RunStep("user document matches contract", func(ctx context.Context) error {
		resp, err := h.API().Get(ctx, "users/1", nil)
		if err != nil {
			return err
		}
		_, err = h.Validator().Validate(resp.Body, `{
			"type": "object",
			"required": ["id", "name", "email"]
		}`)
		return err
	})

	_ = h.RunStep("missing user yields 404 body", func(ctx context.Context) error {
		resp, err := h.API().Get(ctx, "users/999", nil)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %d", resp.StatusCode)
		}
		if v, ok := h.API().Extract(resp, "error"); !ok || v.StringVal() == "" {
			return fmt.Errorf("404 body has no error message")
		}
		return nil
	})

	_ = h.RunStep("create a post", func(ctx context.Context) error {
		resp, err := h.API().Post(ctx, "posts", map[string]any{
			"userId": 1, "title": "demo", "body": "created by the demo suite",
		})
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("expected 201, got %d", resp.StatusCode)
		}
		if _, ok := h.API().Extract(resp, "id"); !ok {
			return fmt.Errorf("created post has no id")
		}
		return nil
	})

	return h.Finish(context.Background())
}
