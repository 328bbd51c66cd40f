// Package browser drives a Chrome session for UI scenarios: navigation,
// element waits, clicks and screenshot capture.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/kensahq/kensa/internal/config"
	"github.com/kensahq/kensa/internal/logging"
)

// Session owns one browser instance for the lifetime of a scenario.
// It is not safe for concurrent use; each parallel scenario gets its own.
type Session struct {
	cfg            config.Config
	logger         logging.Logger
	ctx            context.Context
	cancelBrowser  context.CancelFunc
	cancelAlloc    context.CancelFunc
	screenshotsDir string
}

// NewSession starts a Chrome instance configured from cfg. Close must be
// called to release it.
func NewSession(cfg config.Config, logger logging.Logger) (*Session, error) {
	componentLogger := logger.With(logging.Field{Key: "component", Value: "browser"})

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so a missing Chrome binary fails here, not
	// on the first step of a scenario.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	screenshotsDir := filepath.Join(cfg.ReportsDir, "screenshots")
	if err := os.MkdirAll(screenshotsDir, 0755); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("create screenshots dir: %w", err)
	}

	componentLogger.Info("browser session started",
		logging.Field{Key: "headless", Value: cfg.Headless})

	return &Session{
		cfg:            cfg,
		logger:         componentLogger,
		ctx:            browserCtx,
		cancelBrowser:  cancelBrowser,
		cancelAlloc:    cancelAlloc,
		screenshotsDir: screenshotsDir,
	}, nil
}

// Navigate loads url and waits for the page load, bounded by the configured
// page load timeout.
func (s *Session) Navigate(url string) error {
	s.logger.Info("navigating", logging.Field{Key: "url", Value: url})
	return s.run(s.cfg.PageLoadTimeout, chromedp.Navigate(url))
}

// WaitVisible blocks until the selector matches a visible element, bounded
// by timeout (the configured implicit wait when timeout <= 0).
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.ImplicitWait
	}
	return s.run(timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Click waits for the selector to be visible, then clicks it.
func (s *Session) Click(selector string) error {
	return s.run(s.cfg.DefaultTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// SafeClick clicks the selector and reports success instead of failing the
// step, matching how optional UI elements (cookie banners) are handled.
func (s *Session) SafeClick(selector string) bool {
	if err := s.Click(selector); err != nil {
		s.logger.Error("click failed",
			logging.Field{Key: "selector", Value: selector},
			logging.Field{Key: "error", Value: err.Error()})
		return false
	}
	return true
}

// Title returns the current page title.
func (s *Session) Title() (string, error) {
	var title string
	err := s.run(s.cfg.DefaultTimeout, chromedp.Title(&title))
	return title, err
}

// CurrentURL returns the browser's current location.
func (s *Session) CurrentURL() (string, error) {
	var loc string
	err := s.run(s.cfg.DefaultTimeout, chromedp.Location(&loc))
	return loc, err
}

// Text returns the text content of the first element matching selector.
func (s *Session) Text(selector string) (string, error) {
	var text string
	err := s.run(s.cfg.DefaultTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Text(selector, &text, chromedp.ByQuery),
	)
	return text, err
}

// ElementPresent reports whether selector matches anything in the current
// DOM. Unlike WaitVisible it does not wait; absence is a normal answer.
func (s *Session) ElementPresent(selector string) (bool, error) {
	var html string
	if err := s.run(s.cfg.DefaultTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return false, err
	}
	return HTMLHasElement(html, selector)
}

// Screenshot captures the viewport into the screenshots directory and
// returns the written path. An empty name gets a timestamped one.
func (s *Session) Screenshot(name string) (string, error) {
	var buf []byte
	if err := s.run(s.cfg.DefaultTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}

	path := filepath.Join(s.screenshotsDir, ScreenshotFilename(name, time.Now()))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}

	s.logger.Info("screenshot saved", logging.Field{Key: "path", Value: path})
	return path, nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.logger.Info("closing browser session")
	s.cancelBrowser()
	s.cancelAlloc()
	return nil
}

func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// HTMLHasElement reports whether selector matches anything in the given HTML
// document.
func HTMLHasElement(html, selector string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("parse html: %w", err)
	}
	return doc.Find(selector).Length() > 0, nil
}

// ScreenshotFilename builds the on-disk name for a screenshot. Spaces become
// underscores and a .png extension is appended when missing; an empty name
// falls back to a timestamp.
func ScreenshotFilename(name string, now time.Time) string {
	if name == "" {
		name = "screenshot_" + now.Format("20060102_150405")
	}
	name = strings.ReplaceAll(name, " ", "_")
	if !strings.HasSuffix(name, ".png") {
		name += ".png"
	}
	return name
}
