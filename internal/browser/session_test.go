package browser_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kensahq/kensa/internal/browser"
	"github.com/kensahq/kensa/internal/config"
	"github.com/kensahq/kensa/internal/logging"
)

const samplePage = `<html><body>
	<div id="main"><a class="result" href="/x">Result</a></div>
	<form name="search"><input name="q"></form>
</body></html>`

func TestHTMLHasElement(t *testing.T) {
	t.Parallel()
	cases := []struct {
		selector string
		want     bool
	}{
		{"#main", true},
		{"a.result", true},
		{`input[name="q"]`, true},
		{"#missing", false},
		{"table", false},
	}

	for _, tc := range cases {
		got, err := browser.HTMLHasElement(samplePage, tc.selector)
		if err != nil {
			t.Fatalf("HTMLHasElement(%q): %v", tc.selector, err)
		}
		if got != tc.want {
			t.Errorf("HTMLHasElement(%q) = %v, want %v", tc.selector, got, tc.want)
		}
	}
}

// Note: skipped in environments where Chrome cannot start.
func TestSession_NavigateAndInspect(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html><head><title>Fixture Page</title></head><body>
<h1 id="headline">Welcome</h1>
<a id="next" href="/two">continue</a>
</body></html>`))
	})
	mux.HandleFunc("/two", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html><head><title>Second Page</title></head><body>
<p id="second">made it</p>
</body></html>`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	cfg := config.DefaultConfig()
	cfg.ReportsDir = t.TempDir()
	cfg.DefaultTimeout = 10 * time.Second

	s, err := browser.NewSession(cfg, logging.NewTestLogger(false))
	if err != nil {
		t.Skipf("Skipping live session test (environment does not support chromedp): %v", err)
	}
	defer s.Close()

	if err := s.Navigate(ts.URL); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if err := s.WaitNetworkIdle(500*time.Millisecond, 10*time.Second); err != nil {
		t.Fatalf("WaitNetworkIdle: %v", err)
	}

	title, err := s.Title()
	if err != nil || title != "Fixture Page" {
		t.Fatalf("Title = %q, %v; want Fixture Page", title, err)
	}
	text, err := s.Text("#headline")
	if err != nil || text != "Welcome" {
		t.Fatalf("Text(#headline) = %q, %v; want Welcome", text, err)
	}
	if present, err := s.ElementPresent("#missing"); err != nil || present {
		t.Errorf("ElementPresent(#missing) = %v, %v; want false", present, err)
	}
	if loc, err := s.CurrentURL(); err != nil || !strings.HasPrefix(loc, ts.URL) {
		t.Errorf("CurrentURL = %q, %v; want prefix %s", loc, err, ts.URL)
	}

	shot, err := s.Screenshot("fixture page")
	if err != nil {
		t.Fatalf("Screenshot: %v", err)
	}
	if _, err := os.Stat(shot); err != nil {
		t.Errorf("screenshot not written: %v", err)
	}

	if err := s.Click("#next"); err != nil {
		t.Fatalf("Click(#next): %v", err)
	}
	if err := s.WaitVisible("#second", 0); err != nil {
		t.Fatalf("WaitVisible(#second): %v", err)
	}
	if title, err := s.Title(); err != nil || title != "Second Page" {
		t.Errorf("Title after click = %q, %v; want Second Page", title, err)
	}
}

func TestScreenshotFilename(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	cases := []struct {
		name string
		want string
	}{
		{"login page", "login_page.png"},
		{"checkout.png", "checkout.png"},
		{"", "screenshot_20260314_150926.png"},
	}

	for _, tc := range cases {
		if got := browser.ScreenshotFilename(tc.name, now); got != tc.want {
			t.Errorf("ScreenshotFilename(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
