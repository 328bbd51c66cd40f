package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"github.com/kensahq/kensa/internal/browser"
	"github.com/kensahq/kensa/internal/config"
	"github.com/kensahq/kensa/internal/logging"
	"github.com/kensahq/kensa/internal/urlutil"
)

// BrowserSteps carries the state of one UI scenario: a Chrome session started
// on first use and torn down after the scenario.
type BrowserSteps struct {
	cfg     config.Config
	logger  logging.Logger
	session *browser.Session
}

// NewBrowserSteps creates the UI step state. The session starts lazily so
// registering these steps costs nothing for API-only suites.
func NewBrowserSteps(cfg config.Config, logger logging.Logger) *BrowserSteps {
	return &BrowserSteps{cfg: cfg, logger: logger}
}

// Register binds the UI step phrases to sc and hooks session teardown.
func (s *BrowserSteps) Register(sc *godog.ScenarioContext) {
	sc.Step(`^the browser is open$`, s.browserIsOpen)
	sc.Step(`^I open the page "([^"]*)"$`, s.openPage)
	sc.Step(`^I click "([^"]*)"$`, s.click)
	sc.Step(`^I take a screenshot named "([^"]*)"$`, s.takeScreenshot)
	sc.Step(`^the page title should contain "([^"]*)"$`, s.titleShouldContain)
	sc.Step(`^the current url should contain "([^"]*)"$`, s.urlShouldContain)
	sc.Step(`^the element "([^"]*)" should be visible$`, s.elementShouldBeVisible)
	sc.Step(`^the element "([^"]*)" should be present$`, s.elementShouldBePresent)
	sc.Step(`^the element "([^"]*)" should not be present$`, s.elementShouldNotBePresent)
	sc.Step(`^the element "([^"]*)" should contain "([^"]*)"$`, s.elementShouldContain)

	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if s.session != nil {
			_ = s.session.Close()
			s.session = nil
		}
		return ctx, nil
	})
}

func (s *BrowserSteps) ensureSession() (*browser.Session, error) {
	if s.session == nil {
		sess, err := browser.NewSession(s.cfg, s.logger)
		if err != nil {
			return nil, err
		}
		s.session = sess
	}
	return s.session, nil
}

// resolve turns a relative page path into an absolute URL against the
// configured base URL. Absolute URLs pass through untouched.
func (s *BrowserSteps) resolve(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	return urlutil.JoinBase(s.cfg.BaseURL, target)
}

func (s *BrowserSteps) browserIsOpen() error {
	_, err := s.ensureSession()
	return err
}

func (s *BrowserSteps) openPage(target string) error {
	sess, err := s.ensureSession()
	if err != nil {
		return err
	}
	return sess.Navigate(s.resolve(target))
}

func (s *BrowserSteps) click(selector string) error {
	sess, err := s.ensureSession()
	if err != nil {
		return err
	}
	return sess.Click(selector)
}

func (s *BrowserSteps) takeScreenshot(name string) error {
	sess, err := s.ensureSession()
	if err != nil {
		return err
	}
	_, err = sess.Screenshot(name)
	return err
}

func (s *BrowserSteps) titleShouldContain(want string) error {
	sess, err := s.ensureSession()
	if err != nil {
		return err
	}
	title, err := sess.Title()
	if err != nil {
		return err
	}
	if !strings.Contains(title, want) {
		return fmt.Errorf("page title %q does not contain %q", title, want)
	}
	return nil
}

func (s *BrowserSteps) urlShouldContain(want string) error {
	sess, err := s.ensureSession()
	if err != nil {
		return err
	}
	loc, err := sess.CurrentURL()
	if err != nil {
		return err
	}
	if !strings.Contains(loc, want) {
		return fmt.Errorf("current url %q does not contain %q", loc, want)
	}
	return nil
}

func (s *BrowserSteps) elementShouldBeVisible(selector string) error {
	sess, err := s.ensureSession()
	if err != nil {
		return err
	}
	return sess.WaitVisible(selector, 0)
}

func (s *BrowserSteps) elementShouldBePresent(selector string) error {
	sess, err := s.ensureSession()
	if err != nil {
		return err
	}
	present, err := sess.ElementPresent(selector)
	if err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("element %q not present", selector)
	}
	return nil
}

func (s *BrowserSteps) elementShouldNotBePresent(selector string) error {
	sess, err := s.ensureSession()
	if err != nil {
		return err
	}
	present, err := sess.ElementPresent(selector)
	if err != nil {
		return err
	}
	if present {
		return fmt.Errorf("element %q unexpectedly present", selector)
	}
	return nil
}

func (s *BrowserSteps) elementShouldContain(selector, want string) error {
	sess, err := s.ensureSession()
	if err != nil {
		return err
	}
	text, err := sess.Text(selector)
	if err != nil {
		return err
	}
	if !strings.Contains(text, want) {
		return fmt.Errorf("element %q text %q does not contain %q", selector, text, want)
	}
	return nil
}
