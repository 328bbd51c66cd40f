// Package steps binds Gherkin phrases to the harness utilities so feature
// files can drive API scenarios.
package steps

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"

	"github.com/kensahq/kensa/internal/apiclient"
	"github.com/kensahq/kensa/internal/expect"
	"github.com/kensahq/kensa/internal/schema"
)

// APISteps carries the state of one API scenario: the shared client and the
// last response. godog creates one instance per scenario, so scenarios never
// observe each other's responses.
type APISteps struct {
	client    *apiclient.Client
	validator *schema.Validator
	last      *apiclient.Response
}

// NewAPISteps creates the step state for one scenario.
func NewAPISteps(client *apiclient.Client, validator *schema.Validator) *APISteps {
	return &APISteps{client: client, validator: validator}
}

// Reset clears the last response so a new scenario starts clean.
func (s *APISteps) Reset() {
	s.last = nil
}

// Register binds the step phrases to sc.
func (s *APISteps) Register(sc *godog.ScenarioContext) {
	sc.Step(`^I send a GET request to "([^"]*)"$`, s.sendGet)
	sc.Step(`^I send a DELETE request to "([^"]*)"$`, s.sendDelete)
	sc.Step(`^I send a POST request to "([^"]*)" with body:$`, s.sendPost)
	sc.Step(`^I send a PUT request to "([^"]*)" with body:$`, s.sendPut)
	sc.Step(`^the response status should be (\d+)$`, s.statusShouldBe)
	sc.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, s.fieldShouldEqual)
	sc.Step(`^the response field "([^"]*)" should exist$`, s.fieldShouldExist)
	sc.Step(`^the response field "([^"]*)" should not exist$`, s.fieldShouldNotExist)
	sc.Step(`^the response body should match the schema:$`, s.bodyShouldMatchSchema)
	sc.Step(`^the response body should equal:$`, s.bodyShouldEqual)
}

func (s *APISteps) sendGet(ctx context.Context, endpoint string) error {
	resp, err := s.client.Get(ctx, endpoint, nil)
	s.last = resp
	return err
}

func (s *APISteps) sendDelete(ctx context.Context, endpoint string) error {
	resp, err := s.client.Delete(ctx, endpoint)
	s.last = resp
	return err
}

func (s *APISteps) sendPost(ctx context.Context, endpoint string, body *godog.DocString) error {
	return s.sendWithBody(ctx, http.MethodPost, endpoint, body)
}

func (s *APISteps) sendPut(ctx context.Context, endpoint string, body *godog.DocString) error {
	return s.sendWithBody(ctx, http.MethodPut, endpoint, body)
}

func (s *APISteps) sendWithBody(ctx context.Context, method, endpoint string, body *godog.DocString) error {
	resp, err := s.client.Do(ctx, &apiclient.Request{
		Method:   method,
		Endpoint: endpoint,
		RawBody:  []byte(body.Content),
	})
	s.last = resp
	return err
}

func (s *APISteps) statusShouldBe(want int) error {
	if err := s.requireResponse(); err != nil {
		return err
	}
	if s.last.StatusCode != want {
		return fmt.Errorf("expected status %d, got %d (%s)", want, s.last.StatusCode, s.last.Status)
	}
	return nil
}

func (s *APISteps) fieldShouldEqual(keyPath, want string) error {
	if err := s.requireResponse(); err != nil {
		return err
	}
	v, ok := s.client.Extract(s.last, keyPath)
	if !ok {
		return fmt.Errorf("field %q not found in response", keyPath)
	}
	got := renderScalar(v.Interface())
	if got != want {
		return fmt.Errorf("field %q = %q, want %q", keyPath, got, want)
	}
	return nil
}

func (s *APISteps) fieldShouldExist(keyPath string) error {
	if err := s.requireResponse(); err != nil {
		return err
	}
	if _, ok := s.client.Extract(s.last, keyPath); !ok {
		return fmt.Errorf("field %q not found in response", keyPath)
	}
	return nil
}

func (s *APISteps) fieldShouldNotExist(keyPath string) error {
	if err := s.requireResponse(); err != nil {
		return err
	}
	if _, ok := s.client.Extract(s.last, keyPath); ok {
		return fmt.Errorf("field %q unexpectedly present", keyPath)
	}
	return nil
}

func (s *APISteps) bodyShouldMatchSchema(schemaDoc *godog.DocString) error {
	if err := s.requireResponse(); err != nil {
		return err
	}
	_, err := s.validator.Validate(s.last.Body, schemaDoc.Content)
	return err
}

func (s *APISteps) bodyShouldEqual(expected *godog.DocString) error {
	if err := s.requireResponse(); err != nil {
		return err
	}
	equal, diff, err := expect.JSONEqual([]byte(expected.Content), s.last.Body)
	if err != nil {
		return err
	}
	if !equal {
		return fmt.Errorf("response body differs from expectation:\n%s", diff)
	}
	return nil
}

func (s *APISteps) requireResponse() error {
	if s.last == nil {
		return fmt.Errorf("no request has been sent yet")
	}
	return nil
}

// renderScalar formats an extracted scalar the way feature files write it:
// integers without a decimal point, booleans as true/false.
func renderScalar(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", t)
	}
}
