// Package apiclient is the HTTP side of the harness: it performs one
// synchronous request per call and exposes a uniform way to pull values out
// of JSON responses for assertions.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kensahq/kensa/internal/config"
	"github.com/kensahq/kensa/internal/jsonval"
	"github.com/kensahq/kensa/internal/logging"
	"github.com/kensahq/kensa/internal/urlutil"
)

// bodyLogLimit caps how much of a non-JSON body makes it into debug logs.
const bodyLogLimit = 200

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
}

// Client performs API requests against a configured base URL. It holds no
// per-request state, so a single Client is safe for concurrent use and two
// sequential calls cannot leak settings into each other.
type Client struct {
	cfg      config.Config
	logger   logging.Logger
	verified *http.Client
	insecure *http.Client
}

// New creates a Client from an immutable configuration. httpClient may be
// nil, in which case a default transport is built; when provided it is used
// for verified calls (tests pass httptest server clients here).
func New(cfg config.Config, logger logging.Logger, httpClient *http.Client) *Client {
	componentLogger := logger.With(logging.Field{Key: "component", Value: "apiclient"})

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	// Separate client for calls that skip certificate verification, so the
	// verified transport never caches an insecure connection.
	insecure := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	componentLogger.Info("created api client",
		logging.Field{Key: "base_url", Value: cfg.APIBaseURL},
		logging.Field{Key: "default_timeout", Value: cfg.DefaultTimeout.String()})

	return &Client{
		cfg:      cfg,
		logger:   componentLogger,
		verified: httpClient,
		insecure: insecure,
	}
}

// Do executes a single request and returns the full response. Non-2xx
// statuses are successful outcomes; the returned error is non-nil only for
// transport failures (DNS, connect, TLS, timeout) or a malformed Request.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if _, ok := allowedMethods[req.Method]; !ok {
		return nil, fmt.Errorf("unsupported method %q", req.Method)
	}
	if req.JSONBody != nil && len(req.RawBody) > 0 {
		return nil, fmt.Errorf("JSONBody and RawBody are mutually exclusive")
	}

	fullURL, err := c.buildURL(req)
	if err != nil {
		return nil, err
	}

	body := req.RawBody
	if req.JSONBody != nil {
		body, err = json.Marshal(req.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if req.Headers != nil {
		for k, vs := range req.Headers {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}
	} else {
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
	}

	c.logger.Info("sending request",
		logging.Field{Key: "method", Value: req.Method},
		logging.Field{Key: "url", Value: fullURL})

	httpClient := c.verified
	if req.SkipTLSVerify || !c.cfg.VerifyTLS {
		httpClient = c.insecure
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("request failed",
			logging.Field{Key: "method", Value: req.Method},
			logging.Field{Key: "url", Value: fullURL},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("%s %s: %w", req.Method, fullURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("reading response body",
			logging.Field{Key: "url", Value: fullURL},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("read body: %w", err)
	}

	out := &Response{
		Request:    req,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Header,
		Body:       raw,
		FetchedAt:  time.Now(),
	}
	c.logResponse(out)

	return out, nil
}

// Get performs a GET request against endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Endpoint: endpoint, Params: params})
}

// Post performs a POST request with body serialized as JSON.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Endpoint: endpoint, JSONBody: body})
}

// Put performs a PUT request with body serialized as JSON.
func (c *Client) Put(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Endpoint: endpoint, JSONBody: body})
}

// Delete performs a DELETE request against endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Endpoint: endpoint})
}

// Extract parses the response body and walks keyPath through it. An empty
// keyPath returns the whole parsed body. A path that does not resolve, or a
// body that is not valid JSON, reports ok=false; a miss is logged but never
// an error, so callers decide whether it fails the test.
func (c *Client) Extract(resp *Response, keyPath string) (jsonval.Value, bool) {
	if resp == nil {
		return jsonval.Value{}, false
	}

	doc, err := resp.JSON()
	if err != nil {
		c.logger.Error("response body is not valid json",
			logging.Field{Key: "key_path", Value: keyPath},
			logging.Field{Key: "error", Value: err.Error()})
		return jsonval.Value{}, false
	}

	v, ok := doc.Lookup(keyPath)
	if !ok {
		c.logger.Debug("key path did not resolve",
			logging.Field{Key: "key_path", Value: keyPath})
	}
	return v, ok
}

func (c *Client) buildURL(req *Request) (string, error) {
	base := req.BaseURL
	if base == "" {
		base = c.cfg.APIBaseURL
	}
	if base == "" {
		return "", fmt.Errorf("no base url configured")
	}

	full := urlutil.JoinBase(base, req.Endpoint)

	if len(req.Params) > 0 {
		q := url.Values{}
		for k, v := range req.Params {
			q.Set(k, v)
		}
		full += "?" + q.Encode()
	}

	return full, nil
}

func (c *Client) logResponse(resp *Response) {
	c.logger.Info("received response",
		logging.Field{Key: "status", Value: resp.Status})
	c.logger.Debug("response headers",
		logging.Field{Key: "headers", Value: resp.Headers})

	if doc, err := resp.JSON(); err == nil {
		c.logger.Debug("response body",
			logging.Field{Key: "body", Value: doc.Interface()})
	} else {
		prefix := resp.Body
		if len(prefix) > bodyLogLimit {
			prefix = prefix[:bodyLogLimit]
		}
		c.logger.Debug("response body (non-json)",
			logging.Field{Key: "body_prefix", Value: string(prefix)})
	}
}
