package apiclient

import (
	"net/http"
	"time"

	"github.com/kensahq/kensa/internal/jsonval"
)

// Request describes a single API call. Every field except Method and
// Endpoint is optional; zero values fall back to the client's configuration.
type Request struct {
	// Method is one of GET, POST, PUT, DELETE.
	Method string

	// Endpoint is the path relative to the base URL. May be empty, meaning
	// the root of the base URL. A leading slash is tolerated.
	Endpoint string

	// BaseURL overrides the configured base URL for this call only.
	BaseURL string

	// Params are appended to the URL as query parameters.
	Params map[string]string

	// JSONBody, when non-nil, is serialized as the JSON request body.
	// Mutually exclusive with RawBody.
	JSONBody any

	// RawBody is sent verbatim as the request body.
	RawBody []byte

	// Headers replace the default JSON headers when non-nil.
	Headers http.Header

	// Timeout overrides the configured default timeout for this call.
	Timeout time.Duration

	// SkipTLSVerify disables certificate verification for this call.
	SkipTLSVerify bool
}

// Response is the outcome of a completed HTTP exchange. A non-2xx status is
// still a Response, not an error; only transport failures error.
type Response struct {
	Request    *Request
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	FetchedAt  time.Time
}

// JSON parses the response body into a tagged JSON value.
func (r *Response) JSON() (jsonval.Value, error) {
	return jsonval.Parse(r.Body)
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
