// Package urlutil holds the URL handling shared by the API client and the
// browser session: endpoint joining and base-URL canonicalization.
package urlutil

import (
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/idna"
)

// JoinBase joins a base URL and a relative endpoint with exactly one slash:
// at most one trailing slash is stripped from base and the endpoint's leading
// slash is removed. An empty endpoint addresses the root of base.
func JoinBase(base, endpoint string) string {
	base = strings.TrimSuffix(base, "/")
	endpoint = strings.TrimPrefix(endpoint, "/")
	if endpoint == "" {
		return base
	}
	return base + "/" + endpoint
}

// CanonicalizeBase normalizes an operator-supplied base URL so two spellings
// of the same origin behave identically: scheme and host lower-cased, IDN
// hosts converted to punycode, default ports and userinfo dropped, path
// cleaned with the trailing slash removed, fragment discarded.
func CanonicalizeBase(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &url.Error{Op: "canonicalize", URL: raw, Err: errEmpty}
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", &url.Error{Op: "canonicalize", URL: raw, Err: errMissingHost}
	}

	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") || port == "" {
		u.Host = host
	} else {
		u.Host = net.JoinHostPort(host, port)
	}

	u.User = nil
	u.Fragment = ""

	cleanPath := path.Clean(u.Path)
	if cleanPath == "." || cleanPath == "/" {
		cleanPath = ""
	}
	u.Path = strings.TrimRight(cleanPath, "/")

	return u.String(), nil
}

var (
	errEmpty       = &errStr{"empty url"}
	errMissingHost = &errStr{"missing host"}
)

type errStr struct{ s string }

func (e *errStr) Error() string { return e.s }
