// Package crtsh provides a ctlog.Client implementation backed by the public
// crt.sh Certificate Transparency search endpoint.
package crtsh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"certwatch/pkg/ctlog"
	"certwatch/pkg/domain"
	"certwatch/pkg/serrors"
)

// DefaultBaseURL is the public crt.sh endpoint.
const DefaultBaseURL = "https://crt.sh"

// Client queries the crt.sh JSON API and fulfills the ctlog.Client interface.
// It is safe for concurrent use.
type Client struct {
	httpClient *http.Client // httpClient performs HTTP requests to crt.sh
	baseURL    string       // baseURL is overridable for tests
	userAgent  string       // userAgent sent with every request; crt.sh throttles anonymous defaults harder
}

// record mirrors the fields of a crt.sh certificate record the client cares
// about. name_value frequently holds several newline-separated hostnames.
type record struct {
	CommonName string `json:"common_name"`
	NameValue  string `json:"name_value"`
}

// Query fetches all certificate records crt.sh has for name and extracts the
// normalized set of strict subdomains. The returned error carries a serrors
// kind describing whether the failure is transient (timeout, 429, 5xx) or
// permanent (unreachable host, malformed response).
func (c *Client) Query(ctx context.Context, name string) (domain.SubdomainSet, error) {
	q := url.Values{}
	q.Set("q", "%."+name)
	q.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		err := serrors.With(serrors.ErrRateLimited, "rate limited: %s", strings.TrimSpace(string(b)))
		if wait, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			return nil, ctlog.WithRetryAfter(err, wait)
		}

		return nil, err
	case resp.StatusCode >= 500:
		return nil, serrors.With(serrors.ErrUnavailable, "server error: status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, serrors.With(serrors.ErrMalformed, "unexpected status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, serrors.With(serrors.ErrMalformed, "empty response body")
	}

	var records []record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformed, err, "could not decode response")
	}

	return extractSubdomains(records, name), nil
}

// parseRetryAfter interprets a Retry-After header value as a whole number of
// seconds. Malformed or non-positive values are ignored and the caller falls
// back to its own backoff schedule.
func parseRetryAfter(raw string) (time.Duration, bool) {
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs <= 0 {
		return 0, false
	}

	return time.Duration(secs) * time.Second, true
}

// classifyTransportError maps errors from the HTTP round trip to a semantic
// kind: deadline/timeout errors are retryable, everything else (DNS failure,
// connection refused, ...) is treated as unreachable.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return serrors.Wrap(serrors.ErrTimeout, err, "request timed out")
	}

	return serrors.Wrap(serrors.ErrUnreachable, err, "could not reach log endpoint")
}

// extractSubdomains harvests hostnames from both the common_name and
// name_value fields, normalizes each and keeps only strict subdomains of
// root. A single name_value may contain several newline- or comma-separated
// hostnames.
func extractSubdomains(records []record, root string) domain.SubdomainSet {
	out := domain.NewSubdomainSet()
	for _, rec := range records {
		names := append(splitNames(rec.NameValue), splitNames(rec.CommonName)...)
		for _, n := range names {
			n = normalizeName(n)
			if n == "" || !domain.IsSubdomainOf(n, root) {
				continue
			}
			out.Add(n)
		}
	}

	return out
}

// splitNames splits a raw certificate name field on newlines and commas.
func splitNames(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ','
	})
}

// normalizeName canonicalizes one hostname: trim, lowercase, strip a trailing
// dot and resolve a wildcard marker to its base label.
func normalizeName(raw string) string {
	n := strings.ToLower(strings.TrimSpace(raw))
	n = strings.TrimSuffix(n, ".")
	n = strings.TrimPrefix(n, "*.")

	return n
}

// Ensure Client conforms to the ctlog.Client interface at compile time.
var _ ctlog.Client = (*Client)(nil)

// Options configure a crt.sh client.
type Options struct {
	// BaseURL overrides the crt.sh endpoint; empty means DefaultBaseURL.
	BaseURL string
	// UserAgent is sent on every request.
	UserAgent string
}

// New constructs a Client that uses the provided http.Client to talk to
// crt.sh. The caller owns the http.Client's timeout configuration.
func New(httpClient *http.Client, opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(base, "/"),
		userAgent:  opts.UserAgent,
	}
}
