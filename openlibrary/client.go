// Package openlibrary is a small client for the Open Library JSON API.
package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"
)

const (
	DefaultBaseURL = "https://openlibrary.org"
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2
	// DefaultBackoff is the delay before the first retry; it doubles per retry.
	DefaultBackoff = 300 * time.Millisecond
)

// Observer is notified about every attempt and retry. A status of 0 means
// the attempt failed before a response arrived.
type Observer interface {
	ObserveAttempt(status int)
	ObserveRetry(status int)
}

type noopObserver struct{}

func (noopObserver) ObserveAttempt(int) {}
func (noopObserver) ObserveRetry(int)   {}

type Client struct {
	http      *http.Client
	timeout   time.Duration
	baseURL   *url.URL
	userAgent string

	maxRetries int
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	observer   Observer
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout bounds each attempt. It applies to the client given through
// WithHTTPClient too, regardless of option order, without mutating it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) { c.maxRetries, c.backoff = maxRetries, backoff }
}
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:       &http.Client{Timeout: DefaultTimeout},
		baseURL:    u,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		sleep:      sleepCtx,
		observer:   noopObserver{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newReq expects p to be already escaped; segments escaped by the caller
// stay single segments on the wire.
func (c *Client) newReq(ctx context.Context, p string, q url.Values) (*http.Request, error) {
	u := *c.baseURL
	raw := path.Join(c.baseURL.EscapedPath(), p)
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", p, err)
	}
	u.Path = unescaped
	u.RawPath = raw
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// Get issues GET {base}{p}?{q} and decodes the JSON body into out.
//
// Transient statuses (429, 502, 503, 504) are retried with exponential
// backoff: 300ms, then 600ms with the defaults. The retry budget belongs to
// this call only. Other statuses and timeouts are returned immediately.
func (c *Client) Get(ctx context.Context, p string, q url.Values, out any) error {
	for attempt := 0; ; attempt++ {
		err := c.doJSON(ctx, p, q, out)
		if err == nil {
			return nil
		}

		var ue *UpstreamError
		if !errors.As(err, &ue) || !ue.Retriable || attempt >= c.maxRetries {
			return err
		}

		c.observer.ObserveRetry(ue.Status)
		if err := c.sleep(ctx, c.backoff<<attempt); err != nil {
			return err
		}
	}
}

func (c *Client) doJSON(ctx context.Context, p string, q url.Values, out any) error {
	req, err := c.newReq(ctx, p, q)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.observer.ObserveAttempt(0)
		if isTimeout(err) {
			return fmt.Errorf("GET %s: %w", p, ErrTimeout)
		}
		return fmt.Errorf("GET %s: %w", p, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.observer.ObserveAttempt(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &UpstreamError{
			Path:      p,
			Status:    resp.StatusCode,
			Retriable: transient(resp.StatusCode),
			Body:      string(b),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("GET %s: %w", p, ErrTimeout)
		}
		return fmt.Errorf("GET %s: %w: %w", p, ErrMalformed, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Search calls /search.json. A limit <= 0 leaves the upstream default.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var res SearchResponse
	if err := c.Get(ctx, "/search.json", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Subject calls /subjects/{subject}.json. The subject is always sent as one
// path segment, so slashes or dot segments in it cannot change the endpoint.
func (c *Client) Subject(ctx context.Context, subject string, ebooksOnly bool) (*SubjectResponse, error) {
	q := url.Values{"ebooks": {fmt.Sprint(ebooksOnly)}}
	var res SubjectResponse
	if err := c.Get(ctx, "/subjects/"+url.PathEscape(subject)+".json", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
