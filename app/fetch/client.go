package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// DefaultUserAgent identifies requests as a desktop browser. The
// source blocks obvious bot user agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodySize caps response reads at 10MB.
const maxBodySize = 10 << 20

// RetryPolicy bounds how often a transient failure is retried and how
// long to back off between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// Delay returns the backoff before the given attempt. The first
// attempt waits nothing; each retry doubles the previous delay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(1<<uint(attempt-2))
}

// Client performs rate-limited GET requests with bounded retries.
// A cookie jar carries any session cookie issued by the source, so
// repeated requests look like one browsing session.
type Client struct {
	httpClient *http.Client
	limiter    *Limiter
	retry      RetryPolicy
	userAgent  string
	referer    string
}

type Option func(*Client)

func WithLimitPolicy(policy LimitPolicy) Option {
	return func(c *Client) {
		c.limiter = NewLimiter(policy)
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithTimeout sets the ceiling for a single request. Callers apply
// tighter per-call deadlines through the context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithReferer(referer string) Option {
	return func(c *Client) {
		c.referer = referer
	}
}

func NewClient(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		limiter:   NewLimiter(DefaultLimitPolicy()),
		retry:     DefaultRetryPolicy(),
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WarmUp visits the given page once to establish the session before
// scraping starts. Subsequent requests send the page as Referer.
// Failure is logged and ignored.
func (c *Client) WarmUp(ctx context.Context, pageURL string) {
	if _, err := c.Fetch(ctx, pageURL); err != nil {
		slog.Warn("Session warm-up failed", "url", pageURL, "error", err)
	}
	c.referer = pageURL
}

// Fetch performs a GET and returns the response body. Transient
// failures are retried up to the policy's attempt ceiling with the
// backoff doubling per attempt; permanent failures return immediately.
// The returned error is always a *Error apart from context
// cancellation.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, &Error{URL: rawURL, Kind: KindPermanent, Message: "malformed URL", Cause: err}
	}

	var lastErr *Error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.retry.Delay(attempt)
			slog.Debug("Retrying fetch", "url", rawURL, "attempt", attempt, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}

		body, fetchErr := c.do(ctx, rawURL)
		if fetchErr == nil {
			return body, nil
		}
		if fetchErr.Kind != KindTransient {
			return nil, fetchErr
		}

		lastErr = fetchErr
		slog.Warn("Transient fetch failure", "url", rawURL, "attempt", attempt, "error", fetchErr)
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindPermanent, Message: "failed to build request", Cause: err}
	}

	c.setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindTransient, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &Error{URL: rawURL, Kind: KindTransient, Status: resp.StatusCode, Message: "server error"}
	case resp.StatusCode >= 400:
		return nil, &Error{URL: rawURL, Kind: KindPermanent, Status: resp.StatusCode, Message: "request rejected"}
	}

	body, err := io.ReadAll(decodeBody(io.LimitReader(resp.Body, maxBodySize), resp.Header.Get("Content-Type")))
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindTransient, Message: "failed to read response body", Cause: err}
	}

	return body, nil
}

// setBrowserHeaders mirrors the header set a desktop browser sends on
// navigation. Accept-Encoding and Connection are left to the
// transport.
func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
	req.Header.Set("DNT", "1")

	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
		req.Header.Set("Sec-Fetch-Site", "same-origin")
	} else {
		req.Header.Set("Sec-Fetch-Site", "none")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
