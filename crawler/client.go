// Package crawler fetches web pages with polite pacing and retries and
// reduces them to readable markdown articles.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/TimeCyber/DeepManus/observability"
	"github.com/TimeCyber/DeepManus/retry"
)

const maxBodySize = 10 << 20

// Client fetches pages. Requests made through one Client are spaced by
// its throttle, retries included.
type Client struct {
	httpClient *http.Client
	headers    http.Header
	policy     retry.Policy
	throttle   *retry.Throttle
	retryDelay time.Duration
	observer   observability.Observer
	retryOpts  []retry.Option
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithThrottle replaces the throttle built from the config.
func WithThrottle(t *retry.Throttle) Option {
	return func(c *Client) { c.throttle = t }
}

func WithObserver(o observability.Observer) Option {
	return func(c *Client) { c.observer = observability.OrNoOp(o) }
}

// WithRetryOptions passes extra options to the retry loop of every fetch.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(c *Client) { c.retryOpts = append(c.retryOpts, opts...) }
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := DefaultConfig()
	c.Merge(&cfg)

	headers := make(http.Header)
	headers.Set("User-Agent", c.UserAgent)
	headers.Set("Accept", defaultAccept)
	headers.Set("Accept-Language", c.AcceptLanguage)

	client := &Client{
		httpClient: &http.Client{
			Timeout:   time.Duration(c.Timeout),
			Transport: &http.Transport{Proxy: proxyFunc(c.Proxy)},
		},
		headers:    headers,
		policy:     c.Retry.Policy(),
		throttle:   c.Retry.Throttle(),
		retryDelay: time.Duration(c.Retry.BaseDelay),
		observer:   observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// proxyFunc uses the configured proxy, else HTTP_PROXY, else HTTPS_PROXY,
// for both http and https targets.
func proxyFunc(configured string) func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		raw := configured
		if raw == "" {
			raw = os.Getenv("HTTP_PROXY")
		}
		if raw == "" {
			raw = os.Getenv("HTTPS_PROXY")
		}
		if raw == "" {
			return nil, nil
		}
		return url.Parse(raw)
	}
}

// Fetch returns the page body. Only the "html" format is supported; any
// other format fails without a request. Throttled responses honour a
// numeric Retry-After header.
func (c *Client) Fetch(ctx context.Context, target, format string) (string, error) {
	if format != "html" {
		return "", retry.Permanent(fmt.Errorf("%w: %s", ErrUnsupportedFormat, format))
	}

	var body string
	opts := append([]retry.Option{
		retry.WithThrottle(c.throttle),
		retry.WithObserver(c.observer, "crawler.Client"),
	}, c.retryOpts...)

	attempts, err := retry.Do(ctx, c.policy, func(ctx context.Context, _ int) error {
		text, err := c.get(ctx, target)
		if err != nil {
			return err
		}
		body = text
		return nil
	}, opts...)

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if retry.Classify(err) == retry.Fatal {
			return "", err
		}
		return "", &FetchError{URL: target, Attempts: attempts, Err: err}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header = c.headers.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", retry.Retryable(err, 0)
		}
		return "", retry.WithCooldown(err, 2*c.retryDelay)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", retry.Retryable(&StatusError{Code: resp.StatusCode}, c.retryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", retry.Retryable(&StatusError{Code: resp.StatusCode}, 0)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", retry.Retryable(fmt.Errorf("failed to read body: %w", err), 0)
	}
	return string(data), nil
}

// retryAfter reads a delta-seconds Retry-After value. Anything else,
// including HTTP dates, falls back to twice the retry delay.
func (c *Client) retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header != "" && strings.Trim(header, "0123456789") == "" {
		if secs, err := strconv.Atoi(header); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 2 * c.retryDelay
}
