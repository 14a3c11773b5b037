package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bankbang/internal/config"
	"bankbang/internal/logger"
	"bankbang/internal/metrics"

	backoff "github.com/cenkalti/backoff/v4"
)

const maxBodyBytes = 5 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

type Response struct {
	URL         *url.URL // final URL after redirects
	ContentType string
	Body        []byte
}

// Fetcher performs polite GETs: per-host rate limiting plus exponential backoff.
// 5xx, 429 and network errors are retried, other 4xx are not.
type Fetcher struct {
	client     *http.Client
	limiter    *HostLimiter
	userAgent  string
	maxElapsed time.Duration
}

type FetcherOptions struct {
	UserAgent      string
	RequestsPerSec float64
	Timeout        time.Duration
	MaxElapsed     time.Duration
	Client         *http.Client
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	maxElapsed := opts.MaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &Fetcher{
		client:     client,
		limiter:    NewHostLimiter(opts.RequestsPerSec, 1),
		userAgent:  opts.UserAgent,
		maxElapsed: maxElapsed,
	}
}

func NewFetcherFromConfig(cfg *config.Config) *Fetcher {
	return NewFetcher(FetcherOptions{
		UserAgent:      cfg.Scraper.UserAgent,
		RequestsPerSec: cfg.Scraper.RequestsPerSec,
		Timeout:        cfg.Scraper.Timeout,
		MaxElapsed:     cfg.Scraper.MaxRetryElapsed,
	})
}

func (f *Fetcher) backoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond
	expo.MaxInterval = 5 * time.Second
	expo.MaxElapsedTime = f.maxElapsed
	return expo
}

func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	host := hostOf(rawURL)
	var resp *Response

	op := func() error {
		if err := f.limiter.WaitURL(ctx, rawURL); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}
		req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.6")

		httpResp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			logger.Debug("scraper fetch failed, retrying", "url", rawURL, "error", err)
			return err
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode >= 300 {
			statusErr := &StatusError{URL: rawURL, StatusCode: httpResp.StatusCode}
			if httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
		if err != nil {
			return err
		}
		resp = &Response{
			URL:         httpResp.Request.URL,
			ContentType: httpResp.Header.Get("Content-Type"),
			Body:        body,
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(f.backoffConfig(), ctx))
	metrics.ScraperFetchTotal.WithLabelValues(host, metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}
