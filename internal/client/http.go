package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"grocery/catalog/internal/config"
	"grocery/catalog/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// retryableStatuses are the upstream answers worth another attempt
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Response is the outcome of a fetch that reached the upstream
type Response struct {
	StatusCode int
	Body       []byte
}

// IsSuccess reports a 2xx status
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher performs GET requests with bounded automatic retry. A non-nil error
// means no response was obtained after all attempts (transport failure or
// cancellation); any status code, including non-2xx, comes back as a Response.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

type retryingFetcher struct {
	httpClient    *resty.Client
	proxySupplier proxy.ProxySupplier
	proxyURL      atomic.Pointer[url.URL]
}

// NewFetcher builds a retrying fetcher with the given per-call timeout. The
// limiter is shared between fetchers so the upstream sees one request pace,
// and every attempt, retries included, waits for it.
func NewFetcher(cfg config.CatalogConfig, timeout time.Duration, rl ratelimit.Limiter, proxySupplier proxy.ProxySupplier) Fetcher {
	if rl == nil {
		rl = ratelimit.NewUnlimited()
	}

	f := &retryingFetcher{proxySupplier: proxySupplier}

	f.httpClient = resty.New().
		SetTimeout(timeout).
		SetRetryCount(max(0, cfg.MaxAttempts-1)).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.RetryMaxWaitTime).
		SetRetryDefaultConditions(false).
		AddRetryConditions(shouldRetry).
		AddRequestMiddleware(paceRequests(rl)).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "es-ES,es;q=0.9")

	if proxySupplier != nil && proxySupplier.Len() > 0 {
		transport, err := f.httpClient.HTTPTransport()
		if err != nil {
			log.Warnf("⚠️ Proxies disabled, unexpected transport: %v", err)
		} else {
			// the transport reads the current proxy on every dial; rotation only swaps the pointer
			transport.Proxy = f.currentProxy
			f.rotateProxy()
			log.Infof("🔗 Using initial proxy: %s", f.proxyURL.Load())
		}
	}

	return f
}

// paceRequests takes a limiter slot before each attempt
func paceRequests(rl ratelimit.Limiter) resty.RequestMiddleware {
	return func(_ *resty.Client, r *resty.Request) error {
		if err := r.Context().Err(); err != nil {
			return err
		}
		rl.Take()
		return nil
	}
}

// NewLimiter returns the upstream pacing limiter for the given rate; rps <= 0 disables pacing
func NewLimiter(rps int) ratelimit.Limiter {
	if rps <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(rps)
}

func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	if resp == nil {
		return false
	}
	return retryableStatuses[resp.StatusCode()]
}

func (f *retryingFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("request cancelled: %w", err)
	}

	resp, err := f.httpClient.R().
		SetContext(ctx).
		Get(rawURL)

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	if resp.StatusCode() == http.StatusForbidden {
		f.rotateProxy()
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       []byte(resp.String()),
	}, nil
}

// rotateProxy moves to the next proxy after the anti-bot layer refused us
func (f *retryingFetcher) rotateProxy() {
	if f.proxySupplier == nil {
		return
	}
	next := f.proxySupplier.Get()
	if next == "" {
		return
	}
	proxyURL, err := url.Parse(next)
	if err != nil {
		log.Warnf("⚠️ Skipping unparsable proxy %q: %v", next, err)
		return
	}
	if old := f.proxyURL.Swap(proxyURL); old != nil {
		log.Debugf("🔄 Switching to proxy %s after 403", next)
	}
}

func (f *retryingFetcher) currentProxy(_ *http.Request) (*url.URL, error) {
	return f.proxyURL.Load(), nil
}
