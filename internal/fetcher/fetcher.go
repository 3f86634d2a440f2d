// Package fetcher provides the retryable, backed-off HTTP GET/POST
// substrate (C1) that the scrapers and the test pipeline build on: pooled
// per-session transports, optional upstream-proxy routing, and a uniform
// error taxonomy.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RetryStatus is the set of response codes that are retried rather than
// returned immediately as a KindHTTPError.
var RetryStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Config tunes a Session's retry and timeout behaviour.
type Config struct {
	// Retries is the maximum number of additional attempts after the
	// first (R in spec terms); 0 disables retries.
	Retries int
	// BackoffFactor scales the exponential backoff: the i-th retry
	// sleeps BackoffFactor * 2^(i-1) seconds.
	BackoffFactor float64
	// Timeout bounds each individual attempt (connect + read).
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification, as is
	// required when routing through untrusted upstream proxies.
	InsecureSkipVerify bool
	// Proxy, if non-nil, routes every request through this upstream
	// proxy URL.
	Proxy *url.URL
}

// DefaultConfig matches the spec's stated defaults: 3 retries, a one
// second backoff factor, and a five second per-attempt timeout.
func DefaultConfig() Config {
	return Config{
		Retries:       3,
		BackoffFactor: 1,
		Timeout:       5 * time.Second,
	}
}

// Session is one pooled transport. Sessions sharing a host reuse
// connections; separate Sessions never share a pool, mirroring how the
// worker pool opens one fresh session per proxy under test.
type Session struct {
	cfg    Config
	client *http.Client
}

// NewSession builds a Session from cfg. Each Session owns its own
// http.Transport and therefore its own connection pool. An http/https
// upstream proxy is routed via Transport.Proxy; a socks4/socks5 upstream
// is routed via a golang.org/x/net/proxy dialer, since net/http's
// Transport.Proxy only speaks HTTP-CONNECT.
func NewSession(cfg Config) *Session {
	transport := &http.Transport{}
	if cfg.Proxy != nil {
		if isSOCKS(cfg.Proxy.Scheme) {
			if dialContext, err := socksDialContext(cfg.Proxy); err == nil {
				transport.DialContext = dialContext
			}
		} else {
			transport.Proxy = http.ProxyURL(cfg.Proxy)
		}
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = tlsInsecureConfig()
	}

	return &Session{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
		},
	}
}

// Close releases any idle connections held by the session's transport.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

// Get performs a retrying GET request. headers, if non-nil, are set on
// every attempt.
func (s *Session) Get(ctx context.Context, target string, headers map[string]string) (*http.Response, []byte, error) {
	return s.do(ctx, http.MethodGet, target, nil, headers)
}

// Post performs a retrying POST request with the given body.
func (s *Session) Post(ctx context.Context, target string, body []byte, headers map[string]string) (*http.Response, []byte, error) {
	return s.do(ctx, http.MethodPost, target, body, headers)
}

func (s *Session) do(ctx context.Context, method, target string, body []byte, headers map[string]string) (*http.Response, []byte, error) {
	retries := s.cfg.Retries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if slept := s.backoffSleep(ctx, attempt); slept != nil {
				return nil, nil, slept
			}
		}

		resp, data, err := s.attempt(ctx, method, target, body, headers)
		if err == nil {
			return resp, data, nil
		}

		var fe *Error
		if errors.As(err, &fe) && fe.Kind == KindHTTPError && !RetryStatus[fe.Status] {
			return nil, nil, err
		}

		lastErr = err
	}

	return nil, nil, lastErr
}

func (s *Session) backoffSleep(ctx context.Context, attempt int) error {
	delay := time.Duration(s.cfg.BackoffFactor * pow2(attempt-1) * float64(time.Second))
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Session) attempt(ctx context.Context, method, target string, body []byte, headers map[string]string) (*http.Response, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, target, reader)
	if err != nil {
		return nil, nil, &Error{Kind: KindOther, Wrapped: err}
	}
	for k, v := range headers {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &Error{Kind: KindOther, Wrapped: err}
	}

	if resp.StatusCode >= 400 {
		return resp, data, &Error{Kind: KindHTTPError, Status: resp.StatusCode}
	}

	return resp, data, nil
}

// classify maps a transport-level failure to the fetcher error taxonomy:
// context deadline / net.Error.Timeout() → KindTimeout, connection-refused
// and DNS failures → KindConnectFailure, anything else → KindOther.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Wrapped: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Wrapped: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindConnectFailure, Wrapped: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindConnectFailure, Wrapped: err}
	}

	if strings.Contains(err.Error(), "connection refused") {
		return &Error{Kind: KindConnectFailure, Wrapped: err}
	}

	return &Error{Kind: KindOther, Wrapped: err}
}

func pow2(n int) float64 {
	if n <= 0 {
		return 1
	}
	result := 1.0
	for i := 0; i < n; i++ {
		result *= 2
	}
	return result
}
