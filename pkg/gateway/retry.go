package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

// RetryPolicy bounds the outbound call retry loop: a fixed attempt count with
// a fixed delay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// IsTransportError reports whether err is a network-level failure (timeout,
// connection refused, reset) rather than an application-level response.
// Only transport errors are retried.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// DoWithRetry sends the request built by build, retrying transport failures up
// to the policy's attempt budget. The request must be rebuilt per attempt
// because a consumed body cannot be resent. Application-level responses,
// including gateway rejections, are returned to the caller without retrying.
// Exhaustion returns ErrGatewayUnavailable wrapping the last transport error.
func DoWithRetry(hc *http.Client, policy RetryPolicy, build func() (*http.Request, error)) (*http.Response, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := hc.Do(req)
		if err == nil {
			return resp, nil
		}

		if !IsTransportError(err) {
			return nil, err
		}

		lastErr = err
		slog.Warn("gateway call failed, transport error",
			slog.Int("attempt", attempt),
			slog.Int("maxAttempts", attempts),
			slog.String("url", req.URL.Host),
			slog.String("error", err.Error()))

		if attempt < attempts {
			time.Sleep(policy.Delay)
		}
	}

	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrGatewayUnavailable, attempts, lastErr)
}

// NewHTTPClient builds an http.Client with a distinct connect timeout and an
// overall request timeout, the two budgets every outbound gateway call carries.
func NewHTTPClient(connectTimeout, requestTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
		},
	}
}
