// File: internal/llmclient/retry.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/xkilldash9x/cycle-cli/internal/config"
)

// RetryPolicy is the bounded exponential backoff applied to model calls.
// MaxAttempts counts the first call.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy waits 1s then 2s, capped at 8s, over 3 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     8 * time.Second,
		Multiplier:      2,
	}
}

// RetryPolicyFromConfig maps the llm.retry section.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
	}
}

// NewBackOff builds a deterministic schedule bound to ctx. Jitter is disabled
// so the waits are exactly InitialInterval*Multiplier^n, capped at MaxInterval.
func (p RetryPolicy) NewBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs op until it succeeds, fails permanently, or the attempts run out.
// Errors that IsTransient rejects are not retried. notify, when set, is called
// before each wait.
func Do[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error), notify backoff.Notify) (T, error) {
	attempts := 0
	operation := func() (T, error) {
		attempts++
		res, err := op(ctx)
		if err != nil && !IsTransient(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.RetryNotifyWithData(operation, p.NewBackOff(ctx), notify)
	if err != nil {
		var zero T
		if IsTransient(err) && attempts >= p.MaxAttempts {
			return zero, fmt.Errorf("giving up after %d attempts: %w", attempts, err)
		}
		return zero, err
	}
	return res, nil
}

// IsTransient reports whether err is worth retrying: rate limits, overload,
// server errors, timeouts and transport failures such as a connection the
// server reset or hung up on. Protocol errors, cancellation and hosts that do
// not resolve never are. A timeout is transient even when it comes from the
// caller's context; the backoff stops on its own once that context is done.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrProtocol) || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
			return true
		}
		return apiErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return false
	}

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return true
	}

	var urlErr *url.Error
	var opErr *net.OpError
	return errors.As(err, &urlErr) || errors.As(err, &opErr)
}
