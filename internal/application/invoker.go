package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// BackoffPolicy bounds the rate-limit retry loop. The n-th retry waits
// BaseDelay * Multiplier^(n-1).
type BackoffPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultBackoffPolicy allows three attempts, waiting 1s then 2s.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}
}

func (p BackoffPolicy) backOff() backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = multiplier
	eb.RandomizationFactor = 0
	eb.MaxInterval = time.Duration(math.MaxInt64)
	eb.MaxElapsedTime = 0
	eb.Reset()

	return backoff.WithMaxRetries(eb, uint64(attempts-1))
}

// RetryHook observes each scheduled rate-limit retry.
type RetryHook func(operation string, attempt int, delay time.Duration)

// Invoker runs provider calls through the credential check and the rate-limit
// retry loop, and maps failures onto model.Error kinds.
type Invoker struct {
	holder   *ProviderHolder
	policy   BackoffPolicy
	newTimer func() backoff.Timer
	onRetry  RetryHook
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithBackoffPolicy replaces DefaultBackoffPolicy.
func WithBackoffPolicy(p BackoffPolicy) InvokerOption {
	return func(inv *Invoker) { inv.policy = p }
}

// WithTimer replaces the wall-clock timer used between retries.
func WithTimer(newTimer func() backoff.Timer) InvokerOption {
	return func(inv *Invoker) { inv.newTimer = newTimer }
}

// WithRetryHook registers a callback invoked before every retry.
func WithRetryHook(h RetryHook) InvokerOption {
	return func(inv *Invoker) { inv.onRetry = h }
}

// NewInvoker creates an Invoker drawing its client from holder.
func NewInvoker(holder *ProviderHolder, opts ...InvokerOption) *Invoker {
	inv := &Invoker{holder: holder, policy: DefaultBackoffPolicy()}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Ready reports whether a credential-bearing client is installed.
func (inv *Invoker) Ready() bool {
	return inv.holder.HasClient()
}

// Invoke runs call against the current provider client. Without a client it
// fails with CredentialMissing and call is never run. HTTP 429 responses are
// retried per the backoff policy; every other failure returns immediately,
// classified by Classify.
func Invoke[T any](
	ctx context.Context,
	inv *Invoker,
	operation string,
	call func(context.Context, driven.StatisticsProvider) (T, error),
) (T, error) {
	var zero T

	client := inv.holder.Get()
	if client == nil {
		return zero, model.NewError(model.KindCredentialMissing, "no BPS API token configured", nil)
	}

	var result T
	attempt := 0
	op := func() error {
		attempt++
		v, err := call(ctx, client)
		if err == nil {
			result = v
			return nil
		}
		if isRateLimited(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, delay time.Duration) {
		slog.Warn("provider rate limited, retrying",
			"operation", operation,
			"attempt", attempt,
			"delay", delay,
		)
		if inv.onRetry != nil {
			inv.onRetry(operation, attempt, delay)
		}
	}

	var timer backoff.Timer
	if inv.newTimer != nil {
		timer = inv.newTimer()
	}

	err := backoff.RetryNotifyWithTimer(op, backoff.WithContext(inv.policy.backOff(), ctx), notify, timer)
	if err != nil {
		if isRateLimited(err) {
			return zero, model.NewError(model.KindServerUnavailable,
				fmt.Sprintf("%s: exhausted %d attempts while rate limited", operation, attempt), err)
		}
		return zero, Classify(err)
	}
	return result, nil
}

func isRateLimited(err error) bool {
	var se *driven.StatusError
	return errors.As(err, &se) && se.TooManyRequests()
}

// Classify maps a provider failure onto the error taxonomy. Errors that already
// carry a kind, and caller cancellation, are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var typed *model.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var se *driven.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusUnauthorized:
			return model.NewError(model.KindCredentialInvalid, "BPS rejected the API token", err)
		case se.TooManyRequests():
			return model.NewError(model.KindServerUnavailable, "rate limited by BPS", err)
		case se.StatusCode >= http.StatusInternalServerError:
			return model.NewError(model.KindServerUnavailable, "BPS server error", err)
		default:
			shape := model.UnexpectedShape(fmt.Sprintf("%s answered HTTP %d", se.Endpoint, se.StatusCode), se.Body)
			shape.Err = err
			return shape
		}
	}

	var te *driven.TransportError
	if errors.As(err, &te) {
		if te.Timeout {
			return model.NewError(model.KindNoConnectivity, "request to BPS timed out", err)
		}
		return model.NewError(model.KindNoConnectivity, "cannot reach BPS", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewError(model.KindNoConnectivity, "request to BPS timed out", err)
	}

	return model.NewError(model.KindUnexpectedResponseShape, "provider call failed", err)
}
