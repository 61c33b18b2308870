package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// RetryPolicy controla los reintentos de llamadas al venue.
// Solo se reintentan errores transitorios (timeouts, 429, 5xx).
type RetryPolicy struct {
	MaxAttempts    int           // intentos totales, incluido el primero
	BaseDelay      time.Duration // espera antes del segundo intento
	MaxDelay       time.Duration
	Jitter         float64       // fracción aleatoria añadida al backoff, en [0,1]
	AttemptTimeout time.Duration // timeout de cada intento; 0 = sin timeout

	// Sleep y Rand se sustituyen en tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Rand  func() float64
}

// DefaultRetryPolicy devuelve 4 intentos con backoff 500ms·2^n.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		Jitter:         0.2,
		AttemptTimeout: 10 * time.Second,
	}
}

// Backoff devuelve la espera tras el intento fallido número attempt (0-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	wait := time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
	if p.MaxDelay > 0 && wait > p.MaxDelay {
		wait = p.MaxDelay
	}
	if p.Jitter > 0 {
		r := rand.Float64
		if p.Rand != nil {
			r = p.Rand
		}
		wait += time.Duration(float64(wait) * p.Jitter * r())
	}
	return wait
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt ceiling is hit. It returns the number of attempts made.
// A per-attempt timeout is treated as transient.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) (domain.Fill, error)) (domain.Fill, int, error) {
	maxAttempts := max(p.MaxAttempts, 1)
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Fill{}, attempt, fmt.Errorf("%s: %w", op, err)
		}

		fill, err := p.attempt(ctx, fn)
		if err == nil {
			return fill, attempt + 1, nil
		}
		lastErr = err

		if !p.retriable(ctx, err) {
			return domain.Fill{}, attempt + 1, err
		}
		if attempt == maxAttempts-1 {
			break
		}

		wait := p.Backoff(attempt)
		slog.Warn("execution: transient venue error, retrying",
			"op", op,
			"attempt", attempt+1,
			"wait", wait,
			"err", err,
		)
		if err := p.sleep(ctx, wait); err != nil {
			return domain.Fill{}, attempt + 1, fmt.Errorf("%s: %w", op, err)
		}
	}
	return domain.Fill{}, maxAttempts, fmt.Errorf("%s: failed after %d attempts: %w", op, maxAttempts, lastErr)
}

func (p RetryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) (domain.Fill, error)) (domain.Fill, error) {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return fn(actx)
}

// retriable: transient venue errors, and attempt timeouts while the parent
// context is still alive.
func (p RetryPolicy) retriable(ctx context.Context, err error) bool {
	if domain.IsTransient(err) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
