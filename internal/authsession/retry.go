package authsession

import (
	"context"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/config"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

// RetryPolicy is the single backoff policy applied to the session
// bootstrap. One value is injected from config instead of each call site
// reinventing its own timer loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

func retryPolicyFromConfig(cfg config.Retry) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	return p
}

// Do runs fn up to MaxAttempts times. Only retryable classifications
// (connectivity, timeouts) are retried; anything else fails immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	delay := p.BaseDelay

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		if attempt >= p.MaxAttempts || !serviceerr.Classify(err).Retryable() {
			return err
		}

		slogctx.Debug(ctx, "Retrying after failure", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
	}
}
