package payments

import (
	"context"
	"errors"
	"time"
)

// ErrPollTimeout is returned when the attempt budget is exhausted before the
// vendor reports a terminal state.
var ErrPollTimeout = errors.New("payments: poll attempts exhausted")

const (
	defaultPollInterval    = 10 * time.Second
	defaultPollMaxAttempts = 30
)

// PollerConfig tunes the bounded status poller.
type PollerConfig struct {
	// Interval is the delay before each status check. Defaults to 10s.
	Interval time.Duration
	// MaxAttempts bounds the total number of checks. Defaults to 30.
	MaxAttempts int
	// Multiplier optionally grows the interval after each attempt. Values
	// at or below 1 keep the interval fixed.
	Multiplier float64
	// Sleep overrides the wait primitive, primarily for testing.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Poller repeatedly checks a vendor order until it leaves the pending state,
// the context is cancelled, or the attempt budget runs out. Every wait is
// cancellable; an abandoned checkout never leaks a background loop.
type Poller struct {
	interval    time.Duration
	maxAttempts int
	multiplier  float64
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewPoller constructs a Poller from the supplied configuration.
func NewPoller(cfg PollerConfig) *Poller {
	p := &Poller{
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		multiplier:  cfg.Multiplier,
		sleep:       cfg.Sleep,
	}
	if p.interval <= 0 {
		p.interval = defaultPollInterval
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = defaultPollMaxAttempts
	}
	if p.multiplier < 1 {
		p.multiplier = 1
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// CheckFunc performs one status check. Returning done stops the poll.
type CheckFunc func(ctx context.Context, attempt int) (done bool, err error)

// Poll runs fn up to MaxAttempts times, waiting Interval between attempts.
// A non-nil error from fn aborts the poll immediately.
func (p *Poller) Poll(ctx context.Context, fn CheckFunc) error {
	if fn == nil {
		return errors.New("payments: poll check func is required")
	}

	interval := p.interval
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := fn(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == p.maxAttempts {
			break
		}

		if err := p.sleep(ctx, interval); err != nil {
			return err
		}
		if p.multiplier > 1 {
			interval = time.Duration(float64(interval) * p.multiplier)
		}
	}
	return ErrPollTimeout
}

// WaitForTerminal polls the provider until the payment leaves the pending
// state. The last observed details are returned alongside ErrPollTimeout when
// the budget runs out.
func (p *Poller) WaitForTerminal(ctx context.Context, provider Provider, req StatusRequest) (PaymentDetails, error) {
	if provider == nil {
		return PaymentDetails{}, errors.New("payments: provider is required")
	}

	var last PaymentDetails
	err := p.Poll(ctx, func(ctx context.Context, _ int) (bool, error) {
		details, err := provider.Status(ctx, req)
		if err != nil {
			return false, err
		}
		last = details
		return details.Status != StatusPending, nil
	})
	return last, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
