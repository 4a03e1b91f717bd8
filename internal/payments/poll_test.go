package payments

import (
	"context"
	"errors"
	"testing"
	"time"
)

func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func TestPollerStopsWhenDone(t *testing.T) {
	poller := NewPoller(PollerConfig{Interval: 10 * time.Second, MaxAttempts: 30, Sleep: instantSleep})

	var attempts int
	err := poller.Poll(context.Background(), func(_ context.Context, attempt int) (bool, error) {
		attempts = attempt
		return attempt == 3, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestPollerExhaustsBudget(t *testing.T) {
	poller := NewPoller(PollerConfig{Interval: time.Second, MaxAttempts: 5, Sleep: instantSleep})

	var attempts int
	err := poller.Poll(context.Background(), func(context.Context, int) (bool, error) {
		attempts++
		return false, nil
	})
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if attempts != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", attempts)
	}
}

func TestPollerPropagatesCheckError(t *testing.T) {
	poller := NewPoller(PollerConfig{Sleep: instantSleep})
	boom := errors.New("vendor unavailable")

	err := poller.Poll(context.Background(), func(context.Context, int) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected check error, got %v", err)
	}
}

func TestPollerCancellableDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	poller := NewPoller(PollerConfig{
		Interval:    time.Hour,
		MaxAttempts: 30,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	err := poller.Poll(ctx, func(context.Context, int) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestPollerBackoffGrowsInterval(t *testing.T) {
	var waits []time.Duration
	poller := NewPoller(PollerConfig{
		Interval:    time.Second,
		MaxAttempts: 4,
		Multiplier:  2,
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	})

	err := poller.Poll(context.Background(), func(context.Context, int) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("expected %d waits, got %d", len(want), len(waits))
	}
	for i, d := range want {
		if waits[i] != d {
			t.Fatalf("wait %d: expected %v, got %v", i, d, waits[i])
		}
	}
}

func TestWaitForTerminal(t *testing.T) {
	provider := &sequenceProvider{states: []Status{StatusPending, StatusPending, StatusSucceeded}}
	poller := NewPoller(PollerConfig{Interval: time.Second, MaxAttempts: 10, Sleep: instantSleep})

	details, err := poller.WaitForTerminal(context.Background(), provider, StatusRequest{VendorOrderID: "txn-1"})
	if err != nil {
		t.Fatalf("wait for terminal: %v", err)
	}
	if details.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", details.Status)
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 status calls, got %d", provider.calls)
	}
}

func TestWaitForTerminalReturnsLastOnTimeout(t *testing.T) {
	provider := &sequenceProvider{states: []Status{StatusPending}}
	poller := NewPoller(PollerConfig{Interval: time.Second, MaxAttempts: 2, Sleep: instantSleep})

	details, err := poller.WaitForTerminal(context.Background(), provider, StatusRequest{VendorOrderID: "txn-1"})
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if details.Status != StatusPending {
		t.Fatalf("expected last observed pending state, got %s", details.Status)
	}
}

type sequenceProvider struct {
	states []Status
	calls  int
}

func (s *sequenceProvider) CreateOrder(context.Context, OrderRequest) (OrderHandle, error) {
	return OrderHandle{}, errors.New("not implemented")
}

func (s *sequenceProvider) Verify(context.Context, VerifyRequest) (PaymentDetails, error) {
	return PaymentDetails{}, errors.New("not implemented")
}

func (s *sequenceProvider) Status(context.Context, StatusRequest) (PaymentDetails, error) {
	idx := s.calls
	if idx >= len(s.states) {
		idx = len(s.states) - 1
	}
	s.calls++
	return PaymentDetails{Status: s.states[idx]}, nil
}
