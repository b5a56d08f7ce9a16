package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUntilReturnsOnDone(t *testing.T) {
	ctx := context.Background()
	attempts := 0

	got, err := Until(ctx, Options{Interval: time.Millisecond}, func(ctx context.Context) (string, bool, error) {
		attempts++
		if attempts < 3 {
			return "partial", false, nil
		}
		return "final", true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "final" {
		t.Fatalf("expected final value, got %q", got)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestUntilRetainsLastValueAcrossTransientFailures(t *testing.T) {
	ctx := context.Background()
	attempts := 0

	got, err := Until(ctx, Options{Interval: time.Millisecond}, func(ctx context.Context) (string, bool, error) {
		attempts++
		switch attempts {
		case 1:
			return "seen", false, nil
		case 2:
			return "", false, errors.New("transient read failure")
		default:
			return "seen", true, nil
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "seen" {
		t.Fatalf("expected retained value, got %q", got)
	}
}

func TestUntilStopsAtMaxDuration(t *testing.T) {
	ctx := context.Background()

	got, err := Until(ctx, Options{Interval: time.Millisecond, MaxDuration: 20 * time.Millisecond}, func(ctx context.Context) (int, bool, error) {
		return 42, false, nil
	})
	if err == nil {
		t.Fatal("expected deadline error")
	}
	if got != 42 {
		t.Fatalf("expected last value retained, got %d", got)
	}
}

func TestUntilHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Until(ctx, Options{Interval: time.Millisecond}, func(ctx context.Context) (int, bool, error) {
		return 0, false, nil
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}
