package errors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        false,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeTimeout,
			ErrCodeTransaction,
			ErrCodeBusy,
		},
	}
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("WithRetry failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestWithRetryRecoversAfterTransientError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return NewStorageError("Upsert", errors.New("database is locked"), ErrCodeBusy)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("WithRetry failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return NewStorageError("Upsert", errors.New("busy"), ErrCodeBusy)
	})

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}

	// The final error wraps the last classified failure.
	var storeErr *StorageError
	if !errors.As(err, &storeErr) {
		t.Errorf("Expected wrapped StorageError, got %v", err)
	}
}

func TestWithRetryDoesNotRetryNonRetryable(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return NewStorageError("Upsert", errors.New("bad input"), ErrCodeValidation)
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestWithRetryDoesNotRetryUnclassifiedErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return errors.New("plain error")
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for unclassified error, got %d", calls)
	}
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := fastRetryConfig()
	config.InitialDelay = time.Hour // force the retry path to block
	config.MaxDelay = 2 * time.Hour // keep the delay cap above the initial delay

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- WithRetry(ctx, config, func() error {
			calls++
			return NewStorageError("Upsert", errors.New("busy"), ErrCodeBusy)
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Expected cancellation error")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WithRetry did not return after cancellation")
	}

	if calls != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", calls)
	}
}

func TestWithRetryNilConfigUsesDefaults(t *testing.T) {
	err := WithRetry(context.Background(), nil, func() error { return nil })
	if err != nil {
		t.Fatalf("WithRetry with nil config failed: %v", err)
	}
}

func TestCalculateDelayRespectsMax(t *testing.T) {
	config := fastRetryConfig()

	for attempt := 0; attempt < 10; attempt++ {
		delay := calculateDelay(attempt, config)
		if delay > config.MaxDelay {
			t.Errorf("Attempt %d: delay %v exceeds max %v", attempt, delay, config.MaxDelay)
		}
	}
}

func TestCalculateDelayGrows(t *testing.T) {
	config := fastRetryConfig()
	config.MaxDelay = time.Minute

	first := calculateDelay(0, config)
	third := calculateDelay(2, config)
	if third <= first {
		t.Errorf("Expected backoff growth, got %v then %v", first, third)
	}
}
