package errors

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_Next_DoublesAndCaps(t *testing.T) {
	b := newBackoff(RetryConfig{
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	})

	got := []time.Duration{b.next(), b.next(), b.next(), b.next()}
	want := []time.Duration{
		20 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond, // would be 80ms, capped
		50 * time.Millisecond,
	}
	assert.Equal(t, want, got)
}

func TestBackoff_Next_JitterStaysInRange(t *testing.T) {
	b := newBackoff(RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   1.0, // isolate jitter from growth
		Jitter:       true,
	})

	for i := 0; i < 20; i++ {
		d := b.next()
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestRetry_SucceedsAfterTransientError(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	}

	cfg := DefaultRetryConfig()
	cfg.InitialDelay = 10 * time.Millisecond

	assert.NoError(t, Retry(context.Background(), cfg, fn))
	assert.Equal(t, 3, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		return errors.New("persistent error")
	}

	cfg := RetryConfig{MaxRetries: 2, InitialDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond, Multiplier: 2.0}
	err := Retry(context.Background(), cfg, fn)

	assert.ErrorContains(t, err, "after 2 retries")
	assert.Equal(t, 3, attempts) // initial + 2 retries
}

func TestRetry_ContextCancellation(t *testing.T) {
	t.Run("cancel during a wait returns quickly", func(t *testing.T) {
		fn := func() error {
			time.Sleep(100 * time.Millisecond)
			return errors.New("error")
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		cfg := DefaultRetryConfig()
		cfg.InitialDelay = 200 * time.Millisecond

		start := time.Now()
		err := Retry(ctx, cfg, fn)
		elapsed := time.Since(start)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, elapsed, 500*time.Millisecond)
	})

	t.Run("deadline exceeded surfaces as the returned error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		cfg := RetryConfig{MaxRetries: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}
		err := Retry(ctx, cfg, func() error { return errors.New("error") })

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRetry_BackoffGrowsBetweenAttempts(t *testing.T) {
	var timestamps []time.Time
	attempts := 0
	fn := func() error {
		timestamps = append(timestamps, time.Now())
		attempts++
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	}

	cfg := RetryConfig{MaxRetries: 5, InitialDelay: 20 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}
	_ = Retry(context.Background(), cfg, fn)
	require.Len(t, timestamps, 4)

	delay1 := timestamps[1].Sub(timestamps[0])
	delay2 := timestamps[2].Sub(timestamps[1])
	delay3 := timestamps[3].Sub(timestamps[2])

	assert.InDelta(t, 20, delay1.Milliseconds(), 15)
	assert.InDelta(t, 40, delay2.Milliseconds(), 20)
	assert.InDelta(t, 80, delay3.Milliseconds(), 40)
}

func TestRetry_CapsAtMaxDelay(t *testing.T) {
	var timestamps []time.Time
	attempts := 0
	fn := func() error {
		timestamps = append(timestamps, time.Now())
		attempts++
		if attempts < 5 {
			return errors.New("error")
		}
		return nil
	}

	cfg := RetryConfig{MaxRetries: 10, InitialDelay: 20 * time.Millisecond, MaxDelay: 30 * time.Millisecond, Multiplier: 2.0}
	_ = Retry(context.Background(), cfg, fn)

	for i := 2; i < len(timestamps); i++ {
		delay := timestamps[i].Sub(timestamps[i-1])
		assert.LessOrEqual(t, delay.Milliseconds(), int64(50))
	}
}

func TestRetryWithResult(t *testing.T) {
	t.Run("returns the value once the function succeeds", func(t *testing.T) {
		attempts := 0
		fn := func() (int, error) {
			attempts++
			if attempts < 2 {
				return 0, errors.New("error")
			}
			return 42, nil
		}

		cfg := DefaultRetryConfig()
		cfg.InitialDelay = 10 * time.Millisecond

		result, err := RetryWithResult(context.Background(), cfg, fn)
		assert.NoError(t, err)
		assert.Equal(t, 42, result)
	})

	t.Run("returns the zero value once retries are exhausted", func(t *testing.T) {
		fn := func() (string, error) { return "partial", errors.New("error") }
		cfg := RetryConfig{MaxRetries: 1, InitialDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond, Multiplier: 2.0}

		result, err := RetryWithResult(context.Background(), cfg, fn)
		assert.Error(t, err)
		assert.Equal(t, "", result)
	})
}

func TestRetry_ImmediateSuccessNoDelay(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2.0}

	start := time.Now()
	err := Retry(context.Background(), cfg, func() error { return nil })
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Less(t, elapsed, 100*time.Millisecond)
}

func TestRetry_Concurrent(t *testing.T) {
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			attempts := 0
			fn := func() error {
				attempts++
				if attempts < 2 {
					return errors.New("error")
				}
				return nil
			}
			cfg := RetryConfig{MaxRetries: 3, InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 2.0}
			if err := Retry(context.Background(), cfg, fn); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), successCount.Load())
}

func TestDefaultRetryConfig_HasSensibleDefaults(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.InitialDelay)
	assert.Equal(t, 16*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.False(t, cfg.Jitter)
}
