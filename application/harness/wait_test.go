package harness

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"e2e_harness/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWaiterClampsInterval(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"default", 0, DefaultPollInterval},
		{"too fast", time.Millisecond, 10 * time.Millisecond},
		{"too slow", time.Second, 100 * time.Millisecond},
		{"in range", 75 * time.Millisecond, 75 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewWaiter(tt.in).Interval())
		})
	}
}

func TestUntilSatisfiedImmediately(t *testing.T) {
	var calls int32
	err := NewWaiter(10*time.Millisecond).Until(context.Background(), func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return true, nil
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestUntilPollsUntilTrue(t *testing.T) {
	readyAt := time.Now().Add(60 * time.Millisecond)
	var calls int32
	err := NewWaiter(10*time.Millisecond).Until(context.Background(), func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return !time.Now().Before(readyAt), nil
	}, time.Second)
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(&calls), int32(1))
}

func TestUntilTimesOutBelowSettleTime(t *testing.T) {
	// the predicate settles after 300ms, the timeout is far shorter
	readyAt := time.Now().Add(300 * time.Millisecond)
	for i := 0; i < 5; i++ {
		err := NewWaiter(10*time.Millisecond).Until(context.Background(), func(ctx context.Context) (bool, error) {
			return !time.Now().Before(readyAt), nil
		}, 50*time.Millisecond)
		require.ErrorIs(t, err, entities.ErrTimeout)
	}
}

func TestUntilStopsOnPredicateError(t *testing.T) {
	boom := errors.New("boom")
	err := NewWaiter(10*time.Millisecond).Until(context.Background(), func(ctx context.Context) (bool, error) {
		return false, boom
	}, time.Second)
	assert.ErrorIs(t, err, boom)
}

func TestUntilAbortsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	err := NewWaiter(10*time.Millisecond).Until(ctx, func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, nil
	}, 10*time.Second)

	require.ErrorIs(t, err, entities.ErrAborted)
	assert.Less(t, time.Since(started), time.Second)

	// no polling after the abort
	seen := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, atomic.LoadInt32(&calls))
}

func TestUntilCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewWaiter(0).Until(ctx, func(ctx context.Context) (bool, error) {
		called = true
		return true, nil
	}, time.Second)
	require.ErrorIs(t, err, entities.ErrAborted)
	assert.False(t, called)
}

func TestNever(t *testing.T) {
	w := NewWaiter(10 * time.Millisecond)

	t.Run("holds for the whole window", func(t *testing.T) {
		started := time.Now()
		violated, err := w.Never(context.Background(), func(ctx context.Context) (bool, error) {
			return false, nil
		}, 60*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, violated)
		assert.GreaterOrEqual(t, time.Since(started), 60*time.Millisecond)
	})

	t.Run("violated as soon as the predicate holds", func(t *testing.T) {
		showAt := time.Now().Add(30 * time.Millisecond)
		violated, err := w.Never(context.Background(), func(ctx context.Context) (bool, error) {
			return !time.Now().Before(showAt), nil
		}, 5*time.Second)
		require.NoError(t, err)
		assert.True(t, violated)
	})
}
