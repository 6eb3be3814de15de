package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(n int) Policy {
	return Policy{MaxAttempts: n, AttemptTimeout: time.Second}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(3), nil, func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	var seen []int
	var outcomes []error
	v, err := Do(context.Background(), fastPolicy(3),
		func(attempt int, err error) { outcomes = append(outcomes, err) },
		func(ctx context.Context, attempt int) (int, error) {
			seen = append(seen, attempt)
			if attempt < 3 {
				return 0, errors.New("malformed")
			}
			return 42, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, []int{1, 2, 3}, seen)
	require.Len(t, outcomes, 3)
	assert.Error(t, outcomes[0])
	assert.NoError(t, outcomes[2])
}

func TestDo_Exhausted(t *testing.T) {
	cause := errors.New("oracle down")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, cause
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, cause)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
}

func TestDo_AttemptTimeout(t *testing.T) {
	p := Policy{MaxAttempts: 2, AttemptTimeout: 20 * time.Millisecond}
	calls := 0
	_, err := Do(context.Background(), p, nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestDo_ParentCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, Backoff: time.Hour}, nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		cancel()
		return 0, errors.New("fail")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsExhausted(err))
	assert.Equal(t, 1, calls)
}

func TestDo_BackoffDoubles(t *testing.T) {
	var starts []time.Time
	_, err := Do(context.Background(), Policy{MaxAttempts: 3, Backoff: 20 * time.Millisecond}, nil, func(ctx context.Context, attempt int) (int, error) {
		starts = append(starts, time.Now())
		return 0, errors.New("malformed")
	})
	require.Error(t, err)
	require.Len(t, starts, 3)

	assert.GreaterOrEqual(t, starts[1].Sub(starts[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, starts[2].Sub(starts[1]), 40*time.Millisecond)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), Policy{}, nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errors.New("x")
	})
	assert.Equal(t, 1, calls)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 90*time.Second, p.AttemptTimeout)
	assert.Equal(t, 1, p.WithMaxAttempts(1).MaxAttempts)
	assert.Equal(t, 3, p.MaxAttempts)
}
