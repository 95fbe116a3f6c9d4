package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type annotatedErr struct{ msg string }

func (e *annotatedErr) Error() string   { return e.msg }
func (e *annotatedErr) Annotated() bool { return true }

type taggedErr struct{ retry bool }

func (e *taggedErr) Error() string   { return "tagged" }
func (e *taggedErr) Retryable() bool { return e.retry }

func TestDo_SucceedsOnAttemptK(t *testing.T) {
	for _, k := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("attempt %d", k), func(t *testing.T) {
			useFakeTime(t)
			calls := 0
			got, err := Do(context.Background(), func(context.Context) (string, error) {
				calls++
				if calls < k {
					return "", errors.New("not yet")
				}
				return "ok", nil
			}, WithTimeout(time.Second))

			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			assert.Equal(t, k, calls)
		})
	}
}

func TestDo_ExhaustsWithLastFailure(t *testing.T) {
	ft := useFakeTime(t)
	start := ft.t

	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("attempt %d", calls)
	}, WithTimeout(time.Second), WithInterval(100*time.Millisecond))

	require.Error(t, err)
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, fmt.Sprintf("attempt %d", calls), re.Err.Error())
	assert.Equal(t, calls, re.Attempts)
	assert.Equal(t, 12, calls)
	assert.Greater(t, ft.t.Sub(start), time.Second)
	assert.Greater(t, re.Elapsed, time.Second)
}

func TestDo_FatalErrorStopsImmediately(t *testing.T) {
	useFakeTime(t)
	sentinel := errors.New("bad selector")

	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, Fatal(sentinel)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, sentinel)
	var re *Error
	assert.False(t, errors.As(err, &re))
}

func TestDo_RetryableTagIsHonoured(t *testing.T) {
	useFakeTime(t)

	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, &taggedErr{retry: false}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	_, err = Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, &taggedErr{retry: true}
	}, WithTimeout(200*time.Millisecond), WithInterval(100*time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestDo_ContextAttachedOnce(t *testing.T) {
	useFakeTime(t)

	t.Run("plain error gets context", func(t *testing.T) {
		_, err := Do(context.Background(), func(context.Context) (int, error) {
			return 0, errors.New("no such element")
		}, WithTimeout(10*time.Millisecond), WithContext("css=#a"))

		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "css=#a", re.Context)
		assert.Contains(t, err.Error(), "no such element (css=#a)")
	})

	t.Run("annotated error keeps its own", func(t *testing.T) {
		_, err := Do(context.Background(), func(context.Context) (int, error) {
			return 0, &annotatedErr{msg: "no such element at css=#a"}
		}, WithTimeout(10*time.Millisecond), WithContext("css=#a"))

		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Empty(t, re.Context)
		assert.NotContains(t, err.Error(), "(css=#a)")
	})
}

func TestDo_OnRetryHook(t *testing.T) {
	useFakeTime(t)

	var seen []int
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls == 3 {
			return 3, nil
		}
		return 0, errors.New("again")
	}, OnRetry(func(attempt int, err error) {
		seen = append(seen, attempt)
	}))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("transient")
	}, WithTimeout(time.Minute))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}
