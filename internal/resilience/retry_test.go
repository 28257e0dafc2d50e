package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		Attempts:       2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
		Operation:      "test",
	}
}

func TestDoVal(t *testing.T) {
	t.Run("success first try", func(t *testing.T) {
		calls := 0
		got, err := DoVal(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient error retried once", func(t *testing.T) {
		calls := 0
		got, err := DoVal(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", NewTransientError(eris.New("overloaded"), 529)
			}
			return "recovered", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "recovered", got)
		assert.Equal(t, 2, calls)
	})

	t.Run("non-transient error not retried", func(t *testing.T) {
		calls := 0
		_, err := DoVal(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
			calls++
			return "", eris.New("invalid request")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("attempts exhausted returns last error", func(t *testing.T) {
		calls := 0
		_, err := DoVal(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
			calls++
			return "", NewTransientError(eris.New("still down"), 503)
		})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
		assert.Contains(t, err.Error(), "still down")
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := DoVal(ctx, fastConfig(), func(ctx context.Context) (string, error) {
			calls++
			cancel()
			return "", NewTransientError(eris.New("timeout"), 504)
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestDo(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return NewTransientError(eris.New("flaky"), 500)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("bad input")))
	assert.True(t, IsTransient(NewTransientError(eris.New("rate limited"), 429)))
	assert.True(t, IsTransient(eris.Wrap(NewTransientError(eris.New("x"), 503), "outer")))
	assert.True(t, IsTransient(eris.New("read tcp: i/o timeout")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}
