package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestDo(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := Do(context.Background(), fastConfig(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		attempts := 0
		boom := errors.New("still down")
		err := Do(context.Background(), fastConfig(), func() error {
			attempts++
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 3, attempts)
	})

	t.Run("permanent errors short-circuit", func(t *testing.T) {
		attempts := 0
		parseErr := errors.New("malformed record")
		err := Do(context.Background(), fastConfig(), func() error {
			attempts++
			return Permanent(parseErr)
		})
		require.ErrorIs(t, err, parseErr)
		assert.Equal(t, 1, attempts)
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Do(ctx, fastConfig(), func() error {
			return errors.New("never seen")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("non-retryable errors return immediately", func(t *testing.T) {
		fatal := errors.New("fatal")
		retryable := errors.New("retryable")
		cfg := fastConfig()
		cfg.RetryableErrors = []error{retryable}

		attempts := 0
		err := Do(context.Background(), cfg, func() error {
			attempts++
			return fatal
		})
		require.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, attempts)
	})
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	value, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("transient")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, value)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
