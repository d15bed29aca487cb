package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/savaslabs/kb/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	wantErr := errors.New("persistent failure")
	operation := func() error {
		attempts++
		return wantErr
	}

	err := RetryWithBackoff(context.Background(), operation, 4, time.Millisecond)
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 4, attempts)
}

func TestRetryWithBackoff_PermanentErrorStopsEarly(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return fmt.Errorf("%w: model not found", core.ErrPermanentProvider)
	}

	err := RetryWithBackoff(context.Background(), operation, 4, time.Millisecond)
	require.ErrorIs(t, err, core.ErrPermanentProvider)
	assert.Equal(t, 1, attempts, "permanent errors should not retry")
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	operation := func() error {
		attempts++
		cancel()
		return errors.New("fail then cancel")
	}

	err := RetryWithBackoff(ctx, operation, 5, 50*time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}
