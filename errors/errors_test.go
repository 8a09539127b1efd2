package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapFormat(t *testing.T) {
	base := New("boom")
	wrapped := Wrap(base, "DataHandler", "Put", "handing off item")

	assert.Equal(t, "DataHandler.Put: handing off item failed: boom", wrapped.Error())
	assert.True(t, Is(wrapped, base))
	assert.Nil(t, Wrap(nil, "x", "y", "z"))
}

func TestClassifiedWrappers(t *testing.T) {
	base := New("boom")

	assert.True(t, IsTransient(WrapTransient(base, "c", "m", "a")))
	assert.True(t, IsInvalid(WrapInvalid(base, "c", "m", "a")))
	assert.True(t, IsFatal(WrapFatal(base, "c", "m", "a")))

	var ce *ClassifiedError
	require.True(t, As(WrapFatal(base, "c", "m", "a"), &ce))
	assert.Equal(t, ErrorFatal, ce.Class)
	assert.Equal(t, "c", ce.Component)
	assert.True(t, Is(ce, base), "classification must not break the chain")
}

func TestSentinelClassification(t *testing.T) {
	assert.True(t, IsInvalid(ErrCapabilityUnsupported))
	assert.True(t, IsInvalid(ErrUnknownCoordinates))
	assert.True(t, IsInvalid(fmt.Errorf("awaiting: %w", ErrEventReused)))
	assert.True(t, IsFatal(ErrSubmissionRejected))
	assert.True(t, IsTransient(ErrQueueFull))
	assert.True(t, IsTransient(ErrStorageFailed))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorFatal, Classify(ErrSubmissionRejected))
	assert.Equal(t, ErrorInvalid, Classify(ErrCapabilityUnsupported))
	assert.Equal(t, ErrorTransient, Classify(New("device busy")))
	assert.Equal(t, ErrorTransient, Classify(nil))
}

func TestRetryConfigShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.True(t, cfg.ShouldRetry(ErrQueueFull, 0))
	assert.False(t, cfg.ShouldRetry(ErrQueueFull, cfg.MaxRetries), "attempts exhausted")
	assert.False(t, cfg.ShouldRetry(ErrCapabilityUnsupported, 0), "invalid errors never retry")
	assert.False(t, cfg.ShouldRetry(nil, 0))

	scoped := cfg
	scoped.RetryableErrors = []error{ErrStorageFailed}
	assert.True(t, scoped.ShouldRetry(ErrStorageFailed, 0))
	assert.False(t, scoped.ShouldRetry(ErrQueueFull, 0), "not in the allow list")
}

func TestToRetryConfig(t *testing.T) {
	rc := RetryConfig{MaxRetries: 2, BackoffFactor: 3.0}.ToRetryConfig()
	assert.Equal(t, 3, rc.MaxAttempts, "retries convert to total attempts")
	assert.Equal(t, 3.0, rc.Multiplier)
	assert.True(t, rc.AddJitter)
}
