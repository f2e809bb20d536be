package ai

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.False(t, IsRateLimitError(fmt.Errorf("connection refused")))
	assert.True(t, IsRateLimitError(fmt.Errorf("Error 429, Message: too many requests")))
	assert.True(t, IsRateLimitError(fmt.Errorf("Status: RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(fmt.Errorf("quota exceeded for metric")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := fmt.Errorf("Error 429, Message: You exceeded your quota. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(fmt.Errorf("no delay here")))

	err = fmt.Errorf("retryDelay: 12s")
	assert.Equal(t, 12*time.Second, ExtractRetryDelay(err))
}

func TestCalculateBackoff(t *testing.T) {
	config := NewDefaultRetryConfig()

	// First attempt without an API delay uses the initial backoff.
	assert.Equal(t, DefaultInitialBackoff, config.CalculateBackoff(0, 0))

	// API-provided delay takes priority, with a small buffer.
	assert.Equal(t, 35*time.Second, config.CalculateBackoff(0, 30*time.Second))

	// Later attempts grow but never exceed the cap.
	for attempt := 0; attempt < 10; attempt++ {
		backoff := config.CalculateBackoff(attempt, 0)
		assert.LessOrEqual(t, backoff, DefaultMaxBackoff)
	}
	assert.Equal(t, DefaultMaxBackoff, config.CalculateBackoff(9, 0))
}
