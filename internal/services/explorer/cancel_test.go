package explorer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancelToken_ObservesSource(t *testing.T) {
	source := NewCancelSource()
	token := source.Token()

	assert.False(t, token.Canceled())
	source.Cancel()
	assert.True(t, token.Canceled())

	// Cancel is idempotent.
	source.Cancel()
	assert.True(t, token.Canceled())
}

func TestCancelSource_ConcurrentCancel(t *testing.T) {
	source := NewCancelSource()
	token := source.Token()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			source.Cancel()
		}()
	}
	wg.Wait()

	assert.True(t, token.Canceled())
}

func TestNewSession_CancelsPrevious(t *testing.T) {
	svc := &Service{}

	first := svc.newSession()
	assert.False(t, first.Canceled())

	second := svc.newSession()
	assert.True(t, first.Canceled())
	assert.False(t, second.Canceled())
}
