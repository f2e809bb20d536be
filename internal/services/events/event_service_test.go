package events

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/interfaces"
)

func TestSubscribe_NilHandlerRejected(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	assert.Error(t, svc.Subscribe(interfaces.EventAnalysisSaved, nil))
}

func TestPublishSync_DeliversToTypedAndWildcard(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var typed, wildcard atomic.Int32

	require.NoError(t, svc.Subscribe(interfaces.EventConsequenceReady, func(ctx context.Context, e interfaces.Event) error {
		typed.Add(1)
		return nil
	}))
	require.NoError(t, svc.Subscribe(interfaces.EventAny, func(ctx context.Context, e interfaces.Event) error {
		wildcard.Add(1)
		return nil
	}))

	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventConsequenceReady}))
	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventAnalysisDeleted}))

	assert.Equal(t, int32(1), typed.Load())
	assert.Equal(t, int32(2), wildcard.Load())
}

func TestPublishSync_CollectsHandlerErrors(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	require.NoError(t, svc.Subscribe(interfaces.EventError, func(ctx context.Context, e interfaces.Event) error {
		return fmt.Errorf("handler broke")
	}))

	err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventError})
	assert.Error(t, err)
}

func TestPublish_NoSubscribersIsNoOp(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	assert.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventImageReady}))
}
