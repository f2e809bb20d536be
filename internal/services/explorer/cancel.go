package explorer

import (
	"errors"
	"sync/atomic"
)

// ErrCanceled marks work abandoned because its session was canceled.
// Callers treat it as a clean stop, not a failure: no store mutation
// happened after the cancel and no error state should surface to users.
var ErrCanceled = errors.New("exploration canceled")

// CancelSource owns cancellation for one exploration session. The source
// stays with whoever started the session; tokens derived from it are
// handed to the work and checked before every state mutation.
type CancelSource struct {
	canceled atomic.Bool
}

// NewCancelSource creates a live cancel source.
func NewCancelSource() *CancelSource {
	return &CancelSource{}
}

// Cancel flags the session. In-flight calls run to completion but their
// results are discarded at the next token check. Safe to call from any
// goroutine, and more than once.
func (s *CancelSource) Cancel() {
	s.canceled.Store(true)
}

// Token returns a read-only view of the source's state.
func (s *CancelSource) Token() *CancelToken {
	return &CancelToken{source: s}
}

// CancelToken is the read side of a CancelSource. Work holding a token
// can observe cancellation but not trigger it.
type CancelToken struct {
	source *CancelSource
}

// Canceled reports whether the session has been canceled.
func (t *CancelToken) Canceled() bool {
	return t.source.canceled.Load()
}
