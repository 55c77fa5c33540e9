package frame

import (
	"context"
	"sync"
	"time"
)

// LatestBuffer keeps the most recent frame pushed by the capture page. The
// pipeline reads it through the Source interface; frames older than MaxAge
// count as camera-unavailable so a dead page does not keep answering against
// a stale still.
type LatestBuffer struct {
	mu     sync.RWMutex
	frame  *Frame
	maxAge time.Duration
	now    func() time.Time
}

// NewLatestBuffer builds an empty buffer. maxAge <= 0 disables staleness
// checking.
func NewLatestBuffer(maxAge time.Duration) *LatestBuffer {
	return &LatestBuffer{
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Put replaces the buffered frame.
func (b *LatestBuffer) Put(f *Frame) {
	if f == nil {
		return
	}
	b.mu.Lock()
	b.frame = f
	b.mu.Unlock()
}

// Still returns the buffered frame, or ErrNoFrame when the buffer is empty
// or the frame has gone stale.
func (b *LatestBuffer) Still(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.frame == nil {
		return nil, ErrNoFrame
	}
	if b.maxAge > 0 && b.now().Sub(b.frame.CapturedAt) > b.maxAge {
		return nil, ErrNoFrame
	}
	copy := *b.frame
	return &copy, nil
}

var _ Source = (*LatestBuffer)(nil)
