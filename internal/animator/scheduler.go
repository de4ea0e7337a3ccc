// Package animator drives the particle field: a frame scheduler standing
// in for the host's repaint callback, a resizable viewport, and the
// Background component that ties them to a surface.
package animator

import (
	"context"
	"slices"
	"sync"
	"time"
)

// FrameID identifies a pending frame callback. Zero is never issued.
type FrameID uint64

// Scheduler runs a callback before the next frame and can cancel it.
type Scheduler interface {
	RequestFrame(fn func()) FrameID
	CancelFrame(id FrameID)
}

// TickerScheduler fires pending callbacks once per tick on the goroutine
// running Run. Callbacks requested during a frame run on the next one.
type TickerScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	next    FrameID
	pending map[FrameID]func()
}

func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = 60
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(fps),
		pending:  make(map[FrameID]func()),
	}
}

func (s *TickerScheduler) RequestFrame(fn func()) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = fn
	return s.next
}

func (s *TickerScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Run blocks, firing frames until ctx is done.
func (s *TickerScheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Frame()
		}
	}
}

// Frame runs every callback pending at call time, in request order.
func (s *TickerScheduler) Frame() {
	s.mu.Lock()
	due := s.pending
	s.pending = make(map[FrameID]func())
	s.mu.Unlock()

	ids := make([]FrameID, 0, len(due))
	for id := range due {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		due[id]()
	}
}

// Pending reports how many callbacks wait for the next frame.
func (s *TickerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
