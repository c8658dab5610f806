package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer simulates playback without an output device. Each Play takes
// Delay to complete unless it is stopped or its context ends first.
type MockPlayer struct {
	// Delay is how long each simulated clip plays.
	Delay time.Duration

	// Err, when set, is returned by every Play after the delay.
	Err error

	// OnPlay is called at the start of every Play.
	OnPlay func(s *Stream)

	mu     sync.Mutex
	played [][]byte
	stop   chan struct{}

	active     atomic.Int32
	maxActive  atomic.Int32
	playCount  atomic.Int64
	stopCount  atomic.Int64
	closed     atomic.Bool
	completedN atomic.Int64
}

// NewMockPlayer returns a mock player whose clips take delay to play.
func NewMockPlayer(delay time.Duration) *MockPlayer {
	return &MockPlayer{Delay: delay}
}

// Play records the clip and waits for the simulated playback.
func (mp *MockPlayer) Play(ctx context.Context, s *Stream) error {
	defer s.Close() //nolint:errcheck

	if mp.closed.Load() {
		return ErrPlayerClosed
	}
	if s.IsClosed() {
		return ErrStreamClosed
	}

	n := mp.active.Add(1)
	defer mp.active.Add(-1)
	for {
		peak := mp.maxActive.Load()
		if n <= peak || mp.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	mp.playCount.Add(1)

	stop := make(chan struct{})
	mp.mu.Lock()
	mp.played = append(mp.played, append([]byte(nil), s.Bytes()...))
	mp.stop = stop
	mp.mu.Unlock()

	if mp.OnPlay != nil {
		mp.OnPlay(s)
	}

	timer := time.NewTimer(mp.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return ErrStopped
	case <-timer.C:
	}

	if mp.Err != nil {
		return mp.Err
	}
	mp.completedN.Add(1)
	return nil
}

// Stop interrupts the simulated clip, if any.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.stopCount.Add(1)
	if mp.stop != nil {
		close(mp.stop)
		mp.stop = nil
	}
	return nil
}

// Close makes further Play calls fail.
func (mp *MockPlayer) Close() error {
	mp.closed.Store(true)
	return mp.Stop()
}

// Played returns copies of the clips passed to Play, in call order.
func (mp *MockPlayer) Played() [][]byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([][]byte(nil), mp.played...)
}

// MockPlayerMetrics reports what the mock has seen.
type MockPlayerMetrics struct {
	PlayCount      int64
	CompletedCount int64
	StopCount      int64
	MaxConcurrent  int32
}

// Metrics returns call counters and the peak number of overlapping plays.
func (mp *MockPlayer) Metrics() MockPlayerMetrics {
	return MockPlayerMetrics{
		PlayCount:      mp.playCount.Load(),
		CompletedCount: mp.completedN.Load(),
		StopCount:      mp.stopCount.Load(),
		MaxConcurrent:  mp.maxActive.Load(),
	}
}
