package velocity

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestObserveCountsPerNumber(t *testing.T) {
	tracker := NewTracker(&fakeCounter{counts: make(map[string]int64)}, time.Hour)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if got := tracker.Observe(ctx, "002012345678"); got != i {
			t.Errorf("expected count %d, got %d", i, got)
		}
	}

	// A different number has its own counter.
	if got := tracker.Observe(ctx, "002098765432"); got != 1 {
		t.Errorf("expected independent counter, got %d", got)
	}
}

func TestObserveSwallowsCounterFailure(t *testing.T) {
	tracker := NewTracker(&fakeCounter{err: errors.New("redis down")}, time.Hour)

	if got := tracker.Observe(context.Background(), "002012345678"); got != 0 {
		t.Errorf("expected 0 on counter failure, got %d", got)
	}
}

func TestNewTrackerDefaultsWindow(t *testing.T) {
	tracker := NewTracker(&fakeCounter{counts: make(map[string]int64)}, 0)
	if tracker.window != DefaultWindow {
		t.Errorf("expected default window, got %v", tracker.window)
	}
}
