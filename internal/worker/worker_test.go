package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/opencomm/shrike/internal/bus"
	"github.com/opencomm/shrike/internal/classifier"
	"github.com/opencomm/shrike/internal/domain"
)

func TestWorkerCountsFeedback(t *testing.T) {
	b := bus.NewChannelBus(100)
	defer b.Close()
	ctx := context.Background()

	w := New(b, classifier.New(""), 10)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 3; i++ {
		b.Publish(ctx, domain.TopicFeedbackRecorded, []byte("{}"))
	}

	waitFor(t, func() bool { return w.Pending() == 3 })
}

func TestWorkerRequestsRetrainAtBatchSize(t *testing.T) {
	b := bus.NewChannelBus(100)
	defer b.Close()
	ctx := context.Background()

	var mu sync.Mutex
	retrains := 0
	b.Subscribe(ctx, domain.TopicModelRetrain, func(ctx context.Context, msg *domain.Message) error {
		mu.Lock()
		retrains++
		mu.Unlock()
		return nil
	})

	w := New(b, classifier.New(""), 5)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		b.Publish(ctx, domain.TopicFeedbackRecorded, []byte("{}"))
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return retrains == 1
	})

	// Counter resets after the request.
	waitFor(t, func() bool { return w.Pending() == 0 })
}

func TestWorkerStopUnsubscribes(t *testing.T) {
	b := bus.NewChannelBus(100)
	defer b.Close()
	ctx := context.Background()

	w := New(b, classifier.New(""), 10)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	w.Stop()

	b.Publish(ctx, domain.TopicFeedbackRecorded, []byte("{}"))
	time.Sleep(50 * time.Millisecond)

	if w.Pending() != 0 {
		t.Errorf("expected no counting after stop, got %d", w.Pending())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
