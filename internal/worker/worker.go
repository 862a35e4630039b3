// Package worker runs the background feedback loop: it watches recorded
// corrections, requests a model retrain once enough have accumulated, and
// hot-reloads the classifier when new weights land.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/opencomm/shrike/internal/classifier"
	"github.com/opencomm/shrike/internal/domain"
)

// DefaultRetrainBatchSize is the number of corrections that triggers a
// retrain request.
const DefaultRetrainBatchSize = 50

// Worker consumes feedback events off the bus.
type Worker struct {
	bus        domain.EventBus
	classifier *classifier.Classifier
	batchSize  int64

	pending int64 // corrections since the last retrain request

	mu   sync.Mutex
	subs []domain.Subscription
}

// New creates a feedback worker.
func New(eventBus domain.EventBus, clf *classifier.Classifier, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = DefaultRetrainBatchSize
	}
	return &Worker{
		bus:        eventBus,
		classifier: clf,
		batchSize:  int64(batchSize),
	}
}

// Start subscribes to the feedback topics. Returns after subscriptions are
// registered; handlers run on bus goroutines.
func (w *Worker) Start(ctx context.Context) error {
	sub, err := w.bus.Subscribe(ctx, domain.TopicFeedbackRecorded, w.onFeedback)
	if err != nil {
		return err
	}
	w.addSub(sub)

	sub, err = w.bus.Subscribe(ctx, domain.TopicModelRetrain, w.onRetrain)
	if err != nil {
		return err
	}
	w.addSub(sub)

	slog.Info("feedback worker started", "retrain_batch_size", w.batchSize)
	return nil
}

// Stop unsubscribes from all topics.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("unsubscribe failed", "topic", sub.Topic(), "error", err)
		}
	}
	w.subs = nil
	slog.Info("feedback worker stopped")
}

// Pending returns the corrections counted since the last retrain request.
func (w *Worker) Pending() int64 {
	return atomic.LoadInt64(&w.pending)
}

func (w *Worker) onFeedback(ctx context.Context, msg *domain.Message) error {
	n := atomic.AddInt64(&w.pending, 1)
	if n < w.batchSize {
		return nil
	}
	if !atomic.CompareAndSwapInt64(&w.pending, n, 0) {
		return nil
	}

	slog.Info("requesting model retrain", "corrections", n)
	return w.bus.Publish(ctx, domain.TopicModelRetrain, nil)
}

func (w *Worker) onRetrain(ctx context.Context, msg *domain.Message) error {
	if err := w.classifier.Reload(); err != nil {
		slog.Warn("model reload failed after retrain", "error", err)
		return nil
	}
	slog.Info("classifier reloaded", "version", w.classifier.ModelVersion())
	return nil
}

func (w *Worker) addSub(sub domain.Subscription) {
	w.mu.Lock()
	w.subs = append(w.subs, sub)
	w.mu.Unlock()
}
