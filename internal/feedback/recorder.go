// Package feedback records user corrections for the retraining loop.
// Feedback is advisory: a lost correction costs a little model quality,
// while a surfaced error would cost user trust, so failures here are
// logged and swallowed.
package feedback

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opencomm/shrike/internal/domain"
	"github.com/opencomm/shrike/internal/feature"
	"github.com/opencomm/shrike/internal/reputation"
)

// Recorder appends labeled corrections and fans them out to the
// feedback topic.
type Recorder struct {
	repo      domain.Repository
	bus       domain.EventBus
	store     *reputation.Store
	extractor *feature.Extractor
}

// NewRecorder creates a feedback recorder.
func NewRecorder(repo domain.Repository, eventBus domain.EventBus, store *reputation.Store, extractor *feature.Extractor) *Recorder {
	return &Recorder{repo: repo, bus: eventBus, store: store, extractor: extractor}
}

// Feedback is one user correction.
type Feedback struct {
	Number   string `json:"number"`
	IsSpam   bool   `json:"isSpam"`
	Category string `json:"category,omitempty"`
}

// Record persists the correction as a training record, counts it in the
// running statistics, updates reputation for spam labels, and publishes
// the recorded event. Never returns an
// error to the caller; every failure is logged and the remaining steps
// still run.
func (r *Recorder) Record(ctx context.Context, fb Feedback) *domain.TrainingRecord {
	id := domain.NormalizeNumber(fb.Number)

	rec := &domain.TrainingRecord{
		ID:              uuid.New().String(),
		Identifier:      id,
		UserLabeledSpam: fb.IsSpam,
		UserCategory:    fb.Category,
		Features:        r.extractor.Extract(id),
		Timestamp:       time.Now().UTC(),
	}

	if err := r.repo.AppendTrainingRecord(ctx, rec); err != nil {
		slog.Warn("training record write failed", "number", id.Normalized, "error", err)
	}

	if err := r.repo.IncrementStats(ctx, fb.IsSpam); err != nil {
		slog.Warn("stats increment from feedback failed", "number", id.Normalized, "error", err)
	}

	if fb.IsSpam {
		if err := r.store.RecordReport(ctx, id.Normalized, fb.Category); err != nil {
			slog.Warn("reputation report from feedback failed", "number", id.Normalized, "error", err)
		}
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		slog.Error("training record marshal failed", "record_id", rec.ID, "error", err)
		return rec
	}
	if err := r.bus.Publish(ctx, domain.TopicFeedbackRecorded, payload); err != nil {
		slog.Warn("feedback publish failed", "record_id", rec.ID, "error", err)
	}

	return rec
}
