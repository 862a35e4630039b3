package feedback

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/opencomm/shrike/internal/bus"
	"github.com/opencomm/shrike/internal/cache"
	"github.com/opencomm/shrike/internal/domain"
	"github.com/opencomm/shrike/internal/feature"
	"github.com/opencomm/shrike/internal/reputation"
	"github.com/opencomm/shrike/internal/repository"
)

func newTestRecorder(t *testing.T) (*Recorder, *repository.SQLRepository, *bus.ChannelBus) {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	c := cache.NewLRUCache(100)
	t.Cleanup(func() { c.Close() })

	b := bus.NewChannelBus(100)
	t.Cleanup(func() { b.Close() })

	store := reputation.NewStore(repo, c, nil)
	extractor := feature.NewExtractor(domain.DefaultSpamKeywords())
	return NewRecorder(repo, b, store, extractor), repo, b
}

func TestRecordAppendsTrainingRecord(t *testing.T) {
	recorder, repo, _ := newTestRecorder(t)
	ctx := context.Background()

	rec := recorder.Record(ctx, Feedback{Number: "+2348001234567", IsSpam: true, Category: "scam"})
	if rec == nil || rec.ID == "" {
		t.Fatal("expected a training record with an id")
	}

	records, err := repo.ListTrainingRecords(ctx, time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("ListTrainingRecords failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !records[0].UserLabeledSpam || records[0].UserCategory != "scam" {
		t.Errorf("label mismatch: %+v", records[0])
	}
}

func TestRecordSpamLabelUpdatesReputation(t *testing.T) {
	recorder, repo, _ := newTestRecorder(t)
	ctx := context.Background()

	recorder.Record(ctx, Feedback{Number: "+2348001234567", IsSpam: true, Category: "scam"})

	rep, err := repo.GetReputation(ctx, "002348001234567")
	if err != nil {
		t.Fatalf("GetReputation failed: %v", err)
	}
	if rep.ReportCount != 1 {
		t.Errorf("expected one report, got %d", rep.ReportCount)
	}
	if rep.ReportedCategory != "scam" {
		t.Errorf("expected scam category, got %q", rep.ReportedCategory)
	}
}

func TestRecordIncrementsStats(t *testing.T) {
	recorder, repo, _ := newTestRecorder(t)
	ctx := context.Background()

	recorder.Record(ctx, Feedback{Number: "+2348001234567", IsSpam: true, Category: "scam"})
	recorder.Record(ctx, Feedback{Number: "+201064829173", IsSpam: false})

	stats, err := repo.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalAnalyzed != 2 {
		t.Errorf("expected 2 analyzed, got %d", stats.TotalAnalyzed)
	}
	if stats.TotalFlaggedSpam != 1 {
		t.Errorf("expected 1 flagged, got %d", stats.TotalFlaggedSpam)
	}
}

func TestRecordNotSpamLeavesReputationAlone(t *testing.T) {
	recorder, repo, _ := newTestRecorder(t)
	ctx := context.Background()

	recorder.Record(ctx, Feedback{Number: "+201064829173", IsSpam: false})

	if _, err := repo.GetReputation(ctx, "00201064829173"); err == nil {
		t.Error("expected no reputation row for not-spam feedback")
	}
}

func TestRecordPublishesEvent(t *testing.T) {
	recorder, _, b := newTestRecorder(t)
	ctx := context.Background()

	var mu sync.Mutex
	var topics []string
	b.Subscribe(ctx, domain.TopicFeedbackRecorded, func(ctx context.Context, msg *domain.Message) error {
		mu.Lock()
		topics = append(topics, msg.Topic)
		mu.Unlock()
		return nil
	})

	recorder.Record(ctx, Feedback{Number: "+2348001234567", IsSpam: true})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(topics)
		mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("feedback event was not published")
}

func TestRecordSurvivesClosedBus(t *testing.T) {
	recorder, repo, b := newTestRecorder(t)
	ctx := context.Background()
	b.Close()

	// Publication fails but the record must still be written.
	rec := recorder.Record(ctx, Feedback{Number: "+2348001234567", IsSpam: true})
	if rec == nil {
		t.Fatal("expected a record despite bus failure")
	}

	records, err := repo.ListTrainingRecords(ctx, time.Now().Add(-time.Minute), 10)
	if err != nil || len(records) != 1 {
		t.Errorf("expected persisted record, got %d (err %v)", len(records), err)
	}
}
