package screening

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencomm/shrike/internal/bus"
	"github.com/opencomm/shrike/internal/cache"
	"github.com/opencomm/shrike/internal/classifier"
	"github.com/opencomm/shrike/internal/domain"
	"github.com/opencomm/shrike/internal/feature"
	"github.com/opencomm/shrike/internal/fusion"
	"github.com/opencomm/shrike/internal/pattern"
	"github.com/opencomm/shrike/internal/reputation"
	"github.com/opencomm/shrike/internal/repository"
	"github.com/opencomm/shrike/internal/velocity"
)

func newTestScreener(t *testing.T, mutate func(*domain.ScreeningConfig)) (*Screener, *repository.SQLRepository) {
	t.Helper()

	cfg := domain.DefaultConfig().Screening
	if mutate != nil {
		mutate(&cfg)
	}

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
	tracker := velocity.NewTracker(c, time.Hour)
	analyzer := pattern.NewAnalyzer(cfg, nil, func(ctx context.Context, number string) int64 {
		return tracker.Observe(ctx, number)
	})

	screener := NewScreener(
		cfg,
		feature.NewExtractor(cfg.SpamKeywords),
		analyzer,
		store,
		classifier.New(""), // degraded, no model
		fusion.NewEngine(cfg),
		repo,
		b,
	)
	return screener, repo
}

func TestScreenCallCountsFrequencyOnce(t *testing.T) {
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

	cfg := domain.DefaultConfig().Screening
	tracker := velocity.NewTracker(c, time.Hour)

	// Mirror production wiring: the analyzer's getter is the one place
	// the counter ticks, so rule thresholds on call_count see the true
	// number of screenings.
	rules, err := pattern.NewCustomRules()
	if err != nil {
		t.Fatalf("failed to initialize rule engine: %v", err)
	}
	var lastCount atomic.Int64
	analyzer := pattern.NewAnalyzer(cfg, rules, func(ctx context.Context, number string) int64 {
		n := tracker.Observe(ctx, number)
		lastCount.Store(n)
		return n
	})

	screener := NewScreener(
		cfg,
		feature.NewExtractor(cfg.SpamKeywords),
		analyzer,
		reputation.NewStore(repo, c, nil),
		classifier.New(""),
		fusion.NewEngine(cfg),
		repo,
		b,
	)

	screener.ScreenCall(context.Background(), "201064829173")
	if got := lastCount.Load(); got != 1 {
		t.Errorf("one screening moved the call counter to %d, expected 1", got)
	}

	screener.ScreenCall(context.Background(), "201064829173")
	if got := lastCount.Load(); got != 2 {
		t.Errorf("two screenings moved the call counter to %d, expected 2", got)
	}
}

func TestScreenCallCleanNumberAllows(t *testing.T) {
	screener, _ := newTestScreener(t, nil)

	dec := screener.ScreenCall(context.Background(), "201064829173")
	if dec.Action != domain.ActionAllow {
		t.Errorf("expected ALLOW for clean number, got %s (reasons %v)", dec.Action, dec.Reasons)
	}
}

func TestScreenCallKnownContactAllows(t *testing.T) {
	screener, repo := newTestScreener(t, nil)
	ctx := context.Background()

	id := domain.NormalizeNumber("+2348001234567")
	repo.SaveContact(ctx, &domain.ContactLabel{Name: "Amina", Number: id.Normalized})
	// Even with a terrible reputation on record.
	repo.SaveReputation(ctx, &domain.ReputationResult{
		Identifier: id, SpamScore: 0.99, ReportCount: 500, Confidence: 0.99,
	})

	dec := screener.ScreenCall(ctx, "+2348001234567")
	if dec.Action != domain.ActionAllow {
		t.Errorf("expected ALLOW for known contact, got %s", dec.Action)
	}
	if dec.CallerLabel != "Amina" {
		t.Errorf("expected contact label, got %q", dec.CallerLabel)
	}
}

func TestScreenCallExplicitBlockBlocks(t *testing.T) {
	screener, repo := newTestScreener(t, nil)
	ctx := context.Background()

	id := domain.NormalizeNumber("+19005551234")
	repo.AddBlock(ctx, id.Normalized, "")

	dec := screener.ScreenCall(ctx, "+19005551234")
	if dec.Action != domain.ActionBlock {
		t.Errorf("expected BLOCK for explicitly blocked number, got %s", dec.Action)
	}
}

func TestScreenCallSuspiciousInternationalNumber(t *testing.T) {
	screener, repo := newTestScreener(t, nil)
	ctx := context.Background()

	id := domain.NormalizeNumber("+2348001234567")
	repo.SaveReputation(ctx, &domain.ReputationResult{
		Identifier:  id,
		SpamScore:   0.95,
		ReportCount: 42,
		Confidence:  0.95,
	})

	dec := screener.ScreenCall(ctx, "+2348001234567")
	if dec.Action == domain.ActionAllow {
		t.Errorf("expected at least SCREEN for reported international number, got %s", dec.Action)
	}
	if len(dec.Reasons) == 0 {
		t.Error("expected reasons on a flagged decision")
	}
}

func TestScreenCallFailsOpenOnTimeout(t *testing.T) {
	screener, _ := newTestScreener(t, func(cfg *domain.ScreeningConfig) {
		cfg.PipelineTimeout = time.Nanosecond
	})

	dec := screener.ScreenCall(context.Background(), "+2348001234567")
	if dec.Action != domain.ActionAllow {
		t.Errorf("expected fail-open ALLOW on timeout, got %s", dec.Action)
	}
	if dec.Confidence > 0.3 {
		t.Errorf("expected low confidence on fail-open, got %f", dec.Confidence)
	}
}

func TestScreenCallIsIdempotentForCleanNumbers(t *testing.T) {
	screener, _ := newTestScreener(t, nil)
	ctx := context.Background()

	first := screener.ScreenCall(ctx, "201064829173")
	for i := 0; i < 5; i++ {
		if got := screener.ScreenCall(ctx, "201064829173"); got.Action != first.Action {
			t.Fatalf("action changed across repeats: %s then %s", first.Action, got.Action)
		}
	}
}

func TestScreenCallRecordsStats(t *testing.T) {
	screener, repo := newTestScreener(t, nil)
	ctx := context.Background()

	screener.ScreenCall(ctx, "201064829173")

	// Bookkeeping runs off the hot path; poll for it.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := repo.GetStats(ctx)
		if err == nil && stats.TotalAnalyzed == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("stats counter was not incremented")
}

func TestScreenMessageVerdicts(t *testing.T) {
	screener, _ := newTestScreener(t, nil)
	ctx := context.Background()

	spam := screener.ScreenMessage(ctx, "You WIN a FREE prize! Click now")
	if !spam.IsSpam {
		t.Errorf("expected spam verdict, got %+v", spam)
	}

	clean := screener.ScreenMessage(ctx, "See you at dinner tonight")
	if clean.IsSpam {
		t.Errorf("expected clean verdict, got %+v", clean)
	}
}

func TestAnalyzeNumberReturnsFusedResult(t *testing.T) {
	screener, _ := newTestScreener(t, nil)

	analysis := screener.AnalyzeNumber(context.Background(), "+2348001234567")
	if analysis == nil {
		t.Fatal("analysis must never be nil")
	}
	if analysis.FusedScore < 0 || analysis.FusedScore > 1 {
		t.Errorf("fused score out of range: %f", analysis.FusedScore)
	}
	if analysis.Identifier.Normalized != "002348001234567" {
		t.Errorf("unexpected normalization: %s", analysis.Identifier.Normalized)
	}
}
