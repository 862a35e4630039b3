// Package screening orchestrates the call screening pipeline: feature
// extraction, pattern analysis, reputation lookup, and classification run
// concurrently, their outputs fused and handed to the staged policy.
package screening

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/opencomm/shrike/internal/classifier"
	"github.com/opencomm/shrike/internal/domain"
	"github.com/opencomm/shrike/internal/feature"
	"github.com/opencomm/shrike/internal/fusion"
	"github.com/opencomm/shrike/internal/pattern"
	"github.com/opencomm/shrike/internal/reputation"
)

// Screener runs the screening pipeline for calls and messages.
type Screener struct {
	cfg        domain.ScreeningConfig
	extractor  *feature.Extractor
	analyzer   *pattern.Analyzer
	store      *reputation.Store
	classifier *classifier.Classifier
	fusion     *fusion.Engine
	policy     *Policy
	repo       domain.Repository
	bus        domain.EventBus

	// sem bounds concurrent screenings.
	sem chan struct{}
}

// NewScreener wires the pipeline together.
func NewScreener(
	cfg domain.ScreeningConfig,
	extractor *feature.Extractor,
	analyzer *pattern.Analyzer,
	store *reputation.Store,
	clf *classifier.Classifier,
	fus *fusion.Engine,
	repo domain.Repository,
	eventBus domain.EventBus,
) *Screener {
	max := cfg.MaxConcurrentScreenings
	if max <= 0 {
		max = 32
	}
	return &Screener{
		cfg:        cfg,
		extractor:  extractor,
		analyzer:   analyzer,
		store:      store,
		classifier: clf,
		fusion:     fus,
		policy:     NewPolicy(cfg),
		repo:       repo,
		bus:        eventBus,
		sem:        make(chan struct{}, max),
	}
}

// ScreenCall screens one incoming call. Total: every failure path, the
// pipeline timeout included, resolves to a decision. The default under
// uncertainty is Allow; blocking a legitimate call costs more than letting
// one spam call ring.
func (s *Screener) ScreenCall(ctx context.Context, rawNumber string) *domain.ScreeningDecision {
	id := domain.NormalizeNumber(rawNumber)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PipelineTimeout)
	defer cancel()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return s.failOpen(id, "screening queue saturated")
	}

	// Stages one and two never need the full analysis.
	if contact := s.store.KnownContact(ctx, id.Normalized); contact != nil {
		dec := s.policy.Decide(PolicyInput{Identifier: id, Contact: contact})
		s.finish(dec, false)
		return dec
	}
	if s.store.IsExplicitlyBlocked(ctx, id.Normalized) {
		dec := s.policy.Decide(PolicyInput{Identifier: id, ExplicitlyBlocked: true})
		s.finish(dec, true)
		return dec
	}

	// The analyzer's frequency getter records this screening; the counter
	// must tick exactly once per call so rule thresholds fire at face value.
	analysis, ok := s.analyze(ctx, id)
	if !ok {
		dec := s.failOpen(id, "screening timed out")
		s.finish(dec, false)
		return dec
	}

	dec := s.policy.Decide(PolicyInput{Identifier: id, Analysis: analysis})
	s.finish(dec, analysis.IsSpam)
	return dec
}

// analyze fans the three sources out and fuses their results. Returns
// ok=false when the pipeline deadline expired first.
func (s *Screener) analyze(ctx context.Context, id domain.Identifier) (*domain.AnalysisResult, bool) {
	var (
		pat domain.PatternResult
		rep domain.ReputationResult
		ml  domain.ClassifierPrediction
	)

	done := make(chan struct{})
	go func() {
		defer close(done)

		patCh := make(chan domain.PatternResult, 1)
		repCh := make(chan domain.ReputationResult, 1)
		mlCh := make(chan domain.ClassifierPrediction, 1)

		go func() { patCh <- s.analyzer.Analyze(ctx, id) }()
		go func() { repCh <- *s.store.Lookup(ctx, id) }()
		go func() { mlCh <- s.classifier.Predict(s.extractor.Extract(id)) }()

		pat, rep, ml = <-patCh, <-repCh, <-mlCh
	}()

	select {
	case <-done:
		analysis := s.fusion.Fuse(id, pat, rep, ml)
		return &analysis, true
	case <-ctx.Done():
		return nil, false
	}
}

// ScreenMessage runs the lightweight text pipeline.
func (s *Screener) ScreenMessage(ctx context.Context, text string) domain.MessageVerdict {
	verdict := s.analyzer.ClassifyText(text)
	if err := s.repo.IncrementStats(ctx, verdict.IsSpam); err != nil {
		slog.Warn("stats increment failed", "error", err)
	}
	return verdict
}

// AnalyzeNumber runs the full analysis without a policy decision, used by
// the reputation inspection endpoint.
func (s *Screener) AnalyzeNumber(ctx context.Context, rawNumber string) *domain.AnalysisResult {
	id := domain.NormalizeNumber(rawNumber)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PipelineTimeout)
	defer cancel()

	analysis, ok := s.analyze(ctx, id)
	if !ok {
		return &domain.AnalysisResult{Identifier: id, Confidence: 0.2}
	}
	return analysis
}

func (s *Screener) failOpen(id domain.Identifier, reason string) *domain.ScreeningDecision {
	dec := s.policy.Decide(PolicyInput{Identifier: id})
	dec.Reasons = []string{reason}
	slog.Warn("screening failed open", "number", id.Normalized, "reason", reason)
	return dec
}

// finish handles the off-path bookkeeping for a decision: stats, audit log,
// and event publication. None of it may delay or fail the decision.
func (s *Screener) finish(dec *domain.ScreeningDecision, flaggedSpam bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.IncrementStats(ctx, flaggedSpam); err != nil {
			slog.Warn("stats increment failed", "decision_id", dec.ID, "error", err)
		}
		if err := s.repo.SaveDecision(ctx, dec); err != nil {
			slog.Warn("decision audit write failed", "decision_id", dec.ID, "error", err)
		}

		payload, err := json.Marshal(dec)
		if err != nil {
			slog.Error("decision marshal failed", "decision_id", dec.ID, "error", err)
			return
		}
		if err := s.bus.Publish(ctx, domain.TopicDecision, payload); err != nil {
			slog.Warn("decision publish failed", "decision_id", dec.ID, "error", err)
		}
		if dec.Action == domain.ActionBlock {
			if err := s.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
				slog.Warn("alert publish failed", "decision_id", dec.ID, "error", err)
			}
		}
	}()
}
