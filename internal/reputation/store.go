// Package reputation maintains community reputation verdicts for phone
// numbers. Lookups fall through cache, local repository, then the optional
// shared backend; any layer failing degrades to a weaker verdict, never to
// a screening failure.
package reputation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/opencomm/shrike/internal/domain"
	"github.com/opencomm/shrike/internal/repository"
)

const (
	cacheTTL = 5 * time.Minute

	// backendConfidence applies to verdicts imported from the shared
	// backend, which aggregates reports across many installations.
	backendConfidence = 0.85
)

// Store resolves and records number reputation.
type Store struct {
	repo    domain.Repository
	cache   domain.Cache
	backend domain.ReputationBackend // nil when running local-only
}

// NewStore creates a reputation store. The backend may be nil for
// local-only operation.
func NewStore(repo domain.Repository, cache domain.Cache, backend domain.ReputationBackend) *Store {
	return &Store{repo: repo, cache: cache, backend: backend}
}

// Lookup resolves the reputation verdict for a number. Resolution order is
// cache, local repository, shared backend. Lookup is total: every failure
// path yields a neutral low-confidence verdict.
func (s *Store) Lookup(ctx context.Context, id domain.Identifier) *domain.ReputationResult {
	number := id.Normalized

	if cached, err := s.cache.GetReputation(ctx, number); err == nil && cached != nil {
		cached.Identifier = id
		return cached
	} else if err != nil {
		slog.Warn("reputation cache read failed", "number", number, "error", err)
	}

	rep, err := s.repo.GetReputation(ctx, number)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Warn("reputation repository read failed", "number", number, "error", err)
	}
	if rep != nil {
		rep.Identifier = id
		s.cacheVerdict(ctx, number, rep)
		return rep
	}

	if remote := s.lookupRemote(ctx, id); remote != nil {
		s.cacheVerdict(ctx, number, remote)
		if err := s.repo.SaveReputation(ctx, remote); err != nil {
			slog.Warn("failed to persist backend verdict", "number", number, "error", err)
		}
		return remote
	}

	neutral := &domain.ReputationResult{Identifier: id, Confidence: 0.1}
	s.cacheVerdict(ctx, number, neutral)
	return neutral
}

func (s *Store) lookupRemote(ctx context.Context, id domain.Identifier) *domain.ReputationResult {
	if s.backend == nil {
		return nil
	}

	info, err := s.backend.Lookup(ctx, id.Normalized)
	if err != nil {
		slog.Warn("reputation backend lookup failed", "number", id.Normalized, "error", err)
		return nil
	}
	if info == nil {
		return nil
	}

	return &domain.ReputationResult{
		Identifier: id,
		SpamScore:  clamp01(info.SpamScore),
		CallerName: info.Name,
		Confidence: backendConfidence,
	}
}

func (s *Store) cacheVerdict(ctx context.Context, number string, rep *domain.ReputationResult) {
	if err := s.cache.SetReputation(ctx, number, rep, cacheTTL); err != nil {
		slog.Warn("reputation cache write failed", "number", number, "error", err)
	}
}

// RecordReport registers one community spam report for a number. The local
// count is incremented synchronously; the upstream report is fired
// asynchronously and its failure only logged.
func (s *Store) RecordReport(ctx context.Context, number string, category string) error {
	if err := s.repo.IncrementReportCount(ctx, number, category); err != nil {
		return err
	}

	// Invalidate so the next lookup sees the new count.
	if err := s.cache.Delete(ctx, "rep:"+number); err != nil {
		slog.Warn("reputation cache invalidation failed", "number", number, "error", err)
	}

	if s.backend != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.backend.ReportSpam(ctx, number, category); err != nil {
				slog.Warn("upstream spam report failed", "number", number, "error", err)
			}
		}()
	}
	return nil
}

// IsExplicitlyBlocked reports whether the user blocked the number.
func (s *Store) IsExplicitlyBlocked(ctx context.Context, number string) bool {
	blocked, err := s.repo.IsBlocked(ctx, number)
	if err != nil {
		slog.Warn("blocklist check failed", "number", number, "error", err)
		return false
	}
	return blocked
}

// KnownContact returns the saved contact for the number, or nil.
func (s *Store) KnownContact(ctx context.Context, number string) *domain.ContactLabel {
	contact, err := s.repo.GetContact(ctx, number)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Warn("contact lookup failed", "number", number, "error", err)
		}
		return nil
	}
	return contact
}

// AddBlock blocks a number locally and, best effort, upstream.
func (s *Store) AddBlock(ctx context.Context, number string, note string) error {
	if err := s.repo.AddBlock(ctx, number, note); err != nil {
		return err
	}
	if s.backend != nil {
		if err := s.backend.AddBlock(ctx, number, note); err != nil {
			slog.Warn("upstream block failed", "number", number, "error", err)
		}
	}
	return nil
}

// RemoveBlock unblocks a number locally and, best effort, upstream.
func (s *Store) RemoveBlock(ctx context.Context, number string) error {
	if err := s.repo.RemoveBlock(ctx, number); err != nil {
		return err
	}
	if s.backend != nil {
		if err := s.backend.RemoveBlock(ctx, number); err != nil {
			slog.Warn("upstream unblock failed", "number", number, "error", err)
		}
	}
	return nil
}

// ListBlocked returns the local blocklist.
func (s *Store) ListBlocked(ctx context.Context) ([]domain.BlockEntry, error) {
	return s.repo.ListBlocked(ctx)
}

// SaveContact stores a known-contact label.
func (s *Store) SaveContact(ctx context.Context, contact *domain.ContactLabel) error {
	return s.repo.SaveContact(ctx, contact)
}

// SyncBlocklist imports the shared blocklist into the local repository.
// Runs at startup and periodically; partial failure keeps the local list.
func (s *Store) SyncBlocklist(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	entries, err := s.backend.GetBlocklist(ctx)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := s.repo.AddBlock(ctx, e.Number, e.Note); err != nil {
			slog.Warn("blocklist import failed for entry", "number", e.Number, "error", err)
		}
	}

	slog.Info("blocklist synced", "entries", len(entries))
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
