// Package fusion combines the pattern, reputation, and classifier signals
// into one calibrated analysis result.
package fusion

import (
	"fmt"

	"github.com/opencomm/shrike/internal/domain"
)

// Category names resolved from the classifier's category index.
const (
	CategoryTelemarketing = "telemarketing"
	CategoryScam          = "scam"
	CategoryInternational = "international_spam"
	CategoryUnknown       = "unknown_spam"
)

// Engine fuses analyzer outputs using fixed base weights for the score and
// adaptive weights for the confidence blend. Reputation carries the highest
// base weight: community confirmation is the strongest signal.
type Engine struct {
	cfg domain.ScreeningConfig
}

// NewEngine creates a fusion engine from the screening configuration.
func NewEngine(cfg domain.ScreeningConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Fuse combines the three source results for one identifier.
func (e *Engine) Fuse(id domain.Identifier, pattern domain.PatternResult, reputation domain.ReputationResult, ml domain.ClassifierPrediction) domain.AnalysisResult {
	fused := clamp01(pattern.SuspicionScore*e.cfg.PatternWeight +
		reputation.SpamScore*e.cfg.ReputationWeight +
		ml.SpamProbability*e.cfg.MLWeight)

	return domain.AnalysisResult{
		Identifier: id,
		IsSpam:     fused >= e.cfg.SpamThreshold,
		Confidence: e.blendConfidence(pattern.Confidence, reputation.Confidence, ml.ModelConfidence),
		FusedScore: fused,
		Category:   resolveCategory(pattern, reputation, ml),
		Reasons:    collectReasons(pattern, reputation, ml),
		Sources: domain.SourceBreakdown{
			Pattern:    pattern,
			Reputation: reputation,
			ML:         ml,
		},
	}
}

// blendConfidence recomputes confidence with adaptive weights: a single
// source above the dominance threshold should not be diluted by two weaker
// signals. Precedence when several dominate follows the base-weight order,
// reputation first.
func (e *Engine) blendConfidence(pattern, reputation, ml float64) float64 {
	dominant, minor := e.cfg.DominantWeight, e.cfg.MinorWeight

	var wp, wr, wm float64
	switch {
	case reputation > e.cfg.DominanceThreshold:
		wp, wr, wm = minor, dominant, minor
	case ml > e.cfg.DominanceThreshold:
		wp, wr, wm = minor, minor, dominant
	case pattern > e.cfg.DominanceThreshold:
		wp, wr, wm = dominant, minor, minor
	default:
		wp, wr, wm = 0.33, 0.34, 0.33
	}

	return clamp01(pattern*wp + reputation*wr + ml*wm)
}

// resolveCategory picks the final category: community-reported first, then
// the ML category mapping, then the pattern international flag.
func resolveCategory(pattern domain.PatternResult, reputation domain.ReputationResult, ml domain.ClassifierPrediction) string {
	switch {
	case reputation.ReportedCategory != "":
		return reputation.ReportedCategory
	case ml.CategoryIndex == 1:
		return CategoryTelemarketing
	case ml.CategoryIndex == 2:
		return CategoryScam
	case hasLabel(pattern.DetectedPatterns, "international"):
		return CategoryInternational
	default:
		return CategoryUnknown
	}
}

// collectReasons unions the pattern labels with report-count and
// ML-detection labels, in that order.
func collectReasons(pattern domain.PatternResult, reputation domain.ReputationResult, ml domain.ClassifierPrediction) []string {
	reasons := make([]string, 0, len(pattern.DetectedPatterns)+2)
	reasons = append(reasons, pattern.DetectedPatterns...)

	if reputation.ReportCount > 0 {
		reasons = append(reasons, fmt.Sprintf("reported %d times by the community", reputation.ReportCount))
	}
	if ml.SpamProbability > 0.5 {
		reasons = append(reasons, "flagged by spam model")
	}
	return reasons
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
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
