// Package pattern provides the rule-based heuristic analyzer. It runs inline
// on the screening hot path, so every rule is deterministic and O(length).
package pattern

import (
	"context"
	"strings"

	"github.com/opencomm/shrike/internal/domain"
	"github.com/opencomm/shrike/internal/feature"
)

// Heuristic confidence assigned to pattern results. The analyzer has no
// notion of its own accuracy, so this is a fixed prior the fusion engine can
// down-weight.
const patternConfidence = 0.7

// Reason labels appended by the built-in rules.
const (
	LabelShortNumber     = "abnormally short number"
	LabelLongNumber      = "abnormally long number"
	LabelRepeatedDigits  = "long repeated digit run"
	LabelAscendingDigits = "ascending digit sequence"
	LabelInternational   = "international"
	LabelSuspiciousCode  = "suspicious country code"
	LabelPremiumPrefix   = "premium rate prefix"
	LabelSpamKeywords    = "spam keywords"
)

// textSpamThreshold marks a message as spam in the standalone text variant.
const textSpamThreshold = 0.3

// keywordHitDelta is the fixed score increment per keyword hit.
const keywordHitDelta = 0.15

// Analyzer scores identifiers against a fixed ordered rule list plus any
// loaded custom rules.
type Analyzer struct {
	denyListedCodes []string
	keywords        []string
	custom          *CustomRules
	velocity        VelocityGetter
}

// VelocityGetter returns the recent screening count for a number, exposed to
// custom rules as call_count. Failures degrade to 0.
type VelocityGetter func(ctx context.Context, number string) int64

// NewAnalyzer creates an analyzer from the screening configuration.
func NewAnalyzer(cfg domain.ScreeningConfig, custom *CustomRules, velocity VelocityGetter) *Analyzer {
	var kws []string
	for _, words := range cfg.SpamKeywords {
		for _, w := range words {
			kws = append(kws, strings.ToLower(w))
		}
	}
	return &Analyzer{
		denyListedCodes: cfg.SuspiciousCountryCodes,
		keywords:        kws,
		custom:          custom,
		velocity:        velocity,
	}
}

// Analyze runs the ordered rule list and returns a fresh result. Additive
// deltas are capped at 1.0.
func (a *Analyzer) Analyze(ctx context.Context, id domain.Identifier) domain.PatternResult {
	if id.Kind == domain.KindText {
		return a.analyzeText(id)
	}
	return a.analyzeNumber(ctx, id)
}

// ClassifyText is the standalone text variant used by message screening
// outside the full call pipeline.
func (a *Analyzer) ClassifyText(text string) domain.MessageVerdict {
	res := a.analyzeText(domain.NormalizeText(text))
	return domain.MessageVerdict{
		IsSpam: res.SuspicionScore >= textSpamThreshold,
		Score:  res.SuspicionScore,
	}
}

func (a *Analyzer) analyzeNumber(ctx context.Context, id domain.Identifier) domain.PatternResult {
	digits := id.Normalized
	score := 0.0
	var labels []string

	trigger := func(delta float64, label string) {
		score += delta
		labels = append(labels, label)
	}

	switch {
	case len(digits) < 7:
		trigger(0.5, LabelShortNumber)
	case len(digits) > 15:
		trigger(0.3, LabelLongNumber)
	}

	if feature.LongestRepeatRun(digits) >= 5 {
		trigger(0.3, LabelRepeatedDigits)
	}
	if feature.LongestAscendingRun(digits) >= 4 {
		trigger(0.2, LabelAscendingDigits)
	}

	if id.IsInternational() {
		labels = append(labels, LabelInternational)
		if a.isDenyListed(id.CountryCode()) {
			trigger(0.4, LabelSuspiciousCode)
		}
	}

	if strings.HasPrefix(digits, "900") {
		trigger(0.3, LabelPremiumPrefix)
	}

	if a.custom != nil {
		delta, customLabels := a.custom.Evaluate(ctx, a.facts(ctx, id))
		score += delta
		labels = append(labels, customLabels...)
	}

	return domain.PatternResult{
		Identifier:       id,
		SuspicionScore:   cap1(score),
		DetectedPatterns: labels,
		Confidence:       patternConfidence,
	}
}

func (a *Analyzer) analyzeText(id domain.Identifier) domain.PatternResult {
	score := 0.0
	var labels []string

	hits := 0
	for _, kw := range a.keywords {
		if strings.Contains(id.Normalized, kw) {
			hits++
			score += keywordHitDelta
		}
	}
	if hits > 0 {
		labels = append(labels, LabelSpamKeywords)
	}

	return domain.PatternResult{
		Identifier:       id,
		SuspicionScore:   cap1(score),
		DetectedPatterns: labels,
		Confidence:       patternConfidence,
	}
}

// facts builds the activation map handed to custom CEL rules.
func (a *Analyzer) facts(ctx context.Context, id domain.Identifier) map[string]any {
	var callCount int64
	if a.velocity != nil {
		callCount = a.velocity(ctx, id.Normalized)
	}
	return map[string]any{
		"number":        id.Normalized,
		"digit_count":   int64(len(id.Normalized)),
		"repeat_run":    int64(feature.LongestRepeatRun(id.Normalized)),
		"seq_run":       int64(feature.LongestAscendingRun(id.Normalized)),
		"country_code":  id.CountryCode(),
		"international": id.IsInternational(),
		"call_count":    callCount,
	}
}

func (a *Analyzer) isDenyListed(code string) bool {
	for _, denied := range a.denyListedCodes {
		if strings.HasPrefix(code, denied) {
			return true
		}
	}
	return false
}

func cap1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
