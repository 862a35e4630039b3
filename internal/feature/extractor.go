// Package feature turns identifiers into fixed-size numeric vectors for the
// classifier.
package feature

import (
	"strings"

	"github.com/opencomm/shrike/internal/domain"
)

// Feature slot assignments. The classifier's model file is trained against
// these positions; reserved slots stay 0.0 so the input shape never changes.
const (
	slotDigitCount    = 0
	slotInternational = 1
	slotRepeatRun     = 2
	slotAscendingRun  = 3
	slotDigitVariance = 4
	slotPremiumPrefix = 5
	slotTollFree      = 6
	slotKeywordHits   = 7
	slotTextLength    = 8
)

// Extractor computes feature vectors. Pure and deterministic: no I/O, no
// failure mode; malformed input yields a low-information vector.
type Extractor struct {
	keywords []string
}

// NewExtractor creates an extractor with the given flattened keyword lexicon.
func NewExtractor(lexicon map[string][]string) *Extractor {
	var kws []string
	for _, words := range lexicon {
		for _, w := range words {
			kws = append(kws, strings.ToLower(w))
		}
	}
	return &Extractor{keywords: kws}
}

// Extract maps an identifier to its feature vector.
func (e *Extractor) Extract(id domain.Identifier) domain.FeatureVector {
	var v domain.FeatureVector

	if id.Kind == domain.KindText {
		text := id.Normalized
		v[slotKeywordHits] = float64(e.countKeywordHits(text))
		v[slotTextLength] = normalize(float64(len(text)), 320)
		return v
	}

	digits := id.Normalized
	v[slotDigitCount] = normalize(float64(len(digits)), 15)
	if id.IsInternational() {
		v[slotInternational] = 1
	}
	v[slotRepeatRun] = normalize(float64(LongestRepeatRun(digits)), 10)
	v[slotAscendingRun] = normalize(float64(LongestAscendingRun(digits)), 10)
	v[slotDigitVariance] = digitVariance(digits)
	if strings.HasPrefix(digits, "900") {
		v[slotPremiumPrefix] = 1
	}
	if strings.HasPrefix(digits, "800") {
		v[slotTollFree] = 1
	}

	return v
}

func (e *Extractor) countKeywordHits(text string) int {
	hits := 0
	for _, kw := range e.keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}

// LongestRepeatRun returns the length of the longest run of one repeated
// digit. Empty input returns 0.
func LongestRepeatRun(digits string) int {
	if digits == "" {
		return 0
	}
	best, run := 1, 1
	for i := 1; i < len(digits); i++ {
		if digits[i] == digits[i-1] {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// LongestAscendingRun returns the length of the longest strictly ascending
// digit sequence (e.g. "4567" → 4). Empty input returns 0.
func LongestAscendingRun(digits string) int {
	if digits == "" {
		return 0
	}
	best, run := 1, 1
	for i := 1; i < len(digits); i++ {
		if digits[i] == digits[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// digitVariance measures how unevenly digits are distributed; near 0 for a
// balanced number, near 1 when one digit dominates.
func digitVariance(digits string) float64 {
	if len(digits) < 2 {
		return 0
	}
	var counts [10]int
	for i := 0; i < len(digits); i++ {
		d := digits[i]
		if d >= '0' && d <= '9' {
			counts[d-'0']++
		}
	}
	mean := float64(len(digits)) / 10.0
	var variance float64
	for _, c := range counts {
		diff := float64(c) - mean
		variance += diff * diff
	}
	variance /= 10.0
	return clamp(variance / float64(len(digits)))
}

func normalize(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clamp(v / max)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
