package feature

import (
	"testing"

	"github.com/opencomm/shrike/internal/domain"
)

func TestExtractIsDeterministic(t *testing.T) {
	e := NewExtractor(domain.DefaultSpamKeywords())
	id := domain.NormalizeNumber("+20 100 555 1234")

	a := e.Extract(id)
	b := e.Extract(id)
	if a != b {
		t.Error("expected identical vectors for identical input")
	}
}

func TestExtractNumberFeatures(t *testing.T) {
	e := NewExtractor(domain.DefaultSpamKeywords())

	id := domain.NormalizeNumber("+234800123456")
	v := e.Extract(id)

	if v[slotInternational] != 1 {
		t.Errorf("expected international flag set, got %v", v[slotInternational])
	}
	if v[slotDigitCount] <= 0 {
		t.Errorf("expected positive digit count feature, got %v", v[slotDigitCount])
	}
	if v[slotAscendingRun] <= 0 {
		t.Errorf("expected ascending run feature from 123456, got %v", v[slotAscendingRun])
	}
}

func TestExtractMalformedInput(t *testing.T) {
	e := NewExtractor(domain.DefaultSpamKeywords())

	// Normalization is total; garbage yields a well-formed low-information
	// vector, never a panic.
	v := e.Extract(domain.NormalizeNumber("not-a-number!!"))
	for i, f := range v {
		if f < 0 || f > 1 {
			t.Errorf("feature %d out of range: %v", i, f)
		}
	}
}

func TestExtractTextKeywords(t *testing.T) {
	e := NewExtractor(domain.DefaultSpamKeywords())

	spam := e.Extract(domain.NormalizeText("You won a free prize, click now!"))
	ham := e.Extract(domain.NormalizeText("Hello, see you at 5"))

	if spam[slotKeywordHits] <= ham[slotKeywordHits] {
		t.Errorf("expected more keyword hits for spam text: spam=%v ham=%v",
			spam[slotKeywordHits], ham[slotKeywordHits])
	}
}

func TestLongestRepeatRun(t *testing.T) {
	tests := []struct {
		digits string
		want   int
	}{
		{"", 0},
		{"5", 1},
		{"123456", 1},
		{"11222", 3},
		{"99999", 5},
	}

	for _, tt := range tests {
		if got := LongestRepeatRun(tt.digits); got != tt.want {
			t.Errorf("LongestRepeatRun(%q) = %d, want %d", tt.digits, got, tt.want)
		}
	}
}

func TestLongestAscendingRun(t *testing.T) {
	tests := []struct {
		digits string
		want   int
	}{
		{"", 0},
		{"7", 1},
		{"1357", 1},
		{"4567", 4},
		{"98123456", 6},
	}

	for _, tt := range tests {
		if got := LongestAscendingRun(tt.digits); got != tt.want {
			t.Errorf("LongestAscendingRun(%q) = %d, want %d", tt.digits, got, tt.want)
		}
	}
}

func TestVectorLengthIsFixed(t *testing.T) {
	e := NewExtractor(nil)
	v := e.Extract(domain.NormalizeNumber("12345"))
	if len(v) != domain.FeatureVectorSize {
		t.Fatalf("expected vector length %d, got %d", domain.FeatureVectorSize, len(v))
	}
}
