package pattern

import (
	"context"
	"testing"

	"github.com/opencomm/shrike/internal/domain"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return NewAnalyzer(domain.DefaultConfig().Screening, nil, nil)
}

func TestClassifyTextSpam(t *testing.T) {
	a := newTestAnalyzer(t)

	v := a.ClassifyText("You won a free prize, click now!")
	if !v.IsSpam {
		t.Error("expected spam verdict")
	}
	if v.Score < 0.3 {
		t.Errorf("expected score >= 0.3, got %v", v.Score)
	}
}

func TestClassifyTextClean(t *testing.T) {
	a := newTestAnalyzer(t)

	v := a.ClassifyText("Hello, see you at 5")
	if v.IsSpam {
		t.Error("expected clean verdict")
	}
	if v.Score >= 0.3 {
		t.Errorf("expected score < 0.3, got %v", v.Score)
	}
}

func TestClassifyTextBilingual(t *testing.T) {
	a := newTestAnalyzer(t)

	v := a.ClassifyText("ربحت جائزة! اضغط هنا")
	if !v.IsSpam {
		t.Errorf("expected arabic keywords to trigger spam, score %v", v.Score)
	}
}

func TestAnalyzeNumberRules(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		number    string
		wantLabel string
		minScore  float64
	}{
		{"short number", "12345", LabelShortNumber, 0.5},
		{"long number", "12345678901234567890", LabelLongNumber, 0.3},
		{"repeated digits", "20555559876", LabelRepeatedDigits, 0.3},
		{"ascending sequence", "20123456789", LabelAscendingDigits, 0.2},
		{"suspicious country code", "+2348001112223", LabelSuspiciousCode, 0.4},
		{"premium prefix", "9001234567", LabelPremiumPrefix, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Analyze(ctx, domain.NormalizeNumber(tt.number))

			if res.SuspicionScore < tt.minScore {
				t.Errorf("score %v below %v", res.SuspicionScore, tt.minScore)
			}
			if !containsLabel(res.DetectedPatterns, tt.wantLabel) {
				t.Errorf("expected label %q in %v", tt.wantLabel, res.DetectedPatterns)
			}
		})
	}
}

func TestAnalyzeCleanNumber(t *testing.T) {
	a := newTestAnalyzer(t)

	res := a.Analyze(context.Background(), domain.NormalizeNumber("201064829173"))
	if res.SuspicionScore != 0 {
		t.Errorf("expected zero score for clean number, got %v (%v)",
			res.SuspicionScore, res.DetectedPatterns)
	}
}

func TestAnalyzeScoreCapped(t *testing.T) {
	a := newTestAnalyzer(t)

	// Short + repeated digits + deny-listed code stacks past 1.0 uncapped.
	res := a.Analyze(context.Background(), domain.NormalizeNumber("+23444444"))
	if res.SuspicionScore > 1.0 {
		t.Errorf("score must be capped at 1.0, got %v", res.SuspicionScore)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()
	id := domain.NormalizeNumber("+2348001234567")

	first := a.Analyze(ctx, id)
	second := a.Analyze(ctx, id)

	if first.SuspicionScore != second.SuspicionScore {
		t.Error("expected identical scores across invocations")
	}
	if len(first.DetectedPatterns) != len(second.DetectedPatterns) {
		t.Error("expected identical labels across invocations")
	}
}

func TestCustomRuleContributes(t *testing.T) {
	custom, err := NewCustomRules()
	if err != nil {
		t.Fatalf("failed to create custom rules: %v", err)
	}

	rule := &domain.RuleConfig{
		ID:         "velocity-burst",
		Name:       "Velocity Burst",
		Expression: "call_count > 10",
		Label:      "call burst",
		Delta:      0.3,
		Enabled:    true,
	}
	if err := custom.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	velocity := func(ctx context.Context, number string) int64 { return 25 }
	a := NewAnalyzer(domain.DefaultConfig().Screening, custom, velocity)

	res := a.Analyze(context.Background(), domain.NormalizeNumber("201064829173"))
	if res.SuspicionScore < 0.3 {
		t.Errorf("expected custom rule delta, got %v", res.SuspicionScore)
	}
	if !containsLabel(res.DetectedPatterns, "call burst") {
		t.Errorf("expected custom rule label in %v", res.DetectedPatterns)
	}
}

func TestCustomRuleRejectsInvalidExpression(t *testing.T) {
	custom, _ := NewCustomRules()

	err := custom.LoadRule(&domain.RuleConfig{
		ID:         "broken",
		Expression: "this is not CEL !!!",
		Enabled:    true,
	})
	if err == nil {
		t.Error("expected compile error for invalid expression")
	}
}

func TestCustomRulesReload(t *testing.T) {
	custom, _ := NewCustomRules()

	rules := []*domain.RuleConfig{
		{ID: "r1", Expression: "repeat_run >= 6", Label: "r1", Delta: 0.2, Enabled: true},
		{ID: "r2", Expression: "digit_count < 5", Label: "r2", Delta: 0.2, Enabled: true},
		{ID: "r3", Expression: "true", Label: "r3", Delta: 0.2, Enabled: false},
	}
	if err := custom.ReloadRules(rules); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if custom.RuleCount() != 2 {
		t.Errorf("expected 2 enabled rules, got %d", custom.RuleCount())
	}
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
