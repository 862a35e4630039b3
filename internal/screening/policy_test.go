package screening

import (
	"testing"

	"github.com/opencomm/shrike/internal/domain"
)

func testPolicy() *Policy {
	return NewPolicy(domain.DefaultConfig().Screening)
}

func TestDecideKnownContactAlwaysAllows(t *testing.T) {
	p := testPolicy()

	// Even a maximally spammy analysis loses to a saved contact.
	dec := p.Decide(PolicyInput{
		Identifier: domain.NormalizeNumber("+2348001234567"),
		Contact:    &domain.ContactLabel{Name: "Amina", Number: "002348001234567"},
		Analysis:   &domain.AnalysisResult{FusedScore: 1.0, IsSpam: true},
	})

	if dec.Action != domain.ActionAllow {
		t.Errorf("expected ALLOW for known contact, got %s", dec.Action)
	}
	if dec.CallerLabel != "Amina" {
		t.Errorf("expected contact name as label, got %q", dec.CallerLabel)
	}
	if dec.Confidence != 1.0 {
		t.Errorf("expected full confidence, got %f", dec.Confidence)
	}
}

func TestDecideExplicitBlockWins(t *testing.T) {
	p := testPolicy()

	dec := p.Decide(PolicyInput{
		Identifier:        domain.NormalizeNumber("+19005551234"),
		ExplicitlyBlocked: true,
		Analysis:          &domain.AnalysisResult{FusedScore: 0.0},
	})

	if dec.Action != domain.ActionBlock {
		t.Errorf("expected BLOCK for explicitly blocked number, got %s", dec.Action)
	}
	if !dec.ShouldNotifyUser {
		t.Error("expected block notification")
	}
}

func TestDecideThresholdStages(t *testing.T) {
	p := testPolicy()
	id := domain.NormalizeNumber("+2348001234567")

	tests := []struct {
		name  string
		score float64
		want  domain.ScreeningAction
	}{
		{"clean", 0.1, domain.ActionAllow},
		{"just below spam", 0.69, domain.ActionAllow},
		{"at spam threshold", 0.7, domain.ActionScreen},
		{"between thresholds", 0.85, domain.ActionScreen},
		{"at block threshold", 0.9, domain.ActionBlock},
		{"maximal", 1.0, domain.ActionBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := p.Decide(PolicyInput{
				Identifier: id,
				Analysis:   &domain.AnalysisResult{FusedScore: tt.score, Category: "scam"},
			})
			if dec.Action != tt.want {
				t.Errorf("score %.2f: expected %s, got %s", tt.score, tt.want, dec.Action)
			}
		})
	}
}

func TestDecideNilAnalysisFailsOpen(t *testing.T) {
	p := testPolicy()

	dec := p.Decide(PolicyInput{Identifier: domain.NormalizeNumber("+2348001234567")})

	if dec.Action != domain.ActionAllow {
		t.Errorf("expected ALLOW when analysis is missing, got %s", dec.Action)
	}
	if dec.Confidence > 0.3 {
		t.Errorf("expected low confidence, got %f", dec.Confidence)
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	p := testPolicy()
	in := PolicyInput{
		Identifier: domain.NormalizeNumber("+2348001234567"),
		Analysis:   &domain.AnalysisResult{FusedScore: 0.95, Category: "scam"},
	}

	first := p.Decide(in)
	for i := 0; i < 10; i++ {
		if got := p.Decide(in); got.Action != first.Action {
			t.Fatalf("same input produced %s then %s", first.Action, got.Action)
		}
	}
}

func TestDecideAllowLabelFallsBack(t *testing.T) {
	p := testPolicy()
	id := domain.NormalizeNumber("+201064829173")

	tests := []struct {
		name     string
		analysis *domain.AnalysisResult
		want     string
	}{
		{
			"reputation name wins",
			&domain.AnalysisResult{
				FusedScore: 0.2,
				Category:   "telemarketing",
				Sources: domain.SourceBreakdown{
					Reputation: domain.ReputationResult{CallerName: "City Clinic", ReportedCategory: "telemarketing"},
				},
			},
			"City Clinic",
		},
		{
			"reported category without a name",
			&domain.AnalysisResult{
				FusedScore: 0.3,
				Category:   "telemarketing",
				Sources: domain.SourceBreakdown{
					Reputation: domain.ReputationResult{ReportedCategory: "telemarketing"},
				},
			},
			"telemarketing",
		},
		{
			"classifier category without a name",
			&domain.AnalysisResult{
				FusedScore: 0.3,
				Category:   "scam",
				Sources: domain.SourceBreakdown{
					ML: domain.ClassifierPrediction{CategoryIndex: 2},
				},
			},
			"scam",
		},
		{
			"clean caller stays unknown",
			&domain.AnalysisResult{FusedScore: 0.1, Category: "unknown_spam"},
			"unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := p.Decide(PolicyInput{Identifier: id, Analysis: tt.analysis})
			if dec.Action != domain.ActionAllow {
				t.Fatalf("expected ALLOW, got %s", dec.Action)
			}
			if dec.CallerLabel != tt.want {
				t.Errorf("expected label %q, got %q", tt.want, dec.CallerLabel)
			}
		})
	}
}

func TestDecideUsesCallerNameFromReputation(t *testing.T) {
	p := testPolicy()

	dec := p.Decide(PolicyInput{
		Identifier: domain.NormalizeNumber("+2348001234567"),
		Analysis: &domain.AnalysisResult{
			FusedScore: 0.75,
			Category:   "telemarketing",
			Sources: domain.SourceBreakdown{
				Reputation: domain.ReputationResult{CallerName: "Acme Promotions"},
			},
		},
	})

	if dec.Action != domain.ActionScreen {
		t.Fatalf("expected SCREEN, got %s", dec.Action)
	}
	if dec.CallerLabel != "Acme Promotions" {
		t.Errorf("expected reputation caller name, got %q", dec.CallerLabel)
	}
}
