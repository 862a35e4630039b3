package screening

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opencomm/shrike/internal/domain"
)

// Policy turns analysis results into screening actions. Pure and stateless;
// every input combination maps to exactly one action.
type Policy struct {
	cfg domain.ScreeningConfig
}

// NewPolicy creates a screening policy from configuration.
func NewPolicy(cfg domain.ScreeningConfig) *Policy {
	return &Policy{cfg: cfg}
}

// PolicyInput carries the facts the policy decides on.
type PolicyInput struct {
	Identifier domain.Identifier

	// Contact is non-nil when the number is a saved contact.
	Contact *domain.ContactLabel

	// ExplicitlyBlocked is true when the user blocked the number.
	ExplicitlyBlocked bool

	// Analysis is nil when the pipeline short-circuited before fusion.
	Analysis *domain.AnalysisResult
}

// Decide applies the staged policy. Stages run in strict order: saved
// contact, explicit block, block threshold, spam threshold, allow. The
// first matching stage wins.
func (p *Policy) Decide(in PolicyInput) *domain.ScreeningDecision {
	dec := &domain.ScreeningDecision{
		ID:         uuid.New().String(),
		Identifier: in.Identifier,
		Timestamp:  time.Now().UTC(),
		Analysis:   in.Analysis,
	}

	if in.Contact != nil {
		dec.Action = domain.ActionAllow
		dec.CallerLabel = in.Contact.Name
		dec.Confidence = 1.0
		return dec
	}

	if in.ExplicitlyBlocked {
		dec.Action = domain.ActionBlock
		dec.CallerLabel = "Blocked"
		dec.DisplayMessage = "Blocked number"
		dec.Confidence = 1.0
		dec.ShouldNotifyUser = true
		dec.NotificationText = fmt.Sprintf("Blocked call from %s", in.Identifier.Raw)
		dec.Reasons = []string{"explicitly blocked by user"}
		return dec
	}

	if in.Analysis == nil {
		// Pipeline produced nothing; fail open.
		dec.Action = domain.ActionAllow
		dec.Confidence = 0.2
		return dec
	}

	a := in.Analysis
	dec.Confidence = a.Confidence
	dec.Reasons = a.Reasons
	dec.Category = a.Category

	switch {
	case a.FusedScore >= p.cfg.BlockThreshold:
		dec.Action = domain.ActionBlock
		dec.CallerLabel = callerLabel(a)
		dec.DisplayMessage = "Blocked: high-confidence spam"
		dec.ShouldNotifyUser = true
		dec.NotificationText = fmt.Sprintf("Blocked spam call from %s", in.Identifier.Raw)

	case a.FusedScore >= p.cfg.SpamThreshold:
		dec.Action = domain.ActionScreen
		dec.CallerLabel = callerLabel(a)
		dec.DisplayMessage = "Suspected spam caller"

	default:
		dec.Action = domain.ActionAllow
		dec.CallerLabel = allowLabel(a)
	}

	return dec
}

// allowLabel names a caller the policy lets through: reputation name, then
// a source-attributed category, then "unknown". The fused category always
// carries a default bucket, which would mislabel clean callers, so only
// categories backed by reputation or the classifier are shown.
func allowLabel(a *domain.AnalysisResult) string {
	if name := a.Sources.Reputation.CallerName; name != "" {
		return name
	}
	if a.Sources.Reputation.ReportedCategory != "" || a.Sources.ML.CategoryIndex > 0 {
		return a.Category
	}
	return "unknown"
}

func callerLabel(a *domain.AnalysisResult) string {
	if name := a.Sources.Reputation.CallerName; name != "" {
		return name
	}
	if a.Category != "" {
		return "Suspected " + a.Category
	}
	return "Suspected spam"
}
