package domain

import (
	"time"
)

// ScreeningAction is the terminal outcome for one call event.
type ScreeningAction string

const (
	// ActionAllow lets the call through untouched.
	ActionAllow ScreeningAction = "ALLOW"

	// ActionScreen passes the call with a warning label attached.
	ActionScreen ScreeningAction = "SCREEN"

	// ActionBlock rejects the call before it rings.
	ActionBlock ScreeningAction = "BLOCK"
)

// ScreeningDecision is the terminal output of the pipeline for one call.
type ScreeningDecision struct {
	ID               string          `json:"id"`
	Identifier       Identifier      `json:"identifier"`
	Action           ScreeningAction `json:"action"`
	CallerLabel      string          `json:"callerLabel"`
	DisplayMessage   string          `json:"displayMessage"`
	Confidence       float64         `json:"confidence"`
	ShouldNotifyUser bool            `json:"shouldNotifyUser"`
	NotificationText string          `json:"notificationText,omitempty"`
	Reasons          []string        `json:"reasons,omitempty"`
	Category         string          `json:"category,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`

	// Analysis is the fused result behind the decision, nil when the
	// policy short-circuited before fusion ran.
	Analysis *AnalysisResult `json:"analysis,omitempty"`
}

// MessageVerdict is the lightweight result for SMS screening.
type MessageVerdict struct {
	IsSpam bool    `json:"isSpam"`
	Score  float64 `json:"score"`
}
