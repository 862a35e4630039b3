package domain

import (
	"time"
)

// FeatureVectorSize is the fixed input width agreed between the feature
// extractor and the classifier. Unused slots hold 0.0.
const FeatureVectorSize = 50

// FeatureVector is the fixed-length numeric representation of an identifier.
type FeatureVector [FeatureVectorSize]float64

// PatternResult is the heuristic analyzer output for one identifier.
// Produced fresh per screening, never persisted.
type PatternResult struct {
	Identifier       Identifier `json:"identifier"`
	SuspicionScore   float64    `json:"suspicionScore"` // [0,1]
	DetectedPatterns []string   `json:"detectedPatterns"`
	Confidence       float64    `json:"confidence"` // [0,1]
}

// ReputationResult is the community-reputation lookup output.
type ReputationResult struct {
	Identifier       Identifier `json:"identifier"`
	SpamScore        float64    `json:"spamScore"` // [0,1]
	ReportCount      int64      `json:"reportCount"`
	ReportedCategory string     `json:"reportedCategory,omitempty"`
	CallerName       string     `json:"callerName,omitempty"`
	Confidence       float64    `json:"confidence"` // [0,1]
}

// ClassifierPrediction is the learned model output for one feature vector.
type ClassifierPrediction struct {
	SpamProbability float64 `json:"spamProbability"` // [0,1]
	CategoryIndex   int     `json:"categoryIndex"`
	ModelConfidence float64 `json:"modelConfidence"` // [0,1]
}

// SourceBreakdown carries the three analyzer inputs through to the fused
// result for audit and debugging.
type SourceBreakdown struct {
	Pattern    PatternResult        `json:"pattern"`
	Reputation ReputationResult     `json:"reputation"`
	ML         ClassifierPrediction `json:"ml"`
}

// AnalysisResult is the fusion engine output, the unit handed to the
// screening policy.
type AnalysisResult struct {
	Identifier Identifier      `json:"identifier"`
	IsSpam     bool            `json:"isSpam"`
	Confidence float64         `json:"confidence"` // [0,1]
	FusedScore float64         `json:"fusedScore"` // [0,1]
	Category   string          `json:"category"`
	Reasons    []string        `json:"reasons"`
	Sources    SourceBreakdown `json:"sources"`
}

// TrainingRecord is one user/system correction, append-only, consumed by the
// retraining job, never by the screening hot path.
type TrainingRecord struct {
	ID              string        `json:"id"`
	Identifier      Identifier    `json:"identifier"`
	UserLabeledSpam bool          `json:"userLabeledSpam"`
	UserCategory    string        `json:"userCategory,omitempty"`
	Features        FeatureVector `json:"features"`
	Timestamp       time.Time     `json:"timestamp"`
}

// RunningStatistics holds the engine's monotonically-updated counters.
type RunningStatistics struct {
	TotalAnalyzed    int64 `json:"totalAnalyzed"`
	TotalFlaggedSpam int64 `json:"totalFlaggedSpam"`
}

// DetectionRate returns flagged/analyzed, 0 when nothing was analyzed.
func (s RunningStatistics) DetectionRate() float64 {
	if s.TotalAnalyzed == 0 {
		return 0
	}
	return float64(s.TotalFlaggedSpam) / float64(s.TotalAnalyzed)
}

// ContactLabel is the saved-contact fact returned by the reputation store.
type ContactLabel struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}
