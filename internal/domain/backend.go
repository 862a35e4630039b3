package domain

import (
	"context"
)

// ReputationBackend is the shared community reputation service consumed over
// the network. Failures from this backend mean "no additional signal", never
// a screening failure: the store falls back to its local cache.
type ReputationBackend interface {
	// Lookup fetches the community verdict for a normalized number.
	Lookup(ctx context.Context, number string) (*NumberInfo, error)

	// ReportSpam submits a spam report upstream.
	ReportSpam(ctx context.Context, number string, reason string) error

	// GetBlocklist fetches the shared blocklist.
	GetBlocklist(ctx context.Context) ([]BlockEntry, error)

	// AddBlock adds a number to the shared blocklist.
	AddBlock(ctx context.Context, number string, note string) error

	// RemoveBlock removes a number from the shared blocklist.
	RemoveBlock(ctx context.Context, number string) error
}

// NumberInfo is the community backend's view of one number.
type NumberInfo struct {
	Number    string  `json:"number"`
	Name      string  `json:"name,omitempty"`
	Type      string  `json:"type,omitempty"`
	Location  string  `json:"location,omitempty"`
	SpamScore float64 `json:"spam_score"`
}
