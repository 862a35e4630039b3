package domain

import (
	"context"
	"time"
)

// Repository defines the interface for durable state. The reputation store
// and running statistics are the only components with durable state; every
// other entity lives and dies within one screening invocation.
type Repository interface {
	// Reputation verdicts, keyed by normalized number.
	SaveReputation(ctx context.Context, rep *ReputationResult) error
	GetReputation(ctx context.Context, number string) (*ReputationResult, error)
	IncrementReportCount(ctx context.Context, number string, category string) error

	// Explicit block/allow facts.
	AddBlock(ctx context.Context, number string, note string) error
	RemoveBlock(ctx context.Context, number string) error
	IsBlocked(ctx context.Context, number string) (bool, error)
	ListBlocked(ctx context.Context) ([]BlockEntry, error)

	SaveContact(ctx context.Context, contact *ContactLabel) error
	GetContact(ctx context.Context, number string) (*ContactLabel, error)

	// Training records, append-only.
	AppendTrainingRecord(ctx context.Context, rec *TrainingRecord) error
	ListTrainingRecords(ctx context.Context, since time.Time, limit int) ([]*TrainingRecord, error)

	// Running statistics, two monotonic counters.
	IncrementStats(ctx context.Context, flaggedSpam bool) error
	GetStats(ctx context.Context) (RunningStatistics, error)

	// Custom screening rule configurations.
	SaveRuleConfig(ctx context.Context, rule *RuleConfig) error
	ListRuleConfigs(ctx context.Context) ([]*RuleConfig, error)

	// Screening audit log.
	SaveDecision(ctx context.Context, dec *ScreeningDecision) error
	GetDecision(ctx context.Context, id string) (*ScreeningDecision, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// BlockEntry is one explicit blocklist row.
type BlockEntry struct {
	Number string `json:"number"`
	Note   string `json:"note,omitempty"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RuleConfig is one operator-configurable screening rule. The expression is
// a CEL program over the number facts exposed by the pattern analyzer; its
// numeric result, scaled by Delta, is added to the suspicion score.
type RuleConfig struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Expression  string  `json:"expression"`
	Label       string  `json:"label"` // reason label appended when triggered
	Delta       float64 `json:"delta"` // score contribution scale
	Enabled     bool    `json:"enabled"`
}
