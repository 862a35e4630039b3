package domain

import (
	"fmt"
	"time"
)

// Config holds the complete Shrike configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Screening engine tunables
	Screening ScreeningConfig `json:"screening"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Backend    BackendConfig    `json:"backend"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ScreeningConfig holds the decision-engine tunables.
type ScreeningConfig struct {
	// SpamThreshold marks a fused score as spam (Screen).
	SpamThreshold float64 `json:"spamThreshold"`

	// BlockThreshold marks a fused score as high-confidence spam (Block).
	BlockThreshold float64 `json:"blockThreshold"`

	// Fusion base weights; must sum to 1.
	PatternWeight    float64 `json:"patternWeight"`
	ReputationWeight float64 `json:"reputationWeight"`
	MLWeight         float64 `json:"mlWeight"`

	// Adaptive confidence weighting. A source whose own confidence exceeds
	// DominanceThreshold gets DominantWeight in the confidence blend, the
	// other two get MinorWeight each. Calibration parameters, not invariants.
	DominanceThreshold float64 `json:"dominanceThreshold"`
	DominantWeight     float64 `json:"dominantWeight"`
	MinorWeight        float64 `json:"minorWeight"`

	// PipelineTimeout bounds one whole screening invocation. On expiry the
	// policy fails open to Allow.
	PipelineTimeout time.Duration `json:"pipelineTimeout"`

	// SuspiciousCountryCodes is the international-prefix deny list.
	SuspiciousCountryCodes []string `json:"suspiciousCountryCodes"`

	// SpamKeywords is the per-language keyword lexicon for text screening.
	SpamKeywords map[string][]string `json:"spamKeywords"`

	// ModelPath points at the classifier weights file. Empty means the
	// classifier runs degraded.
	ModelPath string `json:"modelPath"`

	// MaxConcurrentScreenings bounds the screening worker pool.
	MaxConcurrentScreenings int `json:"maxConcurrentScreenings"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	Endpoint    string `json:"endpoint"`
}

// BackendConfig holds the community reputation backend settings.
type BackendConfig struct {
	// BaseURL of the shared reputation service. Empty disables the remote
	// backend and the store runs local-only.
	BaseURL string `json:"baseUrl"`

	// RequestTimeout for one backend call. Must stay well under the
	// screening pipeline timeout.
	RequestTimeout time.Duration `json:"requestTimeout"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity is the single-node tier with SQLite + channels.
	TierCommunity Tier = "community"

	// TierPro is the shared tier with PostgreSQL + NATS + Redis.
	TierPro Tier = "pro"
)

// DefaultSpamKeywords is the built-in bilingual lexicon used for message
// screening when no custom lexicon is configured.
func DefaultSpamKeywords() map[string][]string {
	return map[string][]string{
		"en": {"win", "prize", "click", "free", "loan", "credit", "bitcoin", "crypto"},
		"ar": {"ربحت", "جائزة", "اضغط", "مجاني", "قرض", "بطاقة", "بتكوين", "عملات"},
	}
}

// DefaultSuspiciousCountryCodes is the built-in international-prefix deny
// list, drawn from observed spam-origin calling codes.
func DefaultSuspiciousCountryCodes() []string {
	return []string{"234", "233", "254", "880", "977", "92"}
}

// DefaultConfig returns a default configuration for the Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Screening: ScreeningConfig{
			SpamThreshold:           0.7,
			BlockThreshold:          0.9,
			PatternWeight:           0.3,
			ReputationWeight:        0.4,
			MLWeight:                0.3,
			DominanceThreshold:      0.8,
			DominantWeight:          0.6,
			MinorWeight:             0.2,
			PipelineTimeout:         2 * time.Second,
			SuspiciousCountryCodes:  DefaultSuspiciousCountryCodes(),
			SpamKeywords:            DefaultSpamKeywords(),
			MaxConcurrentScreenings: 32,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./shrike.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Backend: BackendConfig{
			RequestTimeout: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "shrike",
		},
	}
}

// ProConfig returns a configuration for the Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "shrike",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// Validate rejects configurations the engine must not start with. This is
// the only failure allowed to surface at initialization.
func (c *Config) Validate() error {
	s := c.Screening

	if s.SpamThreshold <= 0 || s.SpamThreshold > 1 {
		return fmt.Errorf("spam threshold must be in (0,1], got %v", s.SpamThreshold)
	}
	if s.BlockThreshold <= 0 || s.BlockThreshold > 1 {
		return fmt.Errorf("block threshold must be in (0,1], got %v", s.BlockThreshold)
	}
	if s.BlockThreshold < s.SpamThreshold {
		return fmt.Errorf("block threshold %v must not be below spam threshold %v", s.BlockThreshold, s.SpamThreshold)
	}
	if s.PatternWeight < 0 || s.ReputationWeight < 0 || s.MLWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	sum := s.PatternWeight + s.ReputationWeight + s.MLWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("fusion weights must sum to 1, got %v", sum)
	}
	if s.PipelineTimeout <= 0 {
		return fmt.Errorf("pipeline timeout must be positive, got %v", s.PipelineTimeout)
	}
	if s.DominanceThreshold <= 0 || s.DominanceThreshold > 1 {
		return fmt.Errorf("dominance threshold must be in (0,1], got %v", s.DominanceThreshold)
	}
	if s.MaxConcurrentScreenings <= 0 {
		return fmt.Errorf("max concurrent screenings must be positive, got %d", s.MaxConcurrentScreenings)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	return nil
}
