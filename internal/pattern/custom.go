package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opencomm/shrike/internal/domain"
)

// CustomRules is the CEL-based engine for operator-configured screening
// rules. Rules are compiled once at load and evaluated on the hot path, so
// load rejects anything that does not produce a numeric or boolean score.
type CustomRules struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*compiledRule
}

type compiledRule struct {
	config  *domain.RuleConfig
	program cel.Program
}

// NewCustomRules creates an empty custom rule engine with the number-fact
// environment.
func NewCustomRules() (*CustomRules, error) {
	env, err := cel.NewEnv(
		cel.Variable("number", cel.StringType),
		cel.Variable("digit_count", cel.IntType),
		cel.Variable("repeat_run", cel.IntType),
		cel.Variable("seq_run", cel.IntType),
		cel.Variable("country_code", cel.StringType),
		cel.Variable("international", cel.BoolType),
		cel.Variable("call_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &CustomRules{
		env:      env,
		compiled: make(map[string]*compiledRule),
	}, nil
}

// ValidateRule compiles a rule without mutating loaded rules.
func (c *CustomRules) ValidateRule(cfg *domain.RuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	_, err := c.compile(cfg)
	return err
}

// LoadRule compiles and loads a single rule.
func (c *CustomRules) LoadRule(cfg *domain.RuleConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	compiled, err := c.compile(cfg)
	if err != nil {
		return err
	}

	c.compiled[cfg.ID] = compiled
	return nil
}

// ReloadRules clears all existing rules and loads new ones. Enables
// hot-reloading from the repository.
func (c *CustomRules) ReloadRules(configs []*domain.RuleConfig) error {
	newRules := make(map[string]*compiledRule)
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := c.compile(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	c.compiled = newRules
	return nil
}

// RuleCount returns the number of loaded rules.
func (c *CustomRules) RuleCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.compiled)
}

// LoadedRules returns the currently loaded rule configurations.
func (c *CustomRules) LoadedRules() []*domain.RuleConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rules := make([]*domain.RuleConfig, 0, len(c.compiled))
	for _, r := range c.compiled {
		rules = append(rules, r.config)
	}
	return rules
}

// Evaluate runs all loaded rules against the number facts and returns the
// summed score delta plus the labels of triggered rules. A rule that errors
// at runtime contributes nothing; screening never fails on a bad rule.
func (c *CustomRules) Evaluate(ctx context.Context, facts map[string]any) (float64, []string) {
	c.mu.RLock()
	rules := make([]*compiledRule, 0, len(c.compiled))
	for _, r := range c.compiled {
		rules = append(rules, r)
	}
	c.mu.RUnlock()

	var delta float64
	var labels []string

	for _, rule := range rules {
		out, _, err := rule.program.Eval(facts)
		if err != nil {
			slog.Warn("custom rule evaluation failed",
				"rule_id", rule.config.ID,
				"error", err,
			)
			continue
		}

		score := toScore(out)
		if score <= 0 {
			continue
		}

		delta += score * rule.config.Delta
		if rule.config.Label != "" {
			labels = append(labels, rule.config.Label)
		}
	}

	return delta, labels
}

func (c *CustomRules) compile(cfg *domain.RuleConfig) (*compiledRule, error) {
	ast, issues := c.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &compiledRule{config: cfg, program: program}, nil
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}
