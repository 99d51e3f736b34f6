package interact

import "time"

// Config defines the interaction retry settings. The strategy list and the
// timeouts are configurable defaults, not fixed contracts.
type Config struct {
	AttemptTimeoutMS int `yaml:"attempt_timeout_ms" env:"INTERACT_ATTEMPT_TIMEOUT_MS"`
	TotalBudgetMS    int `yaml:"total_budget_ms" env:"INTERACT_TOTAL_BUDGET_MS"`
	// Strategies optionally overrides the order and subset of click
	// strategies, by name.
	Strategies []string `yaml:"strategies,omitempty"`
}

// Options translates the config into per-call options.
func (c *Config) Options() Options {
	opts := Options{}
	if c == nil {
		return opts
	}
	if c.AttemptTimeoutMS > 0 {
		opts.AttemptTimeout = time.Duration(c.AttemptTimeoutMS) * time.Millisecond
	}
	if c.TotalBudgetMS > 0 {
		opts.TotalBudget = time.Duration(c.TotalBudgetMS) * time.Millisecond
	}
	return opts
}

// StrategyNames returns the configured strategy order, or nil if the default
// order should be used.
func (c *Config) StrategyNames() []string {
	if c == nil {
		return nil
	}
	return c.Strategies
}
