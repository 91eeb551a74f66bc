package extension

import (
	"time"

	tribunal "github.com/xraph/tribunal"
	"github.com/xraph/tribunal/plugin"
	"github.com/xraph/tribunal/store"
)

// Option configures the Tribunal Forge extension.
type Option func(*Extension)

// WithStore sets the store for the tribunal engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTribunalOption passes a tribunal.Option through to the underlying engine.
func WithTribunalOption(opt tribunal.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a tribunal plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, tribunal.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithReviewThreshold sets the confidence threshold for the review gate.
func WithReviewThreshold(threshold float64) Option {
	return func(e *Extension) { e.config.ReviewThreshold = threshold }
}

// WithConfidencePenalty sets the per-exclusion aggregate deduction.
func WithConfidencePenalty(penalty float64) Option {
	return func(e *Extension) { e.config.ConfidencePenalty = penalty }
}

// WithModuleTimeout overrides the per-invocation timeout for every module.
func WithModuleTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.ModuleTimeout = d }
}

// WithAppendMaxTries bounds the ledger append retry budget.
func WithAppendMaxTries(n uint) Option {
	return func(e *Extension) { e.config.AppendMaxTries = n }
}
