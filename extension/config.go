package extension

import "time"

// Config holds the Tribunal extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tribunal" or "tribunal" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// ReviewThreshold is the aggregate confidence below which decisions are
	// parked for human review (default: 85).
	ReviewThreshold float64 `json:"review_threshold" mapstructure:"review_threshold" yaml:"review_threshold"`

	// ConfidencePenalty is the deduction applied to the aggregate for each
	// optional module excluded from a decision (default: 10).
	ConfidencePenalty float64 `json:"confidence_penalty" mapstructure:"confidence_penalty" yaml:"confidence_penalty"`

	// ModuleTimeout overrides the per-invocation timeout for every scoring
	// module. Zero keeps the per-module registered timeouts.
	ModuleTimeout time.Duration `json:"module_timeout" mapstructure:"module_timeout" yaml:"module_timeout"`

	// AppendMaxTries bounds the ledger append retry budget on decision
	// finalization (default: 5).
	AppendMaxTries uint `json:"append_max_tries" mapstructure:"append_max_tries" yaml:"append_max_tries"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReviewThreshold:   85,
		ConfidencePenalty: 10,
		AppendMaxTries:    5,
	}
}
