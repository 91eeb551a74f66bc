// Package extension provides the Forge extension adapter for Tribunal.
//
// It implements the forge.Extension interface to integrate Tribunal
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tribunal" or "tribunal" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	tribunal "github.com/xraph/tribunal"
	"github.com/xraph/tribunal/store"
	"github.com/xraph/tribunal/store/memory"
	"github.com/xraph/tribunal/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tribunal"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Multi-tenant AI governance decision engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Tribunal as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *tribunal.Tribunal
	store      store.Store
	engineOpts []tribunal.Option
}

// New creates a new Tribunal Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Tribunal instance.
// This is nil until Register is called.
func (e *Extension) Engine() *tribunal.Tribunal { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the tribunal engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := tribunal.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*tribunal.Tribunal, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tribunal: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tribunal: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs tribunal.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []tribunal.Option {
	opts := make([]tribunal.Option, 0, len(e.engineOpts)+4)

	if e.config.ReviewThreshold > 0 {
		opts = append(opts, tribunal.WithReviewThreshold(types.Confidence(e.config.ReviewThreshold)))
	}
	if e.config.ConfidencePenalty > 0 {
		opts = append(opts, tribunal.WithConfidencePenalty(types.Confidence(e.config.ConfidencePenalty)))
	}
	if e.config.ModuleTimeout > 0 {
		opts = append(opts, tribunal.WithModuleTimeout(e.config.ModuleTimeout))
	}
	if e.config.AppendMaxTries > 0 {
		opts = append(opts, tribunal.WithAppendRetry(e.config.AppendMaxTries))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tribunal: configuration is required but not found in config files; " +
				"ensure 'extensions.tribunal' or 'tribunal' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tribunal: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("review_threshold", e.config.ReviewThreshold),
		forge.F("confidence_penalty", e.config.ConfidencePenalty),
		forge.F("module_timeout", e.config.ModuleTimeout),
		forge.F("append_max_tries", e.config.AppendMaxTries),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.tribunal" first (namespaced pattern).
	if cm.IsSet("extensions.tribunal") {
		if err := cm.Bind("extensions.tribunal", &cfg); err == nil {
			e.Logger().Debug("tribunal: loaded config from file",
				forge.F("key", "extensions.tribunal"),
			)
			return cfg, true
		}
		e.Logger().Warn("tribunal: failed to bind extensions.tribunal config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "tribunal" key.
	if cm.IsSet("tribunal") {
		if err := cm.Bind("tribunal", &cfg); err == nil {
			e.Logger().Debug("tribunal: loaded config from file",
				forge.F("key", "tribunal"),
			)
			return cfg, true
		}
		e.Logger().Warn("tribunal: failed to bind tribunal config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.ReviewThreshold == 0 {
		cfg.ReviewThreshold = defaults.ReviewThreshold
	}
	if cfg.ConfidencePenalty == 0 {
		cfg.ConfidencePenalty = defaults.ConfidencePenalty
	}
	if cfg.AppendMaxTries == 0 {
		cfg.AppendMaxTries = defaults.AppendMaxTries
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.ReviewThreshold == 0 && programmaticConfig.ReviewThreshold != 0 {
		yamlConfig.ReviewThreshold = programmaticConfig.ReviewThreshold
	}
	if yamlConfig.ConfidencePenalty == 0 && programmaticConfig.ConfidencePenalty != 0 {
		yamlConfig.ConfidencePenalty = programmaticConfig.ConfidencePenalty
	}
	if yamlConfig.ModuleTimeout == 0 && programmaticConfig.ModuleTimeout != 0 {
		yamlConfig.ModuleTimeout = programmaticConfig.ModuleTimeout
	}
	if yamlConfig.AppendMaxTries == 0 && programmaticConfig.AppendMaxTries != 0 {
		yamlConfig.AppendMaxTries = programmaticConfig.AppendMaxTries
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
