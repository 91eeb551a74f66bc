package module

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds a single module invocation unless a registration
// overrides it.
const DefaultTimeout = 5 * time.Second

// Registration binds a module variant to its execution policy.
type Registration struct {
	Module    Module
	Mandatory bool
	Timeout   time.Duration
}

// RegisterOption configures a registration.
type RegisterOption func(*Registration)

// Mandatory marks the module as required: its failure aborts the decision.
func Mandatory() RegisterOption {
	return func(r *Registration) { r.Mandatory = true }
}

// WithTimeout overrides the per-invocation timeout for this module.
func WithTimeout(d time.Duration) RegisterOption {
	return func(r *Registration) { r.Timeout = d }
}

// Registry is the static lookup of module variants.
type Registry struct {
	mu      sync.RWMutex
	entries map[Code]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Code]Registration)}
}

// Register adds a module variant. Re-registering a code replaces the
// previous entry, which lets callers swap a built-in for a custom scorer.
func (r *Registry) Register(m Module, opts ...RegisterOption) {
	reg := Registration{Module: m, Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[m.Code()] = reg
}

// Lookup resolves a registration by code.
func (r *Registry) Lookup(code Code) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[code]
	if !ok {
		return Registration{}, fmt.Errorf("module: no module registered for code %q: %w", code, ErrUnavailable)
	}
	return reg, nil
}

// Codes returns the registered module codes in unspecified order.
func (r *Registry) Codes() []Code {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]Code, 0, len(r.entries))
	for c := range r.entries {
		codes = append(codes, c)
	}
	return codes
}

// Defaults returns a registry populated with the four built-in reference
// modules. Perception and ethical calibration are mandatory for composite
// decisions; the predictive and advisory scorers degrade gracefully.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(NewPerception(), Mandatory())
	r.Register(NewEthicalCalibration(), Mandatory())
	r.Register(NewPredictiveFeedback())
	r.Register(NewAdvisory())
	return r
}
