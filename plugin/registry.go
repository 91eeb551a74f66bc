package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/module"
	"github.com/xraph/tribunal/tenant"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onDecisionExecuted  []OnDecisionExecuted
	onDecisionFinalized []OnDecisionFinalized
	onDecisionRejected  []OnDecisionRejected
	onModuleFailed      []OnModuleFailed
	onReviewRequested   []OnReviewRequested
	onReviewResolved    []OnReviewResolved
	onTenantCreated     []OnTenantCreated
	onPlanChanged       []OnPlanChanged
	onQuotaExceeded     []OnQuotaExceeded
	onAuditAppended     []OnAuditAppended
	onChainViolation    []OnChainViolation
	onPipelineTimed     []OnPipelineTimed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnDecisionExecuted); ok {
		r.onDecisionExecuted = append(r.onDecisionExecuted, v)
	}
	if v, ok := p.(OnDecisionFinalized); ok {
		r.onDecisionFinalized = append(r.onDecisionFinalized, v)
	}
	if v, ok := p.(OnDecisionRejected); ok {
		r.onDecisionRejected = append(r.onDecisionRejected, v)
	}
	if v, ok := p.(OnModuleFailed); ok {
		r.onModuleFailed = append(r.onModuleFailed, v)
	}
	if v, ok := p.(OnReviewRequested); ok {
		r.onReviewRequested = append(r.onReviewRequested, v)
	}
	if v, ok := p.(OnReviewResolved); ok {
		r.onReviewResolved = append(r.onReviewResolved, v)
	}
	if v, ok := p.(OnTenantCreated); ok {
		r.onTenantCreated = append(r.onTenantCreated, v)
	}
	if v, ok := p.(OnPlanChanged); ok {
		r.onPlanChanged = append(r.onPlanChanged, v)
	}
	if v, ok := p.(OnQuotaExceeded); ok {
		r.onQuotaExceeded = append(r.onQuotaExceeded, v)
	}
	if v, ok := p.(OnAuditAppended); ok {
		r.onAuditAppended = append(r.onAuditAppended, v)
	}
	if v, ok := p.(OnChainViolation); ok {
		r.onChainViolation = append(r.onChainViolation, v)
	}
	if v, ok := p.(OnPipelineTimed); ok {
		r.onPipelineTimed = append(r.onPipelineTimed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnDecisionExecuted)(nil)).Elem(), "OnDecisionExecuted")
	checkInterface(reflect.TypeOf((*OnDecisionFinalized)(nil)).Elem(), "OnDecisionFinalized")
	checkInterface(reflect.TypeOf((*OnDecisionRejected)(nil)).Elem(), "OnDecisionRejected")
	checkInterface(reflect.TypeOf((*OnReviewRequested)(nil)).Elem(), "OnReviewRequested")
	checkInterface(reflect.TypeOf((*OnReviewResolved)(nil)).Elem(), "OnReviewResolved")
	checkInterface(reflect.TypeOf((*OnTenantCreated)(nil)).Elem(), "OnTenantCreated")
	checkInterface(reflect.TypeOf((*OnQuotaExceeded)(nil)).Elem(), "OnQuotaExceeded")
	checkInterface(reflect.TypeOf((*OnAuditAppended)(nil)).Elem(), "OnAuditAppended")
	checkInterface(reflect.TypeOf((*OnChainViolation)(nil)).Elem(), "OnChainViolation")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDecisionExecuted emits a decision executed event.
func (r *Registry) EmitDecisionExecuted(ctx context.Context, d *decision.Decision) {
	r.mu.RLock()
	plugins := r.onDecisionExecuted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDecisionExecuted(ctx, d)
		}); err != nil {
			r.logger.Warn("plugin OnDecisionExecuted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDecisionFinalized emits a decision finalized event.
func (r *Registry) EmitDecisionFinalized(ctx context.Context, d *decision.Decision) {
	r.mu.RLock()
	plugins := r.onDecisionFinalized
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDecisionFinalized(ctx, d)
		}); err != nil {
			r.logger.Warn("plugin OnDecisionFinalized failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDecisionRejected emits a decision rejected event.
func (r *Registry) EmitDecisionRejected(ctx context.Context, d *decision.Decision) {
	r.mu.RLock()
	plugins := r.onDecisionRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDecisionRejected(ctx, d)
		}); err != nil {
			r.logger.Warn("plugin OnDecisionRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitModuleFailed emits a module failed event.
func (r *Registry) EmitModuleFailed(ctx context.Context, d *decision.Decision, code module.Code, failure error) {
	r.mu.RLock()
	plugins := r.onModuleFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnModuleFailed(ctx, d, code, failure)
		}); err != nil {
			r.logger.Warn("plugin OnModuleFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitReviewRequested emits a review requested event.
func (r *Registry) EmitReviewRequested(ctx context.Context, d *decision.Decision) {
	r.mu.RLock()
	plugins := r.onReviewRequested
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReviewRequested(ctx, d)
		}); err != nil {
			r.logger.Warn("plugin OnReviewRequested failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitReviewResolved emits a review resolved event.
func (r *Registry) EmitReviewResolved(ctx context.Context, d *decision.Decision, approved bool, reviewer string) {
	r.mu.RLock()
	plugins := r.onReviewResolved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReviewResolved(ctx, d, approved, reviewer)
		}); err != nil {
			r.logger.Warn("plugin OnReviewResolved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTenantCreated emits a tenant created event.
func (r *Registry) EmitTenantCreated(ctx context.Context, t *tenant.Tenant) {
	r.mu.RLock()
	plugins := r.onTenantCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTenantCreated(ctx, t)
		}); err != nil {
			r.logger.Warn("plugin OnTenantCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPlanChanged emits a plan changed event.
func (r *Registry) EmitPlanChanged(ctx context.Context, t *tenant.Tenant, oldPlan, newPlan tenant.Plan) {
	r.mu.RLock()
	plugins := r.onPlanChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlanChanged(ctx, t, oldPlan, newPlan)
		}); err != nil {
			r.logger.Warn("plugin OnPlanChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitQuotaExceeded emits a quota exceeded event.
func (r *Registry) EmitQuotaExceeded(ctx context.Context, tenantID string, used int64, limit tenant.Limit) {
	r.mu.RLock()
	plugins := r.onQuotaExceeded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnQuotaExceeded(ctx, tenantID, used, limit)
		}); err != nil {
			r.logger.Warn("plugin OnQuotaExceeded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAuditAppended emits an audit appended event.
func (r *Registry) EmitAuditAppended(ctx context.Context, e *audit.Entry) {
	r.mu.RLock()
	plugins := r.onAuditAppended
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAuditAppended(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnAuditAppended failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitChainViolation emits a chain violation event.
func (r *Registry) EmitChainViolation(ctx context.Context, tenantID string, report audit.VerifyReport) {
	r.mu.RLock()
	plugins := r.onChainViolation
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnChainViolation(ctx, tenantID, report)
		}); err != nil {
			r.logger.Warn("plugin OnChainViolation failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPipelineTimed emits a pipeline timing event.
func (r *Registry) EmitPipelineTimed(ctx context.Context, d *decision.Decision, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onPipelineTimed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPipelineTimed(ctx, d, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnPipelineTimed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the decision pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
