// Package plugin provides an extensible plugin system for Tribunal.
// Plugins can hook into decision, review, tenant, and ledger lifecycle
// events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/module"
	"github.com/xraph/tribunal/tenant"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Decision lifecycle hooks
// ──────────────────────────────────────────────────

// OnDecisionExecuted is called after the module fan-out aggregates, before
// the decision reaches a terminal or review state.
type OnDecisionExecuted interface {
	Plugin
	OnDecisionExecuted(ctx context.Context, d *decision.Decision) error
}

// OnDecisionFinalized is called when a decision finalizes with its ledger
// entry committed.
type OnDecisionFinalized interface {
	Plugin
	OnDecisionFinalized(ctx context.Context, d *decision.Decision) error
}

// OnDecisionRejected is called when a decision is rejected.
type OnDecisionRejected interface {
	Plugin
	OnDecisionRejected(ctx context.Context, d *decision.Decision) error
}

// OnModuleFailed is called when a scoring module fails or times out.
type OnModuleFailed interface {
	Plugin
	OnModuleFailed(ctx context.Context, d *decision.Decision, code module.Code, err error) error
}

// ──────────────────────────────────────────────────
// Review hooks
// ──────────────────────────────────────────────────

// OnReviewRequested is called when a decision parks in awaiting_review.
type OnReviewRequested interface {
	Plugin
	OnReviewRequested(ctx context.Context, d *decision.Decision) error
}

// OnReviewResolved is called when a human resolves a parked decision.
type OnReviewResolved interface {
	Plugin
	OnReviewResolved(ctx context.Context, d *decision.Decision, approved bool, reviewer string) error
}

// ──────────────────────────────────────────────────
// Tenant and quota hooks
// ──────────────────────────────────────────────────

// OnTenantCreated is called when a new tenant is provisioned.
type OnTenantCreated interface {
	Plugin
	OnTenantCreated(ctx context.Context, t *tenant.Tenant) error
}

// OnPlanChanged is called when a tenant moves between plans.
type OnPlanChanged interface {
	Plugin
	OnPlanChanged(ctx context.Context, t *tenant.Tenant, oldPlan, newPlan tenant.Plan) error
}

// OnQuotaExceeded is called when a reservation is denied for quota.
type OnQuotaExceeded interface {
	Plugin
	OnQuotaExceeded(ctx context.Context, tenantID string, used int64, limit tenant.Limit) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnAuditAppended is called after an entry commits to a tenant's chain.
type OnAuditAppended interface {
	Plugin
	OnAuditAppended(ctx context.Context, e *audit.Entry) error
}

// OnChainViolation is called when verification finds a divergent entry and
// the chain is halted.
type OnChainViolation interface {
	Plugin
	OnChainViolation(ctx context.Context, tenantID string, report audit.VerifyReport) error
}

// ──────────────────────────────────────────────────
// Timing hooks
// ──────────────────────────────────────────────────

// OnPipelineTimed is called with the wall time of a completed fan-out.
type OnPipelineTimed interface {
	Plugin
	OnPipelineTimed(ctx context.Context, d *decision.Decision, elapsed time.Duration) error
}
