// Package audithook bridges Tribunal lifecycle events to an external audit
// trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular trail implementation. Callers inject a RecorderFunc adapter
// that bridges to their backend at wiring time. Note this is a relay for
// operational audit trails; the tamper-evident decision ledger lives in the
// audit package and does not pass through here.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/module"
	"github.com/xraph/tribunal/plugin"
	"github.com/xraph/tribunal/tenant"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnDecisionExecuted  = (*Extension)(nil)
	_ plugin.OnDecisionFinalized = (*Extension)(nil)
	_ plugin.OnDecisionRejected  = (*Extension)(nil)
	_ plugin.OnModuleFailed      = (*Extension)(nil)
	_ plugin.OnReviewRequested   = (*Extension)(nil)
	_ plugin.OnReviewResolved    = (*Extension)(nil)
	_ plugin.OnTenantCreated     = (*Extension)(nil)
	_ plugin.OnPlanChanged       = (*Extension)(nil)
	_ plugin.OnQuotaExceeded     = (*Extension)(nil)
	_ plugin.OnAuditAppended     = (*Extension)(nil)
	_ plugin.OnChainViolation    = (*Extension)(nil)
)

// Recorder is the interface that audit trail backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of a trail event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	TenantID   string         `json:"tenant_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Tribunal lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits trail events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Decision lifecycle hooks
// ──────────────────────────────────────────────────

// OnDecisionExecuted implements plugin.OnDecisionExecuted.
func (e *Extension) OnDecisionExecuted(ctx context.Context, d *decision.Decision) error {
	return e.record(ctx, ActionDecisionExecuted, SeverityInfo, OutcomeSuccess,
		ResourceDecision, d.ID.String(), CategoryGovernance, d.TenantID, nil,
		"action", d.Action,
		"aggregate_confidence", float64(d.Aggregate),
		"requires_review", d.Review,
	)
}

// OnDecisionFinalized implements plugin.OnDecisionFinalized.
func (e *Extension) OnDecisionFinalized(ctx context.Context, d *decision.Decision) error {
	return e.record(ctx, ActionDecisionFinalized, SeverityInfo, OutcomeSuccess,
		ResourceDecision, d.ID.String(), CategoryGovernance, d.TenantID, nil,
		"audit_hash", d.AuditHash,
		"aggregate_confidence", float64(d.Aggregate),
	)
}

// OnDecisionRejected implements plugin.OnDecisionRejected.
func (e *Extension) OnDecisionRejected(ctx context.Context, d *decision.Decision) error {
	return e.record(ctx, ActionDecisionRejected, SeverityWarning, OutcomeFailure,
		ResourceDecision, d.ID.String(), CategoryGovernance, d.TenantID, nil,
		"reviewed_by", d.ReviewedBy,
	)
}

// OnModuleFailed implements plugin.OnModuleFailed.
func (e *Extension) OnModuleFailed(ctx context.Context, d *decision.Decision, code module.Code, err error) error {
	return e.record(ctx, ActionModuleFailed, SeverityError, OutcomeFailure,
		ResourceModule, string(code), CategoryGovernance, d.TenantID, err,
		"decision_id", d.ID.String(),
	)
}

// ──────────────────────────────────────────────────
// Review hooks
// ──────────────────────────────────────────────────

// OnReviewRequested implements plugin.OnReviewRequested.
func (e *Extension) OnReviewRequested(ctx context.Context, d *decision.Decision) error {
	return e.record(ctx, ActionReviewRequested, SeverityInfo, OutcomePartial,
		ResourceReview, d.ID.String(), CategoryReview, d.TenantID, nil,
		"aggregate_confidence", float64(d.Aggregate),
	)
}

// OnReviewResolved implements plugin.OnReviewResolved.
func (e *Extension) OnReviewResolved(ctx context.Context, d *decision.Decision, approved bool, reviewer string) error {
	action := ActionReviewApproved
	outcome := OutcomeSuccess
	if !approved {
		action = ActionReviewRejected
		outcome = OutcomeFailure
	}
	return e.record(ctx, action, SeverityInfo, outcome,
		ResourceReview, d.ID.String(), CategoryReview, d.TenantID, nil,
		"reviewer", reviewer,
	)
}

// ──────────────────────────────────────────────────
// Tenant and quota hooks
// ──────────────────────────────────────────────────

// OnTenantCreated implements plugin.OnTenantCreated.
func (e *Extension) OnTenantCreated(ctx context.Context, t *tenant.Tenant) error {
	return e.record(ctx, ActionTenantCreated, SeverityInfo, OutcomeSuccess,
		ResourceTenant, t.OrgID, CategoryAccess, t.OrgID, nil,
		"plan", string(t.Plan),
	)
}

// OnPlanChanged implements plugin.OnPlanChanged.
func (e *Extension) OnPlanChanged(ctx context.Context, t *tenant.Tenant, oldPlan, newPlan tenant.Plan) error {
	return e.record(ctx, ActionPlanChanged, SeverityInfo, OutcomeSuccess,
		ResourceTenant, t.OrgID, CategoryAccess, t.OrgID, nil,
		"old_plan", string(oldPlan),
		"new_plan", string(newPlan),
	)
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (e *Extension) OnQuotaExceeded(ctx context.Context, tenantID string, used int64, limit tenant.Limit) error {
	return e.record(ctx, ActionQuotaExceeded, SeverityWarning, OutcomeFailure,
		ResourceTenant, tenantID, CategoryAccess, tenantID, nil,
		"used", used,
		"limit", limit.N,
	)
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnAuditAppended implements plugin.OnAuditAppended.
func (e *Extension) OnAuditAppended(ctx context.Context, entry *audit.Entry) error {
	return e.record(ctx, ActionChainAppended, SeverityInfo, OutcomeSuccess,
		ResourceChain, entry.PayloadHash, CategoryIntegrity, entry.TenantID, nil,
		"sequence", entry.Sequence,
		"decision_id", entry.DecisionID,
	)
}

// OnChainViolation implements plugin.OnChainViolation.
func (e *Extension) OnChainViolation(ctx context.Context, tenantID string, report audit.VerifyReport) error {
	return e.record(ctx, ActionChainViolation, SeverityCritical, OutcomeFailure,
		ResourceChain, tenantID, CategoryIntegrity, tenantID, nil,
		"bad_sequence", report.BadSequence,
		"reason", report.Reason,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends a trail event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category, tenantID string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		TenantID:   tenantID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record trail event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
