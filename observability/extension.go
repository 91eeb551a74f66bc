// Package observability provides a metrics extension for Tribunal that
// records lifecycle event counts and latencies via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/module"
	"github.com/xraph/tribunal/plugin"
	"github.com/xraph/tribunal/tenant"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnDecisionExecuted  = (*MetricsExtension)(nil)
	_ plugin.OnDecisionFinalized = (*MetricsExtension)(nil)
	_ plugin.OnDecisionRejected  = (*MetricsExtension)(nil)
	_ plugin.OnModuleFailed      = (*MetricsExtension)(nil)
	_ plugin.OnReviewRequested   = (*MetricsExtension)(nil)
	_ plugin.OnReviewResolved    = (*MetricsExtension)(nil)
	_ plugin.OnTenantCreated     = (*MetricsExtension)(nil)
	_ plugin.OnPlanChanged       = (*MetricsExtension)(nil)
	_ plugin.OnQuotaExceeded     = (*MetricsExtension)(nil)
	_ plugin.OnAuditAppended     = (*MetricsExtension)(nil)
	_ plugin.OnChainViolation    = (*MetricsExtension)(nil)
	_ plugin.OnPipelineTimed     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Tribunal plugin to automatically track decision metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Decision metrics
	DecisionsExecuted  Counter
	DecisionsFinalized Counter
	DecisionsRejected  Counter
	DecisionConfidence Histogram
	PipelineLatency    Histogram

	// Module metrics
	ModuleFailures Counter

	// Review metrics
	ReviewsRequested Counter
	ReviewsApproved  Counter
	ReviewsRejected  Counter

	// Tenant metrics
	TenantsCreated Counter
	PlanChanges    Counter
	QuotaDenials   Counter

	// Ledger metrics
	ChainAppends    Counter
	ChainViolations Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Decision metrics
		DecisionsExecuted:  factory.Counter("tribunal.decision.executed"),
		DecisionsFinalized: factory.Counter("tribunal.decision.finalized"),
		DecisionsRejected:  factory.Counter("tribunal.decision.rejected"),
		DecisionConfidence: factory.Histogram("tribunal.decision.confidence"),
		PipelineLatency:    factory.Histogram("tribunal.pipeline.latency_ms"),

		// Module metrics
		ModuleFailures: factory.Counter("tribunal.module.failures"),

		// Review metrics
		ReviewsRequested: factory.Counter("tribunal.review.requested"),
		ReviewsApproved:  factory.Counter("tribunal.review.approved"),
		ReviewsRejected:  factory.Counter("tribunal.review.rejected"),

		// Tenant metrics
		TenantsCreated: factory.Counter("tribunal.tenant.created"),
		PlanChanges:    factory.Counter("tribunal.tenant.plan_changes"),
		QuotaDenials:   factory.Counter("tribunal.tenant.quota_denials"),

		// Ledger metrics
		ChainAppends:    factory.Counter("tribunal.chain.appends"),
		ChainViolations: factory.Counter("tribunal.chain.violations"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Decision lifecycle hooks
// ──────────────────────────────────────────────────

// OnDecisionExecuted implements plugin.OnDecisionExecuted.
func (m *MetricsExtension) OnDecisionExecuted(_ context.Context, d *decision.Decision) error {
	m.DecisionsExecuted.Inc()
	m.DecisionConfidence.Observe(float64(d.Aggregate))
	return nil
}

// OnDecisionFinalized implements plugin.OnDecisionFinalized.
func (m *MetricsExtension) OnDecisionFinalized(_ context.Context, _ *decision.Decision) error {
	m.DecisionsFinalized.Inc()
	return nil
}

// OnDecisionRejected implements plugin.OnDecisionRejected.
func (m *MetricsExtension) OnDecisionRejected(_ context.Context, _ *decision.Decision) error {
	m.DecisionsRejected.Inc()
	return nil
}

// OnModuleFailed implements plugin.OnModuleFailed.
func (m *MetricsExtension) OnModuleFailed(_ context.Context, _ *decision.Decision, _ module.Code, _ error) error {
	m.ModuleFailures.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Review hooks
// ──────────────────────────────────────────────────

// OnReviewRequested implements plugin.OnReviewRequested.
func (m *MetricsExtension) OnReviewRequested(_ context.Context, _ *decision.Decision) error {
	m.ReviewsRequested.Inc()
	return nil
}

// OnReviewResolved implements plugin.OnReviewResolved.
func (m *MetricsExtension) OnReviewResolved(_ context.Context, _ *decision.Decision, approved bool, _ string) error {
	if approved {
		m.ReviewsApproved.Inc()
	} else {
		m.ReviewsRejected.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Tenant and quota hooks
// ──────────────────────────────────────────────────

// OnTenantCreated implements plugin.OnTenantCreated.
func (m *MetricsExtension) OnTenantCreated(_ context.Context, _ *tenant.Tenant) error {
	m.TenantsCreated.Inc()
	return nil
}

// OnPlanChanged implements plugin.OnPlanChanged.
func (m *MetricsExtension) OnPlanChanged(_ context.Context, _ *tenant.Tenant, _, _ tenant.Plan) error {
	m.PlanChanges.Inc()
	return nil
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (m *MetricsExtension) OnQuotaExceeded(_ context.Context, _ string, _ int64, _ tenant.Limit) error {
	m.QuotaDenials.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnAuditAppended implements plugin.OnAuditAppended.
func (m *MetricsExtension) OnAuditAppended(_ context.Context, _ *audit.Entry) error {
	m.ChainAppends.Inc()
	return nil
}

// OnChainViolation implements plugin.OnChainViolation.
func (m *MetricsExtension) OnChainViolation(_ context.Context, _ string, _ audit.VerifyReport) error {
	m.ChainViolations.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Timing hooks
// ──────────────────────────────────────────────────

// OnPipelineTimed implements plugin.OnPipelineTimed.
func (m *MetricsExtension) OnPipelineTimed(_ context.Context, _ *decision.Decision, elapsed time.Duration) error {
	m.PipelineLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
