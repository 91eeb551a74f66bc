package tribunal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/contract"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/id"
	"github.com/xraph/tribunal/module"
	"github.com/xraph/tribunal/plugin"
	"github.com/xraph/tribunal/store"
	"github.com/xraph/tribunal/tenant"
	"github.com/xraph/tribunal/types"
)

// Defaults for engine configuration.
const (
	// DefaultReviewThreshold parks decisions below this aggregate
	// confidence in awaiting_review.
	DefaultReviewThreshold types.Confidence = 85

	// DefaultConfidencePenalty is subtracted from the aggregate for each
	// excluded optional module.
	DefaultConfidencePenalty types.Confidence = 10

	// DefaultAppendMaxTries bounds the ledger append retry on finalization.
	DefaultAppendMaxTries uint = 5
)

// ActionAnalyzeContract is the composite action that fans out to all four
// scoring modules. Any other action routes to the single module named in
// the request.
const ActionAnalyzeContract = "analyze_contract"

// ReviewVerdict is a human reviewer's resolution of a parked decision.
type ReviewVerdict string

const (
	VerdictApprove ReviewVerdict = "approve"
	VerdictReject  ReviewVerdict = "reject"
)

// Ledger entry outcomes.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
)

// Tribunal is the governance decision engine.
type Tribunal struct {
	store   store.Store
	ledger  *audit.Ledger
	modules *module.Registry
	plugins *plugin.Registry
	logger  *slog.Logger

	// Configuration
	reviewThreshold   types.Confidence
	confidencePenalty types.Confidence
	moduleTimeout     time.Duration
	appendMaxTries    uint

	// Counters for the Metrics snapshot
	executed  atomic.Int64
	finalized atomic.Int64
	rejected  atomic.Int64
	reviews   atomic.Int64
	appends   atomic.Int64
}

// New creates a new Tribunal instance.
func New(s store.Store, opts ...Option) *Tribunal {
	t := &Tribunal{
		store:             s,
		modules:           module.Defaults(),
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		reviewThreshold:   DefaultReviewThreshold,
		confidencePenalty: DefaultConfidencePenalty,
		appendMaxTries:    DefaultAppendMaxTries,
	}

	t.ledger = audit.NewLedger(func(ctx context.Context, tenantID string) (uint64, string, error) {
		last, err := s.LastAudit(ctx, tenantID)
		if err != nil {
			return 0, "", err
		}
		if last == nil {
			return 0, "", nil
		}
		return last.Sequence, last.PayloadHash, nil
	})

	for _, opt := range opts {
		opt(t)
	}

	if t.moduleTimeout > 0 {
		for _, code := range t.modules.Codes() {
			reg, err := t.modules.Lookup(code)
			if err != nil {
				continue
			}
			regOpts := []module.RegisterOption{module.WithTimeout(t.moduleTimeout)}
			if reg.Mandatory {
				regOpts = append(regOpts, module.Mandatory())
			}
			t.modules.Register(reg.Module, regOpts...)
		}
	}

	return t
}

// Option configures a Tribunal instance.
type Option func(*Tribunal)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tribunal) {
		t.logger = logger
		t.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(t *Tribunal) {
		_ = t.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithModule registers a scoring module, replacing any built-in variant
// with the same code.
func WithModule(m module.Module, opts ...module.RegisterOption) Option {
	return func(t *Tribunal) {
		t.modules.Register(m, opts...)
	}
}

// WithReviewThreshold sets the aggregate confidence below which decisions
// require human review.
func WithReviewThreshold(threshold types.Confidence) Option {
	return func(t *Tribunal) {
		t.reviewThreshold = threshold
	}
}

// WithConfidencePenalty sets the deduction applied per excluded optional
// module.
func WithConfidencePenalty(penalty types.Confidence) Option {
	return func(t *Tribunal) {
		t.confidencePenalty = penalty
	}
}

// WithModuleTimeout overrides the per-invocation timeout for every
// registered module.
func WithModuleTimeout(d time.Duration) Option {
	return func(t *Tribunal) {
		t.moduleTimeout = d
	}
}

// WithAppendRetry bounds the ledger append retry budget on finalization.
func WithAppendRetry(maxTries uint) Option {
	return func(t *Tribunal) {
		t.appendMaxTries = maxTries
	}
}

// Start migrates the store and initializes plugins.
func (t *Tribunal) Start(ctx context.Context) error {
	if err := t.store.Migrate(ctx); err != nil {
		return err
	}

	t.plugins.EmitInit(ctx, t)

	t.logger.Info("tribunal started",
		"review_threshold", t.reviewThreshold,
		"confidence_penalty", t.confidencePenalty,
		"modules", len(t.modules.Codes()),
		"plugins", t.plugins.Count(),
	)
	return nil
}

// Stop shuts down the Tribunal.
func (t *Tribunal) Stop() error {
	t.plugins.EmitShutdown(context.Background())
	return t.store.Close()
}

// ──────────────────────────────────────────────────
// Decision Pipeline
// ──────────────────────────────────────────────────

// ExecuteDecision runs one governed decision through the pipeline:
// entitlement and quota pre-flight, concurrent module fan-out, weakest-link
// aggregation, then either the review gate or ledger-backed finalization.
func (t *Tribunal) ExecuteDecision(ctx context.Context, req *decision.Request) (*decision.Response, error) {
	d, err := t.execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := t.settle(ctx, d); err != nil {
		return nil, err
	}
	return d.Response(), nil
}

// execute runs the pipeline through aggregation. On success the returned
// decision is aggregated but not yet persisted, and one usage reservation
// is held for it.
func (t *Tribunal) execute(ctx context.Context, req *decision.Request) (*decision.Decision, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ten, err := t.store.GetTenant(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if !ten.Active() {
		return nil, fmt.Errorf("tenant %s: %w", ten.OrgID, ErrTenantInactive)
	}
	if features := requiredFeatures(req.Action); len(features) > 0 && !ten.Entitled(features...) {
		return nil, fmt.Errorf("tenant %s, action %s: %w", ten.OrgID, req.Action, ErrFeatureNotEntitled)
	}

	used, err := t.store.ReserveUsage(ctx, req.TenantID, ten.Quota.ContractsPerPeriod)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			t.plugins.EmitQuotaExceeded(ctx, req.TenantID, used, ten.Quota.ContractsPerPeriod)
		}
		return nil, err
	}

	d := &decision.Decision{
		Entity:   types.NewEntity(),
		ID:       id.NewDecisionID(),
		TenantID: req.TenantID,
		Module:   req.Module,
		Action:   req.Action,
		State:    decision.StateCreated,
	}

	codes, single := route(req)
	d.State = decision.StateRouted

	if err := ctx.Err(); err != nil {
		t.releaseUsage(ctx, d.TenantID)
		return nil, fmt.Errorf("%w: %v", ErrCanceled, err)
	}

	d.State = decision.StateExecuting
	start := time.Now()
	outcomes := module.FanOut(ctx, t.modules, codes, req.InputData, req.Context)
	elapsed := time.Since(start)

	included := make([]types.Confidence, 0, len(outcomes))
	var excluded int
	for _, o := range outcomes {
		mr := decision.ModuleResult{
			ID:         id.NewModuleResultID(),
			ModuleCode: string(o.Code),
			Latency:    o.Latency,
		}

		if o.Failed() {
			t.plugins.EmitModuleFailed(ctx, d, o.Code, o.Err)
			if o.Mandatory || single {
				t.releaseUsage(ctx, d.TenantID)
				return nil, fmt.Errorf("module %s: %v: %w", o.Code, o.Err, ErrModuleUnavailable)
			}
			mr.Excluded = true
			if o.Err != nil {
				mr.Failure = o.Err.Error()
			}
			excluded++
		} else {
			mr.Payload = o.Result.Payload
			mr.Confidence = o.Result.Confidence
			included = append(included, o.Result.Confidence)
		}

		d.Results = append(d.Results, mr)
	}

	// Cancellation is honored only while the decision is still cancelable;
	// past this point it must reach a terminal or review state.
	if err := ctx.Err(); err != nil && d.State.Cancelable() {
		t.releaseUsage(ctx, d.TenantID)
		return nil, fmt.Errorf("%w: %v", ErrCanceled, err)
	}

	penalty := t.confidencePenalty * types.Confidence(excluded)
	d.Aggregate = (types.MinOf(included) - penalty).Clamp()
	d.State = decision.StateAggregated
	d.Touch()

	t.executed.Add(1)
	t.plugins.EmitDecisionExecuted(ctx, d)
	t.plugins.EmitPipelineTimed(ctx, d, elapsed)

	t.logger.Debug("decision aggregated",
		"decision_id", d.ID,
		"tenant", d.TenantID,
		"aggregate", d.Aggregate,
		"excluded", excluded,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return d, nil
}

// settle routes an aggregated decision through the review gate or commits
// it to the ledger. Past aggregation the decision must reach awaiting_review
// or a terminal state, so settlement runs detached from caller cancellation.
func (t *Tribunal) settle(ctx context.Context, d *decision.Decision) error {
	ctx = context.WithoutCancel(ctx)

	if d.Aggregate.Below(t.reviewThreshold) {
		d.Review = true
		d.State = decision.StateAwaitingReview
		d.Touch()
		if err := t.store.CreateDecision(ctx, d); err != nil {
			t.releaseUsage(ctx, d.TenantID)
			return err
		}
		t.reviews.Add(1)
		t.plugins.EmitReviewRequested(ctx, d)
		t.logger.Info("decision awaiting review",
			"decision_id", d.ID,
			"tenant", d.TenantID,
			"aggregate", d.Aggregate,
		)
		return nil
	}

	return t.commit(ctx, d, OutcomeApproved, false)
}

// commit appends the decision's ledger entry and persists its terminal
// state. The append is the commit point: retried with bounded backoff and,
// on exhaustion, surfaced as an audit-sink failure with the reservation
// released (unless the decision already survived in awaiting_review).
// Once a decision commits, caller cancellation no longer applies.
func (t *Tribunal) commit(ctx context.Context, d *decision.Decision, outcome string, update bool) error {
	ctx = context.WithoutCancel(ctx)

	entry := &audit.Entry{
		TenantID:   d.TenantID,
		DecisionID: d.ID.String(),
		Module:     d.Module,
		Action:     d.Action,
		Outcome:    outcome,
		Confidence: d.Aggregate,
	}

	err := t.ledger.Append(ctx, entry, func(ctx context.Context, e *audit.Entry) error {
		_, retryErr := backoff.Retry(ctx, func() (struct{}, error) {
			return struct{}{}, t.store.AppendAudit(ctx, e)
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(t.appendMaxTries),
		)
		return retryErr
	})
	if err != nil {
		if !update {
			t.releaseUsage(ctx, d.TenantID)
		}
		if errors.Is(err, audit.ErrHalted) {
			return fmt.Errorf("%w: %v", ErrChainHalted, err)
		}
		t.plugins.EmitModuleFailed(ctx, d, module.CodeAuditSink, err)
		return fmt.Errorf("module %s: %v: %w", module.CodeAuditSink, err, ErrModuleUnavailable)
	}

	d.AuditHash = entry.PayloadHash
	if outcome == OutcomeRejected {
		d.State = decision.StateRejected
	} else {
		d.State = decision.StateFinalized
	}
	d.Touch()

	var persistErr error
	if update {
		persistErr = t.store.UpdateDecision(ctx, d)
	} else {
		persistErr = t.store.CreateDecision(ctx, d)
	}
	if persistErr != nil {
		// The ledger entry is already committed; surface the failure rather
		// than returning a response lacking a persisted record.
		t.logger.Error("decision persist failed after ledger append",
			"decision_id", d.ID,
			"tenant", d.TenantID,
			"sequence", entry.Sequence,
			"error", persistErr,
		)
		return persistErr
	}

	if !d.AnalysisID.IsNil() && d.State == decision.StateFinalized {
		if err := t.store.SetAnalysisAuditHash(ctx, d.TenantID, d.AnalysisID, d.AuditHash); err != nil {
			t.logger.Warn("analysis audit hash binding failed",
				"analysis_id", d.AnalysisID,
				"decision_id", d.ID,
				"error", err,
			)
		}
	}

	t.appends.Add(1)
	t.plugins.EmitAuditAppended(ctx, entry)

	if d.State == decision.StateRejected {
		t.rejected.Add(1)
		t.plugins.EmitDecisionRejected(ctx, d)
	} else {
		t.finalized.Add(1)
		t.plugins.EmitDecisionFinalized(ctx, d)
	}

	t.logger.Info("decision committed",
		"decision_id", d.ID,
		"tenant", d.TenantID,
		"state", d.State,
		"sequence", entry.Sequence,
		"audit_hash", d.AuditHash,
	)
	return nil
}

// ResolveReview resolves a decision parked in awaiting_review. Approval
// finalizes it with a ledger entry; rejection also appends an entry with a
// rejected outcome so every terminal decision is ledger-backed.
func (t *Tribunal) ResolveReview(ctx context.Context, tenantID string, decisionID id.DecisionID, verdict ReviewVerdict, reviewer string) (*decision.Response, error) {
	if verdict != VerdictApprove && verdict != VerdictReject {
		return nil, fmt.Errorf("unknown review verdict %q: %w", verdict, ErrInvalidInput)
	}

	d, err := t.store.GetDecision(ctx, tenantID, decisionID)
	if err != nil {
		return nil, err
	}
	if d.State.Terminal() {
		return nil, fmt.Errorf("decision %s in state %s: %w", d.ID, d.State, ErrDecisionTerminal)
	}
	if d.State != decision.StateAwaitingReview {
		return nil, fmt.Errorf("decision %s in state %s: %w", d.ID, d.State, ErrNotAwaitingReview)
	}

	now := time.Now().UTC()
	d.ReviewID = id.NewReviewID()
	d.ReviewedBy = reviewer
	d.ReviewedAt = &now

	outcome := OutcomeApproved
	approved := verdict == VerdictApprove
	if !approved {
		outcome = OutcomeRejected
	}

	if err := t.commit(ctx, d, outcome, true); err != nil {
		return nil, err
	}

	t.plugins.EmitReviewResolved(ctx, d, approved, reviewer)
	return d.Response(), nil
}

// GetDecision retrieves a decision within the tenant's scope.
func (t *Tribunal) GetDecision(ctx context.Context, tenantID string, decisionID id.DecisionID) (*decision.Decision, error) {
	return t.store.GetDecision(ctx, tenantID, decisionID)
}

// ListDecisions lists a tenant's decisions.
func (t *Tribunal) ListDecisions(ctx context.Context, tenantID string, opts decision.ListOpts) ([]*decision.Decision, error) {
	return t.store.ListDecisions(ctx, tenantID, opts)
}

// ──────────────────────────────────────────────────
// Contract Analysis
// ──────────────────────────────────────────────────

// AnalyzeContract runs the composite four-module pipeline over a contract
// document and derives the structured analysis from the module payloads.
// If the decision parks in awaiting_review, the analysis is returned with
// an empty audit hash; approval through ResolveReview binds it.
func (t *Tribunal) AnalyzeContract(ctx context.Context, tenantID, documentText string, metadata map[string]any) (*contract.Analysis, error) {
	if documentText == "" {
		return nil, ValidationError{Field: "document_text", Message: "must not be empty"}
	}

	req := &decision.Request{
		TenantID:    tenantID,
		Module:      "contract",
		Action:      ActionAnalyzeContract,
		InputData:   map[string]any{"document_text": documentText},
		Context:     metadata,
		SubmittedAt: time.Now().UTC(),
	}

	d, err := t.execute(ctx, req)
	if err != nil {
		return nil, err
	}

	// The aggregated decision must settle; the remaining writes run
	// detached from caller cancellation.
	ctx = context.WithoutCancel(ctx)

	a := contract.Derive(tenantID, d.ID, payloadsByCode(d), metadata)
	d.AnalysisID = a.ID

	if err := t.store.CreateAnalysis(ctx, a); err != nil {
		t.releaseUsage(ctx, d.TenantID)
		return nil, err
	}

	if err := t.settle(ctx, d); err != nil {
		// A decision that failed to settle leaves no analysis behind.
		if derr := t.store.DeleteAnalysis(ctx, tenantID, a.ID); derr != nil {
			t.logger.Warn("analysis cleanup failed",
				"analysis_id", a.ID,
				"decision_id", d.ID,
				"error", derr,
			)
		}
		return nil, err
	}

	// Finalization binds the analysis to its ledger entry.
	a.AuditHash = d.AuditHash
	return a, nil
}

// GetAnalysis retrieves a contract analysis within the tenant's scope.
func (t *Tribunal) GetAnalysis(ctx context.Context, tenantID string, analysisID id.AnalysisID) (*contract.Analysis, error) {
	return t.store.GetAnalysis(ctx, tenantID, analysisID)
}

// ──────────────────────────────────────────────────
// Tenant Management
// ──────────────────────────────────────────────────

// CreateTenant provisions a new tenant on the given plan tier.
func (t *Tribunal) CreateTenant(ctx context.Context, orgID, orgName string, plan tenant.Plan) (*tenant.Tenant, error) {
	if orgID == "" {
		return nil, ValidationError{Field: "org_id", Message: "must not be empty"}
	}
	if !plan.Valid() {
		return nil, fmt.Errorf("plan %q: %w", plan, ErrUnknownPlan)
	}

	ten := &tenant.Tenant{
		Entity:  types.NewEntity(),
		OrgID:   orgID,
		OrgName: orgName,
		Status:  tenant.StatusActive,
	}
	ten.Apply(plan)

	if err := t.store.CreateTenant(ctx, ten); err != nil {
		return nil, err
	}

	t.plugins.EmitTenantCreated(ctx, ten)
	t.logger.Info("tenant created", "org_id", orgID, "plan", plan)
	return ten, nil
}

// GetTenant retrieves a tenant by org ID.
func (t *Tribunal) GetTenant(ctx context.Context, orgID string) (*tenant.Tenant, error) {
	return t.store.GetTenant(ctx, orgID)
}

// ChangePlan moves a tenant between plan tiers, recomputing quota and
// features. The running usage counter is never reset by a plan change.
func (t *Tribunal) ChangePlan(ctx context.Context, orgID string, newPlan tenant.Plan) (*tenant.Tenant, error) {
	if !newPlan.Valid() {
		return nil, fmt.Errorf("plan %q: %w", newPlan, ErrUnknownPlan)
	}

	ten, err := t.store.GetTenant(ctx, orgID)
	if err != nil {
		return nil, err
	}

	oldPlan := ten.Plan
	ten.Apply(newPlan)
	ten.Touch()

	if err := t.store.UpdateTenant(ctx, ten); err != nil {
		return nil, err
	}

	t.plugins.EmitPlanChanged(ctx, ten, oldPlan, newPlan)
	t.logger.Info("plan changed", "org_id", orgID, "old_plan", oldPlan, "new_plan", newPlan)
	return ten, nil
}

// DeactivateTenant marks a tenant inactive. Tenants are never deleted; the
// ledger and decision history remain readable.
func (t *Tribunal) DeactivateTenant(ctx context.Context, orgID string) error {
	ten, err := t.store.GetTenant(ctx, orgID)
	if err != nil {
		return err
	}

	ten.Status = tenant.StatusInactive
	ten.Touch()
	return t.store.UpdateTenant(ctx, ten)
}

// ResetUsage zeroes a tenant's usage counter. Billing period boundaries are
// scheduled externally; this is the trigger they call.
func (t *Tribunal) ResetUsage(ctx context.Context, orgID string) error {
	return t.store.ResetUsage(ctx, orgID)
}

// UsageStats returns the tenant's read-only usage snapshot.
func (t *Tribunal) UsageStats(ctx context.Context, orgID string) (*tenant.UsageStats, error) {
	ten, err := t.store.GetTenant(ctx, orgID)
	if err != nil {
		return nil, err
	}

	limit := ten.Quota.ContractsPerPeriod
	remaining, bounded := limit.Remaining(ten.Usage)
	return &tenant.UsageStats{
		OrgID:     ten.OrgID,
		Plan:      ten.Plan,
		Used:      ten.Usage,
		Limit:     limit,
		Remaining: remaining,
		Unbounded: !bounded,
	}, nil
}

// ──────────────────────────────────────────────────
// Ledger Surface
// ──────────────────────────────────────────────────

// VerifyChain recomputes a tenant's chain forward from genesis up to toSeq
// (0 means the full chain) and reports the first divergent sequence. On a
// violation the chain is halted; further appends fail until ReopenChain.
func (t *Tribunal) VerifyChain(ctx context.Context, tenantID string, toSeq uint64) (audit.VerifyReport, error) {
	entries, err := t.store.ReadAudit(ctx, tenantID, 1, toSeq)
	if err != nil {
		return audit.VerifyReport{}, err
	}

	report := audit.Verify(entries)
	if !report.OK {
		t.ledger.Halt(tenantID)
		t.plugins.EmitChainViolation(ctx, tenantID, report)
		t.logger.Error("chain integrity violation",
			"tenant", tenantID,
			"bad_sequence", report.BadSequence,
			"reason", report.Reason,
		)
		return report, fmt.Errorf("tenant %s at sequence %d: %w", tenantID, report.BadSequence, ErrChainIntegrity)
	}
	return report, nil
}

// ReopenChain clears a halt after an operator has restored the stored
// entries to a verified state.
func (t *Tribunal) ReopenChain(ctx context.Context, tenantID string) error {
	return t.ledger.Reopen(ctx, tenantID)
}

// ReadAudit reads a tenant's ledger entries in ascending sequence order.
// toSeq of 0 means unbounded.
func (t *Tribunal) ReadAudit(ctx context.Context, tenantID string, fromSeq, toSeq uint64) ([]audit.Entry, error) {
	return t.store.ReadAudit(ctx, tenantID, fromSeq, toSeq)
}

// ──────────────────────────────────────────────────
// Metrics
// ──────────────────────────────────────────────────

// MetricsSnapshot is the engine's read-only counter snapshot since start.
type MetricsSnapshot struct {
	DecisionsExecuted  int64 `json:"decisions_executed"`
	DecisionsFinalized int64 `json:"decisions_finalized"`
	DecisionsRejected  int64 `json:"decisions_rejected"`
	ReviewsRequested   int64 `json:"reviews_requested"`
	AuditAppends       int64 `json:"audit_appends"`
}

// Metrics returns the engine counters for the admin surface.
func (t *Tribunal) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		DecisionsExecuted:  t.executed.Load(),
		DecisionsFinalized: t.finalized.Load(),
		DecisionsRejected:  t.rejected.Load(),
		ReviewsRequested:   t.reviews.Load(),
		AuditAppends:       t.appends.Load(),
	}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// releaseUsage compensates an aborted reservation and logs rather than
// fails: the decision error is the one the caller needs to see. The release
// runs detached from caller cancellation so an abort on a dead context does
// not leak the reservation.
func (t *Tribunal) releaseUsage(ctx context.Context, tenantID string) {
	ctx = context.WithoutCancel(ctx)
	if err := t.store.ReleaseUsage(ctx, tenantID); err != nil {
		t.logger.Warn("usage release failed", "tenant", tenantID, "error", err)
	}
}

// validateRequest applies the fail-fast request checks.
func validateRequest(req *decision.Request) error {
	if req == nil {
		return ValidationError{Field: "request", Message: "must not be nil"}
	}
	if req.TenantID == "" {
		return ValidationError{Field: "tenant_id", Message: "must not be empty"}
	}
	if req.Action == "" {
		return ValidationError{Field: "action", Message: "must not be empty"}
	}
	if req.Action != ActionAnalyzeContract && req.Module == "" {
		return ValidationError{Field: "module", Message: "must name a module for simple actions"}
	}
	if len(req.InputData) == 0 {
		return ValidationError{Field: "input_data", Message: "must not be empty"}
	}
	return nil
}

// route resolves the module set for a request: the fixed four-module
// fan-out for composite actions, or the single named module, which is
// then mandatory regardless of its registered policy.
func route(req *decision.Request) (codes []module.Code, single bool) {
	if req.Action == ActionAnalyzeContract {
		return []module.Code{
			module.CodePerception,
			module.CodeEthicalCalibration,
			module.CodePredictiveFeedback,
			module.CodeAdvisory,
		}, false
	}
	return []module.Code{module.Code(req.Module)}, true
}

// requiredFeatures maps an action to the plan features that entitle it.
func requiredFeatures(action string) []string {
	if action == ActionAnalyzeContract {
		return []string{tenant.FeatureAnalysisBasic, tenant.FeatureAnalysisFull}
	}
	return nil
}

// payloadsByCode indexes the decision's included module payloads by code
// for analysis derivation.
func payloadsByCode(d *decision.Decision) map[string]map[string]any {
	payloads := make(map[string]map[string]any, len(d.Results))
	for i := range d.Results {
		r := &d.Results[i]
		if r.Excluded {
			continue
		}
		payloads[r.ModuleCode] = r.Payload
	}
	return payloads
}
