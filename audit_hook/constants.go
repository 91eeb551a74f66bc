package audithook

// Action constants for audit events.
const (
	// Decision actions
	ActionDecisionExecuted  = "decision.executed"
	ActionDecisionFinalized = "decision.finalized"
	ActionDecisionRejected  = "decision.rejected"
	ActionModuleFailed      = "module.failed"

	// Review actions
	ActionReviewRequested = "review.requested"
	ActionReviewApproved  = "review.approved"
	ActionReviewRejected  = "review.rejected"

	// Tenant actions
	ActionTenantCreated = "tenant.created"
	ActionPlanChanged   = "plan.changed"
	ActionQuotaExceeded = "quota.exceeded"

	// Ledger actions
	ActionChainAppended  = "chain.appended"
	ActionChainViolation = "chain.violation"
)

// Resource constants for audit events.
const (
	ResourceDecision = "decision"
	ResourceReview   = "review"
	ResourceTenant   = "tenant"
	ResourceModule   = "module"
	ResourceChain    = "chain"
)

// Category constants for audit events.
const (
	CategoryGovernance = "governance"
	CategoryReview     = "review"
	CategoryAccess     = "access"
	CategoryIntegrity  = "integrity"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
