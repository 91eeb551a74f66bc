package store

import (
	"context"

	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/contract"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/id"
	"github.com/xraph/tribunal/tenant"
)

// Store is the unified storage interface for all Tribunal entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Drivers must keep every read and write scoped by tenant: decisions, audit
// entries, and analyses are never visible across tenant boundaries.
type Store interface {
	// Tenant methods
	CreateTenant(ctx context.Context, t *tenant.Tenant) error
	GetTenant(ctx context.Context, orgID string) (*tenant.Tenant, error)
	UpdateTenant(ctx context.Context, t *tenant.Tenant) error
	ListTenants(ctx context.Context) ([]*tenant.Tenant, error)

	// ReserveUsage atomically increments the tenant's usage counter when it
	// is strictly below the limit, returning the post-reservation count.
	// Unbounded limits always reserve. The compare and the increment happen
	// under one critical section per tenant so concurrent callers never
	// overcommit.
	ReserveUsage(ctx context.Context, orgID string, limit tenant.Limit) (int64, error)

	// ReleaseUsage undoes one reservation after an aborted decision.
	ReleaseUsage(ctx context.Context, orgID string) error

	// ResetUsage zeroes the usage counter at a billing period boundary.
	ResetUsage(ctx context.Context, orgID string) error

	// Decision methods
	CreateDecision(ctx context.Context, d *decision.Decision) error
	GetDecision(ctx context.Context, tenantID string, decisionID id.DecisionID) (*decision.Decision, error)
	UpdateDecision(ctx context.Context, d *decision.Decision) error
	ListDecisions(ctx context.Context, tenantID string, opts decision.ListOpts) ([]*decision.Decision, error)

	// Audit methods. AppendAudit persists an already-sealed entry; sequence
	// allocation and hash linking belong to the ledger, not the driver.
	AppendAudit(ctx context.Context, e *audit.Entry) error
	ReadAudit(ctx context.Context, tenantID string, fromSeq, toSeq uint64) ([]audit.Entry, error)
	LastAudit(ctx context.Context, tenantID string) (*audit.Entry, error)
	CountAudit(ctx context.Context, tenantID string) (int64, error)

	// Analysis methods
	CreateAnalysis(ctx context.Context, a *contract.Analysis) error
	GetAnalysis(ctx context.Context, tenantID string, analysisID id.AnalysisID) (*contract.Analysis, error)

	// SetAnalysisAuditHash binds an analysis to the ledger entry committed
	// when its backing decision finalized. It is the only permitted update.
	SetAnalysisAuditHash(ctx context.Context, tenantID string, analysisID id.AnalysisID, auditHash string) error

	// DeleteAnalysis removes an analysis whose backing decision failed to
	// settle. Settled analyses are immutable and are never deleted.
	DeleteAnalysis(ctx context.Context, tenantID string, analysisID id.AnalysisID) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
