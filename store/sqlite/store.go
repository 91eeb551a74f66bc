package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tribunal"
	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/contract"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/id"
	tribunalstore "github.com/xraph/tribunal/store"
	"github.com/xraph/tribunal/tenant"
)

// compile-time interface check
var _ tribunalstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("tribunal/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tribunal/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Tenant Store ====================

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	var exists int
	err := s.sdb.NewRaw(`SELECT COUNT(*) FROM tribunal_tenants WHERE org_id = ?`, t.OrgID).Scan(ctx, &exists)
	if err != nil && !isNoRows(err) {
		return err
	}
	if exists > 0 {
		return tribunal.ErrDuplicateTenant
	}

	m := toTenantModel(t)
	_, err = s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetTenant(ctx context.Context, orgID string) (*tenant.Tenant, error) {
	m := new(tenantModel)
	err := s.sdb.NewSelect(m).
		Where("org_id = ?", orgID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tribunal.ErrTenantNotFound
		}
		return nil, err
	}
	return fromTenantModel(m), nil
}

// UpdateTenant writes plan, quota, features, and status. The usage counter
// is owned by the reservation path and is deliberately not touched here.
func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	m := toTenantModel(t)
	res, err := s.sdb.NewUpdate((*tenantModel)(nil)).
		Set("org_name = ?", m.OrgName).
		Set("plan = ?", m.Plan).
		Set("status = ?", m.Status).
		Set("contracts_limit = ?", m.ContractsLimit).
		Set("contracts_unbounded = ?", m.ContractsUnbounded).
		Set("users_limit = ?", m.UsersLimit).
		Set("users_unbounded = ?", m.UsersUnbounded).
		Set("features = ?", m.Features).
		Set("updated_at = ?", now()).
		Where("org_id = ?", t.OrgID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tribunal.ErrTenantNotFound
	}
	return nil
}

func (s *Store) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	var models []tenantModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("org_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*tenant.Tenant, len(models))
	for i := range models {
		result[i] = fromTenantModel(&models[i])
	}
	return result, nil
}

// ReserveUsage performs the compare-and-increment in a single UPDATE so
// concurrent reservations against the same tenant never overcommit.
func (s *Store) ReserveUsage(ctx context.Context, orgID string, limit tenant.Limit) (int64, error) {
	var usage int64
	err := s.sdb.NewRaw(`
		UPDATE tribunal_tenants
		SET usage_count = usage_count + 1, updated_at = ?
		WHERE org_id = ? AND (? OR usage_count < ?)
		RETURNING usage_count
	`, now(), orgID, limit.Unbounded, limit.N).Scan(ctx, &usage)
	if err == nil {
		return usage, nil
	}
	if !isNoRows(err) {
		return 0, err
	}

	// No row updated: either the tenant is missing or the quota is spent.
	t, gerr := s.GetTenant(ctx, orgID)
	if gerr != nil {
		return 0, gerr
	}
	return t.Usage, tribunal.ErrQuotaExceeded
}

func (s *Store) ReleaseUsage(ctx context.Context, orgID string) error {
	var usage int64
	err := s.sdb.NewRaw(`
		UPDATE tribunal_tenants
		SET usage_count = usage_count - 1, updated_at = ?
		WHERE org_id = ? AND usage_count > 0
		RETURNING usage_count
	`, now(), orgID).Scan(ctx, &usage)
	if err == nil {
		return nil
	}
	if !isNoRows(err) {
		return err
	}

	// Nothing to release; report only a missing tenant.
	_, gerr := s.GetTenant(ctx, orgID)
	return gerr
}

func (s *Store) ResetUsage(ctx context.Context, orgID string) error {
	res, err := s.sdb.NewUpdate((*tenantModel)(nil)).
		Set("usage_count = ?", int64(0)).
		Set("updated_at = ?", now()).
		Where("org_id = ?", orgID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tribunal.ErrTenantNotFound
	}
	return nil
}

// ==================== Decision Store ====================

func (s *Store) CreateDecision(ctx context.Context, d *decision.Decision) error {
	m := toDecisionModel(d)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetDecision(ctx context.Context, tenantID string, decisionID id.DecisionID) (*decision.Decision, error) {
	m := new(decisionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", decisionID.String()).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tribunal.ErrDecisionNotFound
		}
		return nil, err
	}
	return fromDecisionModel(m)
}

func (s *Store) UpdateDecision(ctx context.Context, d *decision.Decision) error {
	m := toDecisionModel(d)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tribunal.ErrDecisionNotFound
	}
	return nil
}

func (s *Store) ListDecisions(ctx context.Context, tenantID string, opts decision.ListOpts) ([]*decision.Decision, error) {
	var models []decisionModel
	q := s.sdb.NewSelect(&models).Where("tenant_id = ?", tenantID)

	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*decision.Decision, len(models))
	for i := range models {
		d, err := fromDecisionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

// ==================== Audit Store ====================

func (s *Store) AppendAudit(ctx context.Context, e *audit.Entry) error {
	m := toAuditModel(e)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ReadAudit(ctx context.Context, tenantID string, fromSeq, toSeq uint64) ([]audit.Entry, error) {
	var models []auditModel
	q := s.sdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Where("sequence >= ?", int64(fromSeq))
	if toSeq != 0 {
		q = q.Where("sequence <= ?", int64(toSeq))
	}
	q = q.OrderExpr("sequence ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]audit.Entry, len(models))
	for i := range models {
		result[i] = fromAuditModel(&models[i])
	}
	return result, nil
}

func (s *Store) LastAudit(ctx context.Context, tenantID string) (*audit.Entry, error) {
	m := new(auditModel)
	err := s.sdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		OrderExpr("sequence DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	e := fromAuditModel(m)
	return &e, nil
}

func (s *Store) CountAudit(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM tribunal_audit_entries WHERE tenant_id = ?
	`, tenantID).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ==================== Analysis Store ====================

func (s *Store) CreateAnalysis(ctx context.Context, a *contract.Analysis) error {
	m := toAnalysisModel(a)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetAnalysis(ctx context.Context, tenantID string, analysisID id.AnalysisID) (*contract.Analysis, error) {
	m := new(analysisModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", analysisID.String()).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tribunal.ErrAnalysisNotFound
		}
		return nil, err
	}
	return fromAnalysisModel(m)
}

func (s *Store) SetAnalysisAuditHash(ctx context.Context, tenantID string, analysisID id.AnalysisID, auditHash string) error {
	res, err := s.sdb.NewUpdate((*analysisModel)(nil)).
		Set("audit_hash = ?", auditHash).
		Where("id = ?", analysisID.String()).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tribunal.ErrAnalysisNotFound
	}
	return nil
}

func (s *Store) DeleteAnalysis(ctx context.Context, tenantID string, analysisID id.AnalysisID) error {
	res, err := s.sdb.NewDelete((*analysisModel)(nil)).
		Where("id = ?", analysisID.String()).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tribunal.ErrAnalysisNotFound
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
