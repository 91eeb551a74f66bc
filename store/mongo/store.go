package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tribunal"
	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/contract"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/id"
	tribunalstore "github.com/xraph/tribunal/store"
	"github.com/xraph/tribunal/tenant"
)

// Collection name constants.
const (
	colTenants   = "tribunal_tenants"
	colDecisions = "tribunal_decisions"
	colAudit     = "tribunal_audit_entries"
	colAnalyses  = "tribunal_analyses"
)

// compile-time interface check
var _ tribunalstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tribunal collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tribunal/mongo: migrate %s indexes: %w", col, err)
		}
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
	m := toTenantModel(t)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tribunal.ErrDuplicateTenant
		}
		return fmt.Errorf("tribunal/mongo: create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, orgID string) (*tenant.Tenant, error) {
	var m tenantModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": orgID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tribunal.ErrTenantNotFound
		}
		return nil, fmt.Errorf("tribunal/mongo: get tenant: %w", err)
	}
	return fromTenantModel(&m), nil
}

// UpdateTenant writes plan, quota, features, and status. The usage counter
// is owned by the reservation path and is deliberately not touched here.
func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	m := toTenantModel(t)
	res, err := s.mdb.NewUpdate((*tenantModel)(nil)).
		Filter(bson.M{"_id": t.OrgID}).
		Set("org_name", m.OrgName).
		Set("plan", m.Plan).
		Set("status", m.Status).
		Set("contracts_limit", m.ContractsLimit).
		Set("contracts_unbounded", m.ContractsUnbounded).
		Set("users_limit", m.UsersLimit).
		Set("users_unbounded", m.UsersUnbounded).
		Set("features", m.Features).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tribunal/mongo: update tenant: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tribunal.ErrTenantNotFound
	}
	return nil
}

func (s *Store) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	var models []tenantModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tribunal/mongo: list tenants: %w", err)
	}

	result := make([]*tenant.Tenant, len(models))
	for i := range models {
		result[i] = fromTenantModel(&models[i])
	}
	return result, nil
}

// ReserveUsage performs the compare-and-increment in a single findAndModify
// so concurrent reservations against the same tenant never overcommit.
func (s *Store) ReserveUsage(ctx context.Context, orgID string, limit tenant.Limit) (int64, error) {
	filter := bson.M{"_id": orgID}
	if !limit.Unbounded {
		filter["usage_count"] = bson.M{"$lt": limit.N}
	}
	update := bson.M{
		"$inc": bson.M{"usage_count": 1},
		"$set": bson.M{"updated_at": now()},
	}

	var m tenantModel
	err := s.mdb.Collection(colTenants).
		FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&m)
	if err == nil {
		return m.UsageCount, nil
	}
	if !isNoDocuments(err) {
		return 0, fmt.Errorf("tribunal/mongo: reserve usage: %w", err)
	}

	// No document matched: either the tenant is missing or the quota is spent.
	t, gerr := s.GetTenant(ctx, orgID)
	if gerr != nil {
		return 0, gerr
	}
	return t.Usage, tribunal.ErrQuotaExceeded
}

func (s *Store) ReleaseUsage(ctx context.Context, orgID string) error {
	res, err := s.mdb.Collection(colTenants).UpdateOne(ctx,
		bson.M{"_id": orgID, "usage_count": bson.M{"$gt": 0}},
		bson.M{
			"$inc": bson.M{"usage_count": -1},
			"$set": bson.M{"updated_at": now()},
		})
	if err != nil {
		return fmt.Errorf("tribunal/mongo: release usage: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing to release; report only a missing tenant.
	_, gerr := s.GetTenant(ctx, orgID)
	return gerr
}

func (s *Store) ResetUsage(ctx context.Context, orgID string) error {
	res, err := s.mdb.NewUpdate((*tenantModel)(nil)).
		Filter(bson.M{"_id": orgID}).
		Set("usage_count", int64(0)).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tribunal/mongo: reset usage: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tribunal.ErrTenantNotFound
	}
	return nil
}

// ==================== Decision Store ====================

func (s *Store) CreateDecision(ctx context.Context, d *decision.Decision) error {
	m := toDecisionModel(d)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tribunal/mongo: create decision: %w", err)
	}
	return nil
}

func (s *Store) GetDecision(ctx context.Context, tenantID string, decisionID id.DecisionID) (*decision.Decision, error) {
	var m decisionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": decisionID.String(), "tenant_id": tenantID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tribunal.ErrDecisionNotFound
		}
		return nil, fmt.Errorf("tribunal/mongo: get decision: %w", err)
	}
	return fromDecisionModel(&m)
}

func (s *Store) UpdateDecision(ctx context.Context, d *decision.Decision) error {
	m := toDecisionModel(d)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "tenant_id": m.TenantID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tribunal/mongo: update decision: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tribunal.ErrDecisionNotFound
	}
	return nil
}

func (s *Store) ListDecisions(ctx context.Context, tenantID string, opts decision.ListOpts) ([]*decision.Decision, error) {
	filter := bson.M{"tenant_id": tenantID}
	if opts.State != "" {
		filter["state"] = string(opts.State)
	}

	var models []decisionModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tribunal/mongo: list decisions: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tribunal/mongo: append audit entry: %w", err)
	}
	return nil
}

func (s *Store) ReadAudit(ctx context.Context, tenantID string, fromSeq, toSeq uint64) ([]audit.Entry, error) {
	seqFilter := bson.M{"$gte": int64(fromSeq)}
	if toSeq != 0 {
		seqFilter["$lte"] = int64(toSeq)
	}

	var models []auditModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID, "sequence": seqFilter}).
		Sort(bson.D{{Key: "sequence", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tribunal/mongo: read audit entries: %w", err)
	}

	result := make([]audit.Entry, len(models))
	for i := range models {
		result[i] = fromAuditModel(&models[i])
	}
	return result, nil
}

func (s *Store) LastAudit(ctx context.Context, tenantID string) (*audit.Entry, error) {
	var m auditModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID}).
		Sort(bson.D{{Key: "sequence", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tribunal/mongo: last audit entry: %w", err)
	}
	e := fromAuditModel(&m)
	return &e, nil
}

func (s *Store) CountAudit(ctx context.Context, tenantID string) (int64, error) {
	count, err := s.mdb.Collection(colAudit).CountDocuments(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return 0, fmt.Errorf("tribunal/mongo: count audit entries: %w", err)
	}
	return count, nil
}

// ==================== Analysis Store ====================

func (s *Store) CreateAnalysis(ctx context.Context, a *contract.Analysis) error {
	m := toAnalysisModel(a)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tribunal/mongo: create analysis: %w", err)
	}
	return nil
}

func (s *Store) GetAnalysis(ctx context.Context, tenantID string, analysisID id.AnalysisID) (*contract.Analysis, error) {
	var m analysisModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": analysisID.String(), "tenant_id": tenantID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tribunal.ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("tribunal/mongo: get analysis: %w", err)
	}
	return fromAnalysisModel(&m)
}

func (s *Store) SetAnalysisAuditHash(ctx context.Context, tenantID string, analysisID id.AnalysisID, auditHash string) error {
	res, err := s.mdb.NewUpdate((*analysisModel)(nil)).
		Filter(bson.M{"_id": analysisID.String(), "tenant_id": tenantID}).
		Set("audit_hash", auditHash).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tribunal/mongo: set analysis audit hash: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tribunal.ErrAnalysisNotFound
	}
	return nil
}

func (s *Store) DeleteAnalysis(ctx context.Context, tenantID string, analysisID id.AnalysisID) error {
	res, err := s.mdb.NewDelete((*analysisModel)(nil)).
		Filter(bson.M{"_id": analysisID.String(), "tenant_id": tenantID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tribunal/mongo: delete analysis: %w", err)
	}
	if res.DeletedCount() == 0 {
		return tribunal.ErrAnalysisNotFound
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tribunal collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTenants: {
			{Keys: bson.D{{Key: "plan", Value: 1}, {Key: "status", Value: 1}}},
		},
		colDecisions: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "state", Value: 1}}},
		},
		colAudit: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "sequence", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "decision_id", Value: 1}}},
		},
		colAnalyses: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "decision_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
	}
}
