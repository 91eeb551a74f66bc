package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/contract"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/id"
	"github.com/xraph/tribunal/tenant"
	"github.com/xraph/tribunal/types"
)

// ==================== Tenant models ====================

type tenantModel struct {
	grove.BaseModel `grove:"table:tribunal_tenants"`

	OrgID              string          `grove:"org_id,pk"`
	OrgName            string          `grove:"org_name"`
	Plan               string          `grove:"plan"`
	Status             string          `grove:"status"`
	ContractsLimit     int64           `grove:"contracts_limit"`
	ContractsUnbounded bool            `grove:"contracts_unbounded"`
	UsersLimit         int64           `grove:"users_limit"`
	UsersUnbounded     bool            `grove:"users_unbounded"`
	Features           json.RawMessage `grove:"features"`
	UsageCount         int64           `grove:"usage_count"`
	CreatedAt          time.Time       `grove:"created_at"`
	UpdatedAt          time.Time       `grove:"updated_at"`
}

func toTenantModel(t *tenant.Tenant) *tenantModel {
	features, _ := json.Marshal(t.Features.Keys()) //nolint:errcheck // best-effort

	return &tenantModel{
		OrgID:              t.OrgID,
		OrgName:            t.OrgName,
		Plan:               string(t.Plan),
		Status:             string(t.Status),
		ContractsLimit:     t.Quota.ContractsPerPeriod.N,
		ContractsUnbounded: t.Quota.ContractsPerPeriod.Unbounded,
		UsersLimit:         t.Quota.MaxUsers.N,
		UsersUnbounded:     t.Quota.MaxUsers.Unbounded,
		Features:           features,
		UsageCount:         t.Usage,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func fromTenantModel(m *tenantModel) *tenant.Tenant {
	var keys []string
	if len(m.Features) > 0 {
		_ = json.Unmarshal(m.Features, &keys) //nolint:errcheck // best-effort
	}

	return &tenant.Tenant{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		OrgID:   m.OrgID,
		OrgName: m.OrgName,
		Plan:    tenant.Plan(m.Plan),
		Status:  tenant.Status(m.Status),
		Quota: tenant.Quota{
			ContractsPerPeriod: tenant.Limit{N: m.ContractsLimit, Unbounded: m.ContractsUnbounded},
			MaxUsers:           tenant.Limit{N: m.UsersLimit, Unbounded: m.UsersUnbounded},
		},
		Features: tenant.NewFeatureSet(keys...),
		Usage:    m.UsageCount,
	}
}

// ==================== Decision models ====================

type decisionModel struct {
	grove.BaseModel `grove:"table:tribunal_decisions"`

	ID         string          `grove:"id,pk"`
	TenantID   string          `grove:"tenant_id"`
	Module     string          `grove:"module"`
	Action     string          `grove:"action"`
	State      string          `grove:"state"`
	Results    json.RawMessage `grove:"results"`
	Aggregate  float64         `grove:"aggregate_confidence"`
	Review     bool            `grove:"requires_review"`
	AuditHash  string          `grove:"audit_hash"`
	AnalysisID string          `grove:"analysis_id"`
	ReviewID   string          `grove:"review_id"`
	ReviewedBy string          `grove:"reviewed_by"`
	ReviewedAt *time.Time      `grove:"reviewed_at"`
	CreatedAt  time.Time       `grove:"created_at"`
	UpdatedAt  time.Time       `grove:"updated_at"`
}

func toDecisionModel(d *decision.Decision) *decisionModel {
	results, _ := json.Marshal(d.Results) //nolint:errcheck // best-effort

	analysisID := ""
	if !d.AnalysisID.IsNil() {
		analysisID = d.AnalysisID.String()
	}
	reviewID := ""
	if !d.ReviewID.IsNil() {
		reviewID = d.ReviewID.String()
	}

	return &decisionModel{
		ID:         d.ID.String(),
		TenantID:   d.TenantID,
		Module:     d.Module,
		Action:     d.Action,
		State:      string(d.State),
		Results:    results,
		Aggregate:  float64(d.Aggregate),
		Review:     d.Review,
		AuditHash:  d.AuditHash,
		AnalysisID: analysisID,
		ReviewID:   reviewID,
		ReviewedBy: d.ReviewedBy,
		ReviewedAt: d.ReviewedAt,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func fromDecisionModel(m *decisionModel) (*decision.Decision, error) {
	decisionID, err := id.ParseDecisionID(m.ID)
	if err != nil {
		return nil, err
	}

	var analysisID id.AnalysisID
	if m.AnalysisID != "" {
		analysisID, err = id.ParseAnalysisID(m.AnalysisID)
		if err != nil {
			return nil, err
		}
	}

	var reviewID id.ReviewID
	if m.ReviewID != "" {
		reviewID, err = id.ParseReviewID(m.ReviewID)
		if err != nil {
			return nil, err
		}
	}

	var results []decision.ModuleResult
	if len(m.Results) > 0 {
		_ = json.Unmarshal(m.Results, &results) //nolint:errcheck // best-effort
	}

	return &decision.Decision{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         decisionID,
		TenantID:   m.TenantID,
		Module:     m.Module,
		Action:     m.Action,
		State:      decision.State(m.State),
		Results:    results,
		Aggregate:  types.Confidence(m.Aggregate),
		Review:     m.Review,
		AuditHash:  m.AuditHash,
		AnalysisID: analysisID,
		ReviewID:   reviewID,
		ReviewedBy: m.ReviewedBy,
		ReviewedAt: m.ReviewedAt,
	}, nil
}

// ==================== Audit models ====================

// auditModel keys on the payload hash: it is unique by construction and the
// (tenant_id, sequence) pair carries its own unique index.
type auditModel struct {
	grove.BaseModel `grove:"table:tribunal_audit_entries"`

	PayloadHash string    `grove:"payload_hash,pk"`
	TenantID    string    `grove:"tenant_id"`
	Sequence    int64     `grove:"sequence"`
	DecisionID  string    `grove:"decision_id"`
	Module      string    `grove:"module"`
	Action      string    `grove:"action"`
	Outcome     string    `grove:"outcome"`
	Confidence  float64   `grove:"confidence"`
	PrevHash    string    `grove:"prev_hash"`
	Timestamp   time.Time `grove:"timestamp"`
}

func toAuditModel(e *audit.Entry) *auditModel {
	return &auditModel{
		PayloadHash: e.PayloadHash,
		TenantID:    e.TenantID,
		Sequence:    int64(e.Sequence),
		DecisionID:  e.DecisionID,
		Module:      e.Module,
		Action:      e.Action,
		Outcome:     e.Outcome,
		Confidence:  float64(e.Confidence),
		PrevHash:    e.PrevHash,
		Timestamp:   e.Timestamp,
	}
}

func fromAuditModel(m *auditModel) audit.Entry {
	return audit.Entry{
		Sequence:    uint64(m.Sequence),
		TenantID:    m.TenantID,
		DecisionID:  m.DecisionID,
		Module:      m.Module,
		Action:      m.Action,
		Outcome:     m.Outcome,
		Confidence:  types.Confidence(m.Confidence),
		PrevHash:    m.PrevHash,
		PayloadHash: m.PayloadHash,
		Timestamp:   m.Timestamp,
	}
}

// ==================== Analysis models ====================

type analysisModel struct {
	grove.BaseModel `grove:"table:tribunal_analyses"`

	ID              string          `grove:"id,pk"`
	TenantID        string          `grove:"tenant_id"`
	DecisionID      string          `grove:"decision_id"`
	Summary         string          `grove:"summary"`
	KeyTerms        json.RawMessage `grove:"key_terms"`
	Risks           json.RawMessage `grove:"risks"`
	ComplianceScore float64         `grove:"compliance_score"`
	Frameworks      json.RawMessage `grove:"frameworks"`
	OverallRisk     string          `grove:"overall_risk"`
	AuditHash       string          `grove:"audit_hash"`
	Timestamp       time.Time       `grove:"timestamp"`
}

func toAnalysisModel(a *contract.Analysis) *analysisModel {
	keyTerms, _ := json.Marshal(a.KeyTerms)          //nolint:errcheck // best-effort
	risks, _ := json.Marshal(a.Risks)                //nolint:errcheck // best-effort
	frameworks, _ := json.Marshal(a.LegalFrameworks) //nolint:errcheck // best-effort

	return &analysisModel{
		ID:              a.ID.String(),
		TenantID:        a.TenantID,
		DecisionID:      a.DecisionID.String(),
		Summary:         a.ContractSummary,
		KeyTerms:        keyTerms,
		Risks:           risks,
		ComplianceScore: float64(a.ComplianceScore),
		Frameworks:      frameworks,
		OverallRisk:     string(a.OverallRisk),
		AuditHash:       a.AuditHash,
		Timestamp:       a.Timestamp,
	}
}

func fromAnalysisModel(m *analysisModel) (*contract.Analysis, error) {
	analysisID, err := id.ParseAnalysisID(m.ID)
	if err != nil {
		return nil, err
	}
	decisionID, err := id.ParseDecisionID(m.DecisionID)
	if err != nil {
		return nil, err
	}

	var keyTerms, frameworks []string
	var risks []contract.Risk
	if len(m.KeyTerms) > 0 {
		_ = json.Unmarshal(m.KeyTerms, &keyTerms) //nolint:errcheck // best-effort
	}
	if len(m.Risks) > 0 {
		_ = json.Unmarshal(m.Risks, &risks) //nolint:errcheck // best-effort
	}
	if len(m.Frameworks) > 0 {
		_ = json.Unmarshal(m.Frameworks, &frameworks) //nolint:errcheck // best-effort
	}

	return &contract.Analysis{
		ID:              analysisID,
		TenantID:        m.TenantID,
		DecisionID:      decisionID,
		ContractSummary: m.Summary,
		KeyTerms:        keyTerms,
		Risks:           risks,
		ComplianceScore: types.Confidence(m.ComplianceScore),
		LegalFrameworks: frameworks,
		OverallRisk:     contract.RiskLevel(m.OverallRisk),
		AuditHash:       m.AuditHash,
		Timestamp:       m.Timestamp,
	}, nil
}
