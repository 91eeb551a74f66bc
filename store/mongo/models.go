package mongo

import (
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

	OrgID              string    `grove:"org_id,pk"           bson:"_id"`
	OrgName            string    `grove:"org_name"            bson:"org_name"`
	Plan               string    `grove:"plan"                bson:"plan"`
	Status             string    `grove:"status"              bson:"status"`
	ContractsLimit     int64     `grove:"contracts_limit"     bson:"contracts_limit"`
	ContractsUnbounded bool      `grove:"contracts_unbounded" bson:"contracts_unbounded"`
	UsersLimit         int64     `grove:"users_limit"         bson:"users_limit"`
	UsersUnbounded     bool      `grove:"users_unbounded"     bson:"users_unbounded"`
	Features           []string  `grove:"features"            bson:"features"`
	UsageCount         int64     `grove:"usage_count"         bson:"usage_count"`
	CreatedAt          time.Time `grove:"created_at"          bson:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"          bson:"updated_at"`
}

func toTenantModel(t *tenant.Tenant) *tenantModel {
	return &tenantModel{
		OrgID:              t.OrgID,
		OrgName:            t.OrgName,
		Plan:               string(t.Plan),
		Status:             string(t.Status),
		ContractsLimit:     t.Quota.ContractsPerPeriod.N,
		ContractsUnbounded: t.Quota.ContractsPerPeriod.Unbounded,
		UsersLimit:         t.Quota.MaxUsers.N,
		UsersUnbounded:     t.Quota.MaxUsers.Unbounded,
		Features:           t.Features.Keys(),
		UsageCount:         t.Usage,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func fromTenantModel(m *tenantModel) *tenant.Tenant {
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
		Features: tenant.NewFeatureSet(m.Features...),
		Usage:    m.UsageCount,
	}
}

// ==================== Decision models ====================

type decisionModel struct {
	grove.BaseModel `grove:"table:tribunal_decisions"`

	ID         string              `grove:"id,pk"                bson:"_id"`
	TenantID   string              `grove:"tenant_id"            bson:"tenant_id"`
	Module     string              `grove:"module"               bson:"module"`
	Action     string              `grove:"action"               bson:"action"`
	State      string              `grove:"state"                bson:"state"`
	Results    []moduleResultModel `grove:"results"              bson:"results"`
	Aggregate  float64             `grove:"aggregate_confidence" bson:"aggregate_confidence"`
	Review     bool                `grove:"requires_review"      bson:"requires_review"`
	AuditHash  string              `grove:"audit_hash"           bson:"audit_hash"`
	AnalysisID string              `grove:"analysis_id"          bson:"analysis_id"`
	ReviewID   string              `grove:"review_id"            bson:"review_id"`
	ReviewedBy string              `grove:"reviewed_by"          bson:"reviewed_by"`
	ReviewedAt *time.Time          `grove:"reviewed_at"          bson:"reviewed_at,omitempty"`
	CreatedAt  time.Time           `grove:"created_at"           bson:"created_at"`
	UpdatedAt  time.Time           `grove:"updated_at"           bson:"updated_at"`
}

type moduleResultModel struct {
	ID         string         `bson:"id"`
	ModuleCode string         `bson:"module_code"`
	Payload    map[string]any `bson:"result_payload,omitempty"`
	Confidence float64        `bson:"confidence"`
	LatencyNS  int64          `bson:"latency_ns"`
	Excluded   bool           `bson:"excluded"`
	Failure    string         `bson:"failure,omitempty"`
}

func toDecisionModel(d *decision.Decision) *decisionModel {
	results := make([]moduleResultModel, len(d.Results))
	for i, r := range d.Results {
		results[i] = moduleResultModel{
			ID:         r.ID.String(),
			ModuleCode: r.ModuleCode,
			Payload:    r.Payload,
			Confidence: float64(r.Confidence),
			LatencyNS:  int64(r.Latency),
			Excluded:   r.Excluded,
			Failure:    r.Failure,
		}
	}

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

	results := make([]decision.ModuleResult, len(m.Results))
	for i, r := range m.Results {
		resultID, err := id.ParseModuleResultID(r.ID)
		if err != nil {
			return nil, err
		}
		results[i] = decision.ModuleResult{
			ID:         resultID,
			ModuleCode: r.ModuleCode,
			Payload:    r.Payload,
			Confidence: types.Confidence(r.Confidence),
			Latency:    time.Duration(r.LatencyNS),
			Excluded:   r.Excluded,
			Failure:    r.Failure,
		}
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

	PayloadHash string    `grove:"payload_hash,pk" bson:"_id"`
	TenantID    string    `grove:"tenant_id"       bson:"tenant_id"`
	Sequence    int64     `grove:"sequence"        bson:"sequence"`
	DecisionID  string    `grove:"decision_id"     bson:"decision_id"`
	Module      string    `grove:"module"          bson:"module"`
	Action      string    `grove:"action"          bson:"action"`
	Outcome     string    `grove:"outcome"         bson:"outcome"`
	Confidence  float64   `grove:"confidence"      bson:"confidence"`
	PrevHash    string    `grove:"prev_hash"       bson:"prev_hash"`
	Timestamp   time.Time `grove:"timestamp"       bson:"timestamp"`
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

	ID              string      `grove:"id,pk"            bson:"_id"`
	TenantID        string      `grove:"tenant_id"        bson:"tenant_id"`
	DecisionID      string      `grove:"decision_id"      bson:"decision_id"`
	Summary         string      `grove:"summary"          bson:"summary"`
	KeyTerms        []string    `grove:"key_terms"        bson:"key_terms"`
	Risks           []riskModel `grove:"risks"            bson:"risks"`
	ComplianceScore float64     `grove:"compliance_score" bson:"compliance_score"`
	Frameworks      []string    `grove:"frameworks"       bson:"frameworks"`
	OverallRisk     string      `grove:"overall_risk"     bson:"overall_risk"`
	AuditHash       string      `grove:"audit_hash"       bson:"audit_hash"`
	Timestamp       time.Time   `grove:"timestamp"        bson:"timestamp"`
}

type riskModel struct {
	Severity       string `bson:"severity"`
	Description    string `bson:"description"`
	Recommendation string `bson:"recommendation"`
}

func toAnalysisModel(a *contract.Analysis) *analysisModel {
	risks := make([]riskModel, len(a.Risks))
	for i, r := range a.Risks {
		risks[i] = riskModel{
			Severity:       string(r.Severity),
			Description:    r.Description,
			Recommendation: r.Recommendation,
		}
	}

	return &analysisModel{
		ID:              a.ID.String(),
		TenantID:        a.TenantID,
		DecisionID:      a.DecisionID.String(),
		Summary:         a.ContractSummary,
		KeyTerms:        a.KeyTerms,
		Risks:           risks,
		ComplianceScore: float64(a.ComplianceScore),
		Frameworks:      a.LegalFrameworks,
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

	risks := make([]contract.Risk, len(m.Risks))
	for i, r := range m.Risks {
		risks[i] = contract.Risk{
			Severity:       contract.Severity(r.Severity),
			Description:    r.Description,
			Recommendation: r.Recommendation,
		}
	}

	return &contract.Analysis{
		ID:              analysisID,
		TenantID:        m.TenantID,
		DecisionID:      decisionID,
		ContractSummary: m.Summary,
		KeyTerms:        m.KeyTerms,
		Risks:           risks,
		ComplianceScore: types.Confidence(m.ComplianceScore),
		LegalFrameworks: m.Frameworks,
		OverallRisk:     contract.RiskLevel(m.OverallRisk),
		AuditHash:       m.AuditHash,
		Timestamp:       m.Timestamp,
	}, nil
}
