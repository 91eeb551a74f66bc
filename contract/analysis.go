// Package contract derives structured contract analyses from decision
// pipeline output: key terms, weighted risk findings, compliance scoring,
// and applicable legal framework tags.
package contract

import (
	"time"

	"github.com/xraph/tribunal/id"
	"github.com/xraph/tribunal/types"
)

// Severity ranks a risk finding. Overall risk follows strict precedence:
// any high finding dominates, then medium, then low.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// RiskLevel is the overall classification of an analyzed contract.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// Risk is one flagged finding with negotiation guidance.
type Risk struct {
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// Analysis is the immutable record of one analyzed document. AuditHash binds
// it to the ledger entry appended when the backing decision finalized; it is
// empty while the decision is parked for human review.
type Analysis struct {
	ID              id.AnalysisID    `json:"analysis_id"`
	TenantID        string           `json:"tenant_id"`
	DecisionID      id.DecisionID    `json:"decision_id"`
	ContractSummary string           `json:"contract_summary"`
	KeyTerms        []string         `json:"key_terms"`
	Risks           []Risk           `json:"risks"`
	ComplianceScore types.Confidence `json:"compliance_score"`
	LegalFrameworks []string         `json:"legal_frameworks"`
	OverallRisk     RiskLevel        `json:"overall_risk"`
	AuditHash       string           `json:"audit_hash,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// OverallRisk classifies findings by severity precedence.
func OverallRisk(risks []Risk) RiskLevel {
	level := RiskLow
	for _, r := range risks {
		switch r.Severity {
		case SeverityHigh:
			return RiskHigh
		case SeverityMedium:
			level = RiskMedium
		}
	}
	return level
}
