package contract

import (
	"reflect"
	"testing"

	"github.com/xraph/tribunal/id"
)

func TestOverallRiskPrecedence(t *testing.T) {
	for _, tc := range []struct {
		name  string
		risks []Risk
		want  RiskLevel
	}{
		{"no findings", nil, RiskLow},
		{"only low", []Risk{{Severity: SeverityLow}}, RiskLow},
		{"medium and low", []Risk{{Severity: SeverityMedium}, {Severity: SeverityLow}}, RiskMedium},
		{"high dominates", []Risk{{Severity: SeverityMedium}, {Severity: SeverityLow}, {Severity: SeverityHigh}}, RiskHigh},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := OverallRisk(tc.risks); got != tc.want {
				t.Errorf("OverallRisk = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDerive(t *testing.T) {
	payloads := map[string]map[string]any{
		"perception": {
			"domain":        "contract",
			"word_count":    240,
			"clauses":       []string{"termination", "confidentiality"},
			"jurisdictions": []string{"EU", "CA"},
		},
		"advisory": {
			"risks": []map[string]any{
				{
					"severity":       "high",
					"description":    `Contains "unlimited liability" clause`,
					"recommendation": "Negotiate a liability cap tied to contract value",
				},
				{
					"severity":       "low",
					"description":    `Contains "arbitration" clause`,
					"recommendation": "Review and negotiate arbitration terms",
				},
			},
		},
	}

	a := Derive("acme", id.NewDecisionID(), payloads, map[string]any{"industry": "healthcare"})

	if want := []string{"confidentiality", "termination"}; !reflect.DeepEqual(a.KeyTerms, want) {
		t.Errorf("KeyTerms = %v, want %v", a.KeyTerms, want)
	}
	if want := []string{"CCPA", "GDPR", "HIPAA"}; !reflect.DeepEqual(a.LegalFrameworks, want) {
		t.Errorf("LegalFrameworks = %v, want %v", a.LegalFrameworks, want)
	}
	if a.OverallRisk != RiskHigh {
		t.Errorf("OverallRisk = %s, want HIGH", a.OverallRisk)
	}
	// 100 minus one high (15) and one low (3) finding.
	if a.ComplianceScore != 82 {
		t.Errorf("ComplianceScore = %v, want 82", a.ComplianceScore)
	}
	if a.AuditHash != "" {
		t.Errorf("AuditHash set before finalization: %q", a.AuditHash)
	}
	if a.ContractSummary == "" || a.ID.IsNil() {
		t.Error("summary and id must be populated")
	}
}

func TestDeriveRoundTrippedPayloads(t *testing.T) {
	// Shapes as they come back from a JSON store driver.
	payloads := map[string]map[string]any{
		"perception": {
			"domain":        "contract",
			"word_count":    float64(80),
			"clauses":       []any{"payment"},
			"jurisdictions": []any{"UK"},
		},
		"advisory": {
			"risks": []any{
				map[string]any{"severity": "medium", "description": "d", "recommendation": "r"},
			},
		},
	}

	a := Derive("acme", id.NewDecisionID(), payloads, nil)

	if !reflect.DeepEqual(a.KeyTerms, []string{"payment"}) {
		t.Errorf("KeyTerms = %v", a.KeyTerms)
	}
	if !reflect.DeepEqual(a.LegalFrameworks, []string{"GDPR"}) {
		t.Errorf("LegalFrameworks = %v", a.LegalFrameworks)
	}
	if a.OverallRisk != RiskMedium || a.ComplianceScore != 93 {
		t.Errorf("risk = %s score = %v", a.OverallRisk, a.ComplianceScore)
	}
}

func TestDeriveMissingPayloads(t *testing.T) {
	a := Derive("acme", id.NewDecisionID(), map[string]map[string]any{}, nil)
	if a.OverallRisk != RiskLow || a.ComplianceScore != 100 {
		t.Errorf("empty payloads: risk = %s score = %v", a.OverallRisk, a.ComplianceScore)
	}
	if len(a.KeyTerms) != 0 || len(a.LegalFrameworks) != 0 {
		t.Errorf("expected empty terms/frameworks, got %v / %v", a.KeyTerms, a.LegalFrameworks)
	}
}
