package contract

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xraph/tribunal/id"
	"github.com/xraph/tribunal/types"
)

// severityDeductions weigh findings into the compliance score, which starts
// at 100 and is floored at 0. The score is a document property and is
// deliberately independent of pipeline confidence.
var severityDeductions = map[Severity]types.Confidence{
	SeverityHigh:   15,
	SeverityMedium: 7,
	SeverityLow:    3,
}

// Derive builds an Analysis from the decision pipeline's module payloads.
// Perception contributes clauses, jurisdictions, and structure; advisory
// contributes the risk findings. Missing payloads degrade to an analysis
// with fewer fields rather than an error, matching optional-module policy.
func Derive(tenantID string, decisionID id.DecisionID, payloads map[string]map[string]any, reqContext map[string]any) *Analysis {
	a := &Analysis{
		ID:         id.NewAnalysisID(),
		TenantID:   tenantID,
		DecisionID: decisionID,
		Timestamp:  time.Now().UTC(),
	}

	perception := payloads["perception"]
	advisory := payloads["advisory"]

	a.KeyTerms = stringSlice(perception["clauses"])
	sort.Strings(a.KeyTerms)

	a.Risks = parseRisks(advisory["risks"])
	a.OverallRisk = OverallRisk(a.Risks)
	a.LegalFrameworks = frameworks(stringSlice(perception["jurisdictions"]), reqContext)
	a.ComplianceScore = complianceScore(a.Risks)
	a.ContractSummary = summarize(perception, a)

	return a
}

// frameworks maps jurisdiction tags and request context onto the compliance
// frameworks that apply to the document.
func frameworks(jurisdictions []string, reqContext map[string]any) []string {
	set := make(map[string]struct{}, 4)

	for _, j := range jurisdictions {
		switch strings.ToUpper(j) {
		case "EU", "UK", "EUROPE":
			set["GDPR"] = struct{}{}
		case "CA", "CALIFORNIA":
			set["CCPA"] = struct{}{}
		}
	}

	if industry, ok := reqContext["industry"].(string); ok {
		lower := strings.ToLower(industry)
		if strings.Contains(lower, "health") {
			set["HIPAA"] = struct{}{}
		}
		for _, term := range []string{"finance", "banking", "investment"} {
			if strings.Contains(lower, term) {
				set["SOX"] = struct{}{}
				break
			}
		}
	}

	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func complianceScore(risks []Risk) types.Confidence {
	score := types.MaxConfidence
	for _, r := range risks {
		score -= severityDeductions[r.Severity]
	}
	if score < types.MinConfidence {
		return types.MinConfidence
	}
	return score
}

func summarize(perception map[string]any, a *Analysis) string {
	domain := "general"
	if d, ok := perception["domain"].(string); ok && d != "" {
		domain = d
	}
	words := intValue(perception["word_count"])
	return fmt.Sprintf("%s document, %d words, %d clause types identified, %d risk findings, overall risk %s",
		domain, words, len(a.KeyTerms), len(a.Risks), a.OverallRisk)
}

// parseRisks reads advisory findings both as the in-process representation
// ([]map[string]any) and the JSON round-trip shape ([]any).
func parseRisks(v any) []Risk {
	var items []map[string]any
	switch list := v.(type) {
	case []map[string]any:
		items = list
	case []any:
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				items = append(items, m)
			}
		}
	}

	risks := make([]Risk, 0, len(items))
	for _, m := range items {
		r := Risk{
			Description:    stringValue(m["description"]),
			Recommendation: stringValue(m["recommendation"]),
		}
		switch stringValue(m["severity"]) {
		case string(SeverityHigh):
			r.Severity = SeverityHigh
		case string(SeverityMedium):
			r.Severity = SeverityMedium
		default:
			r.Severity = SeverityLow
		}
		risks = append(risks, r)
	}
	return risks
}

func stringSlice(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
