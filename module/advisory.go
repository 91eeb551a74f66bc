package module

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xraph/tribunal/types"
)

// Advisory scans the document for risk indicator terms and produces risk
// findings with severities and clause-level recommendations.
type Advisory struct{}

// NewAdvisory creates the built-in advisory module.
func NewAdvisory() *Advisory { return &Advisory{} }

// Code implements Module.
func (*Advisory) Code() Code { return CodeAdvisory }

// riskIndicator is a weighted term that maps to a risk finding.
type riskIndicator struct {
	term     string
	severity string
	weight   int
}

// riskIndicators is the indicator database ordered by descending weight so
// the most severe findings appear first in the output.
var riskIndicators = []riskIndicator{
	{"unlimited liability", "high", 10},
	{"no indemnification", "high", 9},
	{"no warranty", "high", 9},
	{"automatic renewal", "high", 8},
	{"unilateral termination", "high", 8},
	{"as is", "high", 8},
	{"irrevocable", "high", 8},
	{"sole discretion", "high", 7},
	{"perpetual", "high", 7},
	{"non-refundable", "high", 6},

	{"penalty clause", "medium", 7},
	{"personal guarantee", "medium", 7},
	{"liquidated damages", "medium", 6},
	{"without cause termination", "medium", 6},
	{"assignment of ip", "medium", 6},
	{"broad indemnification", "medium", 6},
	{"joint and several", "medium", 6},
	{"non-compete", "medium", 5},
	{"exclusive rights", "medium", 5},
	{"unlimited duration", "medium", 5},

	{"change of control", "low", 4},
	{"most favored nation", "low", 4},
	{"governing law", "low", 3},
	{"audit rights", "low", 3},
	{"right of first refusal", "low", 3},
	{"non-solicitation", "low", 3},
	{"arbitration", "low", 2},
	{"confidentiality", "low", 2},
	{"escrow", "low", 2},
	{"force majeure", "low", 1},
}

// clauseRecommendations holds negotiation guidance for specific indicators.
// Indicators without an entry fall back to a generic review recommendation.
var clauseRecommendations = map[string]string{
	"unlimited liability":    "Negotiate a liability cap tied to contract value",
	"no indemnification":     "Request mutual indemnification provisions",
	"automatic renewal":      "Add a 60-90 day notice period for non-renewal",
	"unilateral termination": "Request bilateral termination rights",
	"no warranty":            "Negotiate a limited warranty period",
	"non-compete":            "Limit scope, duration, and geography",
	"exclusive rights":       "Add performance minimums or an opt-out clause",
	"penalty clause":         "Convert to liquidated damages with a reasonable cap",
}

// Execute implements Module.
func (*Advisory) Execute(_ context.Context, input, _ map[string]any) (*Result, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("advisory: empty input: %w", ErrInvalidInput)
	}

	lower := strings.ToLower(docText(input))

	risks := make([]map[string]any, 0, 8)
	total := 0
	for _, ind := range riskIndicators {
		if !strings.Contains(lower, ind.term) {
			continue
		}
		rec, ok := clauseRecommendations[ind.term]
		if !ok {
			rec = fmt.Sprintf("Review and negotiate %s terms", ind.term)
		}
		risks = append(risks, map[string]any{
			"severity":       ind.severity,
			"description":    fmt.Sprintf("Contains %q clause", ind.term),
			"recommendation": rec,
			"weight":         ind.weight,
		})
		total += ind.weight
	}

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i]["weight"].(int) > risks[j]["weight"].(int)
	})

	// Heavier cumulative risk weight lowers advisory confidence, floored
	// well above zero so a risky document still reports usable findings.
	confidence := types.Confidence(100 - 2*total)
	if confidence < 25 {
		confidence = 25
	}

	return &Result{
		Payload: map[string]any{
			"risks":      risks,
			"risk_score": total,
		},
		Confidence: confidence.Clamp(),
	}, nil
}
