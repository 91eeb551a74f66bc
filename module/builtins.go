package module

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/tribunal/types"
)

// docText pulls the free-text body out of a request payload. Both the
// contract path ("document_text") and generic decisions ("text") are
// accepted; absence is not an error, modules then score structure only.
func docText(input map[string]any) string {
	for _, key := range []string{"document_text", "text"} {
		if v, ok := input[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// ──────────────────────────────────────────────────
// Perception
// ──────────────────────────────────────────────────

// Perception extracts structural features, detects the input domain, and
// tags jurisdictions and clause types present in the document.
type Perception struct{}

// NewPerception creates the built-in perception module.
func NewPerception() *Perception { return &Perception{} }

// Code implements Module.
func (*Perception) Code() Code { return CodePerception }

// clauseTerms maps clause types to the keywords that indicate them.
var clauseTerms = map[string][]string{
	"confidentiality":       {"confidential", "non-disclosure", "proprietary"},
	"termination":           {"terminate", "termination", "cancel"},
	"liability":             {"liable", "liability", "indemnify"},
	"payment":               {"payment", "compensation", "fee"},
	"intellectual_property": {"intellectual property", "copyright", "patent"},
	"non_compete":           {"non-compete", "non-competition"},
	"dispute_resolution":    {"arbitration", "dispute", "mediation"},
	"governing_law":         {"governing law", "jurisdiction"},
}

// jurisdictionTerms maps jurisdiction tags to indicator keywords.
var jurisdictionTerms = map[string][]string{
	"EU": {"gdpr", "european union", "data protection regulation"},
	"UK": {"united kingdom", "england and wales"},
	"CA": {"ccpa", "california"},
	"US": {"united states", "delaware", "new york"},
}

// Execute implements Module.
func (*Perception) Execute(_ context.Context, input, reqContext map[string]any) (*Result, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("perception: empty input: %w", ErrInvalidInput)
	}

	text := docText(input)
	lower := strings.ToLower(text)
	words := len(strings.Fields(text))

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}

	clauses := make([]string, 0, len(clauseTerms))
	for clause, terms := range clauseTerms {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				clauses = append(clauses, clause)
				break
			}
		}
	}

	jurisdictions := make([]string, 0, 4)
	if j, ok := reqContext["jurisdiction"].(string); ok && j != "" {
		jurisdictions = append(jurisdictions, strings.ToUpper(j))
	}
	for tag, terms := range jurisdictionTerms {
		for _, term := range terms {
			if strings.Contains(lower, term) && !containsString(jurisdictions, tag) {
				jurisdictions = append(jurisdictions, tag)
				break
			}
		}
	}

	domain := "general"
	switch {
	case len(clauses) > 0 || strings.Contains(lower, "agreement"):
		domain = "contract"
	case strings.Contains(lower, "court") || strings.Contains(lower, "case"):
		domain = "legal"
	}

	// Structural quality: sparse inputs score lower, dense documents
	// approach full confidence.
	quality := types.Confidence(60 + min64(int64(words)/10, 30) + min64(int64(len(keys))*2, 10)).Clamp()

	return &Result{
		Payload: map[string]any{
			"word_count":    words,
			"char_count":    len(text),
			"keys":          keys,
			"domain":        domain,
			"clauses":       clauses,
			"jurisdictions": jurisdictions,
		},
		Confidence: quality,
	}, nil
}

// ──────────────────────────────────────────────────
// Ethical calibration
// ──────────────────────────────────────────────────

// EthicalCalibration assigns a bounded ethics score to the requested action
// based on deterministic input features.
type EthicalCalibration struct{}

// NewEthicalCalibration creates the built-in ethical calibration module.
func NewEthicalCalibration() *EthicalCalibration { return &EthicalCalibration{} }

// Code implements Module.
func (*EthicalCalibration) Code() Code { return CodeEthicalCalibration }

// Execute implements Module.
func (*EthicalCalibration) Execute(_ context.Context, input, _ map[string]any) (*Result, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("ethical-calibration: empty input: %w", ErrInvalidInput)
	}

	text := docText(input)

	// Base of 80 with a bounded deterministic adjustment, the same
	// calibration band the scoring contract guarantees downstream.
	adj := types.Confidence(len(text)%20 - 10)
	score := (80 + adj).Clamp()

	return &Result{
		Payload: map[string]any{
			"ethical_score": float64(score),
			"approved":      score >= 65,
		},
		Confidence: score,
	}, nil
}

// ──────────────────────────────────────────────────
// Predictive feedback
// ──────────────────────────────────────────────────

// PredictiveFeedback estimates the outcome of proceeding with the action and
// recommends proceed or review.
type PredictiveFeedback struct{}

// NewPredictiveFeedback creates the built-in predictive feedback module.
func NewPredictiveFeedback() *PredictiveFeedback { return &PredictiveFeedback{} }

// Code implements Module.
func (*PredictiveFeedback) Code() Code { return CodePredictiveFeedback }

// Execute implements Module.
func (*PredictiveFeedback) Execute(_ context.Context, input, _ map[string]any) (*Result, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("predictive-feedback: empty input: %w", ErrInvalidInput)
	}

	words := len(strings.Fields(docText(input)))
	confidence := types.Confidence(70 + words%25).Clamp()

	recommendation := "proceed"
	if confidence < 75 {
		recommendation = "review"
	}

	return &Result{
		Payload: map[string]any{
			"recommendation":    recommendation,
			"predicted_outcome": "within_policy",
		},
		Confidence: confidence,
	}, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
