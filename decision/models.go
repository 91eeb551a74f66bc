// Package decision defines the governed decision lifecycle: the request and
// response shapes, per-module results, and the pipeline state machine.
package decision

import (
	"time"

	"github.com/xraph/tribunal/id"
	"github.com/xraph/tribunal/types"
)

// State of a decision in the pipeline.
type State string

const (
	StateCreated        State = "created"
	StateRouted         State = "routed"
	StateExecuting      State = "executing"
	StateAggregated     State = "aggregated"
	StateAwaitingReview State = "awaiting_review"
	StateFinalized      State = "finalized"
	StateRejected       State = "rejected"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateRejected
}

// Cancelable reports whether a caller may still abandon the decision.
// Once aggregated, the decision must reach a terminal state explicitly.
func (s State) Cancelable() bool {
	return s == StateCreated || s == StateRouted || s == StateExecuting
}

// Request is one unit of work submitted to the pipeline. Immutable once
// created; TenantID is supplied by the authentication boundary.
type Request struct {
	TenantID    string         `json:"tenant_id"`
	Module      string         `json:"module"`
	Action      string         `json:"action"`
	InputData   map[string]any `json:"input_data"`
	Context     map[string]any `json:"context,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// ModuleResult is the outcome of one scoring module invocation.
// Produced once, never mutated.
type ModuleResult struct {
	ID         id.ModuleResultID `json:"id"`
	ModuleCode string            `json:"module_code"`
	Payload    map[string]any    `json:"result_payload"`
	Confidence types.Confidence  `json:"confidence"`
	Latency    time.Duration     `json:"latency"`
	Excluded   bool              `json:"excluded,omitempty"`
	Failure    string            `json:"failure,omitempty"`
}

// Decision is the persisted record of one pipeline run, including the
// module results it aggregated and, once committed, its ledger hash.
type Decision struct {
	types.Entity
	ID         id.DecisionID    `json:"id"`
	TenantID   string           `json:"tenant_id"`
	Module     string           `json:"module"`
	Action     string           `json:"action"`
	State      State            `json:"state"`
	Results    []ModuleResult   `json:"module_results"`
	Aggregate  types.Confidence `json:"aggregate_confidence"`
	Review     bool             `json:"requires_human_review"`
	AuditHash  string           `json:"audit_hash,omitempty"`
	AnalysisID id.AnalysisID    `json:"analysis_id,omitempty"`
	ReviewID   id.ReviewID      `json:"review_id,omitempty"`
	ReviewedBy string           `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty"`
}

// Response is the caller-facing view of a decision. For review-gated
// decisions the audit hash is empty until the review resolves.
type Response struct {
	DecisionID          id.DecisionID    `json:"decision_id"`
	Module              string           `json:"module"`
	Action              string           `json:"action"`
	State               State            `json:"state"`
	Result              map[string]any   `json:"result"`
	AggregateConfidence types.Confidence `json:"aggregate_confidence"`
	Timestamp           time.Time        `json:"timestamp"`
	AuditHash           string           `json:"audit_hash,omitempty"`
	RequiresHumanReview bool             `json:"requires_human_review"`
}

// Response assembles the caller-facing view from the record. The result map
// carries each included module's payload keyed by module code.
func (d *Decision) Response() *Response {
	result := make(map[string]any, len(d.Results))
	for i := range d.Results {
		r := &d.Results[i]
		if r.Excluded {
			continue
		}
		result[r.ModuleCode] = r.Payload
	}

	return &Response{
		DecisionID:          d.ID,
		Module:              d.Module,
		Action:              d.Action,
		State:               d.State,
		Result:              result,
		AggregateConfidence: d.Aggregate,
		Timestamp:           d.UpdatedAt,
		AuditHash:           d.AuditHash,
		RequiresHumanReview: d.Review,
	}
}

// ListOpts filters decision reads.
type ListOpts struct {
	State  State
	Limit  int
	Offset int
}
