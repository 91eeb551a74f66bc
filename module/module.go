// Package module defines the pluggable scoring capability the pipeline fans
// out to: a uniform execution contract, a static registry of tagged variants,
// and a concurrent runner with per-module timeouts.
//
// Modules are stateless per call and pure with respect to external state --
// a module never writes anywhere, it only scores its input.
package module

import (
	"context"
	"errors"

	"github.com/xraph/tribunal/types"
)

// Code tags a module variant. Dispatch is a static registry lookup,
// never reflection.
type Code string

const (
	CodePerception         Code = "perception"
	CodeEthicalCalibration Code = "ethical-calibration"
	CodePredictiveFeedback Code = "predictive-feedback"
	CodeAdvisory           Code = "advisory"

	// CodeAuditSink labels the ledger append step in failure reports.
	// It is not an executable scoring module; the sink is always mandatory.
	CodeAuditSink Code = "audit-sink"
)

// Sentinel errors for the module execution contract.
var (
	// ErrInvalidInput signals a malformed payload the module cannot score.
	ErrInvalidInput = errors.New("module: invalid input")

	// ErrUnavailable signals an internal module failure or timeout.
	ErrUnavailable = errors.New("module: unavailable")
)

// Result is a module's scored output.
type Result struct {
	Payload    map[string]any   `json:"result_payload"`
	Confidence types.Confidence `json:"confidence"`
}

// Module is the uniform execution contract every scoring variant implements.
// Execute must not retain or mutate its inputs.
type Module interface {
	Code() Code
	Execute(ctx context.Context, input, reqContext map[string]any) (*Result, error)
}
