package tribunal

import "github.com/xraph/tribunal/types"

// Re-export common types for convenience so users don't have to import types package.

// Confidence is re-exported from types package.
type Confidence = types.Confidence

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Confidence bounds
const (
	MinConfidence = types.MinConfidence
	MaxConfidence = types.MaxConfidence
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
