package types

import "fmt"

// Confidence is a certainty score in the range [0, 100] attached to module
// results and aggregated decisions. The zero value means "no confidence".
type Confidence float64

// Confidence bounds.
const (
	MinConfidence Confidence = 0
	MaxConfidence Confidence = 100
)

// Valid reports whether the confidence falls within [0, 100].
func (c Confidence) Valid() bool {
	return c >= MinConfidence && c <= MaxConfidence
}

// Clamp returns the confidence bounded to [0, 100].
func (c Confidence) Clamp() Confidence {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// Below reports whether the confidence falls strictly under the threshold.
func (c Confidence) Below(threshold Confidence) bool {
	return c < threshold
}

// String formats the confidence with two decimal places.
func (c Confidence) String() string {
	return fmt.Sprintf("%.2f", float64(c))
}

// MinOf returns the smallest of the given confidences, the weakest-link
// aggregate. Returns MaxConfidence when the slice is empty so callers can
// fold penalties into an identity value.
func MinOf(scores []Confidence) Confidence {
	lowest := MaxConfidence
	for _, s := range scores {
		if s < lowest {
			lowest = s
		}
	}
	return lowest
}
