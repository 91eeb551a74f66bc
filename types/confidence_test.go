package types

import "testing"

func TestConfidenceBounds(t *testing.T) {
	tests := []struct {
		name    string
		c       Confidence
		valid   bool
		clamped Confidence
	}{
		{"zero", 0, true, 0},
		{"mid", 85, true, 85},
		{"max", 100, true, 100},
		{"negative", -5, false, 0},
		{"over", 110, false, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Valid(); got != tt.valid {
				t.Errorf("Valid: got %v, want %v", got, tt.valid)
			}
			if got := tt.c.Clamp(); got != tt.clamped {
				t.Errorf("Clamp: got %s, want %s", got, tt.clamped)
			}
		})
	}
}

func TestConfidenceBelow(t *testing.T) {
	if !Confidence(84.9).Below(85) {
		t.Error("84.9 should be below 85")
	}
	if Confidence(85).Below(85) {
		t.Error("threshold itself is not below")
	}
}

func TestMinOf(t *testing.T) {
	tests := []struct {
		name   string
		scores []Confidence
		want   Confidence
	}{
		{"weakest link", []Confidence{99, 80, 95}, 80},
		{"single", []Confidence{72}, 72},
		{"empty is identity", nil, MaxConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinOf(tt.scores); got != tt.want {
				t.Errorf("MinOf: got %s, want %s", got, tt.want)
			}
		})
	}
}
