package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/tribunal/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"DecisionID", id.NewDecisionID, "dec_"},
		{"AnalysisID", id.NewAnalysisID, "cana_"},
		{"ModuleResultID", id.NewModuleResultID, "mres_"},
		{"ReviewID", id.NewReviewID, "rev_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixDecision)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixDecision {
		t.Errorf("expected prefix %q, got %q", id.PrefixDecision, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"DecisionID", id.NewDecisionID, id.ParseDecisionID},
		{"AnalysisID", id.NewAnalysisID, id.ParseAnalysisID},
		{"ModuleResultID", id.NewModuleResultID, id.ParseModuleResultID},
		{"ReviewID", id.NewReviewID, id.ParseReviewID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseDecisionID rejects cana_", id.NewAnalysisID().String(), id.ParseDecisionID},
		{"ParseAnalysisID rejects mres_", id.NewModuleResultID().String(), id.ParseAnalysisID},
		{"ParseModuleResultID rejects rev_", id.NewReviewID().String(), id.ParseModuleResultID},
		{"ParseReviewID rejects dec_", id.NewDecisionID().String(), id.ParseReviewID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseAny(t *testing.T) {
	ids := []id.ID{
		id.NewDecisionID(),
		id.NewAnalysisID(),
		id.NewModuleResultID(),
		id.NewReviewID(),
	}

	for _, i := range ids {
		t.Run(i.String(), func(t *testing.T) {
			parsed, err := id.ParseAny(i.String())
			if err != nil {
				t.Fatalf("ParseAny(%q) failed: %v", i.String(), err)
			}
			if parsed.String() != i.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), i.String())
			}
		})
	}
}

func TestParseWithPrefix(t *testing.T) {
	i := id.NewDecisionID()
	parsed, err := id.ParseWithPrefix(i.String(), id.PrefixDecision)
	if err != nil {
		t.Fatalf("ParseWithPrefix failed: %v", err)
	}
	if parsed.String() != i.String() {
		t.Errorf("mismatch: %q != %q", parsed.String(), i.String())
	}

	_, err = id.ParseWithPrefix(i.String(), id.PrefixAnalysis)
	if err == nil {
		t.Error("expected error for wrong prefix")
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	if err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}
