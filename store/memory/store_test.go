package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/tribunal"
	"github.com/xraph/tribunal/contract"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/id"
	"github.com/xraph/tribunal/store/memory"
	"github.com/xraph/tribunal/tenant"
	"github.com/xraph/tribunal/types"
)

func newTenant(orgID string, plan tenant.Plan) *tenant.Tenant {
	t := &tenant.Tenant{
		Entity:  types.NewEntity(),
		OrgID:   orgID,
		OrgName: "Test Org",
		Status:  tenant.StatusActive,
	}
	t.Apply(plan)
	return t
}

// Stored records and returned records must not share nested state: a caller
// mutating either side must never reach the other.
func TestCloneIsolation(t *testing.T) {
	ctx := context.Background()

	t.Run("tenant features detached from reads", func(t *testing.T) {
		st := memory.New()
		if err := st.CreateTenant(ctx, newTenant("org-acme", tenant.PlanStarter)); err != nil {
			t.Fatal(err)
		}

		got, err := st.GetTenant(ctx, "org-acme")
		if err != nil {
			t.Fatal(err)
		}
		got.Features["custom_models"] = struct{}{}
		delete(got.Features, tenant.FeatureAnalysisBasic)

		again, err := st.GetTenant(ctx, "org-acme")
		if err != nil {
			t.Fatal(err)
		}
		if again.Features.Has("custom_models") {
			t.Error("feature added on a returned tenant reached the store")
		}
		if !again.Features.Has(tenant.FeatureAnalysisBasic) {
			t.Error("feature deleted on a returned tenant reached the store")
		}
	})

	t.Run("tenant features detached from writes", func(t *testing.T) {
		st := memory.New()
		ten := newTenant("org-acme", tenant.PlanStarter)
		if err := st.CreateTenant(ctx, ten); err != nil {
			t.Fatal(err)
		}

		ten.Features["late_addition"] = struct{}{}

		got, err := st.GetTenant(ctx, "org-acme")
		if err != nil {
			t.Fatal(err)
		}
		if got.Features.Has("late_addition") {
			t.Error("mutation of the caller's tenant reached the store")
		}
	})

	t.Run("decision results detached", func(t *testing.T) {
		st := memory.New()
		d := &decision.Decision{
			Entity:   types.NewEntity(),
			ID:       id.NewDecisionID(),
			TenantID: "org-acme",
			State:    decision.StateFinalized,
			Results: []decision.ModuleResult{{
				ID:         id.NewModuleResultID(),
				ModuleCode: "perception",
				Payload:    map[string]any{"score": 90.0},
				Confidence: 90,
			}},
		}
		if err := st.CreateDecision(ctx, d); err != nil {
			t.Fatal(err)
		}

		got, err := st.GetDecision(ctx, "org-acme", d.ID)
		if err != nil {
			t.Fatal(err)
		}
		got.Results[0].ModuleCode = "tampered"
		got.Results[0].Payload["score"] = 1.0

		again, err := st.GetDecision(ctx, "org-acme", d.ID)
		if err != nil {
			t.Fatal(err)
		}
		if again.Results[0].ModuleCode != "perception" {
			t.Errorf("module code = %q, want perception", again.Results[0].ModuleCode)
		}
		if again.Results[0].Payload["score"] != 90.0 {
			t.Errorf("payload score = %v, want 90", again.Results[0].Payload["score"])
		}
	})

	t.Run("analysis findings detached", func(t *testing.T) {
		st := memory.New()
		a := &contract.Analysis{
			ID:         id.NewAnalysisID(),
			TenantID:   "org-acme",
			DecisionID: id.NewDecisionID(),
			KeyTerms:   []string{"governing law"},
			Risks: []contract.Risk{{
				Severity:       contract.SeverityHigh,
				Description:    "unlimited liability",
				Recommendation: "negotiate a cap",
			}},
			LegalFrameworks: []string{"SOX"},
		}
		if err := st.CreateAnalysis(ctx, a); err != nil {
			t.Fatal(err)
		}

		got, err := st.GetAnalysis(ctx, "org-acme", a.ID)
		if err != nil {
			t.Fatal(err)
		}
		got.KeyTerms[0] = "tampered"
		got.Risks[0].Severity = contract.SeverityLow
		got.LegalFrameworks[0] = "tampered"

		again, err := st.GetAnalysis(ctx, "org-acme", a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if again.KeyTerms[0] != "governing law" {
			t.Errorf("key term = %q, want original", again.KeyTerms[0])
		}
		if again.Risks[0].Severity != contract.SeverityHigh {
			t.Errorf("severity = %s, want high", again.Risks[0].Severity)
		}
		if again.LegalFrameworks[0] != "SOX" {
			t.Errorf("framework = %q, want SOX", again.LegalFrameworks[0])
		}
	})
}

func TestDeleteAnalysis(t *testing.T) {
	ctx := context.Background()

	st := memory.New()
	a := &contract.Analysis{
		ID:         id.NewAnalysisID(),
		TenantID:   "org-acme",
		DecisionID: id.NewDecisionID(),
	}
	if err := st.CreateAnalysis(ctx, a); err != nil {
		t.Fatal(err)
	}

	// Tenant scoping holds on deletes too.
	if err := st.DeleteAnalysis(ctx, "org-other", a.ID); !errors.Is(err, tribunal.ErrAnalysisNotFound) {
		t.Fatalf("err = %v, want ErrAnalysisNotFound for foreign tenant", err)
	}
	if _, err := st.GetAnalysis(ctx, "org-acme", a.ID); err != nil {
		t.Fatalf("analysis lost on foreign-tenant delete: %v", err)
	}

	if err := st.DeleteAnalysis(ctx, "org-acme", a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetAnalysis(ctx, "org-acme", a.ID); !errors.Is(err, tribunal.ErrAnalysisNotFound) {
		t.Fatalf("err = %v, want ErrAnalysisNotFound after delete", err)
	}
	if err := st.DeleteAnalysis(ctx, "org-acme", a.ID); !errors.Is(err, tribunal.ErrAnalysisNotFound) {
		t.Fatalf("err = %v, want ErrAnalysisNotFound on repeat delete", err)
	}
}
