package tribunal_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/tribunal"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/store/memory"
	"github.com/xraph/tribunal/tenant"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize Tribunal with options
		trb := tribunal.New(store,
			tribunal.WithLogger(slog.Default()),
			tribunal.WithReviewThreshold(85),
			tribunal.WithModuleTimeout(5*time.Second),
		)

		// Start the engine
		ctx := context.Background()
		if err := trb.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer trb.Stop()

		// Provision a tenant
		ten, err := trb.CreateTenant(ctx, "org-acme", "Acme Corp", tenant.PlanProfessional)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("tenant %s on plan %s\n", ten.OrgID, ten.Plan)

		// Run a contract analysis through the governed pipeline
		analysis, err := trb.AnalyzeContract(ctx, "org-acme",
			"This agreement includes confidentiality and termination clauses "+
				"with payment terms governed by the laws of Delaware, United States. "+
				"The parties agree to binding arbitration for any dispute arising "+
				"from this agreement, and each party shall maintain the proprietary "+
				"information of the other in strict confidence for the full term.",
			map[string]any{"jurisdiction": "us"},
		)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("analysis %s: compliance %s, overall risk %s\n",
			analysis.ID, analysis.ComplianceScore, analysis.OverallRisk)

		// Execute a simple single-module decision
		resp, err := trb.ExecuteDecision(ctx, &decision.Request{
			TenantID:  "org-acme",
			Module:    "perception",
			Action:    "score_document",
			InputData: map[string]any{"text": "Quarterly vendor agreement for review."},
		})
		if err != nil {
			t.Fatal(err)
		}
		if resp.RequiresHumanReview {
			log.Printf("decision %s parked for review at %s confidence\n",
				resp.DecisionID, resp.AggregateConfidence)
		} else {
			log.Printf("decision %s finalized, audit hash %s\n",
				resp.DecisionID, resp.AuditHash)
		}

		// Verify the tenant's audit chain end to end
		report, err := trb.VerifyChain(ctx, "org-acme", 0)
		if err != nil {
			t.Fatal(err)
		}
		if !report.OK {
			t.Fatalf("chain verification failed: %s", report.Reason)
		}

		// Check usage against the plan quota
		stats, err := trb.UsageStats(ctx, "org-acme")
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("usage: %d used, %d remaining\n", stats.Used, stats.Remaining)
	})
}
