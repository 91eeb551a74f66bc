// Package tribunal provides a multi-tenant AI governance decision engine for Go applications.
//
// Tribunal is designed as a library, not a service. Import it directly into your Go
// application and put every automated decision through a governed pipeline. It provides:
//
//   - Concurrent fan-out across independent scoring modules with per-module timeouts
//   - Weakest-link confidence aggregation with penalties for degraded runs
//   - A human review gate for decisions below the confidence threshold
//   - A tamper-evident, hash-chained audit ledger per tenant
//   - Plan-based tenant entitlements with atomic usage quotas
//   - Contract analysis built on the four reference scoring modules
//   - Pluggable lifecycle hooks for audit recording and metrics
//
// # Quick Start
//
// Create a tribunal instance with your preferred store:
//
//	import (
//	    "github.com/xraph/tribunal"
//	    "github.com/xraph/tribunal/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create the engine
//	trb := tribunal.New(store)
//
//	// Start it (runs migrations, initializes plugins)
//	if err := trb.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer trb.Stop()
//
// # Core Concepts
//
// Tenants are isolated organizational accounts on a plan tier:
//
//	ten, err := trb.CreateTenant(ctx, "org-acme", "Acme Corp", tenant.PlanStarter)
//
// Decisions run through the pipeline and return a ledger-backed response:
//
//	resp, err := trb.ExecuteDecision(ctx, &decision.Request{
//	    TenantID:  "org-acme",
//	    Module:    "perception",
//	    Action:    "score_document",
//	    InputData: map[string]any{"document_text": text},
//	})
//	if resp.RequiresHumanReview {
//	    // Park until a reviewer resolves it
//	}
//
// Contract analysis fans out to all four scoring modules and derives a
// structured analysis from their payloads:
//
//	analysis, err := trb.AnalyzeContract(ctx, "org-acme", documentText, nil)
//
// # The Audit Ledger
//
// Every finalized or rejected decision appends exactly one entry to the
// tenant's hash chain. Each entry binds its predecessor's payload hash, so
// any mutation, deletion, or reordering of stored entries is detectable:
//
//	report, err := trb.VerifyChain(ctx, "org-acme", 0)
//	if !report.OK {
//	    // The chain is halted; appends fail until an operator intervenes.
//	}
//
// The append is the commit point of the pipeline. A decision for which the
// entry cannot be persisted never produces a successful response.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	dec_01h2xcejqtf2nbrexx3vqjhp41  // Decision ID
//	cana_01h2xcejqtf2nbrexx3vqjhp41 // Contract analysis ID
//	mres_01h455vb4pex5vsknk084sn02q // Module result ID
//	rev_01h455vb4pex5vsknk084sn02q  // Review resolution ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package tribunal
