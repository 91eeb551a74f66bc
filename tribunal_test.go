package tribunal_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xraph/tribunal"
	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/contract"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/id"
	"github.com/xraph/tribunal/module"
	"github.com/xraph/tribunal/store"
	"github.com/xraph/tribunal/store/memory"
	"github.com/xraph/tribunal/tenant"
	"github.com/xraph/tribunal/types"
)

// stubModule is a deterministic scorer for pipeline tests.
type stubModule struct {
	code module.Code
	conf types.Confidence
	fail error
}

func (m *stubModule) Code() module.Code { return m.code }

func (m *stubModule) Execute(_ context.Context, _, _ map[string]any) (*module.Result, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return &module.Result{
		Payload:    map[string]any{"score": float64(m.conf)},
		Confidence: m.conf,
	}, nil
}

// stubOpts replaces the four built-in modules with fixed confidences.
// A zero confidence installs a failing variant instead.
func stubOpts(perception, ethical, predictive, advisory types.Confidence) []tribunal.Option {
	build := func(code module.Code, conf types.Confidence) module.Module {
		if conf == 0 {
			return &stubModule{code: code, fail: module.ErrUnavailable}
		}
		return &stubModule{code: code, conf: conf}
	}
	return []tribunal.Option{
		tribunal.WithModule(build(module.CodePerception, perception), module.Mandatory()),
		tribunal.WithModule(build(module.CodeEthicalCalibration, ethical), module.Mandatory()),
		tribunal.WithModule(build(module.CodePredictiveFeedback, predictive)),
		tribunal.WithModule(build(module.CodeAdvisory, advisory)),
	}
}

func newEngine(t *testing.T, st store.Store, opts ...tribunal.Option) *tribunal.Tribunal {
	t.Helper()

	trb := tribunal.New(st, opts...)
	if err := trb.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = trb.Stop() })
	return trb
}

func createTenant(t *testing.T, trb *tribunal.Tribunal, orgID string, plan tenant.Plan) {
	t.Helper()

	if _, err := trb.CreateTenant(context.Background(), orgID, "Test Org", plan); err != nil {
		t.Fatal(err)
	}
}

func analyzeRequest(orgID string) *decision.Request {
	return &decision.Request{
		TenantID:  orgID,
		Module:    "contract",
		Action:    tribunal.ActionAnalyzeContract,
		InputData: map[string]any{"document_text": "This agreement covers payment terms."},
	}
}

func TestExecuteDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("finalizes above threshold", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 95, 90, 88)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		resp, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme"))
		if err != nil {
			t.Fatal(err)
		}
		if resp.State != decision.StateFinalized {
			t.Errorf("state = %s, want finalized", resp.State)
		}
		if resp.AggregateConfidence != 88 {
			t.Errorf("aggregate = %s, want 88", resp.AggregateConfidence)
		}
		if resp.AuditHash == "" {
			t.Error("finalized decision has no audit hash")
		}
		if resp.RequiresHumanReview {
			t.Error("decision above threshold requires review")
		}
		if len(resp.Result) != 4 {
			t.Errorf("result payloads = %d, want 4", len(resp.Result))
		}

		count, err := st.CountAudit(ctx, "org-acme")
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("ledger entries = %d, want 1", count)
		}
	})

	t.Run("parks below threshold", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 95, 80, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		resp, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme"))
		if err != nil {
			t.Fatal(err)
		}
		if resp.State != decision.StateAwaitingReview {
			t.Errorf("state = %s, want awaiting_review", resp.State)
		}
		if !resp.RequiresHumanReview {
			t.Error("decision below threshold does not require review")
		}
		if resp.AuditHash != "" {
			t.Errorf("parked decision carries audit hash %q", resp.AuditHash)
		}

		// No ledger entry until the review resolves, but the reservation
		// stays consumed while the decision is parked.
		count, _ := st.CountAudit(ctx, "org-acme")
		if count != 0 {
			t.Errorf("ledger entries = %d, want 0", count)
		}
		stats, err := trb.UsageStats(ctx, "org-acme")
		if err != nil {
			t.Fatal(err)
		}
		if stats.Used != 1 {
			t.Errorf("usage = %d, want 1", stats.Used)
		}
	})

	t.Run("penalizes excluded optional module", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 97, 0, 96)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		resp, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme"))
		if err != nil {
			t.Fatal(err)
		}
		// min(99, 97, 96) - 10 = 86, still above the default threshold.
		if resp.AggregateConfidence != 86 {
			t.Errorf("aggregate = %s, want 86", resp.AggregateConfidence)
		}
		if resp.State != decision.StateFinalized {
			t.Errorf("state = %s, want finalized", resp.State)
		}
		if _, ok := resp.Result[string(module.CodePredictiveFeedback)]; ok {
			t.Error("excluded module payload present in response")
		}
	})

	t.Run("mandatory failure aborts and releases usage", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(0, 95, 90, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		_, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme"))
		if !errors.Is(err, tribunal.ErrModuleUnavailable) {
			t.Fatalf("err = %v, want ErrModuleUnavailable", err)
		}

		stats, err := trb.UsageStats(ctx, "org-acme")
		if err != nil {
			t.Fatal(err)
		}
		if stats.Used != 0 {
			t.Errorf("usage = %d after abort, want 0", stats.Used)
		}
		count, _ := st.CountAudit(ctx, "org-acme")
		if count != 0 {
			t.Errorf("ledger entries = %d after abort, want 0", count)
		}
	})

	t.Run("single module action is mandatory", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st,
			tribunal.WithModule(&stubModule{code: "scorer", conf: 92}),
			tribunal.WithModule(&stubModule{code: "flaky", fail: module.ErrUnavailable}),
		)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		resp, err := trb.ExecuteDecision(ctx, &decision.Request{
			TenantID:  "org-acme",
			Module:    "scorer",
			Action:    "score_document",
			InputData: map[string]any{"text": "hello"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if resp.State != decision.StateFinalized || resp.AggregateConfidence != 92 {
			t.Errorf("resp = %s/%s, want finalized/92", resp.State, resp.AggregateConfidence)
		}

		// A failing single module aborts even though it is registered as
		// optional.
		_, err = trb.ExecuteDecision(ctx, &decision.Request{
			TenantID:  "org-acme",
			Module:    "flaky",
			Action:    "score_document",
			InputData: map[string]any{"text": "hello"},
		})
		if !errors.Is(err, tribunal.ErrModuleUnavailable) {
			t.Fatalf("err = %v, want ErrModuleUnavailable", err)
		}
	})

	t.Run("inactive tenant denied", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 95, 90, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		if err := trb.DeactivateTenant(ctx, "org-acme"); err != nil {
			t.Fatal(err)
		}

		_, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme"))
		if !errors.Is(err, tribunal.ErrTenantInactive) {
			t.Fatalf("err = %v, want ErrTenantInactive", err)
		}
	})

	t.Run("unknown tenant denied", func(t *testing.T) {
		trb := newEngine(t, memory.New())
		_, err := trb.ExecuteDecision(ctx, analyzeRequest("org-ghost"))
		if !errors.Is(err, tribunal.ErrTenantNotFound) {
			t.Fatalf("err = %v, want ErrTenantNotFound", err)
		}
	})
}

func TestRequestValidation(t *testing.T) {
	ctx := context.Background()
	trb := newEngine(t, memory.New())

	for _, tc := range []struct {
		name string
		req  *decision.Request
	}{
		{"nil request", nil},
		{"missing tenant", &decision.Request{Action: "score", Module: "advisory", InputData: map[string]any{"a": 1}}},
		{"missing action", &decision.Request{TenantID: "org", Module: "advisory", InputData: map[string]any{"a": 1}}},
		{"missing module", &decision.Request{TenantID: "org", Action: "score", InputData: map[string]any{"a": 1}}},
		{"empty input", &decision.Request{TenantID: "org", Action: "score", Module: "advisory"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := trb.ExecuteDecision(ctx, tc.req)
			var verr tribunal.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestResolveReview(t *testing.T) {
	ctx := context.Background()

	park := func(t *testing.T, trb *tribunal.Tribunal) *decision.Response {
		t.Helper()
		resp, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme"))
		if err != nil {
			t.Fatal(err)
		}
		if resp.State != decision.StateAwaitingReview {
			t.Fatalf("state = %s, want awaiting_review", resp.State)
		}
		return resp
	}

	t.Run("approve finalizes with ledger entry", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 95, 70, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		parked := park(t, trb)

		resp, err := trb.ResolveReview(ctx, "org-acme", parked.DecisionID, tribunal.VerdictApprove, "reviewer@acme")
		if err != nil {
			t.Fatal(err)
		}
		if resp.State != decision.StateFinalized {
			t.Errorf("state = %s, want finalized", resp.State)
		}
		if resp.AuditHash == "" {
			t.Error("approved decision has no audit hash")
		}

		d, err := trb.GetDecision(ctx, "org-acme", parked.DecisionID)
		if err != nil {
			t.Fatal(err)
		}
		if d.ReviewedBy != "reviewer@acme" || d.ReviewedAt == nil {
			t.Errorf("review attribution missing: by=%q at=%v", d.ReviewedBy, d.ReviewedAt)
		}
		if d.ReviewID.IsNil() {
			t.Error("resolved decision has no review ID")
		}
		if _, err := id.ParseReviewID(d.ReviewID.String()); err != nil {
			t.Errorf("review ID %q: %v", d.ReviewID, err)
		}

		entries, err := trb.ReadAudit(ctx, "org-acme", 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Outcome != tribunal.OutcomeApproved {
			t.Errorf("entries = %+v, want one approved entry", entries)
		}
	})

	t.Run("reject is terminal and keeps usage consumed", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 95, 70, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		parked := park(t, trb)

		resp, err := trb.ResolveReview(ctx, "org-acme", parked.DecisionID, tribunal.VerdictReject, "reviewer@acme")
		if err != nil {
			t.Fatal(err)
		}
		if resp.State != decision.StateRejected {
			t.Errorf("state = %s, want rejected", resp.State)
		}
		if resp.AuditHash == "" {
			t.Error("rejected decision has no audit hash")
		}

		stats, _ := trb.UsageStats(ctx, "org-acme")
		if stats.Used != 1 {
			t.Errorf("usage = %d, want 1", stats.Used)
		}

		// Terminal decisions cannot be resolved again.
		_, err = trb.ResolveReview(ctx, "org-acme", parked.DecisionID, tribunal.VerdictApprove, "reviewer@acme")
		if !errors.Is(err, tribunal.ErrDecisionTerminal) {
			t.Fatalf("err = %v, want ErrDecisionTerminal", err)
		}
	})

	t.Run("wrong tenant cannot resolve", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 95, 70, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		createTenant(t, trb, "org-other", tenant.PlanStarter)
		parked := park(t, trb)

		_, err := trb.ResolveReview(ctx, "org-other", parked.DecisionID, tribunal.VerdictApprove, "reviewer@other")
		if !errors.Is(err, tribunal.ErrDecisionNotFound) {
			t.Fatalf("err = %v, want ErrDecisionNotFound", err)
		}
	})

	t.Run("finalized decision not reviewable", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 95, 90, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		resp, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme"))
		if err != nil {
			t.Fatal(err)
		}
		_, err = trb.ResolveReview(ctx, "org-acme", resp.DecisionID, tribunal.VerdictApprove, "reviewer@acme")
		if !errors.Is(err, tribunal.ErrDecisionTerminal) {
			t.Fatalf("err = %v, want ErrDecisionTerminal", err)
		}
	})

	t.Run("unknown verdict rejected", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 95, 70, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		parked := park(t, trb)

		_, err := trb.ResolveReview(ctx, "org-acme", parked.DecisionID, "escalate", "reviewer@acme")
		if !errors.Is(err, tribunal.ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	})
}

func TestQuotaEnforcement(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent reservations never overcommit", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st,
			tribunal.WithModule(&stubModule{code: "scorer", conf: 95}),
		)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		// Starter allows 100 contracts per period; 110 concurrent callers
		// must see exactly 100 grants.
		const callers = 110
		var wg sync.WaitGroup
		var granted, denied int64
		var mu sync.Mutex

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := trb.ExecuteDecision(ctx, &decision.Request{
					TenantID:  "org-acme",
					Module:    "scorer",
					Action:    "score_document",
					InputData: map[string]any{"text": "hello"},
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					granted++
				case errors.Is(err, tribunal.ErrQuotaExceeded):
					denied++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if granted != 100 || denied != 10 {
			t.Errorf("granted/denied = %d/%d, want 100/10", granted, denied)
		}

		stats, err := trb.UsageStats(ctx, "org-acme")
		if err != nil {
			t.Fatal(err)
		}
		if stats.Used != 100 || stats.Remaining != 0 {
			t.Errorf("stats = %+v, want used=100 remaining=0", stats)
		}

		count, _ := st.CountAudit(ctx, "org-acme")
		if count != 100 {
			t.Errorf("ledger entries = %d, want 100", count)
		}
	})

	t.Run("unbounded plan never denies", func(t *testing.T) {
		trb := newEngine(t, memory.New(),
			tribunal.WithModule(&stubModule{code: "scorer", conf: 95}),
		)
		createTenant(t, trb, "org-ent", tenant.PlanEnterprise)

		stats, err := trb.UsageStats(ctx, "org-ent")
		if err != nil {
			t.Fatal(err)
		}
		if !stats.Unbounded {
			t.Error("enterprise usage should report unbounded")
		}
	})

	t.Run("reset reopens the period", func(t *testing.T) {
		trb := newEngine(t, memory.New(),
			tribunal.WithModule(&stubModule{code: "scorer", conf: 95}),
		)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		if _, err := trb.ExecuteDecision(ctx, &decision.Request{
			TenantID:  "org-acme",
			Module:    "scorer",
			Action:    "score_document",
			InputData: map[string]any{"text": "hello"},
		}); err != nil {
			t.Fatal(err)
		}
		if err := trb.ResetUsage(ctx, "org-acme"); err != nil {
			t.Fatal(err)
		}
		stats, _ := trb.UsageStats(ctx, "org-acme")
		if stats.Used != 0 {
			t.Errorf("usage after reset = %d, want 0", stats.Used)
		}
	})
}

// failingAuditStore rejects every ledger append while delegating the rest of
// the Store surface to the memory driver.
type failingAuditStore struct {
	*memory.Store
}

func (s *failingAuditStore) AppendAudit(context.Context, *audit.Entry) error {
	return errors.New("sink offline")
}

// settleFailStore records created analyses while rejecting every ledger
// append, so the cleanup after a failed finalization can be observed.
type settleFailStore struct {
	*memory.Store
	created []id.AnalysisID
}

func (s *settleFailStore) CreateAnalysis(ctx context.Context, a *contract.Analysis) error {
	s.created = append(s.created, a.ID)
	return s.Store.CreateAnalysis(ctx, a)
}

func (s *settleFailStore) AppendAudit(context.Context, *audit.Entry) error {
	return errors.New("sink offline")
}

// ctxBoundStore refuses writes on a done context, the way the SQL and mongo
// drivers do.
type ctxBoundStore struct {
	*memory.Store
}

func (s *ctxBoundStore) AppendAudit(ctx context.Context, e *audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.AppendAudit(ctx, e)
}

func (s *ctxBoundStore) CreateDecision(ctx context.Context, d *decision.Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.CreateDecision(ctx, d)
}

func (s *ctxBoundStore) ReleaseUsage(ctx context.Context, orgID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.ReleaseUsage(ctx, orgID)
}

// cancelAfterAggregate cancels the caller's context once the fan-out has
// aggregated, before settlement begins.
type cancelAfterAggregate struct {
	cancel context.CancelFunc
}

func (p *cancelAfterAggregate) Name() string { return "cancel-after-aggregate" }

func (p *cancelAfterAggregate) OnDecisionExecuted(context.Context, *decision.Decision) error {
	p.cancel()
	return nil
}

// corruptingAuditStore silently alters the second entry it stores, breaking
// the payload hash binding without touching the chain head.
type corruptingAuditStore struct {
	*memory.Store
}

func (s *corruptingAuditStore) AppendAudit(ctx context.Context, e *audit.Entry) error {
	if e.Sequence == 2 {
		tampered := *e
		tampered.Outcome = "approved-with-edits"
		return s.Store.AppendAudit(ctx, &tampered)
	}
	return s.Store.AppendAudit(ctx, e)
}

func TestAuditSinkFailure(t *testing.T) {
	ctx := context.Background()

	st := &failingAuditStore{Store: memory.New()}
	opts := append(stubOpts(99, 95, 90, 90), tribunal.WithAppendRetry(1))
	trb := newEngine(t, st, opts...)
	createTenant(t, trb, "org-acme", tenant.PlanStarter)

	_, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme"))
	if !errors.Is(err, tribunal.ErrModuleUnavailable) {
		t.Fatalf("err = %v, want ErrModuleUnavailable", err)
	}

	// No response without a committed ledger entry, and no half-written
	// decision or consumed reservation left behind.
	decisions, err := trb.ListDecisions(ctx, "org-acme", decision.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 0 {
		t.Errorf("decisions persisted = %d, want 0", len(decisions))
	}
	stats, _ := trb.UsageStats(ctx, "org-acme")
	if stats.Used != 0 {
		t.Errorf("usage = %d, want 0", stats.Used)
	}
}

func TestPostAggregationCancellation(t *testing.T) {
	// A cancel landing between aggregation and the ledger append must not
	// abort the decision: settlement runs detached from the caller's context.
	st := &ctxBoundStore{Store: memory.New()}
	cctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := append(stubOpts(99, 95, 90, 90),
		tribunal.WithPlugin(&cancelAfterAggregate{cancel: cancel}),
	)
	trb := newEngine(t, st, opts...)
	createTenant(t, trb, "org-acme", tenant.PlanStarter)

	resp, err := trb.ExecuteDecision(cctx, analyzeRequest("org-acme"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.State != decision.StateFinalized {
		t.Errorf("state = %s, want finalized", resp.State)
	}
	if resp.AuditHash == "" {
		t.Error("finalized decision has no audit hash")
	}

	count, err := st.CountAudit(context.Background(), "org-acme")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("ledger entries = %d, want 1", count)
	}
	stats, _ := trb.UsageStats(context.Background(), "org-acme")
	if stats.Used != 1 {
		t.Errorf("usage = %d, want 1", stats.Used)
	}
}

func TestVerifyChain(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, trb *tribunal.Tribunal, n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			if _, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme")); err != nil {
				t.Fatal(err)
			}
		}
	}

	t.Run("intact chain verifies", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, stubOpts(99, 95, 90, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		run(t, trb, 5)

		report, err := trb.VerifyChain(ctx, "org-acme", 0)
		if err != nil {
			t.Fatal(err)
		}
		if !report.OK || report.Checked != 5 {
			t.Errorf("report = %+v, want OK with 5 checked", report)
		}

		entries, err := trb.ReadAudit(ctx, "org-acme", 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		for i, e := range entries {
			if e.Sequence != uint64(i+1) {
				t.Errorf("entry %d sequence = %d, want %d", i, e.Sequence, i+1)
			}
		}
	})

	t.Run("tampered entry halts the chain", func(t *testing.T) {
		st := &corruptingAuditStore{Store: memory.New()}
		trb := newEngine(t, st, stubOpts(99, 95, 90, 90)...)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		run(t, trb, 3)

		report, err := trb.VerifyChain(ctx, "org-acme", 0)
		if !errors.Is(err, tribunal.ErrChainIntegrity) {
			t.Fatalf("err = %v, want ErrChainIntegrity", err)
		}
		if report.OK || report.BadSequence != 2 {
			t.Errorf("report = %+v, want violation at sequence 2", report)
		}

		// Appends fail while halted.
		_, err = trb.ExecuteDecision(ctx, analyzeRequest("org-acme"))
		if !errors.Is(err, tribunal.ErrChainHalted) {
			t.Fatalf("err = %v, want ErrChainHalted", err)
		}
	})

	t.Run("empty chain is trivially valid", func(t *testing.T) {
		trb := newEngine(t, memory.New())
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		report, err := trb.VerifyChain(ctx, "org-acme", 0)
		if err != nil {
			t.Fatal(err)
		}
		if !report.OK || report.Checked != 0 {
			t.Errorf("report = %+v, want trivially OK", report)
		}
	})
}

func TestAnalyzeContract(t *testing.T) {
	ctx := context.Background()

	const doc = `This agreement is made under the governing law of Delaware,
United States. The parties accept unlimited liability for breach of the
confidentiality obligations herein. Payment terms include a non-refundable
fee with automatic renewal at each anniversary. Either party may terminate
with notice, subject to arbitration of any dispute.`

	t.Run("finalized analysis carries audit hash", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, tribunal.WithReviewThreshold(1))
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		a, err := trb.AnalyzeContract(ctx, "org-acme", doc, map[string]any{"jurisdiction": "us"})
		if err != nil {
			t.Fatal(err)
		}
		if a.ID.IsNil() || a.DecisionID.IsNil() {
			t.Fatal("analysis missing identifiers")
		}
		if a.AuditHash == "" {
			t.Error("finalized analysis has no audit hash")
		}
		if len(a.KeyTerms) == 0 {
			t.Error("no key terms extracted from clause-bearing document")
		}
		if len(a.Risks) == 0 {
			t.Error("no risks found despite indicator terms")
		}
		if !a.ComplianceScore.Valid() {
			t.Errorf("compliance score %s out of range", a.ComplianceScore)
		}

		stored, err := trb.GetAnalysis(ctx, "org-acme", a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.AuditHash != a.AuditHash {
			t.Errorf("stored hash = %q, want %q", stored.AuditHash, a.AuditHash)
		}
	})

	t.Run("review-gated analysis binds on approval", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, tribunal.WithReviewThreshold(100))
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		a, err := trb.AnalyzeContract(ctx, "org-acme", doc, nil)
		if err != nil {
			t.Fatal(err)
		}
		if a.AuditHash != "" {
			t.Errorf("parked analysis carries audit hash %q", a.AuditHash)
		}

		resp, err := trb.ResolveReview(ctx, "org-acme", a.DecisionID, tribunal.VerdictApprove, "reviewer@acme")
		if err != nil {
			t.Fatal(err)
		}
		stored, err := trb.GetAnalysis(ctx, "org-acme", a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.AuditHash == "" || stored.AuditHash != resp.AuditHash {
			t.Errorf("analysis hash = %q, decision hash = %q", stored.AuditHash, resp.AuditHash)
		}
	})

	t.Run("failed finalize leaves no analysis behind", func(t *testing.T) {
		st := &settleFailStore{Store: memory.New()}
		trb := newEngine(t, st,
			tribunal.WithReviewThreshold(1),
			tribunal.WithAppendRetry(1),
		)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		_, err := trb.AnalyzeContract(ctx, "org-acme", doc, nil)
		if !errors.Is(err, tribunal.ErrModuleUnavailable) {
			t.Fatalf("err = %v, want ErrModuleUnavailable", err)
		}
		if len(st.created) != 1 {
			t.Fatalf("analyses created = %d, want 1", len(st.created))
		}
		if _, err := trb.GetAnalysis(ctx, "org-acme", st.created[0]); !errors.Is(err, tribunal.ErrAnalysisNotFound) {
			t.Fatalf("err = %v, want ErrAnalysisNotFound after cleanup", err)
		}
		stats, _ := trb.UsageStats(ctx, "org-acme")
		if stats.Used != 0 {
			t.Errorf("usage = %d, want 0", stats.Used)
		}
	})

	t.Run("empty document rejected", func(t *testing.T) {
		trb := newEngine(t, memory.New())
		_, err := trb.AnalyzeContract(ctx, "org-acme", "", nil)
		var verr tribunal.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
	})

	t.Run("tenant isolation on reads", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st, tribunal.WithReviewThreshold(1))
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		createTenant(t, trb, "org-other", tenant.PlanStarter)

		a, err := trb.AnalyzeContract(ctx, "org-acme", doc, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := trb.GetAnalysis(ctx, "org-other", a.ID); !errors.Is(err, tribunal.ErrAnalysisNotFound) {
			t.Fatalf("err = %v, want ErrAnalysisNotFound", err)
		}
	})
}

func TestTenantManagement(t *testing.T) {
	ctx := context.Background()

	t.Run("create validates plan", func(t *testing.T) {
		trb := newEngine(t, memory.New())
		if _, err := trb.CreateTenant(ctx, "org-acme", "Acme", "platinum"); !errors.Is(err, tribunal.ErrUnknownPlan) {
			t.Fatalf("err = %v, want ErrUnknownPlan", err)
		}
		if _, err := trb.CreateTenant(ctx, "", "Acme", tenant.PlanStarter); err == nil {
			t.Fatal("empty org ID accepted")
		}
	})

	t.Run("duplicate org rejected", func(t *testing.T) {
		trb := newEngine(t, memory.New())
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		if _, err := trb.CreateTenant(ctx, "org-acme", "Acme", tenant.PlanStarter); !errors.Is(err, tribunal.ErrDuplicateTenant) {
			t.Fatalf("err = %v, want ErrDuplicateTenant", err)
		}
	})

	t.Run("plan change preserves usage", func(t *testing.T) {
		st := memory.New()
		trb := newEngine(t, st,
			tribunal.WithModule(&stubModule{code: "scorer", conf: 95}),
		)
		createTenant(t, trb, "org-acme", tenant.PlanStarter)

		if _, err := trb.ExecuteDecision(ctx, &decision.Request{
			TenantID:  "org-acme",
			Module:    "scorer",
			Action:    "score_document",
			InputData: map[string]any{"text": "hello"},
		}); err != nil {
			t.Fatal(err)
		}

		ten, err := trb.ChangePlan(ctx, "org-acme", tenant.PlanProfessional)
		if err != nil {
			t.Fatal(err)
		}
		if ten.Plan != tenant.PlanProfessional {
			t.Errorf("plan = %s, want professional", ten.Plan)
		}
		if ten.Quota.ContractsPerPeriod.N != 500 {
			t.Errorf("quota = %d, want 500", ten.Quota.ContractsPerPeriod.N)
		}

		stats, _ := trb.UsageStats(ctx, "org-acme")
		if stats.Used != 1 {
			t.Errorf("usage after plan change = %d, want 1", stats.Used)
		}
	})

	t.Run("change to unknown plan rejected", func(t *testing.T) {
		trb := newEngine(t, memory.New())
		createTenant(t, trb, "org-acme", tenant.PlanStarter)
		if _, err := trb.ChangePlan(ctx, "org-acme", "platinum"); !errors.Is(err, tribunal.ErrUnknownPlan) {
			t.Fatalf("err = %v, want ErrUnknownPlan", err)
		}
	})
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	trb := newEngine(t, st, stubOpts(99, 95, 90, 90)...)
	createTenant(t, trb, "org-acme", tenant.PlanStarter)

	for i := 0; i < 3; i++ {
		if _, err := trb.ExecuteDecision(ctx, analyzeRequest("org-acme")); err != nil {
			t.Fatal(err)
		}
	}

	m := trb.Metrics()
	if m.DecisionsExecuted != 3 || m.DecisionsFinalized != 3 || m.AuditAppends != 3 {
		t.Errorf("metrics = %+v, want 3 executed/finalized/appended", m)
	}
	if m.DecisionsRejected != 0 || m.ReviewsRequested != 0 {
		t.Errorf("metrics = %+v, want no rejections or reviews", m)
	}
}
