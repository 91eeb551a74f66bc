package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// memorySink collects persisted entries like a store driver would.
type memorySink struct {
	mu      sync.Mutex
	entries map[string][]Entry
}

func newMemorySink() *memorySink {
	return &memorySink{entries: make(map[string][]Entry)}
}

func (s *memorySink) persist(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.TenantID] = append(s.entries[e.TenantID], *e)
	return nil
}

func (s *memorySink) load(_ context.Context, tenantID string) (uint64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.entries[tenantID]
	if len(chain) == 0 {
		return 0, "", nil
	}
	last := chain[len(chain)-1]
	return last.Sequence, last.PayloadHash, nil
}

func appendN(t *testing.T, l *Ledger, sink *memorySink, tenantID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		e := &Entry{
			TenantID:   tenantID,
			DecisionID: fmt.Sprintf("dec_%d", i),
			Module:     "contract_analysis",
			Action:     "analyze",
			Outcome:    "approved",
			Confidence: 90,
		}
		if err := l.Append(context.Background(), e, sink.persist); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
}

func TestAppendChaining(t *testing.T) {
	sink := newMemorySink()
	l := NewLedger(sink.load)
	appendN(t, l, sink, "acme", 3)

	chain := sink.entries["acme"]
	if chain[0].PrevHash != GenesisHash {
		t.Errorf("first entry prev_hash = %s, want genesis", chain[0].PrevHash)
	}
	for i, e := range chain {
		if e.Sequence != uint64(i+1) {
			t.Errorf("entry %d: sequence = %d", i, e.Sequence)
		}
		if i > 0 && e.PrevHash != chain[i-1].PayloadHash {
			t.Errorf("entry %d: prev_hash does not link", i)
		}
	}

	if report := Verify(chain); !report.OK || report.Checked != 3 {
		t.Errorf("verify = %+v, want clean over 3 entries", report)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	sink := newMemorySink()
	l := NewLedger(sink.load)
	appendN(t, l, sink, "acme", 5)

	t.Run("mutated payload", func(t *testing.T) {
		chain := append([]Entry(nil), sink.entries["acme"]...)
		chain[2].Outcome = "denied"

		report := Verify(chain)
		if report.OK {
			t.Fatal("verify accepted a tampered entry")
		}
		if report.BadSequence != 3 {
			t.Errorf("bad sequence = %d, want 3", report.BadSequence)
		}
	})

	t.Run("deleted entry", func(t *testing.T) {
		chain := append([]Entry(nil), sink.entries["acme"][:2]...)
		chain = append(chain, sink.entries["acme"][3:]...)

		report := Verify(chain)
		if report.OK || report.BadSequence != 4 {
			t.Errorf("report = %+v, want gap at sequence 4", report)
		}
	})

	t.Run("empty chain", func(t *testing.T) {
		if report := Verify(nil); !report.OK || report.Checked != 0 {
			t.Errorf("report = %+v, want clean empty", report)
		}
	})
}

func TestHaltBlocksAppends(t *testing.T) {
	sink := newMemorySink()
	l := NewLedger(sink.load)
	appendN(t, l, sink, "acme", 1)

	l.Halt("acme")
	err := l.Append(context.Background(), &Entry{TenantID: "acme"}, sink.persist)
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("err = %v, want ErrHalted", err)
	}

	if err := l.Reopen(context.Background(), "acme"); err != nil {
		t.Fatal(err)
	}
	appendN(t, l, sink, "acme", 1)
	if got := sink.entries["acme"][1].Sequence; got != 2 {
		t.Errorf("post-reopen sequence = %d, want 2", got)
	}
}

func TestFailedPersistReissuesSequence(t *testing.T) {
	sink := newMemorySink()
	l := NewLedger(sink.load)
	appendN(t, l, sink, "acme", 1)

	boom := errors.New("write failed")
	err := l.Append(context.Background(), &Entry{TenantID: "acme"}, func(context.Context, *Entry) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	// The head did not advance, so the retry gets the same sequence.
	e := &Entry{TenantID: "acme", Action: "analyze"}
	if err := l.Append(context.Background(), e, sink.persist); err != nil {
		t.Fatal(err)
	}
	if e.Sequence != 2 {
		t.Errorf("sequence = %d, want 2", e.Sequence)
	}
	if report := Verify(sink.entries["acme"]); !report.OK {
		t.Errorf("verify after retry = %+v", report)
	}
}

func TestHeadRecoveryFromStore(t *testing.T) {
	sink := newMemorySink()
	appendN(t, NewLedger(sink.load), sink, "acme", 4)

	// A fresh ledger over the same sink resumes from the persisted tail.
	l := NewLedger(sink.load)
	e := &Entry{TenantID: "acme", Action: "analyze"}
	if err := l.Append(context.Background(), e, sink.persist); err != nil {
		t.Fatal(err)
	}
	if e.Sequence != 5 {
		t.Errorf("sequence = %d, want 5", e.Sequence)
	}
	if report := Verify(sink.entries["acme"]); !report.OK {
		t.Errorf("verify = %+v", report)
	}
}

func TestTenantChainsIndependent(t *testing.T) {
	sink := newMemorySink()
	l := NewLedger(sink.load)
	appendN(t, l, sink, "acme", 2)
	appendN(t, l, sink, "globex", 3)

	if got := sink.entries["globex"][0].PrevHash; got != GenesisHash {
		t.Errorf("globex chain does not start at genesis: %s", got)
	}
	if n := len(sink.entries["acme"]); n != 2 {
		t.Errorf("acme entries = %d, want 2", n)
	}

	l.Halt("acme")
	if l.Halted("globex") {
		t.Error("halting acme froze globex")
	}
}
