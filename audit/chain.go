package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sentinel errors for chain state.
var (
	// ErrHalted signals appends to a chain frozen by an integrity violation.
	ErrHalted = errors.New("audit: chain halted")

	// ErrIntegrity signals a hash-link or sequence divergence.
	ErrIntegrity = errors.New("audit: chain integrity violation")
)

// HeadLoader resolves a tenant's persisted chain tail: the sequence and
// payload hash of its last entry, or (0, "") for an empty chain.
type HeadLoader func(ctx context.Context, tenantID string) (seq uint64, hash string, err error)

// head is the in-memory tail of one tenant's chain. Appends for a tenant
// serialize on its mutex; distinct tenants append concurrently.
type head struct {
	mu     sync.Mutex
	seq    uint64
	hash   string
	halted bool
	loaded bool
}

// Ledger owns the per-tenant chain heads and seals new entries onto them.
// Persistence is delegated to the caller so the seal and the write commit
// or fail together.
type Ledger struct {
	mu    sync.Mutex
	heads map[string]*head
	load  HeadLoader
}

// NewLedger creates a ledger that recovers chain tails through load on the
// first append or verification for a tenant.
func NewLedger(load HeadLoader) *Ledger {
	return &Ledger{heads: make(map[string]*head), load: load}
}

func (l *Ledger) head(tenantID string) *head {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.heads[tenantID]
	if !ok {
		h = &head{}
		l.heads[tenantID] = h
	}
	return h
}

// ensureLoaded recovers h from storage. Caller holds h.mu.
func (l *Ledger) ensureLoaded(ctx context.Context, tenantID string, h *head) error {
	if h.loaded {
		return nil
	}
	seq, hash, err := l.load(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("audit: load chain head for %s: %w", tenantID, err)
	}
	h.seq = seq
	h.hash = hash
	if h.hash == "" {
		h.hash = GenesisHash
	}
	h.loaded = true
	return nil
}

// Append seals e onto the tenant's chain and hands it to persist. The entry
// gets the next sequence, the current head as PrevHash, and its computed
// PayloadHash. The head only advances when persist returns nil, so a failed
// write leaves the chain exactly where it was and the same sequence is
// reissued on retry.
func (l *Ledger) Append(ctx context.Context, e *Entry, persist func(context.Context, *Entry) error) error {
	h := l.head(e.TenantID)
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := l.ensureLoaded(ctx, e.TenantID, h); err != nil {
		return err
	}
	if h.halted {
		return fmt.Errorf("audit: tenant %s: %w", e.TenantID, ErrHalted)
	}

	e.Sequence = h.seq + 1
	e.PrevHash = h.hash
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.PayloadHash = e.ComputeHash()

	if err := persist(ctx, e); err != nil {
		return err
	}

	h.seq = e.Sequence
	h.hash = e.PayloadHash
	return nil
}

// Halt freezes a tenant's chain after a detected violation. Further appends
// fail with ErrHalted until Reopen.
func (l *Ledger) Halt(tenantID string) {
	h := l.head(tenantID)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.halted = true
}

// Halted reports whether a tenant's chain is frozen.
func (l *Ledger) Halted(tenantID string) bool {
	h := l.head(tenantID)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.halted
}

// Reopen clears the halt and re-reads the persisted tail, for use after an
// operator has restored the stored entries to a verified state.
func (l *Ledger) Reopen(ctx context.Context, tenantID string) error {
	h := l.head(tenantID)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.loaded = false
	if err := l.ensureLoaded(ctx, tenantID, h); err != nil {
		return err
	}
	h.halted = false
	return nil
}

// VerifyReport is the result of a forward chain verification.
type VerifyReport struct {
	OK          bool   `json:"ok"`
	Checked     int    `json:"checked"`
	BadSequence uint64 `json:"bad_sequence,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Verify recomputes the chain forward from genesis and reports the first
// divergent entry. Entries must be the tenant's full ledger in ascending
// sequence order; an empty chain verifies clean.
func Verify(entries []Entry) VerifyReport {
	prevHash := GenesisHash
	var prevSeq uint64

	for i := range entries {
		e := &entries[i]
		switch {
		case e.Sequence != prevSeq+1:
			return VerifyReport{
				Checked:     i,
				BadSequence: e.Sequence,
				Reason:      fmt.Sprintf("sequence gap: got %d after %d", e.Sequence, prevSeq),
			}
		case e.PrevHash != prevHash:
			return VerifyReport{
				Checked:     i,
				BadSequence: e.Sequence,
				Reason:      "previous hash mismatch",
			}
		case e.ComputeHash() != e.PayloadHash:
			return VerifyReport{
				Checked:     i,
				BadSequence: e.Sequence,
				Reason:      "payload hash mismatch",
			}
		}
		prevHash = e.PayloadHash
		prevSeq = e.Sequence
	}

	return VerifyReport{OK: true, Checked: len(entries)}
}
