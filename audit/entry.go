// Package audit implements the hash-chained decision ledger: an append-only
// sequence of entries per tenant, each linking to its predecessor through a
// SHA-256 digest so any retroactive edit is detectable by recomputation.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/xraph/tribunal/types"
)

// GenesisHash seeds every tenant chain. The first entry of a chain carries
// it as PrevHash; it is sha256("TRIBUNAL_GENESIS").
const GenesisHash = "d541002af1e9b62f88185209781ca3a4e7d001047306ef44762a7b304a7f821e"

// Entry is one immutable line in a tenant's ledger. Sequences are strictly
// increasing and gap-free from 1.
type Entry struct {
	Sequence    uint64           `json:"sequence"`
	TenantID    string           `json:"tenant_id"`
	DecisionID  string           `json:"decision_id"`
	Module      string           `json:"module"`
	Action      string           `json:"action"`
	Outcome     string           `json:"outcome"`
	Confidence  types.Confidence `json:"confidence"`
	PrevHash    string           `json:"prev_hash"`
	PayloadHash string           `json:"payload_hash"`
	Timestamp   time.Time        `json:"timestamp"`
}

// entryPayload is the canonical hashing view of an entry. All fields are
// scalars in a struct (no maps) so json.Marshal field order is
// deterministic and the digest is reproducible.
type entryPayload struct {
	Sequence   uint64  `json:"sequence"`
	TenantID   string  `json:"tenant_id"`
	DecisionID string  `json:"decision_id"`
	Module     string  `json:"module"`
	Action     string  `json:"action"`
	Outcome    string  `json:"outcome"`
	Confidence float64 `json:"confidence"`
}

// ComputeHash derives the entry digest from the previous hash, the canonical
// payload, and the timestamp. PrevHash and Timestamp must be set first.
func (e *Entry) ComputeHash() string {
	payload, _ := json.Marshal(entryPayload{
		Sequence:   e.Sequence,
		TenantID:   e.TenantID,
		DecisionID: e.DecisionID,
		Module:     e.Module,
		Action:     e.Action,
		Outcome:    e.Outcome,
		Confidence: float64(e.Confidence),
	})

	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write(payload)
	h.Write([]byte(e.Timestamp.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}
