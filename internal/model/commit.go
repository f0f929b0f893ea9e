package model

import "time"

// CommitRecord is the ledger's acknowledgement of a committed verdict.
// The ledger is the source of truth; this only mirrors its answer.
type CommitRecord struct {
	BetID       int64     `json:"bet_id"`
	Verdict     Verdict   `json:"verdict"`
	TxHash      string    `json:"tx_hash,omitempty"`
	CommittedAt time.Time `json:"committed_at"`
}

// Bet mirrors the contract-side bet record as returned by view calls.
// Resolution is empty until the bet has been settled.
type Bet struct {
	BetID      int64  `json:"bet_id"`
	Terms      string `json:"terms"`
	Resolution string `json:"resolution"`
}

// Resolved reports whether the ledger already holds a verdict.
func (b *Bet) Resolved() bool {
	return b != nil && b.Resolution != ""
}
