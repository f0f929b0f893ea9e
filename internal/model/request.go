package model

import "strings"

// Envelope is the outer agent-event payload relayed from the contract.
// The message field is kept raw because two shapes are in the wild: a
// nested object with explicit terms/id fields, and a plain string using
// the trailing "<terms>_<betId>" convention.
type Envelope struct {
	RequestID string `json:"requestId"`
	SignerID  string `json:"signerId"`
	Message   string `json:"message"`
}

// ResolutionRequest is the validated, immutable form of an inbound
// wager-resolution event. Constructed only by the decode package.
type ResolutionRequest struct {
	RequestID string `json:"request_id"`
	SignerID  string `json:"signer_id"`
	BetID     int64  `json:"bet_id"` // always >= 0
	Terms     string `json:"terms"`  // non-empty after trimming
}

// Verdict is the resolved truth value of a bet's terms. There is no
// unresolved state at this layer; anything the judge returns that is
// not exactly one of the two tokens is an error, never a default.
type Verdict string

const (
	VerdictTrue  Verdict = "TRUE"
	VerdictFalse Verdict = "FALSE"
)

// ParseVerdict maps a raw judge response to a Verdict. It tolerates
// case and surrounding punctuation but nothing else.
func ParseVerdict(s string) (Verdict, bool) {
	s = strings.ToUpper(strings.Trim(strings.TrimSpace(s), ".!\"'`"))
	switch s {
	case "TRUE":
		return VerdictTrue, true
	case "FALSE":
		return VerdictFalse, true
	default:
		return "", false
	}
}
