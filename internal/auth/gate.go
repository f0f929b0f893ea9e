package auth

import (
	"errors"
	"strings"
)

// ErrAccessDenied is returned for any identity outside the allow-list.
// The message doubles as the fixed, non-informative reply sent to the
// requester; policy detail never leaks through it.
var ErrAccessDenied = errors.New("access denied")

// Gate authorizes inbound signer identities against a fixed allow-list.
// It must run before any paid or side-effecting call: both the search
// fetch and the ledger write have real-world cost.
type Gate struct {
	allowed map[string]struct{}
}

// NewGate builds a gate from the configured signer identities. An
// empty list denies everything.
func NewGate(signers []string) *Gate {
	allowed := make(map[string]struct{}, len(signers))
	for _, s := range signers {
		s = strings.TrimSpace(s)
		if s != "" {
			allowed[s] = struct{}{}
		}
	}
	return &Gate{allowed: allowed}
}

// Authorize returns nil for allow-listed identities and ErrAccessDenied
// otherwise. Evaluation has no side effects.
func (g *Gate) Authorize(identity string) error {
	if _, ok := g.allowed[identity]; !ok {
		return ErrAccessDenied
	}
	return nil
}
