package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smolbet/oracle/internal/model"
)

// Decode failure taxonomy. Decoding is all-or-nothing: a failed decode
// never yields a partial ResolutionRequest.
var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrMissingBetID      = errors.New("missing bet id")
	ErrInvalidTerms      = errors.New("invalid terms")
)

// rawEnvelope keeps message undecoded so both in-the-wild shapes can be
// tried in order: a nested object with explicit fields, then the
// trailing "<terms>_<betId>" string convention.
type rawEnvelope struct {
	RequestID string          `json:"requestId"`
	SignerID  string          `json:"signerId"`
	Message   json.RawMessage `json:"message"`
}

// betMessage is the nested-object message variant.
type betMessage struct {
	Terms string `json:"terms"`
	ID    *int64 `json:"id"`
}

// Envelope parses only the outer event envelope. The pipeline calls
// this first so the signer identity is available to the access gate
// before any further work happens.
func Envelope(raw []byte) (model.Envelope, error) {
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.RequestID == "" || env.SignerID == "" || len(env.Message) == 0 {
		return model.Envelope{}, fmt.Errorf("%w: missing required field", ErrMalformedEnvelope)
	}

	// The message may be a JSON string or a JSON object; normalize the
	// string form here, keep the object form verbatim.
	var inner string
	if err := json.Unmarshal(env.Message, &inner); err != nil {
		inner = string(env.Message)
	}

	return model.Envelope{
		RequestID: env.RequestID,
		SignerID:  env.SignerID,
		Message:   inner,
	}, nil
}

// Request decodes the envelope's message into a validated
// ResolutionRequest.
func Request(env model.Envelope) (model.ResolutionRequest, error) {
	terms, betID, err := parseMessage(env.Message)
	if err != nil {
		return model.ResolutionRequest{}, err
	}

	terms = strings.TrimSpace(terms)
	if terms == "" || betID < 0 {
		return model.ResolutionRequest{}, fmt.Errorf("%w: terms=%q bet_id=%d", ErrInvalidTerms, terms, betID)
	}

	return model.ResolutionRequest{
		RequestID: env.RequestID,
		SignerID:  env.SignerID,
		BetID:     betID,
		Terms:     terms,
	}, nil
}

// Decode is the single-call form: envelope then message, each step a
// distinct failure point.
func Decode(raw []byte) (model.ResolutionRequest, error) {
	env, err := Envelope(raw)
	if err != nil {
		return model.ResolutionRequest{}, err
	}
	return Request(env)
}

// parseMessage tries the two message variants in a fixed order rather
// than by exception-driven fallthrough.
func parseMessage(message string) (string, int64, error) {
	// Variant 1: nested object {"terms": ..., "id": ...}.
	var obj betMessage
	if err := json.Unmarshal([]byte(message), &obj); err == nil && obj.Terms != "" {
		if obj.ID == nil {
			return "", 0, fmt.Errorf("%w: object message without id", ErrMissingBetID)
		}
		return obj.Terms, *obj.ID, nil
	}

	// Variant 2: "<terms>_<betId>", split from the right on the last
	// separator so terms containing underscores survive.
	idx := strings.LastIndex(message, "_")
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: no separator in message", ErrMissingBetID)
	}
	betID, err := strconv.ParseInt(message[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: trailing %q is not an integer", ErrMissingBetID, message[idx+1:])
	}
	return message[:idx], betID, nil
}
