package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store records which request identifiers have already been processed.
// It backs the pipeline's run-once guarantee: a requestId is recorded
// before its commit is attempted, so a write whose outcome was never
// observed is not retried.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the storage key for a request identifier.
func Key(requestID string) string {
	hash := sha256.Sum256([]byte(requestID))
	return "oracle:v1:" + hex.EncodeToString(hash[:])
}
