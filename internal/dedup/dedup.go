// Package dedup provides the deterministic transaction identifier used as
// the idempotency key for re-imports, plus a small set for membership
// checks against already-posted ids.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"talous/internal/core"
)

// IDLength is the number of hex characters kept from the SHA-256 digest.
// 96 bits is treated as collision-free for this domain's volume.
const IDLength = 24

// MakeID computes the stable content-hash id for a transaction tuple.
// The amount is formatted with two decimals so 12.3 and 12.30 hash alike,
// and the entity is lowercased and trimmed. Identical tuples always
// produce identical ids.
func MakeID(date string, entity string, amount float64, source core.Source) string {
	normalized := strings.ToLower(strings.TrimSpace(entity))
	input := fmt.Sprintf("%s|%s|%.2f|%s", date, normalized, amount, source)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:IDLength]
}

// IDSet tracks transaction ids seen either in the backing ledger or
// earlier in the current run.
type IDSet map[string]struct{}

// NewIDSet builds a set from the ledger's tx id column. Empty values are
// ignored (refund staging rows have no id).
func NewIDSet(ids []string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Seen reports whether id is already present.
func (s IDSet) Seen(id string) bool {
	_, ok := s[id]
	return ok
}

// Add records an id, returning false if it was already present.
func (s IDSet) Add(id string) bool {
	if s.Seen(id) {
		return false
	}
	s[id] = struct{}{}
	return true
}
