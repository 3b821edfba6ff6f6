// Package router assigns each normalized input to exactly one destination
// bucket: the ready ledger, a staging table, the skipped table, or (as a
// side effect) the unknown-entity index.
package router

import (
	"time"

	"talous/internal/core"
)

// Buckets collects one routing run's output. Entries are appended in
// input order; nothing is written to a store here.
type Buckets struct {
	Ready   []core.LedgerEntry
	Staging []core.StagingEntry
	Skipped []core.SkippedEntry

	// Dropped counts malformed and out-of-year inputs, Duplicates the
	// inputs whose tx id was already known.
	Dropped    int
	Duplicates int
}

// Total returns how many inputs landed in an output bucket.
func (b Buckets) Total() int {
	return len(b.Ready) + len(b.Staging) + len(b.Skipped)
}

func timestamp(clock func() time.Time) string {
	if clock == nil {
		clock = time.Now
	}
	return clock().UTC().Format(time.RFC3339)
}
