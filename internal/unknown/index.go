// Package unknown tracks entities that failed rule matching, with
// first-seen/last-seen/count statistics so humans can prioritize rule
// creation for frequent offenders.
package unknown

import (
	"context"
	"fmt"
	"sort"

	"talous/internal/core"
	"talous/internal/rules"
	"talous/internal/tables"
	"talous/internal/tabular"
)

type record struct {
	entity core.UnknownEntity
	ref    tabular.RowRef // empty for records created this run
	dirty  bool
}

// Index is a two-phase upsert structure over the unknown-entity table:
// an immutable snapshot is read once per run, upserts accumulate in
// memory, and Flush writes back with minimal store calls (one in-place
// update per touched existing row, one batched append for all new rows).
type Index struct {
	table   string
	records map[string]*record
}

// Load hydrates the index from the backing table. Rows that fail to
// decode are returned as an error: a corrupt tracking row means a human
// edited the sheet and should be fixed before imports continue.
func Load(ctx context.Context, store tabular.Store, table string) (*Index, error) {
	rows, err := store.GetRows(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load unknown-entity table %s: %w", table, err)
	}
	ix := &Index{table: table, records: make(map[string]*record, len(rows))}
	for _, row := range rows {
		u, err := tables.DecodeUnknown(row)
		if err != nil {
			return nil, err
		}
		// First occurrence wins on duplicate keys.
		if _, exists := ix.records[u.Key]; exists {
			continue
		}
		ix.records[u.Key] = &record{entity: u, ref: row.Ref}
	}
	return ix, nil
}

// Upsert records an encounter of an unmatched entity. On first encounter
// a record is created with count=1; on repeat encounters count increments
// and last_seen advances, while display_name and first_seen stay fixed.
func (ix *Index) Upsert(rawName string, dateStr string) {
	key := rules.Normalize(rawName)
	if key == "" {
		return
	}
	if rec, ok := ix.records[key]; ok {
		rec.entity.Count++
		rec.entity.LastSeen = dateStr
		rec.dirty = true
		return
	}
	ix.records[key] = &record{
		entity: core.UnknownEntity{
			Key:         key,
			DisplayName: rawName,
			Count:       1,
			FirstSeen:   dateStr,
			LastSeen:    dateStr,
			Status:      core.StatusNeedsReview,
		},
		dirty: true,
	}
}

// Get returns the current in-memory record for a normalized key.
func (ix *Index) Get(key string) (core.UnknownEntity, bool) {
	rec, ok := ix.records[key]
	if !ok {
		return core.UnknownEntity{}, false
	}
	return rec.entity, true
}

// Len returns the number of tracked entities, persisted or pending.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Dirty returns how many records would be written by Flush.
func (ix *Index) Dirty() int {
	n := 0
	for _, rec := range ix.records {
		if rec.dirty {
			n++
		}
	}
	return n
}

// Flush writes pending changes back: touched existing rows are updated in
// place by their stored row reference, new rows go out in a single
// batched append. Keys are processed in sorted order so output is
// deterministic. Successfully flushed records are marked clean.
//
// Flush is meant to run once at the end of a run: rows appended by an
// earlier Flush have no row reference yet, so dirtying them again in the
// same run and flushing twice would append a second copy.
func (ix *Index) Flush(ctx context.Context, store tabular.Store) error {
	keys := make([]string, 0, len(ix.records))
	for k, rec := range ix.records {
		if rec.dirty {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var appends []tabular.Row
	for _, k := range keys {
		rec := ix.records[k]
		row := tables.EncodeUnknown(rec.entity)
		if rec.ref == "" {
			appends = append(appends, row)
			continue
		}
		if err := store.UpdateRow(ctx, ix.table, rec.ref, row); err != nil {
			return fmt.Errorf("update unknown entity %q: %w", k, err)
		}
		rec.dirty = false
	}
	if len(appends) > 0 {
		if err := store.AppendRows(ctx, ix.table, appends); err != nil {
			return fmt.Errorf("append unknown entities: %w", err)
		}
	}
	for _, k := range keys {
		ix.records[k].dirty = false
	}
	return nil
}
