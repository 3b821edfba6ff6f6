package unknown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talous/internal/core"
	"talous/internal/tables"
	"talous/internal/tabular"
	"talous/internal/tabular/memory"
)

const tableName = "UnknownMerchants"

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	names := tables.DefaultNames()
	return memory.New(map[string][]string{tableName: names.Headers()[names.UnknownMerchants]})
}

func TestUpsertMonotonicity(t *testing.T) {
	ix := &Index{table: tableName, records: map[string]*record{}}

	ix.Upsert("Mystery Shop", "2026-01-02")
	u, ok := ix.Get("mystery shop")
	require.True(t, ok)
	assert.Equal(t, 1, u.Count)
	assert.Equal(t, "2026-01-02", u.FirstSeen)
	assert.Equal(t, "2026-01-02", u.LastSeen)
	assert.Equal(t, "Mystery Shop", u.DisplayName)

	ix.Upsert("MYSTERY   SHOP", "2026-02-10")
	u, _ = ix.Get("mystery shop")
	assert.Equal(t, 2, u.Count)
	assert.Equal(t, "2026-01-02", u.FirstSeen, "first_seen never changes")
	assert.Equal(t, "2026-02-10", u.LastSeen)
	assert.Equal(t, "Mystery Shop", u.DisplayName, "display_name keeps first-seen raw form")

	ix.Upsert("mystery shop", "2026-03-01")
	u, _ = ix.Get("mystery shop")
	assert.Equal(t, 3, u.Count)
	assert.Equal(t, "2026-03-01", u.LastSeen)
}

func TestFlushNewAndExisting(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// Seed one persisted record.
	require.NoError(t, store.AppendRows(ctx, tableName, []tabular.Row{
		tables.EncodeUnknown(core.UnknownEntity{
			Key: "old shop", DisplayName: "Old Shop", Count: 2,
			FirstSeen: "2025-12-01", LastSeen: "2025-12-24",
			Status: core.StatusNeedsReview,
		}),
	}))

	ix, err := Load(ctx, store, tableName)
	require.NoError(t, err)
	require.Equal(t, 1, ix.Len())

	ix.Upsert("Old Shop", "2026-01-05")   // existing -> in-place update
	ix.Upsert("New Place", "2026-01-06")  // new -> append
	ix.Upsert("New Place2", "2026-01-07") // new -> same batched append
	assert.Equal(t, 3, ix.Dirty())

	require.NoError(t, ix.Flush(ctx, store))
	assert.Equal(t, 0, ix.Dirty())

	rows, err := store.GetRows(ctx, tableName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	old, err := tables.DecodeUnknown(rows[0])
	require.NoError(t, err)
	assert.Equal(t, 3, old.Count)
	assert.Equal(t, "2025-12-01", old.FirstSeen)
	assert.Equal(t, "2026-01-05", old.LastSeen)
}

func TestFlushNothingDirty(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ix, err := Load(ctx, store, tableName)
	require.NoError(t, err)

	// Guard with zero budget proves Flush makes no store calls when clean.
	guarded := tabular.NewGuard(store, 1)
	_, _ = guarded.GetRows(ctx, tableName) // spend the only unit
	require.NoError(t, ix.Flush(ctx, guarded))
}

func TestLoadSkipsDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.AppendRows(ctx, tableName, []tabular.Row{
		tables.EncodeUnknown(core.UnknownEntity{Key: "dup", DisplayName: "First", Count: 1, Status: core.StatusNeedsReview}),
		tables.EncodeUnknown(core.UnknownEntity{Key: "dup", DisplayName: "Second", Count: 5, Status: core.StatusNeedsReview}),
	}))

	ix, err := Load(ctx, store, tableName)
	require.NoError(t, err)
	u, ok := ix.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "First", u.DisplayName, "first occurrence wins")
}

func TestUpsertIgnoresBlankNames(t *testing.T) {
	ix := &Index{table: tableName, records: map[string]*record{}}
	ix.Upsert("   ", "2026-01-01")
	assert.Equal(t, 0, ix.Len())
}
