package router

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talous/internal/core"
	"talous/internal/dedup"
	"talous/internal/rules"
)

func newReceipt(t *testing.T, rs []core.Rule) *Receipt {
	t.Helper()
	return &Receipt{
		Matcher:  rules.NewMatcher(rs, rules.AmbiguityReject),
		Seen:     dedup.NewIDSet(nil),
		Unknowns: newIndex(t),
		Clock:    fixedClock,
	}
}

func TestReceiptItemDispatch(t *testing.T) {
	r := newReceipt(t, []core.Rule{
		{Pattern: "maito", Group: "Groceries", Category: "Dairy", Mode: core.ModeAuto},
		{Pattern: "pantti", Mode: core.ModeSkip},
		{Pattern: "viini", Group: "Groceries", Category: "Alcohol", Mode: core.ModeReview},
	})
	out := r.Route("rcpt-1", "2026-01-02", []core.ReceiptItem{
		{Name: "MAITO 1L", Amount: 2.15},
		{Name: "PANTTI", Amount: 0.40},
		{Name: "VIINI 0,75", Amount: 12.90},
		{Name: "TUNTEMATON TUOTE", Amount: 3.00},
	})

	require.Len(t, out.Ready, 1)
	e := out.Ready[0]
	assert.Equal(t, "MAITO 1L", e.Entity)
	assert.Equal(t, core.SourceReceipt, e.Source)
	assert.Equal(t, "2026-01", e.Month)

	require.Len(t, out.Skipped, 1)
	assert.Equal(t, "rcpt-1", out.Skipped[0].ReceiptID)

	require.Len(t, out.Staging, 2)
	assert.Equal(t, core.RouteReview, out.Staging[0].RuleMode)
	assert.Equal(t, "Alcohol", out.Staging[0].Category)
	assert.Equal(t, core.RouteUnknown, out.Staging[1].RuleMode)
	assert.Equal(t, core.StatusNeedsRule, out.Staging[1].Status)

	u, ok := r.Unknowns.Get("tuntematon tuote")
	require.True(t, ok)
	assert.Equal(t, 1, u.Count)
}

func TestReceiptItemsDeduplicated(t *testing.T) {
	r := newReceipt(t, []core.Rule{
		{Pattern: "maito", Group: "G", Category: "C", Mode: core.ModeAuto},
	})
	items := []core.ReceiptItem{{Name: "MAITO", Amount: 2.15}}

	first := r.Route("rcpt-1", "2026-01-02", items)
	assert.Len(t, first.Ready, 1)

	second := r.Route("rcpt-1", "2026-01-02", items)
	assert.Equal(t, 0, second.Total())
	assert.Equal(t, 1, second.Duplicates)
}

func TestReceiptBadItemsDropped(t *testing.T) {
	r := newReceipt(t, nil)
	out := r.Route("rcpt-1", "2026-01-02", []core.ReceiptItem{
		{Name: "", Amount: 2.00},
		{Name: "FREE SAMPLE", Amount: 0},
		{Name: "GHOST", Amount: math.NaN()},
	})

	assert.Equal(t, 0, out.Total())
	assert.Equal(t, 3, out.Dropped)
}
