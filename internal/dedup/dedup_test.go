package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"talous/internal/core"
)

func TestMakeIDDeterministic(t *testing.T) {
	a := MakeID("2026-01-02", "Foo Store", 12.34, core.SourceCreditCard)
	b := MakeID("2026-01-02", "Foo Store", 12.34, core.SourceCreditCard)
	assert.Equal(t, a, b)
	assert.Len(t, a, IDLength)
	for _, c := range a {
		assert.Contains(t, "0123456789abcdef", string(c))
	}
}

func TestMakeIDNormalizesEntityAndAmount(t *testing.T) {
	a := MakeID("2026-01-02", "  FOO STORE ", 12.3, core.SourceCreditCard)
	b := MakeID("2026-01-02", "foo store", 12.30, core.SourceCreditCard)
	assert.Equal(t, a, b)
}

func TestMakeIDDistinguishesTuples(t *testing.T) {
	base := MakeID("2026-01-02", "foo", 12.34, core.SourceCreditCard)
	assert.NotEqual(t, base, MakeID("2026-01-03", "foo", 12.34, core.SourceCreditCard))
	assert.NotEqual(t, base, MakeID("2026-01-02", "bar", 12.34, core.SourceCreditCard))
	assert.NotEqual(t, base, MakeID("2026-01-02", "foo", 12.35, core.SourceCreditCard))
	assert.NotEqual(t, base, MakeID("2026-01-02", "foo", 12.34, core.SourceReceipt))
}

func TestIDSet(t *testing.T) {
	s := NewIDSet([]string{"a", "", "b", " b "})
	assert.True(t, s.Seen("a"))
	assert.True(t, s.Seen("b"))
	assert.False(t, s.Seen(""))
	assert.False(t, s.Seen("c"))

	assert.True(t, s.Add("c"))
	assert.False(t, s.Add("c"))
	assert.True(t, s.Seen("c"))
}
