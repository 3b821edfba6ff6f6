package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talous/internal/core"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Foo   Bar ", "foo bar"},
		{"S-Market  KAMPPI", "s-market kamppi"},
		{"", ""},
		{"\tK-Citymarket\n", "k-citymarket"},
		{"already normal", "already normal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestFindSingleMatch(t *testing.T) {
	m := NewMatcher([]core.Rule{
		{Pattern: "shop", Group: "g", Category: "c", Mode: core.ModeAuto},
	}, AmbiguityReject)

	rule, ok := m.Find("my shop here")
	require.True(t, ok)
	assert.Equal(t, "shop", rule.Pattern)

	_, ok = m.Find("nothing matches")
	assert.False(t, ok)
}

func TestFindAmbiguityReject(t *testing.T) {
	m := NewMatcher([]core.Rule{
		{Pattern: "market", Mode: core.ModeAuto},
		{Pattern: "s-market", Mode: core.ModeAuto},
	}, AmbiguityReject)

	// Both patterns are substrings: conservative policy refuses to guess.
	_, ok := m.Find("s-market kauppa")
	assert.False(t, ok)

	// A needle hitting only one pattern still resolves.
	rule, ok := m.Find("k-market espoo")
	require.True(t, ok)
	assert.Equal(t, "market", rule.Pattern)
}

func TestFindAmbiguityPreferLongest(t *testing.T) {
	m := NewMatcher([]core.Rule{
		{Pattern: "market", Group: "Short", Mode: core.ModeAuto},
		{Pattern: "s-market", Group: "Long", Mode: core.ModeAuto},
	}, AmbiguityPreferLongest)

	rule, ok := m.Find("s-market kauppa")
	require.True(t, ok)
	assert.Equal(t, "Long", rule.Group)
}

func TestFindNormalizesNeedle(t *testing.T) {
	m := NewMatcher([]core.Rule{{Pattern: "Foo  Store", Mode: core.ModeAuto}}, AmbiguityReject)
	rule, ok := m.Find("  FOO   STORE Helsinki ")
	require.True(t, ok)
	assert.Equal(t, "foo store", rule.Pattern)
}

func TestNewMatcherDropsEmptyPatterns(t *testing.T) {
	m := NewMatcher([]core.Rule{
		{Pattern: "   "},
		{Pattern: "keep"},
	}, AmbiguityReject)
	assert.Equal(t, 1, m.Len())
}

func TestFindEmptyNeedle(t *testing.T) {
	m := NewMatcher([]core.Rule{{Pattern: "x"}}, AmbiguityReject)
	_, ok := m.Find("   ")
	assert.False(t, ok)
}
