// Package approve promotes human-reviewed rows: staging entries to ledger
// entries, and annotated unknown entities to new rules. Every promotion
// validates the human-typed group/category against the canonical taxonomy
// and persists the canonical spelling, never the typed one.
package approve

import (
	"context"
	"fmt"

	"talous/internal/core"
	"talous/internal/rules"
	"talous/internal/tables"
	"talous/internal/tabular"
)

// Categories is the canonical taxonomy lookup, keyed by
// normalize(group)+"|"+normalize(category). Only active rows are loaded;
// the first occurrence wins on duplicate keys.
type Categories struct {
	byKey map[string]core.Category
}

// LoadCategories hydrates the lookup from the reference table.
func LoadCategories(ctx context.Context, store tabular.Store, table string) (*Categories, error) {
	rows, err := store.GetRows(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load category table %s: %w", table, err)
	}
	c := &Categories{byKey: make(map[string]core.Category, len(rows))}
	for _, row := range rows {
		cat := tables.DecodeCategory(row)
		if !cat.Active {
			continue
		}
		key := categoryKey(cat.Group, cat.Category)
		if _, exists := c.byKey[key]; exists {
			continue
		}
		c.byKey[key] = cat
	}
	return c, nil
}

// Lookup resolves a human-typed group/category pair to its canonical
// spelling. The second return value is false when the pair is not an
// active taxonomy entry.
func (c *Categories) Lookup(group, category string) (core.Category, bool) {
	cat, ok := c.byKey[categoryKey(group, category)]
	return cat, ok
}

// Len returns the number of active canonical pairs.
func (c *Categories) Len() int {
	return len(c.byKey)
}

func categoryKey(group, category string) string {
	return rules.Normalize(group) + "|" + rules.Normalize(category)
}
