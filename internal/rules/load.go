package rules

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"talous/internal/core"
	"talous/internal/tables"
	"talous/internal/tabular"
)

// LoadFromStore reads the rule table. Rows with an empty pattern are
// skipped, patterns are normalized, and a blank mode defaults to auto.
// A mode that is not auto/review/skip is demoted to review so a sheet
// typo routes matches to a human instead of breaking the import.
func LoadFromStore(ctx context.Context, store tabular.Store, table string) ([]core.Rule, error) {
	rows, err := store.GetRows(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load rules from %s: %w", table, err)
	}
	rules := make([]core.Rule, 0, len(rows))
	for _, row := range rows {
		pattern := Normalize(row.Get(tables.ColPattern))
		if pattern == "" {
			continue
		}
		rules = append(rules, core.Rule{
			Pattern:  pattern,
			Group:    strings.TrimSpace(row.Get(tables.ColGroup)),
			Category: strings.TrimSpace(row.Get(tables.ColCategory)),
			Mode:     normalizeMode(row.Get(tables.ColMode)),
		})
	}
	return rules, nil
}

func normalizeMode(raw string) core.Mode {
	m := strings.ToLower(strings.TrimSpace(raw))
	if m == "" {
		return core.ModeAuto
	}
	if core.ValidMode(m) {
		return core.Mode(m)
	}
	return core.ModeReview
}

type ruleFile struct {
	Rules []struct {
		Pattern  string `yaml:"pattern"`
		Group    string `yaml:"group"`
		Category string `yaml:"category"`
		Mode     string `yaml:"mode"`
	} `yaml:"rules"`
}

// LoadFromFile reads rules from a local YAML file. Used for offline runs
// and tests where no rule sheet is available; semantics match
// LoadFromStore.
func LoadFromFile(path string) ([]core.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file %q: %w", path, err)
	}
	rules := make([]core.Rule, 0, len(rf.Rules))
	for _, r := range rf.Rules {
		pattern := Normalize(r.Pattern)
		if pattern == "" {
			continue
		}
		rules = append(rules, core.Rule{
			Pattern:  pattern,
			Group:    strings.TrimSpace(r.Group),
			Category: strings.TrimSpace(r.Category),
			Mode:     normalizeMode(r.Mode),
		})
	}
	return rules, nil
}
