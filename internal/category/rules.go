package category

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/spendtrail/spendtrail/internal/model"
)

// Rule maps description keywords to a category.
type Rule struct {
	Category model.Category `yaml:"category"`
	Keywords []string       `yaml:"keywords"`
}

// RulesFile is the shape of categorization-rules.yaml.
type RulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// RulesLabeler labels by case-insensitive keyword match. Rules are checked
// in file order; the first match wins.
type RulesLabeler struct {
	rules []Rule
}

// NewRulesLabeler validates rules and builds a labeler from them.
func NewRulesLabeler(rules []Rule) (*RulesLabeler, error) {
	out := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("rule %d: unknown category %q", i+1, r.Category)
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		out = append(out, Rule{Category: r.Category, Keywords: kws})
	}
	return &RulesLabeler{rules: out}, nil
}

// LoadRules reads a rules YAML file.
func LoadRules(path string) (*RulesLabeler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var f RulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return NewRulesLabeler(f.Rules)
}

// Label implements Labeler.
func (l *RulesLabeler) Label(_ context.Context, description string, _ decimal.Decimal) (string, error) {
	desc := strings.ToLower(description)
	for _, r := range l.rules {
		for _, k := range r.Keywords {
			if strings.Contains(desc, k) {
				return string(r.Category), nil
			}
		}
	}
	return "", ErrNoMatch
}
