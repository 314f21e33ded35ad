package tracker

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Label values produced when no brand rule matches.
const (
	LabelOther = "other"
	LabelNone  = "none"
)

// LabelSeparator joins brand names when a title matches more than one rule.
const LabelSeparator = "-"

// genericKeyword raises an unmatched title to LabelOther when present.
const genericKeyword = "humanoid"

// BrandRule describes how one brand matches a lower-cased title. A title matches when
//   - MatchAlone is set and the brand name appears, or
//   - any bigram appears directly, or
//   - a keyword appears together with the brand name or a company term, and no
//     exclusion phrase appears.
//
// Exclusions are only consulted on the keyword path; a rule with bigrams or MatchAlone
// can still match a title containing an exclusion phrase.
type BrandRule struct {
	Name         string   `yaml:"name"`
	Keywords     []string `yaml:"keywords"`
	CompanyTerms []string `yaml:"company_terms"`
	Bigrams      []string `yaml:"bigrams"`
	Exclusions   []string `yaml:"exclusions"`
	MatchAlone   bool     `yaml:"match_alone"`
}

// DefaultRules returns the compiled three-brand rule set in evaluation order. The order is
// part of the output contract: compound labels join brand names in this order.
func DefaultRules() []BrandRule {
	return []BrandRule{
		{
			Name:         "optimus",
			Keywords:     []string{"robot", "bot", "humanoid"},
			CompanyTerms: []string{"tesla"},
			MatchAlone:   true,
		},
		{
			Name:       "figure",
			Keywords:   []string{"01", "02", "03", "humanoid", "robot", "bot"},
			Exclusions: []string{"to figure", "figure out", "figure it out"},
		},
		{
			Name:     "neo",
			Keywords: []string{"1x", "humanoid", "robot", "bot"},
			Bigrams:  []string{"1x bot", "1x robot", "1x humanoid"},
		},
	}
}

// LoadRules reads a YAML rule file holding an ordered list of brand rules. The file
// replaces the default set wholesale.
func LoadRules(path string) ([]BrandRule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rules []BrandRule
	if err := yaml.Unmarshal(b, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rules file %s contains no rules", path)
	}
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rules file %s: rule %d has no name", path, i)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rules file %s: duplicate rule name %q", path, r.Name)
		}
		seen[r.Name] = true
	}
	return rules, nil
}
