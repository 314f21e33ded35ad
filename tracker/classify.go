package tracker

import "strings"

// Classifier maps a post title to a category label via an ordered, immutable rule set.
// Classification is a pure function of the title text; rules are never mutated after
// construction.
type Classifier struct {
	rules []BrandRule
}

// NewClassifier builds a classifier over the given rules. The slice is copied so later
// mutation by the caller cannot change classification results.
func NewClassifier(rules []BrandRule) *Classifier {
	cp := make([]BrandRule, len(rules))
	copy(cp, rules)
	return &Classifier{rules: cp}
}

// BrandNames returns the rule names in evaluation order.
func (c *Classifier) BrandNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Classify returns the category label for a title. Every brand rule is evaluated against
// the full title independently; multiple matches join with LabelSeparator in rule order.
// With zero matches the label is LabelOther when the generic humanoid keyword is present,
// otherwise LabelNone.
func (c *Classifier) Classify(title string) string {
	title = strings.ToLower(title)

	var labels []string
	for _, r := range c.rules {
		if r.matches(title) {
			labels = append(labels, r.Name)
		}
	}

	switch len(labels) {
	case 0:
		if strings.Contains(title, genericKeyword) {
			return LabelOther
		}
		return LabelNone
	case 1:
		return labels[0]
	default:
		return strings.Join(labels, LabelSeparator)
	}
}

func (r BrandRule) matches(title string) bool {
	if r.MatchAlone && strings.Contains(title, r.Name) {
		return true
	}
	if containsAny(title, r.Bigrams) {
		return true
	}
	if !containsAny(title, r.Keywords) {
		return false
	}
	if !strings.Contains(title, r.Name) && !containsAny(title, r.CompanyTerms) {
		return false
	}
	// The exclusion check runs only after a keyword match has been confirmed.
	return !containsAny(title, r.Exclusions)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
