package categorize

import (
	"strings"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
)

// Resolver maps recognition results to a category via the keyword table.
// It is pure: identical input always yields the same category.
type Resolver struct {
	rules []Rule
	exact map[string]string
}

func NewResolver(rules []Rule) *Resolver {
	exact := make(map[string]string, len(rules))
	for _, rule := range rules {
		if _, ok := exact[rule.Keyword]; !ok {
			exact[rule.Keyword] = rule.Category
		}
	}
	return &Resolver{rules: rules, exact: exact}
}

// Resolve scans results in rank order. For each label it tries, in order:
// an exact table hit, a substring hit against any keyword, then a
// whole-word hit per whitespace-split token. The first hit wins.
func (r *Resolver) Resolve(results []domain.RecognitionResult) string {
	for _, result := range results {
		label := strings.ToLower(result.Label)

		if category, ok := r.exact[label]; ok {
			return category
		}

		for _, rule := range r.rules {
			if strings.Contains(label, rule.Keyword) {
				return rule.Category
			}
		}

		for _, word := range strings.Fields(label) {
			if category, ok := r.exact[word]; ok {
				return category
			}
		}
	}

	return domain.DefaultCategory
}
