package categorize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule maps one lowercase keyword to a category. Rule order is significant:
// substring scans return the first matching rule, so the table must stay
// ordered to keep resolution deterministic.
type Rule struct {
	Keyword  string `yaml:"keyword"`
	Category string `yaml:"category"`
}

// DefaultRules is the built-in keyword table.
func DefaultRules() []Rule {
	return []Rule{
		{Keyword: "ball", Category: "Ball"},
		{Keyword: "sphere", Category: "Ball"},
		{Keyword: "round", Category: "Ball"},

		{Keyword: "sport", Category: "Sports"},
		{Keyword: "game", Category: "Sports"},
		{Keyword: "athlete", Category: "Sports"},
		{Keyword: "competition", Category: "Sports"},
		{Keyword: "match", Category: "Sports"},
		{Keyword: "tournament", Category: "Sports"},
		{Keyword: "court", Category: "Sports"},
		{Keyword: "field", Category: "Sports"},
		{Keyword: "stadium", Category: "Sports"},

		{Keyword: "tennis", Category: "Tennis"},
		{Keyword: "tennis court", Category: "Tennis"},
		{Keyword: "tennis racket", Category: "Tennis"},
		{Keyword: "tennis ball", Category: "Tennis"},
		{Keyword: "tennis player", Category: "Tennis"},
		{Keyword: "tennis match", Category: "Tennis"},
		{Keyword: "tennis tournament", Category: "Tennis"},

		{Keyword: "pickleball", Category: "Pickleball"},
		{Keyword: "pickleball court", Category: "Pickleball"},
		{Keyword: "pickleball paddle", Category: "Pickleball"},
		{Keyword: "pickleball ball", Category: "Pickleball"},
		{Keyword: "pickleball player", Category: "Pickleball"},
		{Keyword: "pickleball match", Category: "Pickleball"},
		{Keyword: "pickleball tournament", Category: "Pickleball"},
	}
}

// LoadRules reads an ordered keyword table from a YAML file. An empty path
// selects the built-in table.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category rules: %w", err)
	}

	var rules []Rule
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse category rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("category rules file %s contains no rules", path)
	}
	for i, rule := range rules {
		if rule.Keyword == "" || rule.Category == "" {
			return nil, fmt.Errorf("category rule %d is missing keyword or category", i)
		}
	}
	return rules, nil
}
