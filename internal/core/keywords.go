package core

import (
	"strings"

	"github.com/samber/lo"
)

// DefaultEscalationKeywords request a human operator, in Russian and English.
var DefaultEscalationKeywords = []string{
	"оператор", "человек", "живой", "поддержка", "менеджер",
	"специалист", "консультант", "связаться", "позвонить",
	"operator", "human", "support", "manager", "agent",
	"real person", "talk to someone", "speak to someone",
}

// Detector finds escalation keywords as case-insensitive substrings.
type Detector struct {
	keywords []string
}

// NewDetector normalizes keywords; an empty list selects the defaults.
func NewDetector(keywords []string) *Detector {
	normalized := lo.Uniq(lo.FilterMap(keywords, func(k string, _ int) (string, bool) {
		k = strings.ToLower(strings.TrimSpace(k))
		return k, k != ""
	}))
	if len(normalized) == 0 {
		return NewDetector(DefaultEscalationKeywords)
	}
	return &Detector{keywords: normalized}
}

// Match returns the first keyword contained in text.
func (d *Detector) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	return lo.Find(d.keywords, func(k string) bool {
		return strings.Contains(lower, k)
	})
}

func (d *Detector) Keywords() []string {
	return append([]string(nil), d.keywords...)
}
