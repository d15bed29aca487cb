package signal

import (
	"regexp"

	"github.com/savaslabs/kb/core"
)

// ruleSet is the compiled keyword tier for one alert category.
// Patterns are word-boundary anchored so "budget" never fires on "budgetary".
type ruleSet struct {
	alertType core.AlertType
	patterns  []*regexp.Regexp
}

func compileRules(alertType core.AlertType, exprs []string) ruleSet {
	patterns := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		patterns[i] = regexp.MustCompile(`(?i)` + expr)
	}
	return ruleSet{alertType: alertType, patterns: patterns}
}

// matchCount counts the patterns that fire on the text. Each pattern counts
// at most once so a repeated phrase doesn't dominate the score.
func (r ruleSet) matchCount(text string) int {
	count := 0
	for _, p := range r.patterns {
		if p.MatchString(text) {
			count++
		}
	}
	return count
}

var defaultRules = []ruleSet{
	compileRules(core.AlertRiskBudget, []string{
		`\bbudget\b.*\b(concern|issue|problem|tight|over|exceed)`,
		`\bcost\b.*\b(concern|issue|overrun|too high)`,
		`\bover budget\b`,
		`\btoo expensive\b`,
		`\bcost overrun\b`,
		`\bcan(?:no|')t afford\b`,
		`\bout of budget\b`,
		`\bchange order\b`,
	}),
	compileRules(core.AlertRiskSchedule, []string{
		`\bdeadline\b.*\b(miss|slip|delay|concern)`,
		`\bbehind schedule\b`,
		`\bdelayed?\b`,
		`\bslipping\b`,
		`\bblocked\b`,
		`\btimeline\b.*\b(concern|issue|slip)`,
		`\bwon(?:')?t make it\b`,
		`\bpushed back\b`,
		`\bneed more time\b`,
		`\bnot ready\b`,
	}),
	compileRules(core.AlertRiskSatisfaction, []string{
		`\bfrustrated\b`,
		`\bunhappy\b`,
		`\bdisappointed\b`,
		`\bconcerned\b`,
		`\bnot working\b`,
		`\bquality issues?\b`,
		`\brework\b`,
	}),
	compileRules(core.AlertOpportunity, []string{
		`\badditional (work|project|phase)\b`,
		`\bnext phase\b`,
		`\bphase two\b`,
		`\bfollow-?up (project|work)\b`,
		`\bmore work\b`,
		`\bexpand\b.*\b(scope|to|across)\b`,
		`\banother project\b`,
		`\bcan you also\b`,
		`\bsupport retainer\b`,
		`\breferr?(al|ed)\b`,
		`\bintroduce\b.*\bto\b`,
		`\bother (teams?|departments?)\b`,
		`\bcompany-?wide\b`,
	}),
}
