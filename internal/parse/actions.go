package parse

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/BTreeMap/LockIn/internal/models"
)

var (
	bulletPrefix = regexp.MustCompile(`^[\s\-\*•·–—>✓✔]*(?:\(?\d{1,2}\s*[.):]\s*)?`)
	nameSplit    = regexp.MustCompile(`\s*(?::|\s-\s|\s–\s|\s—\s)\s*`)
	digitStart   = regexp.MustCompile(`^\s*\d`)
)

// DefaultActions returns the fallback contract template used when the user's
// action list cannot be parsed. It totals 10 points.
func DefaultActions() []models.BinaryAction {
	return []models.BinaryAction{
		{Name: "calories", Threshold: "stay under your calorie target", Points: 2},
		{Name: "protein", Threshold: "hit your protein target", Points: 2},
		{Name: "walk", Threshold: "walk at least 30 minutes", Points: 1},
		{Name: "strength", Threshold: "complete a strength session", Points: 1},
		{Name: "creatine", Threshold: "take creatine", Points: 1},
		{Name: "fasting", Threshold: "eat only inside your window", Points: 1},
		{Name: "weigh_in", Threshold: "weigh in after waking", Points: 1},
		{Name: "photo", Threshold: "send a progress photo", Points: 1},
	}
}

// ParseBinaryActions turns a list of actions, one per line, into weighted
// BinaryActions. A single line may also be a plain comma-separated list. Leading bullets and numbering are stripped. A line of the form
// "name: threshold" or "name - threshold" keeps the threshold text. The first two
// actions are worth 2 points, the rest 1. When nothing parses the default
// template is returned and defaulted is true.
func ParseBinaryActions(text string) (actions []models.BinaryAction, defaulted bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) == 1 {
		if items, ok := commaList(lines[0]); ok {
			lines = items
		}
	}
	seen := make(map[string]bool)
	for _, line := range lines {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		name, threshold := line, line
		if parts := nameSplit.Split(line, 2); len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
			name, threshold = parts[0], strings.TrimSpace(parts[1])
		}
		key := NormalizeActionName(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		points := 1
		if len(actions) < 2 {
			points = 2
		}
		actions = append(actions, models.BinaryAction{Name: key, Threshold: threshold, Points: points})
		if len(actions) == models.MaxActionsPerContract {
			break
		}
	}
	if len(actions) == 0 {
		return DefaultActions(), true
	}
	return actions, false
}

// commaList splits a one-line "a, b, c" list. A line carrying a threshold
// ("calories: under 1,800") or any item starting with a digit is left whole.
func commaList(line string) ([]string, bool) {
	if !strings.Contains(line, ",") || nameSplit.MatchString(line) {
		return nil, false
	}
	items := strings.Split(line, ",")
	for _, item := range items[1:] {
		if digitStart.MatchString(item) {
			return nil, false
		}
	}
	return items, true
}

// NormalizeActionName lowercases a free-text action name and joins words with
// underscores, dropping any other punctuation.
func NormalizeActionName(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if underscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			underscore = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_' || r == '-':
			underscore = true
		}
	}
	out := b.String()
	if len(out) > models.MaxActionNameLength {
		out = strings.TrimRight(out[:models.MaxActionNameLength], "_")
	}
	return out
}
