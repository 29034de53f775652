package flow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/shame"
)

// rationalizations match self-permission language in a lowercased message.
var rationalizations = []*regexp.Regexp{
	regexp.MustCompile(`\bjust this once\b`),
	regexp.MustCompile(`\bcheat (?:day|meal)\b`),
	regexp.MustCompile(`\b(?:doesn'?t|does not|won'?t|wont) count\b`),
	regexp.MustCompile(`\bi deserve (?:it|this|a treat)\b`),
	regexp.MustCompile(`\bone (?:won'?t|wont|will not) hurt\b`),
	regexp.MustCompile(`\b(?:start|restart) (?:again )?(?:tomorrow|on monday|monday|next week)\b`),
	regexp.MustCompile(`\btreat (?:myself|yourself)\b`),
	regexp.MustCompile(`\balready (?:ruined|blew it|blown it)\b`),
	regexp.MustCompile(`\bspecial occasion\b`),
	regexp.MustCompile(`\bit'?s the weekend\b`),
}

func rationalization(lower string) (string, bool) {
	for _, re := range rationalizations {
		if m := re.FindString(lower); m != "" {
			return m, true
		}
	}
	return "", false
}

// confront answers self-permission language, quoting a recorded excuse when one fits.
func (c *Coach) confront(ctx context.Context, r *request) (Reply, error) {
	phrase, _ := rationalization(r.lower)
	var b strings.Builder
	fmt.Fprintf(&b, "\"%s\" is the voice that got you here. The contract has no exception clause.", phrase)

	excuse, err := c.matchingExcuse(r.user.ID, phrase)
	if err != nil {
		return Reply{}, err
	}
	if excuse != nil {
		fmt.Fprintf(&b, "\nYou've told me \"%s\" %d %s before. How did that go?", excuse.Content, excuse.Frequency, times(excuse.Frequency))
	}
	b.WriteString("\nStick to the plan you locked.")
	return Reply{Body: b.String(), Flow: models.FlowTypeConfront}, nil
}

// matchingExcuse prefers a recorded miss reason containing phrase, falling back
// to the most repeated one.
func (c *Coach) matchingExcuse(userID, phrase string) (*models.Pattern, error) {
	reasons, err := c.patterns.Top(userID, models.PatternMissReason, 20)
	if err != nil {
		return nil, err
	}
	for i := range reasons {
		if strings.Contains(strings.ToLower(reasons[i].Content), phrase) {
			return &reasons[i], nil
		}
	}
	return c.patterns.Repeated(userID, models.PatternMissReason, shame.RepeatExcuseFrequency)
}

func times(n int) string {
	if n == 1 {
		return "time"
	}
	return "times"
}
