package flow

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/scoring"
	"github.com/openai/openai-go"
)

const coachPersona = `You are LockIn, a blunt but caring accountability coach on WhatsApp.
The user signed a week-long contract of binary daily actions. Hold them to it.
Keep replies under 60 words. No emojis beyond one. Never invent scores or tokens; use only the context given.
When they drift, point them back to tonight's lock ("lock") or their scorecard ("status").`

const fallbackReply = "Noted. Reply \"status\" for your scorecard or \"lock\" for tonight's check-in."

// generate produces an open-ended reply with full user context.
func (c *Coach) generate(ctx context.Context, r *request, instruction string) (Reply, error) {
	if c.genai == nil {
		return Reply{Body: fallbackReply, Flow: models.FlowTypeGeneral}, nil
	}
	messages, err := c.buildMessages(r, instruction)
	if err != nil {
		return Reply{}, err
	}
	out, err := c.genai.GenerateWithMessages(ctx, messages)
	if err != nil {
		return Reply{}, fmt.Errorf("generation failed: %w", err)
	}
	return Reply{Body: out, Flow: models.FlowTypeGeneral}, nil
}

// buildMessages follows the structure: persona, user context, recent history,
// optional flow instruction, current message.
func (c *Coach) buildMessages(r *request, instruction string) ([]openai.ChatCompletionMessageParamUnion, error) {
	summary, err := c.contextSummary(r)
	if err != nil {
		return nil, err
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(coachPersona),
		openai.SystemMessage(summary),
	}
	if c.historyLimit > 0 {
		history, err := c.store.ListMessages(r.user.ID, c.historyLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load message history: %w", err)
		}
		for _, m := range history {
			switch m.Role {
			case models.RoleUser:
				messages = append(messages, openai.UserMessage(m.Content))
			case models.RoleAssistant:
				messages = append(messages, openai.AssistantMessage(m.Content))
			}
		}
	}
	if instruction != "" {
		messages = append(messages, openai.SystemMessage(instruction))
	}
	return append(messages, openai.UserMessage(r.text)), nil
}

// contextSummary renders the user's state for the generation service.
func (c *Coach) contextSummary(r *request) (string, error) {
	u := r.user
	var b strings.Builder
	lossAversion := "off"
	if u.LossAversionEnabled {
		lossAversion = "on"
	}
	fmt.Fprintf(&b, "USER: %s, timezone %s, shame level %d, loss aversion %s, local time %s.\n",
		u.DisplayName(), u.Timezone, u.ShameLevel, lossAversion, r.now.Format("Mon 15:04"))
	s := u.Schedule
	fmt.Fprintf(&b, "SCHEDULE: wake %s, sleep %s, eating %s-%s, danger times %s.\n",
		s.Wake, s.Sleep, s.EatingWindowStart, s.EatingWindowEnd, strings.Join(s.RiskTimes, ", "))

	if r.contract != nil {
		days := int(math.Ceil(r.contract.ExpiresAt.Sub(r.now).Hours() / 24))
		fmt.Fprintf(&b, "CONTRACT: goal %q, %d days left, actions %s (%d points a day).\n",
			r.contract.Goal, max(days, 0), scoring.ActionList(r.contract), r.contract.TotalPossible())
	}

	logs, err := c.store.ListDailyLogs(u.ID, 7)
	if err != nil {
		return "", fmt.Errorf("failed to load daily logs: %w", err)
	}
	if len(logs) > 0 {
		b.WriteString("RECENT DAYS:\n")
		for _, l := range logs {
			fmt.Fprintf(&b, "- %s: %d/%d", l.Date, l.TotalScore, r.contract.TotalPossible())
			if l.TomorrowLocked {
				b.WriteString(", locked")
			}
			if l.IsDownshift() {
				b.WriteString(", downshift")
			}
			if l.MissReason != "" {
				fmt.Fprintf(&b, ", missed because %q", l.MissReason)
			}
			b.WriteString("\n")
		}
	}

	top, err := c.patterns.Top(u.ID, "", 8)
	if err != nil {
		return "", err
	}
	if len(top) > 0 {
		b.WriteString("PATTERNS:\n")
		for _, p := range top {
			fmt.Fprintf(&b, "- %s: %q x%d\n", p.Type, p.Content, p.Frequency)
		}
	}

	if u.LossAversionEnabled {
		rec, err := c.ledger.Current(u)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "TOKENS: %d/%d this week.", rec.CurrentTokens, rec.StartingTokens)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
