package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/parse"
)

// badDayPhrases are matched as substrings of the lowercased message.
var badDayPhrases = []string{
	"bad day", "rough day", "terrible day", "burnt out", "burned out", "overwhelmed",
	"struggling", "falling apart", "can't do this", "cant do this", "off the rails",
}

// declaredBadDay is the pattern content recorded when the bad day came from intent classification.
const declaredBadDay = "declared"

const downshiftProtocol = `Downshift mode for today. The bar drops, it doesn't disappear:
- protein target is mandatory
- calories: +300 allowance
- walk: 10 minutes minimum
Everything else is optional today.`

func badDayPhrase(lower string) (string, bool) {
	for _, p := range badDayPhrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

func (c *Coach) handleBadDayPhrase(ctx context.Context, r *request) (Reply, error) {
	phrase, _ := badDayPhrase(r.lower)
	return c.startBadDay(ctx, r, phrase)
}

// startBadDay switches today to the downshift protocol and asks for the trigger.
func (c *Coach) startBadDay(ctx context.Context, r *request, label string) (Reply, error) {
	if _, err := c.patterns.Record(r.user.ID, models.PatternBadDay, label); err != nil {
		return Reply{}, err
	}
	date := r.today()
	log, err := c.scoring.LoadOrNewLog(r.user.ID, date)
	if err != nil {
		return Reply{}, err
	}
	log.Notes = models.NotesDownshift
	if err := c.scoring.SaveLog(log); err != nil {
		return Reply{}, err
	}
	session := &models.FlowState{
		UserID:       r.user.ID,
		FlowType:     models.FlowTypeBadDay,
		CurrentState: models.StateBadDayAwaitingTrigger,
		StateData:    map[models.DataKey]string{models.DataKeyLogDate: date},
	}
	if err := c.state.SaveSession(ctx, session); err != nil {
		return Reply{}, err
	}
	slog.Info("BadDay.start: downshift activated", "userID", r.user.ID, "date", date, "label", label)
	return Reply{Body: downshiftProtocol + "\n\nWhat triggered it? One line.", Flow: models.FlowTypeBadDay}, nil
}

// continueBadDay records the trigger and closes the session.
func (c *Coach) continueBadDay(ctx context.Context, r *request) (Reply, error) {
	var b strings.Builder
	b.WriteString("Noted.")
	if r.text != "" {
		p, err := c.patterns.Record(r.user.ID, models.PatternTrigger, r.text)
		if err != nil {
			return Reply{}, err
		}
		for _, e := range parse.Emotions(r.text) {
			if _, err := c.patterns.Record(r.user.ID, models.PatternEmotion, e); err != nil {
				return Reply{}, err
			}
		}
		for _, t := range parse.ClockMentions(r.text) {
			if _, err := c.patterns.Record(r.user.ID, models.PatternTimeMention, t); err != nil {
				return Reply{}, err
			}
		}
		repeated := p
		if p.Frequency < 2 {
			if repeated, err = c.patterns.Repeated(r.user.ID, models.PatternTrigger, 2); err != nil {
				return Reply{}, err
			}
		}
		if repeated != nil {
			fmt.Fprintf(&b, " \"%s\" has come up %d times now. That's a pattern, not bad luck.", repeated.Content, repeated.Frequency)
		}
	}
	if err := c.state.ResetState(ctx, r.user.ID, models.FlowTypeBadDay); err != nil {
		return Reply{}, err
	}
	b.WriteString("\nProtein is the one thing that counts today. Get it done.")
	return Reply{Body: b.String(), Flow: models.FlowTypeBadDay}, nil
}
