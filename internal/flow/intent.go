package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/LockIn/internal/genai"
	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/scoring"
)

const intentInstruction = `Classify the user's message to an accountability coaching bot. Labels:
LOG_SCORE: reporting whether they did one of their daily actions
BAD_DAY: saying today is going badly or they cannot cope
QUESTION: asking a question
LOCK_TOMORROW: wanting to plan or lock tomorrow
CHECK_STATUS: asking how they are doing or for their score
SKIP: wanting to skip, pause or take a day off
PHOTO: talking about sending a progress photo
GENERAL: anything else`

const skipInstruction = "The user wants to skip or take a day off. Refuse firmly in two sentences, remind them the contract is binary, and name the smallest action they can still do today."

// handleScoreUpdate applies a single structured score update.
func (c *Coach) handleScoreUpdate(ctx context.Context, r *request) (Reply, error) {
	u := scoring.ParseScoreUpdate(r.text, r.contract)
	if u == nil {
		return c.handleIntent(ctx, r)
	}
	res, err := c.scoring.UpdateScore(r.user.ID, r.contract, r.today(), u.Action, u.Completed)
	if err != nil {
		return Reply{}, err
	}
	body := res.Message
	if u.HasValue && res.Known {
		body = fmt.Sprintf("Read %d from your message. %s", u.Value, body)
	}
	return Reply{Body: body, Flow: models.FlowTypeScore}, nil
}

// classify asks the generation service for an intent. Without a client, or on an
// unrecognized label, the message is treated as GENERAL.
func (c *Coach) classify(ctx context.Context, text string) (models.Intent, error) {
	if c.genai == nil {
		return models.IntentGeneral, nil
	}
	labels := make([]string, len(models.AllIntents))
	for i, in := range models.AllIntents {
		labels[i] = string(in)
	}
	label, err := c.genai.Classify(ctx, intentInstruction, text, labels)
	if errors.Is(err, genai.ErrUnrecognizedLabel) {
		slog.Debug("Intent.classify: unrecognized label, using GENERAL", "text", text)
		return models.IntentGeneral, nil
	}
	if err != nil {
		return "", fmt.Errorf("intent classification failed: %w", err)
	}
	return models.Intent(label), nil
}

// handleIntent is the router's last resort.
func (c *Coach) handleIntent(ctx context.Context, r *request) (Reply, error) {
	if r.text == "" {
		return Reply{Body: "Send text, a photo, or \"lock\" for tonight's check-in.", Flow: models.FlowTypeGeneral}, nil
	}
	intent, err := c.classify(ctx, r.text)
	if err != nil {
		return Reply{}, err
	}
	slog.Debug("Intent: dispatching", "userID", r.user.ID, "intent", intent)
	switch intent {
	case models.IntentLogScore:
		return Reply{
			Body: fmt.Sprintf("Couldn't tell which action that was. Name it, e.g. \"hit protein\" or \"missed walk\". Your actions: %s.", scoring.ActionList(r.contract)),
			Flow: models.FlowTypeScore,
		}, nil
	case models.IntentBadDay:
		return c.startBadDay(ctx, r, declaredBadDay)
	case models.IntentLockTomorrow:
		return c.startNightly(ctx, r)
	case models.IntentCheckStatus:
		return c.status(ctx, r)
	case models.IntentPhoto:
		return Reply{Body: "Send the photo itself and I'll log it.", Flow: models.FlowTypePhoto}, nil
	case models.IntentSkip:
		return c.generate(ctx, r, skipInstruction)
	}
	return c.generate(ctx, r, "")
}
