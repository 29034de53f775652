package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/parse"
	"github.com/BTreeMap/LockIn/internal/scoring"
	"github.com/google/uuid"
)

const (
	welcomeMessage = "Welcome to LockIn. This isn't a diet app. It's a contract with yourself, scored every night.\n\nFirst: what's your name?"
	namePrompt     = "I need your name first. What should I call you?"
	goalPrompt     = "Good, %s. What's the goal? One sentence, e.g. \"lose 8kg by June\"."
	actionsPrompt  = `Now your daily binary actions, one per line. Each one is done or not done, no partial credit. The first two count double.
Example:
calories: under 1800
protein: 140g
walk: 8k steps
Or reply "default" for the standard template.`
	timesPrompt = `Now your day. Send wake time, sleep time, eating window and your danger times, e.g.
wake 6:30am, sleep 11pm, eat 12-8pm, danger 3pm and 9pm`
	shamePrompt = `Shame level?
1 = a nudge when you slip
2 = I quote your excuses back to you
3 = brutal, progress photos get used against you`
)

var scheduleFieldLabels = map[string]string{
	parse.FieldWake:         "wake",
	parse.FieldSleep:        "sleep",
	parse.FieldEatingWindow: "eating window",
	parse.FieldRiskTimes:    "danger times",
}

// handleOnboarding advances the persisted onboarding step by one message.
func (c *Coach) handleOnboarding(ctx context.Context, r *request) (Reply, error) {
	u := r.user
	step := u.OnboardingStep
	var (
		body string
		err  error
	)
	switch step {
	case models.OnboardingAwaitingName:
		body, err = c.onboardName(ctx, r)
	case models.OnboardingAwaitingGoal:
		body, err = c.onboardGoal(ctx, r)
	case models.OnboardingAwaitingActions:
		body, err = c.onboardActions(ctx, r)
	case models.OnboardingAwaitingTimes:
		body, err = c.onboardTimes(ctx, r)
	case models.OnboardingAwaitingShame:
		body, err = c.onboardShame(ctx, r)
	case models.OnboardingAwaitingConfirm:
		body, err = c.onboardConfirm(ctx, r)
	default:
		body, err = c.onboardStart(ctx, r)
	}
	if err != nil {
		return Reply{}, err
	}
	if u.OnboardingStep != step {
		slog.Debug("Onboarding: step advanced", "userID", u.ID, "from", step, "to", u.OnboardingStep)
	}
	return Reply{Body: body, Flow: models.FlowTypeOnboarding}, nil
}

func (c *Coach) advance(u *models.User, next models.OnboardingStep) error {
	u.OnboardingStep = next
	return c.saveUser(u)
}

func (c *Coach) onboardStart(ctx context.Context, r *request) (string, error) {
	if err := c.state.SetCurrentState(ctx, r.user.ID, models.FlowTypeOnboarding, models.StateOnboardingActive); err != nil {
		return "", err
	}
	if err := c.advance(r.user, models.OnboardingAwaitingName); err != nil {
		return "", err
	}
	return welcomeMessage, nil
}

func (c *Coach) onboardName(ctx context.Context, r *request) (string, error) {
	if parse.IsGreeting(r.text) {
		return "Hey. " + namePrompt, nil
	}
	name, ok := parse.ParseName(r.text)
	if !ok {
		return namePrompt, nil
	}
	r.user.Name = name
	if err := c.advance(r.user, models.OnboardingAwaitingGoal); err != nil {
		return "", err
	}
	return fmt.Sprintf(goalPrompt, name), nil
}

func (c *Coach) onboardGoal(ctx context.Context, r *request) (string, error) {
	if r.text == "" {
		return "What's the goal? One sentence.", nil
	}
	if err := c.state.SetStateData(ctx, r.user.ID, models.FlowTypeOnboarding, models.DataKeyGoal, r.text); err != nil {
		return "", err
	}
	if err := c.advance(r.user, models.OnboardingAwaitingActions); err != nil {
		return "", err
	}
	return fmt.Sprintf("Goal: %s.\n\n%s", r.text, actionsPrompt), nil
}

func (c *Coach) onboardActions(ctx context.Context, r *request) (string, error) {
	var (
		actions   []models.BinaryAction
		defaulted bool
	)
	if r.lower == "default" {
		actions, defaulted = parse.DefaultActions(), true
	} else {
		actions, defaulted = parse.ParseBinaryActions(r.text)
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return "", fmt.Errorf("failed to encode actions: %w", err)
	}
	if err := c.state.SetStateData(ctx, r.user.ID, models.FlowTypeOnboarding, models.DataKeyActions, string(raw)); err != nil {
		return "", err
	}
	if err := c.advance(r.user, models.OnboardingAwaitingTimes); err != nil {
		return "", err
	}

	draft := &models.Contract{Actions: actions}
	var b strings.Builder
	if defaulted {
		b.WriteString("Using the standard template:\n")
	} else {
		b.WriteString("Your actions:\n")
	}
	b.WriteString(scoring.Checklist(draft))
	fmt.Fprintf(&b, "\n%d points possible per day.\n\n%s", draft.TotalPossible(), timesPrompt)
	return b.String(), nil
}

func (c *Coach) onboardTimes(ctx context.Context, r *request) (string, error) {
	res := parse.ParseSchedule(r.text)
	r.user.Schedule = res.Schedule
	if err := c.advance(r.user, models.OnboardingAwaitingShame); err != nil {
		return "", err
	}

	s := res.Schedule
	risks := make([]string, len(s.RiskTimes))
	for i, t := range s.RiskTimes {
		risks[i] = displayClock(t)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Wake %s, sleep %s, eating %s-%s, danger %s.",
		displayClock(s.Wake), displayClock(s.Sleep), displayClock(s.EatingWindowStart), displayClock(s.EatingWindowEnd), strings.Join(risks, ", "))
	if res.UsedDefaults() {
		labels := make([]string, len(res.Defaulted))
		for i, f := range res.Defaulted {
			labels[i] = scheduleFieldLabels[f]
		}
		fmt.Fprintf(&b, "\nCouldn't read %s, so I used defaults.", strings.Join(labels, ", "))
	}
	if reminder, ok := parse.NightlyReminderClock(s.Sleep); ok {
		fmt.Fprintf(&b, "\nNightly lock reminder: %s.", displayClock(reminder))
	}
	b.WriteString("\n\n" + shamePrompt)
	return b.String(), nil
}

func (c *Coach) onboardShame(ctx context.Context, r *request) (string, error) {
	level, ok := parse.ParseShameLevel(r.text)
	r.user.ShameLevel = level
	if err := c.advance(r.user, models.OnboardingAwaitingConfirm); err != nil {
		return "", err
	}
	draft, err := c.draftContract(ctx, r.user.ID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if !ok {
		fmt.Fprintf(&b, "I'll take that as %d.\n\n", level)
	}
	b.WriteString(contractSummary(r.user, draft))
	b.WriteString("\n\nReply LOCKED to commit for 7 days. No edits once it's locked.")
	return b.String(), nil
}

func (c *Coach) onboardConfirm(ctx context.Context, r *request) (string, error) {
	draft, err := c.draftContract(ctx, r.user.ID)
	if err != nil {
		return "", err
	}
	if !isLocked(r.text) {
		return "Not locked yet.\n\n" + contractSummary(r.user, draft) + "\n\nReply LOCKED exactly to commit.", nil
	}
	if draft.Goal == "" || len(draft.Actions) == 0 {
		slog.Warn("Onboarding.confirm: session data missing, rewinding to goal", "userID", r.user.ID)
		if err := c.advance(r.user, models.OnboardingAwaitingGoal); err != nil {
			return "", err
		}
		return "I lost your draft before you locked it. Let's redo it: what's the goal?", nil
	}

	now := c.now()
	contract := models.Contract{
		ID:        uuid.NewString(),
		UserID:    r.user.ID,
		Goal:      draft.Goal,
		Actions:   draft.Actions,
		LockedAt:  now,
		ExpiresAt: now.Add(models.ContractDuration),
		Active:    true,
	}
	if err := contract.Validate(); err != nil {
		return "", fmt.Errorf("invalid contract: %w", err)
	}
	if err := c.store.SaveContract(contract); err != nil {
		return "", fmt.Errorf("failed to save contract: %w", err)
	}
	r.user.OnboardingComplete = true
	if err := c.advance(r.user, models.OnboardingComplete); err != nil {
		return "", err
	}
	if err := c.state.ResetState(ctx, r.user.ID, models.FlowTypeOnboarding); err != nil {
		return "", err
	}
	if err := c.RegisterSchedule(r.user); err != nil {
		slog.Error("Onboarding.confirm: failed to register schedule", "userID", r.user.ID, "error", err)
	}
	slog.Info("Onboarding.confirm: contract locked", "userID", r.user.ID, "contractID", contract.ID, "actions", len(contract.Actions))

	reminder, _ := parse.NightlyReminderClock(r.user.Schedule.Sleep)
	return fmt.Sprintf("LOCKED. Contract runs until %s.\nEvery night at %s I'll ask you to score the day and lock tomorrow. Reply \"status\" any time.",
		contract.ExpiresAt.In(r.user.Location()).Format("Mon Jan 2"), displayClock(reminder)), nil
}

// draftContract assembles the unlocked contract from the onboarding session.
// Missing session data yields an empty draft.
func (c *Coach) draftContract(ctx context.Context, userID string) (*models.Contract, error) {
	goal, err := c.state.GetStateData(ctx, userID, models.FlowTypeOnboarding, models.DataKeyGoal)
	if err != nil {
		return nil, err
	}
	raw, err := c.state.GetStateData(ctx, userID, models.FlowTypeOnboarding, models.DataKeyActions)
	if err != nil {
		return nil, err
	}
	draft := &models.Contract{UserID: userID, Goal: goal}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &draft.Actions); err != nil {
			return nil, fmt.Errorf("failed to decode actions: %w", err)
		}
	}
	return draft, nil
}

func contractSummary(u *models.User, draft *models.Contract) string {
	var b strings.Builder
	goal := draft.Goal
	if goal == "" {
		goal = "(missing)"
	}
	fmt.Fprintf(&b, "CONTRACT for %s\nGoal: %s\n", u.DisplayName(), goal)
	if len(draft.Actions) > 0 {
		b.WriteString(scoring.Checklist(draft))
		fmt.Fprintf(&b, "\nMax %d points a day.", draft.TotalPossible())
	}
	fmt.Fprintf(&b, "\nShame level: %d.", u.ShameLevel)
	return b.String()
}
