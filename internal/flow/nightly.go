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
)

// proteinAction is the one action a downshift day still requires.
const proteinAction = "protein"

const planPrompt = `Tomorrow's plan. Send:
eating window (e.g. 12-8pm)
first meal
walk time
strength: yes/no
danger moment`

var planFieldLabels = map[string]string{
	parse.FieldPlanEatingWindow: "eating window",
	parse.FieldPlanFirstMeal:    "first meal",
	parse.FieldPlanWalkTime:     "walk time",
	parse.FieldPlanStrength:     "strength",
	parse.FieldPlanDanger:       "danger moment",
}

// startNightly opens a fresh nightly-lock session for today and sends the checklist.
func (c *Coach) startNightly(ctx context.Context, r *request) (Reply, error) {
	date := r.today()
	existing, err := c.store.GetDailyLog(r.user.ID, date)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to load daily log: %w", err)
	}
	session := &models.FlowState{
		UserID:       r.user.ID,
		FlowType:     models.FlowTypeNightlyLock,
		CurrentState: models.StateNightlyScoring,
		StateData:    map[models.DataKey]string{models.DataKeyLogDate: date},
	}
	if err := c.state.SaveSession(ctx, session); err != nil {
		return Reply{}, err
	}
	slog.Debug("Nightly.start: session opened", "userID", r.user.ID, "date", date)

	var b strings.Builder
	if existing != nil && existing.TomorrowLocked {
		b.WriteString("You already locked tonight. Going again replaces it.\n\n")
	}
	fmt.Fprintf(&b, "Nightly lock for %s. Which of these did you hit today?\n", date)
	b.WriteString(scoring.Checklist(r.contract))
	b.WriteString("\n\nReply \"all\", \"none\", or name the ones you did.")
	return Reply{Body: b.String(), Flow: models.FlowTypeNightlyLock}, nil
}

// continueNightly dispatches on the session's current state.
func (c *Coach) continueNightly(ctx context.Context, r *request) (Reply, error) {
	s := r.nightly
	if s.StateData[models.DataKeyLogDate] == "" {
		s.StateData[models.DataKeyLogDate] = r.today()
	}
	switch s.CurrentState {
	case models.StateNightlyScoring:
		return c.nightlyScoring(ctx, r, s)
	case models.StateNightlyMissReason:
		return c.nightlyMissReason(ctx, r, s)
	case models.StateNightlyPlanning:
		return c.nightlyPlanning(ctx, r, s)
	case models.StateNightlyConfirm:
		return c.nightlyConfirm(ctx, r, s)
	}
	slog.Warn("Nightly: unknown session state, restarting", "userID", r.user.ID, "state", s.CurrentState)
	return c.startNightly(ctx, r)
}

func (c *Coach) nightlyScoring(ctx context.Context, r *request, s *models.FlowState) (Reply, error) {
	date := s.StateData[models.DataKeyLogDate]
	completed := scoring.MatchCompleted(r.text, r.contract)
	log, missed, err := c.scoring.ApplyCompleted(r.user.ID, r.contract, date, completed)
	if err != nil {
		return Reply{}, err
	}

	if log.IsDownshift() {
		if a, ok := r.contract.Action(proteinAction); ok && completed[a.Name] {
			if _, err := c.patterns.Record(r.user.ID, models.PatternDownshiftCompletion, a.Name); err != nil {
				return Reply{}, err
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score for %s: %d/%d.", date, log.TotalScore, r.contract.TotalPossible())
	res, err := c.ledger.EvaluateDailyScore(r.user, r.contract, log)
	if err != nil {
		return Reply{}, err
	}
	if res.Reply != "" {
		b.WriteString("\n" + res.Reply)
	}

	if len(missed) > 0 {
		names := make([]string, len(missed))
		for i, a := range missed {
			names[i] = a.DisplayName()
		}
		fmt.Fprintf(&b, "\nMissed: %s.\nOne line: what got in the way?", strings.Join(names, ", "))
		s.CurrentState = models.StateNightlyMissReason
	} else {
		b.WriteString("\nClean sweep.\n\n" + planPrompt)
		s.CurrentState = models.StateNightlyPlanning
	}
	if err := c.state.SaveSession(ctx, s); err != nil {
		return Reply{}, err
	}
	slog.Debug("Nightly.scoring: scored", "userID", r.user.ID, "date", date, "total", log.TotalScore, "missed", len(missed))
	return Reply{Body: b.String(), Flow: models.FlowTypeNightlyLock}, nil
}

func (c *Coach) nightlyMissReason(ctx context.Context, r *request, s *models.FlowState) (Reply, error) {
	var b strings.Builder
	if r.text != "" {
		p, err := c.patterns.Record(r.user.ID, models.PatternMissReason, r.text)
		if err != nil {
			return Reply{}, err
		}
		if tod, ok := parse.DetectTimeOfDay(r.text); ok {
			if _, err := c.patterns.Record(r.user.ID, models.PatternFailureTime, tod); err != nil {
				return Reply{}, err
			}
		}
		s.StateData[models.DataKeyMissReason] = r.text
		if p.Frequency >= 2 {
			fmt.Fprintf(&b, "You've given that exact reason %d times now. Noted.\n\n", p.Frequency)
		} else {
			b.WriteString("Noted.\n\n")
		}
	}
	b.WriteString(planPrompt)
	s.CurrentState = models.StateNightlyPlanning
	if err := c.state.SaveSession(ctx, s); err != nil {
		return Reply{}, err
	}
	return Reply{Body: b.String(), Flow: models.FlowTypeNightlyLock}, nil
}

func (c *Coach) nightlyPlanning(ctx context.Context, r *request, s *models.FlowState) (Reply, error) {
	res := parse.ParsePlan(r.text)
	raw, err := json.Marshal(res.Plan)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to encode plan: %w", err)
	}
	s.StateData[models.DataKeyPlan] = string(raw)
	s.StateData[models.DataKeyPlanDefaulted] = strings.Join(res.Defaulted, ",")
	s.CurrentState = models.StateNightlyConfirm
	if err := c.state.SaveSession(ctx, s); err != nil {
		return Reply{}, err
	}

	var b strings.Builder
	b.WriteString("Tomorrow:\n")
	b.WriteString(renderPlan(res.Plan))
	if res.UsedDefaults() {
		labels := make([]string, len(res.Defaulted))
		for i, f := range res.Defaulted {
			labels[i] = planFieldLabels[f]
		}
		fmt.Fprintf(&b, "\nNot in your message, so defaulted: %s.", strings.Join(labels, ", "))
	}
	b.WriteString("\n\nReply LOCKED to commit, or anything else to redo the plan.")
	return Reply{Body: b.String(), Flow: models.FlowTypeNightlyLock}, nil
}

func (c *Coach) nightlyConfirm(ctx context.Context, r *request, s *models.FlowState) (Reply, error) {
	var plan models.TomorrowPlan
	planRaw := s.StateData[models.DataKeyPlan]
	if !isLocked(r.text) || planRaw == "" || json.Unmarshal([]byte(planRaw), &plan) != nil {
		s.CurrentState = models.StateNightlyPlanning
		if err := c.state.SaveSession(ctx, s); err != nil {
			return Reply{}, err
		}
		return Reply{Body: "Not locked. Send tomorrow's plan again.\n\n" + planPrompt, Flow: models.FlowTypeNightlyLock}, nil
	}

	date := s.StateData[models.DataKeyLogDate]
	log, err := c.scoring.LoadOrNewLog(r.user.ID, date)
	if err != nil {
		return Reply{}, err
	}
	log.TomorrowLocked = true
	log.TomorrowPlan = &plan
	if reason := s.StateData[models.DataKeyMissReason]; reason != "" {
		log.MissReason = reason
	}
	if err := c.scoring.SaveLog(log); err != nil {
		return Reply{}, err
	}
	if err := c.state.ResetState(ctx, r.user.ID, models.FlowTypeNightlyLock); err != nil {
		return Reply{}, err
	}
	slog.Info("Nightly.confirm: tomorrow locked", "userID", r.user.ID, "date", date)
	return Reply{
		Body: fmt.Sprintf("Locked. Tomorrow is decided. First meal %s, danger moment %s. See you at %s.",
			plan.FirstMeal, plan.DangerMoment, displayClock(r.user.Schedule.Wake)),
		Flow: models.FlowTypeNightlyLock,
	}, nil
}

func renderPlan(p models.TomorrowPlan) string {
	strength := "no"
	if p.Strength {
		strength = "yes"
	}
	return fmt.Sprintf("- eating window: %s\n- first meal: %s\n- walk: %s\n- strength: %s\n- danger moment: %s",
		p.EatingWindow, p.FirstMeal, p.WalkTime, strength, p.DangerMoment)
}

// displayClock renders a 24-hour HH:MM clock as "6:30am".
func displayClock(clock string) string {
	h, m, ok := parse.SplitClock(clock)
	if !ok {
		return clock
	}
	suffix := "am"
	if h >= 12 {
		suffix = "pm"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	if m == 0 {
		return fmt.Sprintf("%d%s", h12, suffix)
	}
	return fmt.Sprintf("%d:%02d%s", h12, m, suffix)
}
