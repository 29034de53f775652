package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/parse"
	"github.com/BTreeMap/LockIn/internal/scheduler"
	"github.com/BTreeMap/LockIn/internal/shame"
)

// TriggerTimeout bounds one scheduled message for one user.
const TriggerTimeout = 2 * time.Minute

// RegisterSchedule replaces the user's daily jobs with ones derived from their
// schedule: the morning message at wake, the nightly reminder two hours before
// sleep and one intercept per risk time.
func (c *Coach) RegisterSchedule(u *models.User) error {
	if c.jobs == nil {
		return nil
	}
	return c.jobs.ReplaceUserJobs(u.ID, u.Timezone, c.jobsFor(u.ID, u.Schedule))
}

func (c *Coach) jobsFor(userID string, s models.Schedule) []scheduler.Job {
	jobs := []scheduler.Job{{
		Kind:  scheduler.KindMorning,
		Clock: s.Wake,
		Run:   c.trigger(scheduler.KindMorning, userID, c.MorningMessage),
	}}
	if reminder, ok := parse.NightlyReminderClock(s.Sleep); ok {
		jobs = append(jobs, scheduler.Job{
			Kind:  scheduler.KindNightlyReminder,
			Clock: reminder,
			Run:   c.trigger(scheduler.KindNightlyReminder, userID, c.NightlyReminder),
		})
	}
	for _, clock := range s.RiskTimes {
		clock := clock
		jobs = append(jobs, scheduler.Job{
			Kind:  scheduler.KindRiskWindow,
			Clock: clock,
			Run: c.trigger(scheduler.KindRiskWindow, userID, func(ctx context.Context, id string) error {
				return c.RiskWindow(ctx, id, clock)
			}),
		})
	}
	return jobs
}

// trigger wraps a scheduled callback so a failure is logged and never escapes.
func (c *Coach) trigger(kind, userID string, fn func(ctx context.Context, userID string) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), TriggerTimeout)
		defer cancel()
		slog.Debug("Coach trigger fired", "kind", kind, "userID", userID)
		if err := fn(ctx, userID); err != nil {
			slog.Error("Coach trigger failed", "kind", kind, "userID", userID, "error", err)
		}
	}
}

// loadActive returns the user and contract when scheduled messages apply to them.
func (c *Coach) loadActive(userID string) (*models.User, *models.Contract, error) {
	u, err := c.store.GetUser(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil || !u.OnboardingComplete || u.Archived {
		return nil, nil, nil
	}
	contract, err := c.store.GetActiveContract(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load contract: %w", err)
	}
	if contract == nil {
		return nil, nil, nil
	}
	return u, contract, nil
}

func (c *Coach) sendScheduled(ctx context.Context, userID string, reply Reply) error {
	reply.Flow = models.FlowTypeScheduled
	if err := c.deliver(ctx, userID, reply); err != nil {
		return err
	}
	c.logMessage(userID, models.RoleAssistant, reply.Body, reply.Flow)
	return nil
}

// MorningMessage checks last night's lock, applies shame escalation and restates
// today's plan.
func (c *Coach) MorningMessage(ctx context.Context, userID string) error {
	u, contract, err := c.loadActive(userID)
	if err != nil || u == nil {
		return err
	}
	now := c.now().In(u.Location())
	today := now.Format(models.DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(models.DateLayout)

	ylog, err := c.store.GetDailyLog(u.ID, yesterday)
	if err != nil {
		return fmt.Errorf("failed to load yesterday's log: %w", err)
	}

	parts := []string{fmt.Sprintf("Morning, %s.", u.DisplayName())}

	// The day the contract was locked is exempt from the missed-lock check.
	if contract.LockedAt.In(u.Location()).Format(models.DateLayout) < yesterday {
		res, err := c.ledger.EvaluateMissedLock(u, yesterday, ylog)
		if err != nil {
			return err
		}
		if res.Applied {
			parts = append(parts, "You didn't lock last night.\n"+res.Reply)
		}
	}

	if ylog != nil && ylog.TomorrowPlan != nil {
		parts = append(parts, "Today's plan:\n"+renderPlan(*ylog.TomorrowPlan))
	} else {
		parts = append(parts, "No plan locked for today. Run it anyway: every action on your contract still counts.")
	}

	decision, err := c.escalation(u, today)
	if err != nil {
		return err
	}
	var media []string
	if msg := shame.Message(decision, u.DisplayName()); msg != "" {
		parts = append(parts, msg)
		baseline, err := c.store.ListPhotos(u.ID, models.PhotoBaseline, 1)
		if err != nil {
			return fmt.Errorf("failed to load baseline photo: %w", err)
		}
		recent, err := c.store.ListPhotos(u.ID, models.PhotoDaily, 1)
		if err != nil {
			return fmt.Errorf("failed to load recent photos: %w", err)
		}
		var base *models.Photo
		if len(baseline) > 0 {
			base = &baseline[0]
		}
		media = shame.PhotoURLs(decision, base, recent)
	}
	slog.Info("Coach.MorningMessage: sending", "userID", u.ID, "escalation", shame.Describe(decision), "photos", len(media))
	return c.sendScheduled(ctx, u.ID, Reply{Body: strings.Join(parts, "\n\n"), MediaURLs: media})
}

// escalation evaluates shame over the completed days before today.
func (c *Coach) escalation(u *models.User, today string) (shame.Decision, error) {
	logs, err := c.store.ListDailyLogs(u.ID, shame.Window+1)
	if err != nil {
		return shame.Decision{}, fmt.Errorf("failed to load daily logs: %w", err)
	}
	past := make([]models.DailyLog, 0, len(logs))
	for _, l := range logs {
		if l.Date < today && len(past) < shame.Window {
			past = append(past, l)
		}
	}
	reasons, err := c.patterns.Top(u.ID, models.PatternMissReason, 10)
	if err != nil {
		return shame.Decision{}, err
	}
	return shame.Evaluate(shame.Input{ShameLevel: u.ShameLevel, Logs: past, Patterns: reasons}), nil
}

// NightlyReminder prompts the nightly lock unless today is already locked.
func (c *Coach) NightlyReminder(ctx context.Context, userID string) error {
	u, _, err := c.loadActive(userID)
	if err != nil || u == nil {
		return err
	}
	today := c.now().In(u.Location()).Format(models.DateLayout)
	log, err := c.store.GetDailyLog(u.ID, today)
	if err != nil {
		return fmt.Errorf("failed to load daily log: %w", err)
	}
	if log != nil && log.TomorrowLocked {
		slog.Debug("Coach.NightlyReminder: already locked, skipping", "userID", u.ID, "date", today)
		return nil
	}
	body := fmt.Sprintf("Nightly lock, %s. Two hours to bed. Reply \"lock\" to score today and decide tomorrow.", u.DisplayName())
	return c.sendScheduled(ctx, u.ID, Reply{Body: body})
}

// RiskWindow intercepts the user at one of their danger times.
func (c *Coach) RiskWindow(ctx context.Context, userID, clock string) error {
	u, _, err := c.loadActive(userID)
	if err != nil || u == nil {
		return err
	}
	yesterday := c.now().In(u.Location()).AddDate(0, 0, -1).Format(models.DateLayout)
	ylog, err := c.store.GetDailyLog(u.ID, yesterday)
	if err != nil {
		return fmt.Errorf("failed to load yesterday's log: %w", err)
	}
	trigger, err := c.patterns.MostFrequent(u.ID, models.PatternTrigger)
	if err != nil {
		return err
	}

	parts := []string{fmt.Sprintf("Risk window (%s). This is when it usually goes wrong.", displayClock(clock))}
	if ylog != nil && ylog.TomorrowPlan != nil && ylog.TomorrowPlan.DangerMoment != "" {
		parts = append(parts, fmt.Sprintf("You called it last night: danger moment is %s.", ylog.TomorrowPlan.DangerMoment))
	}
	if trigger != nil {
		parts = append(parts, fmt.Sprintf("Your most common trigger: \"%s\" (%d %s).", trigger.Content, trigger.Frequency, times(trigger.Frequency)))
	}
	parts = append(parts, "Stay with the plan. Reply \"bad day\" if you need the downshift.")
	return c.sendScheduled(ctx, u.ID, Reply{Body: strings.Join(parts, "\n")})
}
