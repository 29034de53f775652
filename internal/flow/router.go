package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/scoring"
	"github.com/BTreeMap/LockIn/internal/tokens"
)

// route is one rule of the router. Rules are evaluated in order and the first
// match handles the message.
type route struct {
	name   string
	match  func(r *request) bool
	handle func(ctx context.Context, r *request) (Reply, error)
}

func (c *Coach) buildRoutes() []route {
	return []route{
		{"photo", func(r *request) bool { return r.msg.HasMedia() }, c.handlePhoto},
		{"onboarding", func(r *request) bool { return !r.user.OnboardingComplete }, c.handleOnboarding},
		{"no_contract", func(r *request) bool { return r.contract == nil }, c.handleNoContract},
		// "reset" escapes a stuck session instead of being read as an answer.
		{"nightly_session", func(r *request) bool { return r.nightly != nil && r.lower != "reset" }, c.continueNightly},
		{"bad_day_session", func(r *request) bool { return r.badDay != nil && r.lower != "reset" }, c.continueBadDay},
		{"command", func(r *request) bool { return matchCommand(r.lower) != nil }, c.handleCommand},
		{"bad_day_phrase", func(r *request) bool { _, ok := badDayPhrase(r.lower); return ok }, c.handleBadDayPhrase},
		{"rationalization", func(r *request) bool { _, ok := rationalization(r.lower); return ok }, c.confront},
		{"score_update", func(r *request) bool { return scoring.ParseScoreUpdate(r.text, r.contract) != nil }, c.handleScoreUpdate},
		{"intent", func(*request) bool { return true }, c.handleIntent},
	}
}

// RouteNames lists the router's rules in evaluation order.
func (c *Coach) RouteNames() []string {
	names := make([]string, len(c.routes))
	for i, rt := range c.routes {
		names[i] = rt.name
	}
	return names
}

const noContractReply = "You don't have an active contract. Nothing gets scored until you lock one in."

func (c *Coach) handleNoContract(ctx context.Context, r *request) (Reply, error) {
	return Reply{Body: noContractReply, Flow: models.FlowTypeNoContract}, nil
}

// command is a literal keyword handled without any parsing.
type command struct {
	name  string
	match func(lower string) bool
	run   func(c *Coach, ctx context.Context, r *request) (Reply, error)
}

var commands = []command{
	{
		name:  "lock",
		match: func(s string) bool { return s == "lock" || s == "nightly" || strings.Contains(s, "lock tomorrow") },
		run:   (*Coach).startNightly,
	},
	{
		name:  "status",
		match: func(s string) bool { return s == "status" || s == "score" || strings.Contains(s, "how am i") },
		run:   (*Coach).status,
	},
	{
		name:  "weekly",
		match: func(s string) bool { return s == "week" || s == "weekly" || strings.Contains(s, "weekly report") },
		run:   (*Coach).weekly,
	},
	{
		name:  "tokens",
		match: func(s string) bool { return s == "tokens" || strings.Contains(s, "token") },
		run:   (*Coach).tokenStatus,
	},
	{
		name:  "reset",
		match: func(s string) bool { return s == "reset" },
		run:   (*Coach).reset,
	},
}

func matchCommand(lower string) *command {
	for i := range commands {
		if commands[i].match(lower) {
			return &commands[i]
		}
	}
	return nil
}

func (c *Coach) handleCommand(ctx context.Context, r *request) (Reply, error) {
	return matchCommand(r.lower).run(c, ctx, r)
}

func (c *Coach) status(ctx context.Context, r *request) (Reply, error) {
	log, err := c.store.GetDailyLog(r.user.ID, r.today())
	if err != nil {
		return Reply{}, fmt.Errorf("failed to load daily log: %w", err)
	}
	return Reply{Body: scoring.Snapshot(r.contract, log, r.now), Flow: models.FlowTypeCommand}, nil
}

func (c *Coach) weekly(ctx context.Context, r *request) (Reply, error) {
	report, err := c.scoring.WeeklyReport(r.user.ID, r.contract)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Body: report.Render(), Flow: models.FlowTypeCommand}, nil
}

func (c *Coach) tokenStatus(ctx context.Context, r *request) (Reply, error) {
	if !r.user.LossAversionEnabled {
		return Reply{Body: tokens.Status(r.user, nil), Flow: models.FlowTypeCommand}, nil
	}
	rec, err := c.ledger.Current(r.user)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Body: tokens.Status(r.user, rec), Flow: models.FlowTypeCommand}, nil
}

func (c *Coach) reset(ctx context.Context, r *request) (Reply, error) {
	for _, ft := range []models.FlowType{models.FlowTypeNightlyLock, models.FlowTypeBadDay} {
		if err := c.state.ResetState(ctx, r.user.ID, ft); err != nil {
			return Reply{}, err
		}
	}
	return Reply{Body: "Session cleared. Send \"lock\" to start tonight's check-in again.", Flow: models.FlowTypeCommand}, nil
}
