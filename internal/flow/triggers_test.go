package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/scheduler"
	"github.com/BTreeMap/LockIn/internal/store"
)

func saveLog(t *testing.T, st store.Store, l models.DailyLog) {
	t.Helper()
	l.UserID = testUser
	if err := st.SaveDailyLog(l); err != nil {
		t.Fatalf("SaveDailyLog: %v", err)
	}
}

func TestMorningMessageMissedLockAndStreak(t *testing.T) {
	c, st, sender := newTestCoach(t)
	seedUser(t, st)
	saveLog(t, st, models.DailyLog{Date: "2026-03-02", TotalScore: 1})
	saveLog(t, st, models.DailyLog{Date: "2026-03-03", TotalScore: 2})

	if err := c.MorningMessage(context.Background(), testUser); err != nil {
		t.Fatalf("MorningMessage: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %+v", sender.sent)
	}
	body := sender.sent[0].body
	for _, want := range []string{"Morning, Sam.", "You didn't lock last night.", "-2 tokens", "No plan locked", "2 failed days in a row"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in morning message %q", want, body)
		}
	}

	u := getUser(t, st)
	rec, _ := c.ledger.Current(u)
	if rec.CurrentTokens != 5 || !rec.HasLoss("2026-03-03", "missed_lock") {
		t.Errorf("unexpected token record %+v", rec)
	}

	// A second run the same morning must not deduct again.
	if err := c.MorningMessage(context.Background(), testUser); err != nil {
		t.Fatal(err)
	}
	rec, _ = c.ledger.Current(u)
	if rec.CurrentTokens != 5 {
		t.Errorf("expected idempotent deduction, got %d tokens", rec.CurrentTokens)
	}
	msgs, _ := st.ListMessages(testUser, 0)
	if len(msgs) != 2 || msgs[0].Flow != string(models.FlowTypeScheduled) {
		t.Errorf("expected scheduled messages logged, got %+v", msgs)
	}
}

func TestMorningMessageTier3SendsPhotos(t *testing.T) {
	c, st, sender := newTestCoach(t)
	u, _ := seedUser(t, st)
	u.ShameLevel = 3
	if err := st.SaveUser(*u); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{"2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02"} {
		saveLog(t, st, models.DailyLog{Date: d, TotalScore: 0, TomorrowLocked: true})
	}
	saveLog(t, st, models.DailyLog{
		Date: "2026-03-03", TotalScore: 3, TomorrowLocked: true,
		TomorrowPlan: &models.TomorrowPlan{EatingWindow: "12pm-8pm", FirstMeal: "eggs", WalkTime: "morning", DangerMoment: "9pm couch"},
	})
	_ = st.AddPhoto(models.Photo{ID: "p1", UserID: testUser, Type: models.PhotoBaseline, URL: "https://example.com/base.jpg"})
	_ = st.AddPhoto(models.Photo{ID: "p2", UserID: testUser, Type: models.PhotoDaily, URL: "https://example.com/now.jpg"})

	if err := c.MorningMessage(context.Background(), testUser); err != nil {
		t.Fatalf("MorningMessage: %v", err)
	}
	if len(sender.sent) != 3 {
		t.Fatalf("expected text plus two photos, got %+v", sender.sent)
	}
	body := sender.sent[0].body
	if strings.Contains(body, "didn't lock") {
		t.Errorf("yesterday was locked, got %q", body)
	}
	if !strings.Contains(body, "Today's plan:") || !strings.Contains(body, "first meal: eggs") || !strings.Contains(body, "5 of your last 7 days") {
		t.Errorf("unexpected morning message %q", body)
	}
	if sender.sent[1].media != "https://example.com/base.jpg" || sender.sent[2].media != "https://example.com/now.jpg" {
		t.Errorf("unexpected media order %+v", sender.sent[1:])
	}
}

func TestMorningMessageExemptsContractDay(t *testing.T) {
	c, st, sender := newTestCoach(t)
	_, contract := seedUser(t, st)
	contract.LockedAt = fixedNow.AddDate(0, 0, -1)
	if err := st.SaveContract(*contract); err != nil {
		t.Fatal(err)
	}
	if err := c.MorningMessage(context.Background(), testUser); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sender.sent[0].body, "didn't lock") {
		t.Errorf("the contract day must be exempt, got %q", sender.sent[0].body)
	}
}

func TestScheduledMessagesSkipInactiveUsers(t *testing.T) {
	c, st, sender := newTestCoach(t)
	if err := st.SaveUser(models.User{ID: testUser, OnboardingStep: models.OnboardingAwaitingGoal}); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := c.MorningMessage(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	if err := c.NightlyReminder(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	if err := c.RiskWindow(ctx, "+1999", "21:00"); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected nothing sent, got %+v", sender.sent)
	}
}

func TestNightlyReminder(t *testing.T) {
	c, st, sender := newTestCoach(t)
	seedUser(t, st)
	if err := c.NightlyReminder(context.Background(), testUser); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].body, `Reply "lock"`) {
		t.Fatalf("expected reminder, got %+v", sender.sent)
	}

	saveLog(t, st, models.DailyLog{Date: today, TomorrowLocked: true})
	if err := c.NightlyReminder(context.Background(), testUser); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 {
		t.Errorf("expected no reminder once locked, got %+v", sender.sent)
	}
}

func TestRiskWindow(t *testing.T) {
	c, st, sender := newTestCoach(t)
	seedUser(t, st)
	saveLog(t, st, models.DailyLog{Date: "2026-03-03", TomorrowLocked: true, TomorrowPlan: &models.TomorrowPlan{DangerMoment: "9pm couch"}})
	for i := 0; i < 2; i++ {
		if _, err := c.patterns.Record(testUser, models.PatternTrigger, "boredom"); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.RiskWindow(context.Background(), testUser, "21:00"); err != nil {
		t.Fatal(err)
	}
	body := sender.sent[0].body
	for _, want := range []string{"Risk window (9pm)", "danger moment is 9pm couch", `"boredom" (2 times)`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in %q", want, body)
		}
	}
}

func TestJobsForRunsTriggers(t *testing.T) {
	c, st, sender := newTestCoach(t)
	u, _ := seedUser(t, st)
	jobs := c.jobsFor(u.ID, u.Schedule)
	if len(jobs) != 3 {
		t.Fatalf("expected morning, reminder and one risk job, got %d", len(jobs))
	}
	if jobs[1].Kind != scheduler.KindNightlyReminder || jobs[1].Clock != "21:00" {
		t.Errorf("unexpected reminder job %+v", jobs[1])
	}
	jobs[2].Run()
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].body, "Risk window") {
		t.Errorf("expected risk window message, got %+v", sender.sent)
	}

	// Failures are logged, never propagated.
	sender.err = errSend
	jobs[0].Run()
}
