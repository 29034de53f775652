package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

func newTestLedger(now time.Time) (*Ledger, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	l := NewLedger(st)
	l.now = func() time.Time { return now }
	return l, st
}

func enabledUser() *models.User {
	return &models.User{ID: "u1", Timezone: "UTC", LossAversionEnabled: true}
}

func checkInvariants(t *testing.T, rec *models.TokenRecord) {
	t.Helper()
	if rec.CurrentTokens < 0 || rec.CurrentTokens > rec.StartingTokens {
		t.Errorf("current tokens %d out of range 0..%d", rec.CurrentTokens, rec.StartingTokens)
	}
	if rec.PunishmentTriggered != (rec.CurrentTokens == 0) {
		t.Errorf("punishment flag %v inconsistent with %d tokens", rec.PunishmentTriggered, rec.CurrentTokens)
	}
}

func TestWeekStart(t *testing.T) {
	tests := map[string]string{
		"2026-03-02": "2026-03-02", // Monday
		"2026-03-04": "2026-03-02",
		"2026-03-08": "2026-03-02", // Sunday
		"2026-03-09": "2026-03-09",
		"2026-01-01": "2025-12-29",
	}
	for day, want := range tests {
		d, _ := time.Parse(models.DateLayout, day)
		if got := WeekStart(d); got != want {
			t.Errorf("WeekStart(%s) = %s, want %s", day, got, want)
		}
	}
}

func TestCurrentCreatesLazily(t *testing.T) {
	l, st := newTestLedger(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))
	rec, err := l.Current(enabledUser())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if rec.CurrentTokens != 7 || rec.StartingTokens != 7 || rec.WeekStart != "2026-03-02" {
		t.Errorf("unexpected fresh record %+v", rec)
	}
	stored, _ := st.GetTokenRecord("u1", "2026-03-02")
	if stored == nil {
		t.Error("expected record to be persisted")
	}
}

func TestDeductClampsAndTriggersPunishment(t *testing.T) {
	l, _ := newTestLedger(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))
	u := enabledUser()
	days := []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"}
	var last Result
	for _, d := range days {
		r, err := l.Deduct(u, d, ReasonMissedLock, MajorDeduction)
		if err != nil {
			t.Fatalf("Deduct: %v", err)
		}
		checkInvariants(t, r.Record)
		last = r
	}
	if last.Record.CurrentTokens != 0 || !last.Record.PunishmentTriggered {
		t.Errorf("expected exhausted record, got %+v", last.Record)
	}
	if len(last.Record.LossEvents) != 4 {
		t.Errorf("expected 4 loss events, got %d", len(last.Record.LossEvents))
	}
	if !strings.Contains(last.Reply, "punishment") {
		t.Errorf("expected punishment reply, got %q", last.Reply)
	}
}

func TestDeductDisabledIsNoop(t *testing.T) {
	l, st := newTestLedger(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))
	u := enabledUser()
	u.LossAversionEnabled = false
	r, err := l.Deduct(u, "2026-03-04", ReasonMissedLock, MajorDeduction)
	if err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	if r.Applied || r.Reply != "" || r.Record != nil {
		t.Errorf("expected empty result, got %+v", r)
	}
	if rec, _ := st.GetTokenRecord("u1", "2026-03-02"); rec != nil {
		t.Errorf("expected no ledger state, got %+v", rec)
	}
}

func TestDeductIdempotentPerDateAndReason(t *testing.T) {
	l, _ := newTestLedger(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))
	u := enabledUser()
	l.Deduct(u, "2026-03-03", ReasonLowScore, MinorDeduction)
	r, _ := l.Deduct(u, "2026-03-03", ReasonLowScore, MinorDeduction)
	if r.Applied {
		t.Error("expected repeat deduction to be skipped")
	}
	if r.Record.CurrentTokens != 6 {
		t.Errorf("expected 6 tokens, got %d", r.Record.CurrentTokens)
	}
	r, _ = l.Deduct(u, "2026-03-03", ReasonMissedLock, MajorDeduction)
	if !r.Applied || r.Record.CurrentTokens != 4 {
		t.Errorf("expected independent major deduction, got %+v", r.Record)
	}
}

func TestNewWeekIsIndependent(t *testing.T) {
	now := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLedger(now)
	u := enabledUser()
	for _, d := range []string{"2026-03-05", "2026-03-06", "2026-03-07", "2026-03-08"} {
		l.Deduct(u, d, ReasonMissedLock, MajorDeduction)
	}
	l.now = func() time.Time { return now.Add(24 * time.Hour) }
	rec, err := l.Current(u)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if rec.CurrentTokens != 7 || rec.PunishmentTriggered || len(rec.LossEvents) != 0 {
		t.Errorf("expected fresh week, got %+v", rec)
	}
}

func TestDeductChargesWeekOfFailureDate(t *testing.T) {
	// Monday morning: Sunday's missed lock is evaluated a day late.
	l, st := newTestLedger(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	u := enabledUser()
	r, err := l.EvaluateMissedLock(u, "2026-03-08", nil)
	if err != nil {
		t.Fatalf("EvaluateMissedLock: %v", err)
	}
	if !r.Applied || r.Record.WeekStart != "2026-03-02" || r.Record.CurrentTokens != 5 {
		t.Fatalf("expected deduction in the Sunday's week, got %+v", r.Record)
	}
	if !strings.Contains(r.Reply, "week of 2026-03-02") {
		t.Errorf("expected reply to name the charged week, got %q", r.Reply)
	}
	if rec, _ := st.GetTokenRecord("u1", "2026-03-09"); rec != nil {
		t.Errorf("new week should be untouched, got %+v", rec)
	}
	cur, err := l.Current(u)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.WeekStart != "2026-03-09" || cur.CurrentTokens != 7 {
		t.Errorf("expected a full new week, got %+v", cur)
	}

	again, _ := l.EvaluateMissedLock(u, "2026-03-08", nil)
	if again.Applied {
		t.Error("expected repeat evaluation to be skipped")
	}
}

func TestDeductUsesUserTimezoneForWeek(t *testing.T) {
	// 03:00 UTC Monday is still Sunday evening in New York.
	l, _ := newTestLedger(time.Date(2026, 3, 9, 3, 0, 0, 0, time.UTC))
	u := enabledUser()
	u.Timezone = "America/New_York"
	r, err := l.Deduct(u, "2026-03-08", ReasonLowScore, MinorDeduction)
	if err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	if r.Record.WeekStart != "2026-03-02" {
		t.Errorf("expected week 2026-03-02, got %s", r.Record.WeekStart)
	}
	r, _ = l.Deduct(u, "not-a-date", ReasonLowScore, MinorDeduction)
	if r.Record == nil || r.Record.WeekStart != "2026-03-02" {
		t.Errorf("invalid date should fall back to the current local week, got %+v", r.Record)
	}
}

func TestEvaluateDailyScore(t *testing.T) {
	contract := &models.Contract{Actions: []models.BinaryAction{
		{Name: "calories", Points: 2}, {Name: "protein", Points: 2}, {Name: "walk", Points: 1}, {Name: "photo", Points: 1},
	}}
	tests := []struct {
		name    string
		log     models.DailyLog
		applied bool
	}{
		{"half is fine", models.DailyLog{Date: "2026-03-03", Scores: map[string]int{"calories": 2, "walk": 1}}, false},
		{"below half", models.DailyLog{Date: "2026-03-03", Scores: map[string]int{"walk": 1}}, true},
		{"downshift with protein", models.DailyLog{Date: "2026-03-03", Scores: map[string]int{"protein": 2}, Notes: models.NotesDownshift}, false},
		{"downshift without protein", models.DailyLog{Date: "2026-03-03", Scores: map[string]int{"walk": 1}, Notes: models.NotesDownshift}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))
			log := tt.log
			log.Recompute()
			r, err := l.EvaluateDailyScore(enabledUser(), contract, &log)
			if err != nil {
				t.Fatalf("EvaluateDailyScore: %v", err)
			}
			if r.Applied != tt.applied {
				t.Errorf("applied = %v, want %v", r.Applied, tt.applied)
			}
			if r.Applied && r.Record.CurrentTokens != 6 {
				t.Errorf("expected minor deduction, got %d tokens", r.Record.CurrentTokens)
			}
		})
	}
}

func TestEvaluateMissedLock(t *testing.T) {
	l, _ := newTestLedger(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))
	u := enabledUser()
	r, _ := l.EvaluateMissedLock(u, "2026-03-03", &models.DailyLog{TomorrowLocked: true})
	if r.Applied {
		t.Error("locked day should not deduct")
	}
	r, _ = l.EvaluateMissedLock(u, "2026-03-03", nil)
	if !r.Applied || r.Record.CurrentTokens != 5 {
		t.Errorf("expected major deduction, got %+v", r)
	}
}

func TestStatus(t *testing.T) {
	u := enabledUser()
	rec := &models.TokenRecord{WeekStart: "2026-03-02", StartingTokens: 7, CurrentTokens: 5,
		LossEvents: []models.LossEvent{{Date: "2026-03-03", Reason: ReasonMissedLock, Amount: 2}}}
	s := Status(u, rec)
	if !strings.Contains(s, "5/7") || !strings.Contains(s, "missed nightly lock") {
		t.Errorf("unexpected status %q", s)
	}
	u.LossAversionEnabled = false
	if !strings.Contains(Status(u, rec), "off") {
		t.Error("expected disabled message")
	}
}
