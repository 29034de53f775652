// Package tokens implements the weekly loss-aversion token ledger.
//
// Each user starts every ISO week with models.StartingTokens. A failure deducts
// from the week its date falls in; a new week opens an independent record with no
// carry-over. Reaching zero sets PunishmentTriggered.
package tokens

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

// Deduction reasons double as the idempotency key together with the failure date.
const (
	ReasonLowScore   = "low_score"
	ReasonMissedLock = "missed_lock"
)

// Deduction amounts for the two daily failure triggers.
const (
	MinorDeduction = 1
	MajorDeduction = 2
)

// proteinAction is the action that must still be hit on a downshift day.
const proteinAction = "protein"

// Ledger reads and updates TokenRecords.
type Ledger struct {
	st  store.Store
	now func() time.Time
}

// NewLedger creates a Ledger backed by st.
func NewLedger(st store.Store) *Ledger {
	return &Ledger{st: st, now: time.Now}
}

// Result describes the outcome of a deduction attempt. A zero Result means
// nothing happened and there is nothing to tell the user.
type Result struct {
	Record  *models.TokenRecord
	Applied bool
	Reply   string
}

// WeekStart returns the Monday (YYYY-MM-DD) of the ISO week containing t, in t's location.
func WeekStart(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	y, m, d := t.Date()
	monday := time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	return monday.Format(models.DateLayout)
}

// Current returns this week's record for user, creating it with the full
// allowance on first access.
func (l *Ledger) Current(user *models.User) (*models.TokenRecord, error) {
	return l.week(user, WeekStart(l.now().In(user.Location())))
}

// weekOf returns the week start for a YYYY-MM-DD date in the user's timezone.
// An unparseable date falls back to the current week.
func (l *Ledger) weekOf(user *models.User, date string) string {
	day, err := time.ParseInLocation(models.DateLayout, date, user.Location())
	if err != nil {
		slog.Warn("Ledger: invalid failure date, using current week", "userID", user.ID, "date", date, "error", err)
		day = l.now().In(user.Location())
	}
	return WeekStart(day)
}

func (l *Ledger) week(user *models.User, week string) (*models.TokenRecord, error) {
	rec, err := l.st.GetTokenRecord(user.ID, week)
	if err != nil {
		return nil, fmt.Errorf("failed to load token record: %w", err)
	}
	if rec != nil {
		return rec, nil
	}
	rec = &models.TokenRecord{
		UserID:         user.ID,
		WeekStart:      week,
		StartingTokens: models.StartingTokens,
		CurrentTokens:  models.StartingTokens,
		UpdatedAt:      l.now(),
	}
	if err := l.st.SaveTokenRecord(*rec); err != nil {
		return nil, fmt.Errorf("failed to create token record: %w", err)
	}
	slog.Debug("Ledger: opened weekly record", "userID", user.ID, "week", week)
	return rec, nil
}

// Deduct removes amount tokens for the failure on date from the record of the
// week containing date. It is a no-op when the user has disabled loss aversion
// or when the same (date, reason) was already deducted.
func (l *Ledger) Deduct(user *models.User, date, reason string, amount int) (Result, error) {
	if !user.LossAversionEnabled {
		slog.Debug("Ledger.Deduct: loss aversion disabled, skipping", "userID", user.ID, "reason", reason)
		return Result{}, nil
	}
	rec, err := l.week(user, l.weekOf(user, date))
	if err != nil {
		return Result{}, err
	}
	if rec.HasLoss(date, reason) {
		slog.Debug("Ledger.Deduct: already deducted", "userID", user.ID, "date", date, "reason", reason)
		return Result{Record: rec}, nil
	}
	if amount < 0 {
		amount = 0
	}
	rec.CurrentTokens -= amount
	if rec.CurrentTokens < 0 {
		rec.CurrentTokens = 0
	}
	rec.LossEvents = append(rec.LossEvents, models.LossEvent{Date: date, Reason: reason, Amount: amount})
	rec.PunishmentTriggered = rec.CurrentTokens == 0
	rec.UpdatedAt = l.now()
	if err := l.st.SaveTokenRecord(*rec); err != nil {
		return Result{}, fmt.Errorf("failed to save token record: %w", err)
	}
	slog.Info("Ledger.Deduct: tokens deducted", "userID", user.ID, "reason", reason, "amount", amount, "remaining", rec.CurrentTokens)
	return Result{Record: rec, Applied: true, Reply: deductionReply(rec, reason, amount)}, nil
}

// EvaluateDailyScore applies the minor deduction when the day's score is below
// half of the contract's possible points. On a downshift day the deduction is
// waived if protein was hit.
func (l *Ledger) EvaluateDailyScore(user *models.User, contract *models.Contract, log *models.DailyLog) (Result, error) {
	possible := contract.TotalPossible()
	if log == nil || possible == 0 {
		return Result{}, nil
	}
	if log.TotalScore*2 >= possible {
		return Result{}, nil
	}
	if log.IsDownshift() && log.Scores[proteinAction] > 0 {
		slog.Debug("Ledger.EvaluateDailyScore: downshift day with protein hit, waiving", "userID", user.ID, "date", log.Date)
		return Result{}, nil
	}
	return l.Deduct(user, log.Date, ReasonLowScore, MinorDeduction)
}

// EvaluateMissedLock applies the major deduction when date's nightly lock was
// never completed. log may be nil when the user sent nothing that day.
func (l *Ledger) EvaluateMissedLock(user *models.User, date string, log *models.DailyLog) (Result, error) {
	if log != nil && log.TomorrowLocked {
		return Result{}, nil
	}
	return l.Deduct(user, date, ReasonMissedLock, MajorDeduction)
}

func reasonText(reason string) string {
	switch reason {
	case ReasonLowScore:
		return "score under 50%"
	case ReasonMissedLock:
		return "missed nightly lock"
	}
	return strings.ReplaceAll(reason, "_", " ")
}

func deductionReply(rec *models.TokenRecord, reason string, amount int) string {
	noun := "tokens"
	if amount == 1 {
		noun = "token"
	}
	msg := fmt.Sprintf("-%d %s (%s). %d/%d left for the week of %s.", amount, noun, reasonText(reason), rec.CurrentTokens, rec.StartingTokens, rec.WeekStart)
	if rec.PunishmentTriggered {
		msg += "\nYou're out of tokens. The punishment you agreed to is now due. No negotiating."
	}
	return msg
}

// Status renders the token summary shown for the "tokens" command.
func Status(user *models.User, rec *models.TokenRecord) string {
	if !user.LossAversionEnabled {
		return "Loss aversion is off for you, so there are no tokens at stake."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tokens this week (from %s): %d/%d", rec.WeekStart, rec.CurrentTokens, rec.StartingTokens)
	for _, e := range rec.LossEvents {
		fmt.Fprintf(&b, "\n- %s: -%d (%s)", e.Date, e.Amount, reasonText(e.Reason))
	}
	if rec.PunishmentTriggered {
		b.WriteString("\nPunishment triggered.")
	}
	return b.String()
}
