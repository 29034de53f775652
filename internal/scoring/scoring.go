// Package scoring computes daily scores from a contract's weighted binary
// actions and renders the scorecard and weekly report.
package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

// Engine reads and writes DailyLogs on behalf of the flows.
type Engine struct {
	st  store.Store
	now func() time.Time
}

// NewEngine creates a scoring Engine backed by st.
func NewEngine(st store.Store) *Engine {
	return &Engine{st: st, now: time.Now}
}

// UpdateResult is the outcome of UpdateScore. Unknown actions produce a result
// with Known false and an explanatory Message; nothing is written.
type UpdateResult struct {
	Known     bool
	Action    models.BinaryAction
	Completed bool
	Total     int
	Possible  int
	Message   string
}

// LoadOrNewLog returns the log for (userID, date) or a fresh empty one.
func (e *Engine) LoadOrNewLog(userID, date string) (*models.DailyLog, error) {
	l, err := e.st.GetDailyLog(userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily log: %w", err)
	}
	if l == nil {
		l = &models.DailyLog{UserID: userID, Date: date}
	}
	if l.Scores == nil {
		l.Scores = make(map[string]int)
	}
	return l, nil
}

// SaveLog recomputes the total and upserts the log.
func (e *Engine) SaveLog(l *models.DailyLog) error {
	l.Recompute()
	l.UpdatedAt = e.now()
	if err := e.st.SaveDailyLog(*l); err != nil {
		return fmt.Errorf("failed to save daily log: %w", err)
	}
	return nil
}

// UpdateScore sets one action's score for date to its full points when completed
// and 0 otherwise. Applying the same update twice has no further effect.
func (e *Engine) UpdateScore(userID string, contract *models.Contract, date, actionName string, completed bool) (UpdateResult, error) {
	possible := contract.TotalPossible()
	action, ok := contract.Action(actionName)
	if !ok {
		slog.Debug("Scoring.UpdateScore: unknown action", "userID", userID, "action", actionName)
		return UpdateResult{
			Possible: possible,
			Message:  fmt.Sprintf("%q isn't in your contract. Your actions are: %s.", actionName, ActionList(contract)),
		}, nil
	}
	l, err := e.LoadOrNewLog(userID, date)
	if err != nil {
		return UpdateResult{}, err
	}
	points := 0
	if completed {
		points = action.Points
	}
	l.Scores[action.Name] = points
	if err := e.SaveLog(l); err != nil {
		return UpdateResult{}, err
	}
	slog.Debug("Scoring.UpdateScore: score updated", "userID", userID, "action", action.Name, "points", points, "total", l.TotalScore)
	return UpdateResult{
		Known:     true,
		Action:    action,
		Completed: completed,
		Total:     l.TotalScore,
		Possible:  possible,
		Message:   updateMessage(action, completed, l.TotalScore, possible),
	}, nil
}

func updateMessage(a models.BinaryAction, completed bool, total, possible int) string {
	if completed {
		return fmt.Sprintf("Logged: %s ✅ (+%d). Today: %d/%d.", a.DisplayName(), a.Points, total, possible)
	}
	return fmt.Sprintf("Logged: %s ❌ (0/%d). Today: %d/%d.", a.DisplayName(), a.Points, total, possible)
}

// ApplyCompleted scores every contract action for date from the completed set
// and returns the saved log together with the actions that were missed.
func (e *Engine) ApplyCompleted(userID string, contract *models.Contract, date string, completed map[string]bool) (*models.DailyLog, []models.BinaryAction, error) {
	l, err := e.LoadOrNewLog(userID, date)
	if err != nil {
		return nil, nil, err
	}
	var missed []models.BinaryAction
	for _, a := range contract.Actions {
		if completed[a.Name] {
			l.Scores[a.Name] = a.Points
		} else {
			l.Scores[a.Name] = 0
			missed = append(missed, a)
		}
	}
	if err := e.SaveLog(l); err != nil {
		return nil, nil, err
	}
	return l, missed, nil
}

// ActionList joins the contract's action names for display.
func ActionList(contract *models.Contract) string {
	if contract == nil || len(contract.Actions) == 0 {
		return "none"
	}
	names := make([]string, len(contract.Actions))
	for i, a := range contract.Actions {
		names[i] = a.DisplayName()
	}
	return strings.Join(names, ", ")
}

// Checklist renders the numbered action list used at the start of the nightly lock.
func Checklist(contract *models.Contract) string {
	var b strings.Builder
	for i, a := range contract.Actions {
		fmt.Fprintf(&b, "%d. %s (%d pt", i+1, a.DisplayName(), a.Points)
		if a.Points != 1 {
			b.WriteString("s")
		}
		b.WriteString(")")
		if a.Threshold != "" && a.Threshold != a.Name && a.Threshold != a.DisplayName() {
			fmt.Fprintf(&b, ": %s", a.Threshold)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Snapshot renders today's scorecard for the "status" command.
func Snapshot(contract *models.Contract, l *models.DailyLog, now time.Time) string {
	var b strings.Builder
	total := 0
	if l != nil {
		total = l.TotalScore
	}
	date := now.Format(models.DateLayout)
	if l != nil {
		date = l.Date
	}
	fmt.Fprintf(&b, "Scorecard %s: %d/%d\n", date, total, contract.TotalPossible())
	for _, a := range contract.Actions {
		mark := "⬜"
		if l != nil {
			if pts, ok := l.Scores[a.Name]; ok {
				mark = "❌"
				if pts > 0 {
					mark = "✅"
				}
			}
		}
		fmt.Fprintf(&b, "%s %s\n", mark, a.DisplayName())
	}
	if l != nil && l.IsDownshift() {
		b.WriteString("Downshift day: protein is the one that counts.\n")
	}
	days := int(math.Ceil(contract.ExpiresAt.Sub(now).Hours() / 24))
	if days < 0 {
		days = 0
	}
	fmt.Fprintf(&b, "Contract: %s (%d days left)", contract.Goal, days)
	return b.String()
}
