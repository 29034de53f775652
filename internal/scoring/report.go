package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/BTreeMap/LockIn/internal/models"
)

// ReportDays is the window aggregated by the weekly report.
const ReportDays = 7

// ProblemThreshold is the number of missed days that flags an action.
const ProblemThreshold = 3

// Report aggregates the most recent daily logs.
type Report struct {
	Days         int      `json:"days"`
	Total        int      `json:"total"`
	Possible     int      `json:"possible"`
	Percent      int      `json:"percent"`
	ProblemAreas []string `json:"problem_areas"`
	Locked       int      `json:"locked_days"`
}

// WeeklyReport computes the report for userID over the last ReportDays logs.
func (e *Engine) WeeklyReport(userID string, contract *models.Contract) (Report, error) {
	logs, err := e.st.ListDailyLogs(userID, ReportDays)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list daily logs: %w", err)
	}
	return BuildReport(logs, contract), nil
}

// BuildReport aggregates logs against the contract. Percent is the summed
// daily totals over days × possible points, rounded to the nearest integer.
func BuildReport(logs []models.DailyLog, contract *models.Contract) Report {
	r := Report{Days: len(logs), Possible: contract.TotalPossible()}
	missed := make(map[string]int)
	for _, l := range logs {
		r.Total += l.TotalScore
		if l.TomorrowLocked {
			r.Locked++
		}
		for _, a := range contract.Actions {
			if l.Scores[a.Name] == 0 {
				missed[a.Name]++
			}
		}
	}
	if r.Days > 0 && r.Possible > 0 {
		r.Percent = int(math.Round(float64(r.Total) / float64(r.Days*r.Possible) * 100))
	}
	for _, a := range contract.Actions {
		if missed[a.Name] >= ProblemThreshold {
			r.ProblemAreas = append(r.ProblemAreas, a.Name)
		}
	}
	return r
}

// Render formats the report for chat.
func (r Report) Render() string {
	if r.Days == 0 {
		return "No scored days yet. Your first nightly lock starts the report."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d days: %d/%d points (%d%%). Locked %d of %d nights.", r.Days, r.Total, r.Days*r.Possible, r.Percent, r.Locked, r.Days)
	if len(r.ProblemAreas) > 0 {
		names := make([]string, len(r.ProblemAreas))
		for i, n := range r.ProblemAreas {
			names[i] = strings.ReplaceAll(n, "_", " ")
		}
		fmt.Fprintf(&b, "\nProblem areas (missed %d+ days): %s.", ProblemThreshold, strings.Join(names, ", "))
	}
	return b.String()
}
