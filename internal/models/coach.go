package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for daily logs and token weeks.
const DateLayout = "2006-01-02"

// OnboardingStep is the persisted position of a user in the onboarding flow.
type OnboardingStep string

const (
	OnboardingStart           OnboardingStep = "start"
	OnboardingAwaitingName    OnboardingStep = "awaiting_name"
	OnboardingAwaitingGoal    OnboardingStep = "awaiting_goal"
	OnboardingAwaitingActions OnboardingStep = "awaiting_actions"
	OnboardingAwaitingTimes   OnboardingStep = "awaiting_times"
	OnboardingAwaitingShame   OnboardingStep = "awaiting_shame_level"
	OnboardingAwaitingConfirm OnboardingStep = "awaiting_contract_confirm"
	OnboardingComplete        OnboardingStep = "complete"
)

// Schedule holds a user's daily clock times, all normalized to 24-hour HH:MM.
type Schedule struct {
	Wake              string   `json:"wake"`
	Sleep             string   `json:"sleep"`
	EatingWindowStart string   `json:"eating_window_start"`
	EatingWindowEnd   string   `json:"eating_window_end"`
	RiskTimes         []string `json:"risk_times"`
}

// User is identified by a canonical phone number and is never deleted.
type User struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Timezone            string         `json:"timezone"`
	Schedule            Schedule       `json:"schedule"`
	ShameLevel          int            `json:"shame_level"` // 0-3, 0 disables escalation
	LossAversionEnabled bool           `json:"loss_aversion_enabled"`
	OnboardingStep      OnboardingStep `json:"onboarding_step"`
	OnboardingComplete  bool           `json:"onboarding_complete"`
	Archived            bool           `json:"archived"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// Location returns the user's timezone, falling back to UTC when unset or unknown.
func (u *User) Location() *time.Location {
	if u == nil || u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DisplayName returns the user's name or a neutral fallback.
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return "there"
	}
	return u.Name
}

// BinaryAction is a named daily task worth a fixed number of points.
type BinaryAction struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Points    int    `json:"points"`
}

// DisplayName renders the action name with spaces instead of underscores.
func (a BinaryAction) DisplayName() string {
	return strings.ReplaceAll(a.Name, "_", " ")
}

// Contract is the locked, week-long set of binary actions a user committed to.
type Contract struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Goal      string         `json:"goal"`
	Actions   []BinaryAction `json:"binary_actions"`
	LockedAt  time.Time      `json:"locked_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Active    bool           `json:"active"`
}

// ContractDuration is how long a locked contract runs before it expires.
const ContractDuration = 7 * 24 * time.Hour

// TotalPossible returns the sum of all action points.
func (c *Contract) TotalPossible() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, a := range c.Actions {
		total += a.Points
	}
	return total
}

// Action looks up an action by case-insensitive name.
func (c *Contract) Action(name string) (BinaryAction, bool) {
	if c == nil {
		return BinaryAction{}, false
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, a := range c.Actions {
		if strings.ToLower(a.Name) == want {
			return a, true
		}
	}
	return BinaryAction{}, false
}

// Validate checks the contract's structural invariants.
func (c *Contract) Validate() error {
	if strings.TrimSpace(c.Goal) == "" {
		return ErrEmptyGoal
	}
	if len(c.Actions) == 0 {
		return ErrNoActions
	}
	if len(c.Actions) > MaxActionsPerContract {
		return ErrTooManyActions
	}
	seen := make(map[string]bool, len(c.Actions))
	for _, a := range c.Actions {
		if a.Name == "" {
			return ErrEmptyActionName
		}
		if a.Points <= 0 {
			return ErrInvalidActionPoints
		}
		key := strings.ToLower(a.Name)
		if seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateAction, a.Name)
		}
		seen[key] = true
	}
	return nil
}

// TomorrowPlan is the structured plan committed during the nightly lock.
type TomorrowPlan struct {
	EatingWindow string `json:"eating_window"`
	FirstMeal    string `json:"first_meal"`
	WalkTime     string `json:"walk_time"`
	Strength     bool   `json:"strength"`
	DangerMoment string `json:"danger_moment"`
}

// NotesDownshift marks a daily log as a declared bad day running the downshift protocol.
const NotesDownshift = "downshift"

// DailyLog is the single record per (user, calendar date).
type DailyLog struct {
	UserID         string         `json:"user_id"`
	Date           string         `json:"date"` // YYYY-MM-DD in the user's timezone
	Scores         map[string]int `json:"scores"`
	TotalScore     int            `json:"total_score"`
	TomorrowLocked bool           `json:"tomorrow_locked"`
	TomorrowPlan   *TomorrowPlan  `json:"tomorrow_plan,omitempty"`
	MissReason     string         `json:"miss_reason,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Recompute sets TotalScore to the sum of Scores.
func (l *DailyLog) Recompute() {
	total := 0
	for _, v := range l.Scores {
		total += v
	}
	l.TotalScore = total
}

// IsDownshift reports whether the day runs the relaxed bad-day protocol.
func (l *DailyLog) IsDownshift() bool {
	return l != nil && l.Notes == NotesDownshift
}

// StartingTokens is the weekly token allowance.
const StartingTokens = 7

// LossEvent is one append-only deduction from a weekly token record.
type LossEvent struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
	Amount int    `json:"amount"`
}

// TokenRecord is the per (user, ISO week) countdown of loss-aversion tokens.
type TokenRecord struct {
	UserID              string      `json:"user_id"`
	WeekStart           string      `json:"week_start"` // Monday, YYYY-MM-DD
	StartingTokens      int         `json:"starting_tokens"`
	CurrentTokens       int         `json:"current_tokens"`
	LossEvents          []LossEvent `json:"loss_events"`
	PunishmentTriggered bool        `json:"punishment_triggered"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// HasLoss reports whether a deduction with the given date and reason was already recorded.
func (r *TokenRecord) HasLoss(date, reason string) bool {
	for _, e := range r.LossEvents {
		if e.Date == date && e.Reason == reason {
			return true
		}
	}
	return false
}

// PatternType classifies a pattern observation.
type PatternType string

const (
	PatternMissReason          PatternType = "miss_reason"
	PatternFailureTime         PatternType = "failure_time"
	PatternBadDay              PatternType = "bad_day"
	PatternDownshiftCompletion PatternType = "downshift_completion"
	PatternTrigger             PatternType = "trigger"
	PatternEmotion             PatternType = "emotion"
	PatternTimeMention         PatternType = "time_mention"
)

// Pattern is an exact-content observation with a frequency count.
type Pattern struct {
	UserID    string      `json:"user_id"`
	Type      PatternType `json:"pattern_type"`
	Content   string      `json:"content"`
	Frequency int         `json:"frequency"`
	FirstSeen time.Time   `json:"first_seen"`
	LastSeen  time.Time   `json:"last_seen"`
}

// MessageRole identifies the author of a conversation log entry.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is an append-only conversation log entry, used only as generation context.
type Message struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Flow      string      `json:"flow"`
	CreatedAt time.Time   `json:"created_at"`
}

// PhotoType distinguishes the first-ever photo from later progress photos.
type PhotoType string

const (
	PhotoBaseline PhotoType = "baseline"
	PhotoDaily    PhotoType = "daily"
)

// Photo is a progress photo reference.
type Photo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      PhotoType `json:"type"`
	URL       string    `json:"url"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}
