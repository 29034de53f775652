// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType represents a specific conversation flow
type FlowType string

// StateType represents a specific state within a flow
type StateType string

// DataKey represents a key for storing state-specific data
type DataKey string

// Flow type constants. The values double as the flow tag written to the message log.
const (
	FlowTypeOnboarding  FlowType = "onboarding"
	FlowTypeNightlyLock FlowType = "nightly_lock"
	FlowTypeBadDay      FlowType = "bad_day"
	FlowTypePhoto       FlowType = "photo"
	FlowTypeCommand     FlowType = "command"
	FlowTypeScore       FlowType = "score"
	FlowTypeConfront    FlowType = "rationalization"
	FlowTypeGeneral     FlowType = "general"
	FlowTypeNoContract  FlowType = "no_contract"
	FlowTypeScheduled   FlowType = "scheduled"
)

// Nightly-lock states. Start is transient and never persisted.
const (
	StateNightlyStart      StateType = "start"
	StateNightlyScoring    StateType = "scoring"
	StateNightlyMissReason StateType = "miss_reason"
	StateNightlyPlanning   StateType = "planning"
	StateNightlyConfirm    StateType = "confirm"
)

// Bad-day states.
const (
	StateBadDayStart           StateType = "start"
	StateBadDayAwaitingTrigger StateType = "awaiting_trigger"
)

// Onboarding session state mirrors the persisted step.
const (
	StateOnboardingActive StateType = "active"
)

// Data key constants for flow sessions.
const (
	DataKeyGoal          DataKey = "goal"
	DataKeyActions       DataKey = "actions"       // JSON []BinaryAction
	DataKeyMissReason    DataKey = "missReason"
	DataKeyPlan          DataKey = "plan"          // JSON TomorrowPlan
	DataKeyPlanDefaulted DataKey = "planDefaulted" // comma separated field names
	DataKeyLogDate       DataKey = "logDate"       // date the session is scoring
)

// Intent is the label returned by the intent-classification call.
type Intent string

const (
	IntentLogScore     Intent = "LOG_SCORE"
	IntentBadDay       Intent = "BAD_DAY"
	IntentQuestion     Intent = "QUESTION"
	IntentLockTomorrow Intent = "LOCK_TOMORROW"
	IntentCheckStatus  Intent = "CHECK_STATUS"
	IntentGeneral      Intent = "GENERAL"
	IntentSkip         Intent = "SKIP"
	IntentPhoto        Intent = "PHOTO"
)

// AllIntents lists the fixed intent label set.
var AllIntents = []Intent{
	IntentLogScore, IntentBadDay, IntentQuestion, IntentLockTomorrow,
	IntentCheckStatus, IntentGeneral, IntentSkip, IntentPhoto,
}
