// Package models defines state management structures for LockIn flows.
package models

import "time"

// FlowState is a keyed session record holding a user's in-progress flow.
// Sessions past ExpiresAt are treated as absent.
type FlowState struct {
	UserID       string             `json:"user_id"`
	FlowType     FlowType           `json:"flow_type"`
	CurrentState StateType          `json:"current_state"`
	StateData    map[DataKey]string `json:"state_data,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	ExpiresAt    time.Time          `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry at the given instant.
// A zero ExpiresAt never expires.
func (s *FlowState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
