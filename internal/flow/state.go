// Package flow implements the per-user conversation state machines and the
// router that picks one of them for each inbound message.
package flow

import (
	"context"

	"github.com/BTreeMap/LockIn/internal/models"
)

// StateManager stores per-user flow sessions. Sessions expire after a TTL;
// an expired session reads as absent.
type StateManager interface {
	// GetSession returns the user's live session for flowType, or nil.
	GetSession(ctx context.Context, userID string, flowType models.FlowType) (*models.FlowState, error)

	// SaveSession writes a session and extends its expiry.
	SaveSession(ctx context.Context, state *models.FlowState) error

	// SetCurrentState updates the current state, creating the session if needed.
	SetCurrentState(ctx context.Context, userID string, flowType models.FlowType, state models.StateType) error

	// GetStateData returns one value stored in the session.
	GetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey) (string, error)

	// SetStateData stores one value in the session, creating it if needed.
	SetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey, value string) error

	// ResetState removes the session.
	ResetState(ctx context.Context, userID string, flowType models.FlowType) error
}
