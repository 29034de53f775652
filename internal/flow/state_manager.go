// Store-backed StateManager.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

// DefaultSessionTTL bounds how long an untouched flow session survives.
const DefaultSessionTTL = 12 * time.Hour

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
// A non-positive ttl selects DefaultSessionTTL.
func NewStoreBasedStateManager(st store.Store, ttl time.Duration) *StoreBasedStateManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	slog.Debug("Creating StoreBasedStateManager", "ttl", ttl)
	return &StoreBasedStateManager{store: st, ttl: ttl, now: time.Now}
}

// GetSession returns the live session, deleting it if it has expired.
func (sm *StoreBasedStateManager) GetSession(ctx context.Context, userID string, flowType models.FlowType) (*models.FlowState, error) {
	flowState, err := sm.store.GetFlowState(userID, flowType)
	if err != nil {
		slog.Error("StateManager GetSession error", "error", err, "userID", userID, "flowType", flowType)
		return nil, err
	}
	if flowState == nil {
		return nil, nil
	}
	if flowState.Expired(sm.now()) {
		slog.Info("StateManager GetSession expired, discarding", "userID", userID, "flowType", flowType, "state", flowState.CurrentState)
		if err := sm.store.DeleteFlowState(userID, flowType); err != nil {
			slog.Error("StateManager GetSession delete expired error", "error", err, "userID", userID)
			return nil, err
		}
		return nil, nil
	}
	if flowState.StateData == nil {
		flowState.StateData = make(map[models.DataKey]string)
	}
	return flowState, nil
}

// SaveSession writes the session with a refreshed expiry.
func (sm *StoreBasedStateManager) SaveSession(ctx context.Context, state *models.FlowState) error {
	now := sm.now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now
	state.ExpiresAt = now.Add(sm.ttl)
	if err := sm.store.SaveFlowState(*state); err != nil {
		slog.Error("StateManager SaveSession error", "error", err, "userID", state.UserID, "flowType", state.FlowType)
		return err
	}
	slog.Debug("StateManager SaveSession succeeded", "userID", state.UserID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

func (sm *StoreBasedStateManager) getOrNew(ctx context.Context, userID string, flowType models.FlowType) (*models.FlowState, error) {
	flowState, err := sm.GetSession(ctx, userID, flowType)
	if err != nil || flowState != nil {
		return flowState, err
	}
	return &models.FlowState{
		UserID:    userID,
		FlowType:  flowType,
		StateData: make(map[models.DataKey]string),
	}, nil
}

// SetCurrentState updates the current state for a user in a flow.
func (sm *StoreBasedStateManager) SetCurrentState(ctx context.Context, userID string, flowType models.FlowType, state models.StateType) error {
	flowState, err := sm.getOrNew(ctx, userID, flowType)
	if err != nil {
		return err
	}
	flowState.CurrentState = state
	return sm.SaveSession(ctx, flowState)
}

// GetStateData retrieves a value associated with the user's session.
func (sm *StoreBasedStateManager) GetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey) (string, error) {
	flowState, err := sm.GetSession(ctx, userID, flowType)
	if err != nil || flowState == nil {
		return "", err
	}
	return flowState.StateData[key], nil
}

// SetStateData stores a value associated with the user's session.
func (sm *StoreBasedStateManager) SetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey, value string) error {
	flowState, err := sm.getOrNew(ctx, userID, flowType)
	if err != nil {
		return err
	}
	flowState.StateData[key] = value
	return sm.SaveSession(ctx, flowState)
}

// ResetState removes the user's session for a flow.
func (sm *StoreBasedStateManager) ResetState(ctx context.Context, userID string, flowType models.FlowType) error {
	if err := sm.store.DeleteFlowState(userID, flowType); err != nil {
		slog.Error("StateManager ResetState error", "error", err, "userID", userID, "flowType", flowType)
		return err
	}
	slog.Debug("StateManager ResetState succeeded", "userID", userID, "flowType", flowType)
	return nil
}
