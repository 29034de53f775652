// Package recovery restores in-process state after a restart: every onboarded
// user's recurring jobs are registered again and expired flow sessions are swept.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

// Recoverable defines the interface for components that can recover their state
type Recoverable interface {
	// RecoverState is called during application startup to restore component state
	RecoverState(ctx context.Context, registry *RecoveryRegistry) error
}

// RecoveryRegistry provides services that components can use during recovery
type RecoveryRegistry struct {
	store store.Store
	now   func() time.Time
}

// NewRecoveryRegistry creates a new recovery registry
func NewRecoveryRegistry(st store.Store) *RecoveryRegistry {
	return &RecoveryRegistry{store: st, now: time.Now}
}

// GetStore provides access to the store for recovery operations
func (r *RecoveryRegistry) GetStore() store.Store {
	return r.store
}

// Now returns the registry clock.
func (r *RecoveryRegistry) Now() time.Time {
	return r.now()
}

// RecoveryManager orchestrates recovery of all registered components
type RecoveryManager struct {
	registry     *RecoveryRegistry
	recoverables []Recoverable
}

// NewRecoveryManager creates a new recovery manager
func NewRecoveryManager(st store.Store) *RecoveryManager {
	return &RecoveryManager{
		registry:     NewRecoveryRegistry(st),
		recoverables: make([]Recoverable, 0),
	}
}

// RegisterRecoverable adds a component that can be recovered
func (rm *RecoveryManager) RegisterRecoverable(r Recoverable) {
	rm.recoverables = append(rm.recoverables, r)
}

// RecoverAll performs recovery of all registered components. A failing component
// does not stop the others.
func (rm *RecoveryManager) RecoverAll(ctx context.Context) error {
	slog.Info("Starting application recovery", "components", len(rm.recoverables))

	recoveredCount := 0
	errorCount := 0
	for _, recoverable := range rm.recoverables {
		if err := recoverable.RecoverState(ctx, rm.registry); err != nil {
			slog.Error("Component recovery failed", "error", err, "component", fmt.Sprintf("%T", recoverable))
			errorCount++
			continue
		}
		recoveredCount++
	}

	slog.Info("Application recovery completed", "recovered", recoveredCount, "errors", errorCount)
	if errorCount > 0 {
		return fmt.Errorf("recovery completed with %d errors out of %d components", errorCount, len(rm.recoverables))
	}
	return nil
}

// ScheduleRegistrar registers a user's recurring jobs.
type ScheduleRegistrar interface {
	RegisterSchedule(u *models.User) error
}

// ScheduleRecovery re-registers the jobs of every onboarded, non-archived user.
type ScheduleRecovery struct {
	Registrar ScheduleRegistrar
}

// RecoverState implements Recoverable. Per-user failures are logged and counted.
func (s ScheduleRecovery) RecoverState(ctx context.Context, registry *RecoveryRegistry) error {
	users, err := registry.GetStore().ListUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	registered, failed := 0, 0
	for i := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		u := users[i]
		if !u.OnboardingComplete || u.Archived {
			continue
		}
		if err := s.Registrar.RegisterSchedule(&u); err != nil {
			slog.Error("ScheduleRecovery: failed to register schedule", "userID", u.ID, "error", err)
			failed++
			continue
		}
		registered++
	}
	slog.Info("ScheduleRecovery: schedules registered", "users", registered, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("failed to register %d of %d schedules", failed, registered+failed)
	}
	return nil
}

// sessionFlows are the flow types that keep a session row.
var sessionFlows = []models.FlowType{
	models.FlowTypeOnboarding,
	models.FlowTypeNightlyLock,
	models.FlowTypeBadDay,
}

// SessionSweep deletes flow sessions that expired while the process was down.
type SessionSweep struct{}

// RecoverState implements Recoverable.
func (SessionSweep) RecoverState(ctx context.Context, registry *RecoveryRegistry) error {
	st := registry.GetStore()
	users, err := st.ListUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	now := registry.Now()
	swept := 0
	for _, u := range users {
		for _, ft := range sessionFlows {
			fs, err := st.GetFlowState(u.ID, ft)
			if err != nil {
				return fmt.Errorf("failed to load %s session for %s: %w", ft, u.ID, err)
			}
			if fs == nil || !fs.Expired(now) {
				continue
			}
			if err := st.DeleteFlowState(u.ID, ft); err != nil {
				return fmt.Errorf("failed to delete %s session for %s: %w", ft, u.ID, err)
			}
			swept++
		}
	}
	slog.Info("SessionSweep: expired sessions removed", "count", swept)
	return nil
}
