package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

type mockRegistrar struct {
	registered []string
	failFor    string
}

func (m *mockRegistrar) RegisterSchedule(u *models.User) error {
	if u.ID == m.failFor {
		return errors.New("bad timezone")
	}
	m.registered = append(m.registered, u.ID)
	return nil
}

type failingRecoverable struct{}

func (failingRecoverable) RecoverState(ctx context.Context, r *RecoveryRegistry) error {
	return errors.New("boom")
}

type countingRecoverable struct{ calls int }

func (c *countingRecoverable) RecoverState(ctx context.Context, r *RecoveryRegistry) error {
	c.calls++
	return nil
}

func seed(t *testing.T, st store.Store) {
	t.Helper()
	users := []models.User{
		{ID: "+15550000001", OnboardingComplete: true, OnboardingStep: models.OnboardingComplete},
		{ID: "+15550000002", OnboardingStep: models.OnboardingAwaitingGoal},
		{ID: "+15550000003", OnboardingComplete: true, Archived: true},
		{ID: "+15550000004", OnboardingComplete: true, OnboardingStep: models.OnboardingComplete},
	}
	for _, u := range users {
		if err := st.SaveUser(u); err != nil {
			t.Fatalf("SaveUser: %v", err)
		}
	}
}

func TestScheduleRecovery(t *testing.T) {
	st := store.NewInMemoryStore()
	seed(t, st)
	reg := &mockRegistrar{}
	if err := (ScheduleRecovery{Registrar: reg}).RecoverState(context.Background(), NewRecoveryRegistry(st)); err != nil {
		t.Fatalf("RecoverState: %v", err)
	}
	if len(reg.registered) != 2 {
		t.Errorf("expected 2 onboarded active users registered, got %v", reg.registered)
	}
}

func TestScheduleRecoveryPartialFailure(t *testing.T) {
	st := store.NewInMemoryStore()
	seed(t, st)
	reg := &mockRegistrar{failFor: "+15550000001"}
	err := (ScheduleRecovery{Registrar: reg}).RecoverState(context.Background(), NewRecoveryRegistry(st))
	if err == nil {
		t.Fatal("expected error reporting the failed user")
	}
	if len(reg.registered) != 1 || reg.registered[0] != "+15550000004" {
		t.Errorf("expected the other user to still register, got %v", reg.registered)
	}
}

func TestSessionSweep(t *testing.T) {
	st := store.NewInMemoryStore()
	seed(t, st)
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	_ = st.SaveFlowState(models.FlowState{UserID: "+15550000001", FlowType: models.FlowTypeNightlyLock,
		CurrentState: models.StateNightlyPlanning, ExpiresAt: now.Add(-time.Hour)})
	_ = st.SaveFlowState(models.FlowState{UserID: "+15550000002", FlowType: models.FlowTypeOnboarding,
		CurrentState: models.StateOnboardingActive, ExpiresAt: now.Add(time.Hour)})

	registry := NewRecoveryRegistry(st)
	registry.now = func() time.Time { return now }
	if err := (SessionSweep{}).RecoverState(context.Background(), registry); err != nil {
		t.Fatalf("RecoverState: %v", err)
	}
	if fs, _ := st.GetFlowState("+15550000001", models.FlowTypeNightlyLock); fs != nil {
		t.Errorf("expected expired session removed, got %+v", fs)
	}
	if fs, _ := st.GetFlowState("+15550000002", models.FlowTypeOnboarding); fs == nil {
		t.Error("expected live session kept")
	}
}

func TestRecoveryManagerContinuesAfterFailure(t *testing.T) {
	rm := NewRecoveryManager(store.NewInMemoryStore())
	counter := &countingRecoverable{}
	rm.RegisterRecoverable(failingRecoverable{})
	rm.RegisterRecoverable(counter)

	if err := rm.RecoverAll(context.Background()); err == nil {
		t.Error("expected aggregated error")
	}
	if counter.calls != 1 {
		t.Errorf("expected later component to run, calls=%d", counter.calls)
	}
}
