package flow

import (
	"context"
	"testing"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
)

func TestStoreBasedStateManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	sm := NewMockStateManager(time.Hour)

	if err := sm.SetCurrentState(ctx, "u1", models.FlowTypeNightlyLock, models.StateNightlyScoring); err != nil {
		t.Fatalf("SetCurrentState: %v", err)
	}
	if err := sm.SetStateData(ctx, "u1", models.FlowTypeNightlyLock, models.DataKeyLogDate, "2026-03-04"); err != nil {
		t.Fatalf("SetStateData: %v", err)
	}
	session, err := sm.GetSession(ctx, "u1", models.FlowTypeNightlyLock)
	if err != nil || session == nil || session.CurrentState != models.StateNightlyScoring {
		t.Fatalf("expected scoring session, got %+v %v", session, err)
	}
	date, _ := sm.GetStateData(ctx, "u1", models.FlowTypeNightlyLock, models.DataKeyLogDate)
	if date != "2026-03-04" {
		t.Errorf("expected stored date, got %q", date)
	}
	if other, _ := sm.GetStateData(ctx, "u1", models.FlowTypeBadDay, models.DataKeyLogDate); other != "" {
		t.Errorf("expected no bad-day session data, got %q", other)
	}

	if err := sm.ResetState(ctx, "u1", models.FlowTypeNightlyLock); err != nil {
		t.Fatalf("ResetState: %v", err)
	}
	if s, _ := sm.GetSession(ctx, "u1", models.FlowTypeNightlyLock); s != nil {
		t.Errorf("expected session to be gone, got %+v", s)
	}
}

func TestStoreBasedStateManagerExpiry(t *testing.T) {
	ctx := context.Background()
	sm := NewMockStateManager(30 * time.Minute)
	now := time.Date(2026, 3, 4, 20, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	if err := sm.SetCurrentState(ctx, "u1", models.FlowTypeNightlyLock, models.StateNightlyPlanning); err != nil {
		t.Fatalf("SetCurrentState: %v", err)
	}
	now = now.Add(20 * time.Minute)
	if s, _ := sm.GetSession(ctx, "u1", models.FlowTypeNightlyLock); s == nil {
		t.Fatal("expected session to survive within TTL")
	}
	// Touching the session extends it.
	if err := sm.SetStateData(ctx, "u1", models.FlowTypeNightlyLock, models.DataKeyPlan, "{}"); err != nil {
		t.Fatalf("SetStateData: %v", err)
	}
	now = now.Add(20 * time.Minute)
	if s, _ := sm.GetSession(ctx, "u1", models.FlowTypeNightlyLock); s == nil {
		t.Fatal("expected refreshed session to survive")
	}
	now = now.Add(31 * time.Minute)
	if s, _ := sm.GetSession(ctx, "u1", models.FlowTypeNightlyLock); s != nil {
		t.Fatalf("expected expired session to read as absent, got %+v", s)
	}
	if raw, _ := sm.store.GetFlowState("u1", models.FlowTypeNightlyLock); raw != nil {
		t.Error("expected expired session row to be deleted")
	}
}

func TestNewStoreBasedStateManagerDefaultTTL(t *testing.T) {
	if sm := NewMockStateManager(0); sm.ttl != DefaultSessionTTL {
		t.Errorf("expected default TTL, got %v", sm.ttl)
	}
}
