// Package testutil provides common test helpers for LockIn HTTP and store tests.
package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// DecodeAPIResponse decodes the recorder body as an APIResponse and checks its status field.
func DecodeAPIResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus models.APIStatus) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode JSON response: %v (%s)", err, rr.Body.String())
	}
	if resp.Status != string(expectedStatus) {
		t.Errorf("expected status '%s', got '%s'", expectedStatus, resp.Status)
	}
	return resp
}

// ResultMap returns the response result as a JSON object.
func ResultMap(t *testing.T, resp models.APIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object result, got %T", resp.Result)
	}
	return m
}

// SeedOnboardedUser stores an onboarded user with an active contract locked at
// lockedAt and returns both.
func SeedOnboardedUser(t *testing.T, st store.Store, id string, lockedAt time.Time, actions ...models.BinaryAction) (models.User, models.Contract) {
	t.Helper()
	if len(actions) == 0 {
		actions = []models.BinaryAction{
			{Name: "calories", Threshold: "under 1800", Points: 2},
			{Name: "protein", Threshold: "150g", Points: 2},
			{Name: "walk", Threshold: "10k steps", Points: 1},
		}
	}
	u := models.User{
		ID: id, Name: "Sam", Timezone: "UTC",
		Schedule:            models.Schedule{Wake: "06:30", Sleep: "23:00", EatingWindowStart: "12:00", EatingWindowEnd: "20:00", RiskTimes: []string{"15:00"}},
		ShameLevel:          2,
		LossAversionEnabled: true,
		OnboardingStep:      models.OnboardingComplete,
		OnboardingComplete:  true,
		CreatedAt:           lockedAt,
	}
	if err := st.SaveUser(u); err != nil {
		t.Fatalf("failed to save user: %v", err)
	}
	c := models.Contract{
		ID: id + "-contract", UserID: id, Goal: "lose 5kg", Actions: actions,
		LockedAt: lockedAt, ExpiresAt: lockedAt.Add(models.ContractDuration), Active: true,
	}
	if err := st.SaveContract(c); err != nil {
		t.Fatalf("failed to save contract: %v", err)
	}
	return u, c
}

// SeedDailyLog stores a daily log with the given scores.
func SeedDailyLog(t *testing.T, st store.Store, userID, date string, scores map[string]int) models.DailyLog {
	t.Helper()
	l := models.DailyLog{UserID: userID, Date: date, Scores: scores}
	l.Recompute()
	if err := st.SaveDailyLog(l); err != nil {
		t.Fatalf("failed to save daily log: %v", err)
	}
	return l
}
