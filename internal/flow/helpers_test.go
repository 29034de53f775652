package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/parse"
	"github.com/BTreeMap/LockIn/internal/scheduler"
	"github.com/BTreeMap/LockIn/internal/store"
	"github.com/openai/openai-go"
)

// fixedNow is a Wednesday evening.
var fixedNow = time.Date(2026, 3, 4, 20, 0, 0, 0, time.UTC)

const testUser = "+15550001111"

type sent struct {
	to    string
	body  string
	media string
}

type mockSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (m *mockSender) SendMessage(ctx context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sent{to: to, body: body})
	return nil
}

func (m *mockSender) SendMedia(ctx context.Context, to, body, mediaURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sent{to: to, body: body, media: mediaURL})
	return nil
}

type mockGenAI struct {
	label    string
	classErr error
	reply    string
	genErr   error
	messages []openai.ChatCompletionMessageParamUnion
}

func (m *mockGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.messages = messages
	return m.reply, m.genErr
}

func (m *mockGenAI) Classify(ctx context.Context, instruction, text string, labels []string) (string, error) {
	return m.label, m.classErr
}

type mockJobs struct {
	userID   string
	timezone string
	jobs     []scheduler.Job
	calls    int
}

func (m *mockJobs) ReplaceUserJobs(userID, timezone string, jobs []scheduler.Job) error {
	m.userID, m.timezone, m.jobs = userID, timezone, jobs
	m.calls++
	return nil
}

var errSend = errors.New("transport down")

func newTestCoach(t *testing.T, opts ...Option) (*Coach, *store.InMemoryStore, *mockSender) {
	t.Helper()
	st := store.NewInMemoryStore()
	sender := &mockSender{}
	c := NewCoach(st, append([]Option{WithSender(sender)}, opts...)...)
	c.now = func() time.Time { return fixedNow }
	if sm, ok := c.state.(*StoreBasedStateManager); ok {
		sm.now = c.now
	}
	return c, st, sender
}

func fourActions() []models.BinaryAction {
	return []models.BinaryAction{
		{Name: "calories", Threshold: "under 1800", Points: 2},
		{Name: "protein", Threshold: "140g", Points: 2},
		{Name: "walk", Threshold: "8k steps", Points: 1},
		{Name: "strength", Threshold: "20 min", Points: 1},
	}
}

// seedUser stores an onboarded user with an active four-action contract.
func seedUser(t *testing.T, st store.Store) (*models.User, *models.Contract) {
	t.Helper()
	u := models.User{
		ID:       testUser,
		Name:     "Sam",
		Timezone: "UTC",
		Schedule: models.Schedule{
			Wake: "07:00", Sleep: "23:00", EatingWindowStart: "12:00", EatingWindowEnd: "20:00",
			RiskTimes: []string{parse.DefaultRiskTime},
		},
		ShameLevel:          2,
		LossAversionEnabled: true,
		OnboardingStep:      models.OnboardingComplete,
		OnboardingComplete:  true,
	}
	if err := st.SaveUser(u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	c := models.Contract{
		ID:        "contract-1",
		UserID:    u.ID,
		Goal:      "lose 5kg",
		Actions:   fourActions(),
		LockedAt:  fixedNow.AddDate(0, 0, -3),
		ExpiresAt: fixedNow.AddDate(0, 0, 4),
		Active:    true,
	}
	if err := st.SaveContract(c); err != nil {
		t.Fatalf("SaveContract: %v", err)
	}
	return &u, &c
}

func send(t *testing.T, c *Coach, body string) Reply {
	t.Helper()
	reply, err := c.Process(context.Background(), models.Response{From: testUser, Body: body})
	if err != nil {
		t.Fatalf("Process(%q): %v", body, err)
	}
	return reply
}

func getUser(t *testing.T, st store.Store) *models.User {
	t.Helper()
	u, err := st.GetUser(testUser)
	if err != nil || u == nil {
		t.Fatalf("GetUser: %v %v", u, err)
	}
	return u
}

// currentState returns the test user's session state for flowType, or "".
func currentState(t *testing.T, sm StateManager, flowType models.FlowType) models.StateType {
	t.Helper()
	s, err := sm.GetSession(context.Background(), testUser, flowType)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s == nil {
		return ""
	}
	return s.CurrentState
}
