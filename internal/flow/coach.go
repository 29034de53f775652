package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/LockIn/internal/genai"
	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/parse"
	"github.com/BTreeMap/LockIn/internal/patterns"
	"github.com/BTreeMap/LockIn/internal/scheduler"
	"github.com/BTreeMap/LockIn/internal/scoring"
	"github.com/BTreeMap/LockIn/internal/store"
	"github.com/BTreeMap/LockIn/internal/tokens"
	"github.com/google/uuid"
)

// DefaultHistoryLimit is how many logged messages are replayed as generation context.
const DefaultHistoryLimit = 10

// ErrNoSender is returned when a reply must be delivered but no Sender is configured.
var ErrNoSender = errors.New("no message sender configured")

// Sender delivers outbound messages. messaging.Service satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, to, body string) error
	SendMedia(ctx context.Context, to, body, mediaURL string) error
}

// JobScheduler registers a user's recurring daily jobs, replacing earlier ones.
type JobScheduler interface {
	ReplaceUserJobs(userID, timezone string, jobs []scheduler.Job) error
}

// Reply is the outcome of routing one message.
type Reply struct {
	Body      string
	MediaURLs []string
	Flow      models.FlowType
}

// Coach owns the conversation flows and the engines they drive.
type Coach struct {
	store    store.Store
	state    StateManager
	scoring  *scoring.Engine
	ledger   *tokens.Ledger
	patterns *patterns.Memory
	genai    genai.ClientInterface
	sender   Sender
	jobs     JobScheduler

	defaultTimezone string
	historyLimit    int
	now             func() time.Time
	routes          []route
}

// Opts holds configuration options for the Coach.
type Opts struct {
	GenAI           genai.ClientInterface
	Sender          Sender
	Scheduler       JobScheduler
	SessionTTL      time.Duration
	DefaultTimezone string
	HistoryLimit    int
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithGenAI sets the generation client used for intent classification and free-text replies.
func WithGenAI(client genai.ClientInterface) Option {
	return func(o *Opts) { o.GenAI = client }
}

// WithSender sets the transport used to deliver replies and scheduled messages.
func WithSender(s Sender) Option {
	return func(o *Opts) { o.Sender = s }
}

// WithScheduler sets the scheduler that owns each user's daily jobs.
func WithScheduler(s JobScheduler) Option {
	return func(o *Opts) { o.Scheduler = s }
}

// WithSessionTTL overrides how long an idle flow session survives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.SessionTTL = ttl }
}

// WithDefaultTimezone sets the timezone assigned to new users.
func WithDefaultTimezone(tz string) Option {
	return func(o *Opts) { o.DefaultTimezone = tz }
}

// WithHistoryLimit sets how many logged messages are used as generation context.
func WithHistoryLimit(n int) Option {
	return func(o *Opts) { o.HistoryLimit = n }
}

// NewCoach creates a Coach backed by st.
func NewCoach(st store.Store, opts ...Option) *Coach {
	cfg := Opts{DefaultTimezone: "UTC", HistoryLimit: DefaultHistoryLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Coach{
		store:           st,
		state:           NewStoreBasedStateManager(st, cfg.SessionTTL),
		scoring:         scoring.NewEngine(st),
		ledger:          tokens.NewLedger(st),
		patterns:        patterns.NewMemory(st),
		genai:           cfg.GenAI,
		sender:          cfg.Sender,
		jobs:            cfg.Scheduler,
		defaultTimezone: cfg.DefaultTimezone,
		historyLimit:    cfg.HistoryLimit,
		now:             time.Now,
	}
	c.routes = c.buildRoutes()
	slog.Debug("Coach created", "genai", cfg.GenAI != nil, "sender", cfg.Sender != nil, "scheduler", cfg.Scheduler != nil)
	return c
}

// request is everything the router knows about one inbound message.
type request struct {
	msg      models.Response
	text     string
	lower    string
	user     *models.User
	contract *models.Contract
	nightly  *models.FlowState
	badDay   *models.FlowState
	now      time.Time
}

func (r *request) today() string {
	return r.now.Format(models.DateLayout)
}

// HandleResponse routes an inbound message, delivers the reply and then appends
// the exchange to the message log. The log is skipped when delivery fails.
func (c *Coach) HandleResponse(ctx context.Context, in models.Response) error {
	reply, err := c.Process(ctx, in)
	if err != nil {
		return err
	}
	if reply.Body == "" && len(reply.MediaURLs) == 0 {
		return nil
	}
	if err := c.deliver(ctx, in.From, reply); err != nil {
		return fmt.Errorf("failed to deliver reply: %w", err)
	}
	userContent := in.Body
	if userContent == "" && in.HasMedia() {
		userContent = "[photo]"
	}
	c.logMessage(in.From, models.RoleUser, userContent, reply.Flow)
	c.logMessage(in.From, models.RoleAssistant, reply.Body, reply.Flow)
	return nil
}

// Process routes an inbound message to exactly one handler and returns its reply
// without sending it.
func (c *Coach) Process(ctx context.Context, in models.Response) (Reply, error) {
	r, err := c.newRequest(ctx, in)
	if err != nil {
		return Reply{}, err
	}
	for _, rt := range c.routes {
		if !rt.match(r) {
			continue
		}
		slog.Debug("Router.Process: matched route", "route", rt.name, "userID", r.user.ID)
		reply, err := rt.handle(ctx, r)
		if err != nil {
			slog.Error("Router.Process: handler failed", "route", rt.name, "userID", r.user.ID, "error", err)
			return Reply{}, fmt.Errorf("%s: %w", rt.name, err)
		}
		return reply, nil
	}
	return Reply{}, nil
}

func (c *Coach) newRequest(ctx context.Context, in models.Response) (*request, error) {
	user, err := c.loadOrCreateUser(in.From)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Body)
	r := &request{
		msg:   in,
		text:  text,
		lower: strings.ToLower(text),
		user:  user,
		now:   c.now().In(user.Location()),
	}
	if !user.OnboardingComplete {
		return r, nil
	}
	if r.contract, err = c.store.GetActiveContract(user.ID); err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}
	if r.contract == nil {
		return r, nil
	}
	if r.nightly, err = c.state.GetSession(ctx, user.ID, models.FlowTypeNightlyLock); err != nil {
		return nil, fmt.Errorf("failed to load nightly session: %w", err)
	}
	if r.badDay, err = c.state.GetSession(ctx, user.ID, models.FlowTypeBadDay); err != nil {
		return nil, fmt.Errorf("failed to load bad-day session: %w", err)
	}
	return r, nil
}

func (c *Coach) loadOrCreateUser(id string) (*models.User, error) {
	user, err := c.store.GetUser(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user != nil {
		return user, nil
	}
	now := c.now()
	user = &models.User{
		ID:                  id,
		Timezone:            c.defaultTimezone,
		Schedule:            defaultSchedule(),
		ShameLevel:          parse.DefaultShameLevel,
		LossAversionEnabled: true,
		OnboardingStep:      models.OnboardingStart,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := c.store.SaveUser(*user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("Coach: new user", "userID", id, "timezone", user.Timezone)
	return user, nil
}

func defaultSchedule() models.Schedule {
	return models.Schedule{
		Wake:              parse.DefaultWake,
		Sleep:             parse.DefaultSleep,
		EatingWindowStart: parse.DefaultEatingWindowStart,
		EatingWindowEnd:   parse.DefaultEatingWindowEnd,
		RiskTimes:         []string{parse.DefaultRiskTime},
	}
}

func (c *Coach) saveUser(u *models.User) error {
	u.UpdatedAt = c.now()
	if err := c.store.SaveUser(*u); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (c *Coach) deliver(ctx context.Context, to string, reply Reply) error {
	if c.sender == nil {
		return ErrNoSender
	}
	if reply.Body != "" {
		if err := c.sender.SendMessage(ctx, to, reply.Body); err != nil {
			return err
		}
	}
	for _, url := range reply.MediaURLs {
		if err := c.sender.SendMedia(ctx, to, "", url); err != nil {
			return err
		}
	}
	return nil
}

// logMessage appends to the conversation log. Failures are logged and ignored.
func (c *Coach) logMessage(userID string, role models.MessageRole, content string, flow models.FlowType) {
	if content == "" {
		return
	}
	m := models.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		Flow:      string(flow),
		CreatedAt: c.now(),
	}
	if err := c.store.AddMessage(m); err != nil {
		slog.Warn("Coach: failed to log message", "userID", userID, "role", role, "error", err)
	}
}

func isLocked(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "LOCKED")
}
