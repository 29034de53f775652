// Package store provides storage backends for LockIn.
//
// It includes an in-memory store for tests and development, and SQLite and
// PostgreSQL backends sharing a single SQL implementation.
package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
)

// Store is the row-oriented persistence contract used by the coaching engines.
// Every write is an upsert by key; reads return (nil, nil) when a row is absent.
type Store interface {
	GetUser(id string) (*models.User, error)
	SaveUser(u models.User) error
	ListUsers() ([]models.User, error)

	// GetActiveContract returns the user's single active contract, if any.
	GetActiveContract(userID string) (*models.Contract, error)
	// SaveContract upserts a contract. Saving an active contract marks every
	// other contract of the same user inactive.
	SaveContract(c models.Contract) error

	GetDailyLog(userID, date string) (*models.DailyLog, error)
	SaveDailyLog(l models.DailyLog) error
	// ListDailyLogs returns up to limit logs ordered newest first.
	ListDailyLogs(userID string, limit int) ([]models.DailyLog, error)

	GetTokenRecord(userID, weekStart string) (*models.TokenRecord, error)
	SaveTokenRecord(r models.TokenRecord) error

	GetPattern(userID string, patternType models.PatternType, content string) (*models.Pattern, error)
	SavePattern(p models.Pattern) error
	// ListPatterns returns patterns ordered by frequency then recency. An empty
	// patternType matches every type.
	ListPatterns(userID string, patternType models.PatternType, limit int) ([]models.Pattern, error)

	AddMessage(m models.Message) error
	// ListMessages returns the most recent limit messages in chronological order.
	ListMessages(userID string, limit int) ([]models.Message, error)

	AddPhoto(p models.Photo) error
	// ListPhotos returns up to limit photos ordered newest first. An empty
	// photoType matches every type.
	ListPhotos(userID string, photoType models.PhotoType, limit int) ([]models.Photo, error)

	SaveFlowState(state models.FlowState) error
	GetFlowState(userID string, flowType models.FlowType) (*models.FlowState, error)
	DeleteFlowState(userID string, flowType models.FlowType) error

	DedupRepo

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType returns "postgres" for PostgreSQL connection strings and
// "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

type patternKey struct {
	userID  string
	ptype   models.PatternType
	content string
}

type flowKey struct {
	userID   string
	flowType models.FlowType
}

// InMemoryStore is a mutex-guarded in-memory Store implementation.
type InMemoryStore struct {
	mu         sync.RWMutex
	users      map[string]models.User
	contracts  map[string]models.Contract
	dailyLogs  map[string]map[string]models.DailyLog // userID -> date -> log
	tokens     map[string]models.TokenRecord         // userID|week -> record
	patterns   map[patternKey]models.Pattern
	messages   map[string][]models.Message
	photos     map[string][]models.Photo
	flowStates map[flowKey]models.FlowState
	inbound    map[string]*models.Response
	processed  map[string]time.Time
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:      make(map[string]models.User),
		contracts:  make(map[string]models.Contract),
		dailyLogs:  make(map[string]map[string]models.DailyLog),
		tokens:     make(map[string]models.TokenRecord),
		patterns:   make(map[patternKey]models.Pattern),
		messages:   make(map[string][]models.Message),
		photos:     make(map[string][]models.Photo),
		flowStates: make(map[flowKey]models.FlowState),
		inbound:    make(map[string]*models.Response),
		processed:  make(map[string]time.Time),
	}
}

func (s *InMemoryStore) GetUser(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u.Schedule.RiskTimes = append([]string(nil), u.Schedule.RiskTimes...)
	return &u, nil
}

func (s *InMemoryStore) SaveUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Schedule.RiskTimes = append([]string(nil), u.Schedule.RiskTimes...)
	s.users[u.ID] = u
	return nil
}

func (s *InMemoryStore) ListUsers() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *InMemoryStore) GetActiveContract(userID string) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contracts {
		if c.UserID == userID && c.Active {
			c.Actions = append([]models.BinaryAction(nil), c.Actions...)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) SaveContract(c models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Active {
		for id, other := range s.contracts {
			if other.UserID == c.UserID && id != c.ID && other.Active {
				other.Active = false
				s.contracts[id] = other
			}
		}
	}
	c.Actions = append([]models.BinaryAction(nil), c.Actions...)
	s.contracts[c.ID] = c
	slog.Debug("InMemoryStore SaveContract", "id", c.ID, "userID", c.UserID, "active", c.Active)
	return nil
}

func copyLog(l models.DailyLog) models.DailyLog {
	scores := make(map[string]int, len(l.Scores))
	for k, v := range l.Scores {
		scores[k] = v
	}
	l.Scores = scores
	if l.TomorrowPlan != nil {
		plan := *l.TomorrowPlan
		l.TomorrowPlan = &plan
	}
	return l
}

func (s *InMemoryStore) GetDailyLog(userID, date string) (*models.DailyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.dailyLogs[userID][date]
	if !ok {
		return nil, nil
	}
	l = copyLog(l)
	return &l, nil
}

func (s *InMemoryStore) SaveDailyLog(l models.DailyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dailyLogs[l.UserID] == nil {
		s.dailyLogs[l.UserID] = make(map[string]models.DailyLog)
	}
	s.dailyLogs[l.UserID][l.Date] = copyLog(l)
	return nil
}

func (s *InMemoryStore) ListDailyLogs(userID string, limit int) ([]models.DailyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]models.DailyLog, 0, len(s.dailyLogs[userID]))
	for _, l := range s.dailyLogs[userID] {
		logs = append(logs, copyLog(l))
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Date > logs[j].Date })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *InMemoryStore) GetTokenRecord(userID, weekStart string) (*models.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.tokens[userID+"|"+weekStart]
	if !ok {
		return nil, nil
	}
	r.LossEvents = append([]models.LossEvent(nil), r.LossEvents...)
	return &r, nil
}

func (s *InMemoryStore) SaveTokenRecord(r models.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.LossEvents = append([]models.LossEvent(nil), r.LossEvents...)
	s.tokens[r.UserID+"|"+r.WeekStart] = r
	return nil
}

func (s *InMemoryStore) GetPattern(userID string, patternType models.PatternType, content string) (*models.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[patternKey{userID, patternType, content}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *InMemoryStore) SavePattern(p models.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[patternKey{p.UserID, p.Type, p.Content}] = p
	return nil
}

func (s *InMemoryStore) ListPatterns(userID string, patternType models.PatternType, limit int) ([]models.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Pattern
	for k, p := range s.patterns {
		if k.userID != userID {
			continue
		}
		if patternType != "" && k.ptype != patternType {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) AddMessage(m models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.UserID] = append(s.messages[m.UserID], m)
	return nil
}

func (s *InMemoryStore) ListMessages(userID string, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]models.Message(nil), all...), nil
}

func (s *InMemoryStore) AddPhoto(p models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos[p.UserID] = append(s.photos[p.UserID], p)
	return nil
}

func (s *InMemoryStore) ListPhotos(userID string, photoType models.PhotoType, limit int) ([]models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.photos[userID]
	var out []models.Photo
	for i := len(all) - 1; i >= 0; i-- {
		if photoType != "" && all[i].Type != photoType {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) SaveFlowState(state models.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := make(map[models.DataKey]string, len(state.StateData))
	for k, v := range state.StateData {
		data[k] = v
	}
	state.StateData = data
	s.flowStates[flowKey{state.UserID, state.FlowType}] = state
	return nil
}

func (s *InMemoryStore) GetFlowState(userID string, flowType models.FlowType) (*models.FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.flowStates[flowKey{userID, flowType}]
	if !ok {
		return nil, nil
	}
	data := make(map[models.DataKey]string, len(state.StateData))
	for k, v := range state.StateData {
		data[k] = v
	}
	state.StateData = data
	return &state, nil
}

func (s *InMemoryStore) DeleteFlowState(userID string, flowType models.FlowType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flowStates, flowKey{userID, flowType})
	return nil
}

func (s *InMemoryStore) RecordInbound(messageID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inbound[messageID]; ok {
		return false, nil
	}
	s.inbound[messageID] = &models.Response{MessageID: messageID, From: userID}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[messageID] = time.Now()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
