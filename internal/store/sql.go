// Package store provides storage backends for LockIn.
//
// This file implements the SQL queries shared by the SQLite and PostgreSQL backends.
// Queries are written with '?' placeholders and rebound for PostgreSQL.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
)

// dialect selects placeholder syntax for the shared SQL implementation.
type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// defaultListLimit bounds list queries when the caller passes a non-positive limit.
const defaultListLimit = 10000

// sqlStore holds the database handle and implements Store for both SQL backends.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	name    string // used as the log prefix, e.g. "SQLiteStore"
}

// rebind converts '?' placeholders to '$n' for PostgreSQL.
func (s *sqlStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) exec(query string, args ...interface{}) (sql.Result, error) {
	return s.db.Exec(s.rebind(query), args...)
}

func (s *sqlStore) query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(s.rebind(query), args...)
}

func (s *sqlStore) queryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(s.rebind(query), args...)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

// ---- Users ----

const userColumns = `id, name, timezone, schedule, shame_level, loss_aversion_enabled, onboarding_step, onboarding_complete, archived, created_at, updated_at`

func (s *sqlStore) SaveUser(u models.User) error {
	schedule, err := marshalJSON(u.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule for %s: %w", u.ID, err)
	}
	_, err = s.exec(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			timezone = excluded.timezone,
			schedule = excluded.schedule,
			shame_level = excluded.shame_level,
			loss_aversion_enabled = excluded.loss_aversion_enabled,
			onboarding_step = excluded.onboarding_step,
			onboarding_complete = excluded.onboarding_complete,
			archived = excluded.archived,
			updated_at = excluded.updated_at`,
		u.ID, u.Name, u.Timezone, schedule, u.ShameLevel, u.LossAversionEnabled,
		string(u.OnboardingStep), u.OnboardingComplete, u.Archived, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		slog.Error(s.name+" SaveUser failed", "error", err, "id", u.ID)
		return fmt.Errorf("failed to save user %s: %w", u.ID, err)
	}
	slog.Debug(s.name+" SaveUser succeeded", "id", u.ID, "step", u.OnboardingStep)
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var schedule, step string
	err := row.Scan(&u.ID, &u.Name, &u.Timezone, &schedule, &u.ShameLevel, &u.LossAversionEnabled,
		&step, &u.OnboardingComplete, &u.Archived, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.OnboardingStep = models.OnboardingStep(step)
	if err := unmarshalJSON(schedule, &u.Schedule); err != nil {
		return u, fmt.Errorf("failed to decode schedule for %s: %w", u.ID, err)
	}
	return u, nil
}

func (s *sqlStore) GetUser(id string) (*models.User, error) {
	u, err := scanUser(s.queryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		slog.Debug(s.name+" GetUser not found", "id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetUser failed", "error", err, "id", id)
		return nil, err
	}
	return &u, nil
}

func (s *sqlStore) ListUsers() ([]models.User, error) {
	rows, err := s.query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		slog.Error(s.name+" ListUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}

// ---- Contracts ----

func (s *sqlStore) SaveContract(c models.Contract) error {
	actions, err := marshalJSON(c.Actions)
	if err != nil {
		return fmt.Errorf("failed to encode binary actions for contract %s: %w", c.ID, err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin contract transaction: %w", err)
	}
	defer tx.Rollback()

	if c.Active {
		if _, err := tx.Exec(s.rebind(`UPDATE contracts SET active = ? WHERE user_id = ? AND id <> ?`), false, c.UserID, c.ID); err != nil {
			slog.Error(s.name+" SaveContract deactivate failed", "error", err, "userID", c.UserID)
			return fmt.Errorf("failed to deactivate previous contracts: %w", err)
		}
	}
	_, err = tx.Exec(s.rebind(`
		INSERT INTO contracts (id, user_id, goal, binary_actions, locked_at, expires_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			goal = excluded.goal,
			binary_actions = excluded.binary_actions,
			locked_at = excluded.locked_at,
			expires_at = excluded.expires_at,
			active = excluded.active`),
		c.ID, c.UserID, c.Goal, actions, c.LockedAt, c.ExpiresAt, c.Active)
	if err != nil {
		slog.Error(s.name+" SaveContract failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to save contract %s: %w", c.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contract %s: %w", c.ID, err)
	}
	slog.Debug(s.name+" SaveContract succeeded", "id", c.ID, "userID", c.UserID, "actions", len(c.Actions))
	return nil
}

func (s *sqlStore) GetActiveContract(userID string) (*models.Contract, error) {
	var c models.Contract
	var actions string
	err := s.queryRow(`
		SELECT id, user_id, goal, binary_actions, locked_at, expires_at, active
		FROM contracts WHERE user_id = ? AND active = ? ORDER BY locked_at DESC LIMIT 1`, userID, true).
		Scan(&c.ID, &c.UserID, &c.Goal, &actions, &c.LockedAt, &c.ExpiresAt, &c.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetActiveContract failed", "error", err, "userID", userID)
		return nil, err
	}
	if err := unmarshalJSON(actions, &c.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode binary actions for contract %s: %w", c.ID, err)
	}
	return &c, nil
}

// ---- Daily logs ----

const dailyLogColumns = `user_id, log_date, scores, total_score, tomorrow_locked, tomorrow_plan, miss_reason, notes, updated_at`

func (s *sqlStore) SaveDailyLog(l models.DailyLog) error {
	scores, err := marshalJSON(l.Scores)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}
	var plan interface{}
	if l.TomorrowPlan != nil {
		encoded, err := marshalJSON(l.TomorrowPlan)
		if err != nil {
			return fmt.Errorf("failed to encode tomorrow plan: %w", err)
		}
		plan = encoded
	}
	_, err = s.exec(`
		INSERT INTO daily_logs (`+dailyLogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, log_date) DO UPDATE SET
			scores = excluded.scores,
			total_score = excluded.total_score,
			tomorrow_locked = excluded.tomorrow_locked,
			tomorrow_plan = excluded.tomorrow_plan,
			miss_reason = excluded.miss_reason,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		l.UserID, l.Date, scores, l.TotalScore, l.TomorrowLocked, plan,
		nilIfEmpty(l.MissReason), nilIfEmpty(l.Notes), l.UpdatedAt)
	if err != nil {
		slog.Error(s.name+" SaveDailyLog failed", "error", err, "userID", l.UserID, "date", l.Date)
		return fmt.Errorf("failed to save daily log %s/%s: %w", l.UserID, l.Date, err)
	}
	slog.Debug(s.name+" SaveDailyLog succeeded", "userID", l.UserID, "date", l.Date, "total", l.TotalScore)
	return nil
}

func scanDailyLog(row rowScanner) (models.DailyLog, error) {
	var l models.DailyLog
	var scores string
	var plan, missReason, notes sql.NullString
	err := row.Scan(&l.UserID, &l.Date, &scores, &l.TotalScore, &l.TomorrowLocked, &plan, &missReason, &notes, &l.UpdatedAt)
	if err != nil {
		return l, err
	}
	l.Scores = make(map[string]int)
	if err := unmarshalJSON(scores, &l.Scores); err != nil {
		return l, fmt.Errorf("failed to decode scores: %w", err)
	}
	if plan.Valid && plan.String != "" {
		var p models.TomorrowPlan
		if err := unmarshalJSON(plan.String, &p); err != nil {
			return l, fmt.Errorf("failed to decode tomorrow plan: %w", err)
		}
		l.TomorrowPlan = &p
	}
	l.MissReason = missReason.String
	l.Notes = notes.String
	return l, nil
}

func (s *sqlStore) GetDailyLog(userID, date string) (*models.DailyLog, error) {
	l, err := scanDailyLog(s.queryRow(`SELECT `+dailyLogColumns+` FROM daily_logs WHERE user_id = ? AND log_date = ?`, userID, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetDailyLog failed", "error", err, "userID", userID, "date", date)
		return nil, err
	}
	return &l, nil
}

func (s *sqlStore) ListDailyLogs(userID string, limit int) ([]models.DailyLog, error) {
	rows, err := s.query(`SELECT `+dailyLogColumns+` FROM daily_logs WHERE user_id = ? ORDER BY log_date DESC LIMIT ?`, userID, listLimit(limit))
	if err != nil {
		slog.Error(s.name+" ListDailyLogs query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query daily logs: %w", err)
	}
	defer rows.Close()
	var logs []models.DailyLog
	for rows.Next() {
		l, err := scanDailyLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily log row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily log rows: %w", err)
	}
	return logs, nil
}

// ---- Token records ----

func (s *sqlStore) SaveTokenRecord(r models.TokenRecord) error {
	events, err := marshalJSON(r.LossEvents)
	if err != nil {
		return fmt.Errorf("failed to encode loss events: %w", err)
	}
	_, err = s.exec(`
		INSERT INTO token_records (user_id, week_start, starting_tokens, current_tokens, loss_events, punishment_triggered, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, week_start) DO UPDATE SET
			current_tokens = excluded.current_tokens,
			loss_events = excluded.loss_events,
			punishment_triggered = excluded.punishment_triggered,
			updated_at = excluded.updated_at`,
		r.UserID, r.WeekStart, r.StartingTokens, r.CurrentTokens, events, r.PunishmentTriggered, r.UpdatedAt)
	if err != nil {
		slog.Error(s.name+" SaveTokenRecord failed", "error", err, "userID", r.UserID, "week", r.WeekStart)
		return fmt.Errorf("failed to save token record: %w", err)
	}
	return nil
}

func (s *sqlStore) GetTokenRecord(userID, weekStart string) (*models.TokenRecord, error) {
	var r models.TokenRecord
	var events string
	err := s.queryRow(`
		SELECT user_id, week_start, starting_tokens, current_tokens, loss_events, punishment_triggered, updated_at
		FROM token_records WHERE user_id = ? AND week_start = ?`, userID, weekStart).
		Scan(&r.UserID, &r.WeekStart, &r.StartingTokens, &r.CurrentTokens, &events, &r.PunishmentTriggered, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetTokenRecord failed", "error", err, "userID", userID, "week", weekStart)
		return nil, err
	}
	if err := unmarshalJSON(events, &r.LossEvents); err != nil {
		return nil, fmt.Errorf("failed to decode loss events: %w", err)
	}
	return &r, nil
}

// ---- Patterns ----

func (s *sqlStore) SavePattern(p models.Pattern) error {
	_, err := s.exec(`
		INSERT INTO patterns (user_id, pattern_type, content, frequency, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, pattern_type, content) DO UPDATE SET
			frequency = excluded.frequency,
			last_seen = excluded.last_seen`,
		p.UserID, string(p.Type), p.Content, p.Frequency, p.FirstSeen, p.LastSeen)
	if err != nil {
		slog.Error(s.name+" SavePattern failed", "error", err, "userID", p.UserID, "type", p.Type)
		return fmt.Errorf("failed to save pattern: %w", err)
	}
	return nil
}

func scanPattern(row rowScanner) (models.Pattern, error) {
	var p models.Pattern
	var ptype string
	err := row.Scan(&p.UserID, &ptype, &p.Content, &p.Frequency, &p.FirstSeen, &p.LastSeen)
	p.Type = models.PatternType(ptype)
	return p, err
}

func (s *sqlStore) GetPattern(userID string, patternType models.PatternType, content string) (*models.Pattern, error) {
	p, err := scanPattern(s.queryRow(`
		SELECT user_id, pattern_type, content, frequency, first_seen, last_seen
		FROM patterns WHERE user_id = ? AND pattern_type = ? AND content = ?`, userID, string(patternType), content))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetPattern failed", "error", err, "userID", userID, "type", patternType)
		return nil, err
	}
	return &p, nil
}

func (s *sqlStore) ListPatterns(userID string, patternType models.PatternType, limit int) ([]models.Pattern, error) {
	query := `SELECT user_id, pattern_type, content, frequency, first_seen, last_seen FROM patterns WHERE user_id = ?`
	args := []interface{}{userID}
	if patternType != "" {
		query += ` AND pattern_type = ?`
		args = append(args, string(patternType))
	}
	query += ` ORDER BY frequency DESC, last_seen DESC LIMIT ?`
	args = append(args, listLimit(limit))

	rows, err := s.query(query, args...)
	if err != nil {
		slog.Error(s.name+" ListPatterns query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()
	var patterns []models.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern row: %w", err)
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pattern rows: %w", err)
	}
	return patterns, nil
}

// ---- Messages ----

func (s *sqlStore) AddMessage(m models.Message) error {
	_, err := s.exec(`INSERT INTO messages (id, user_id, role, content, flow, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, string(m.Role), m.Content, m.Flow, m.CreatedAt)
	if err != nil {
		slog.Error(s.name+" AddMessage failed", "error", err, "userID", m.UserID)
		return fmt.Errorf("failed to insert message for %s: %w", m.UserID, err)
	}
	return nil
}

func (s *sqlStore) ListMessages(userID string, limit int) ([]models.Message, error) {
	rows, err := s.query(`
		SELECT id, user_id, role, content, flow, created_at FROM messages
		WHERE user_id = ? ORDER BY created_at DESC, seq DESC LIMIT ?`, userID, listLimit(limit))
	if err != nil {
		slog.Error(s.name+" ListMessages query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &role, &m.Content, &m.Flow, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Role = models.MessageRole(role)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	// Chronological order for prompt construction
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ---- Photos ----

func (s *sqlStore) AddPhoto(p models.Photo) error {
	_, err := s.exec(`INSERT INTO photos (id, user_id, photo_type, url, photo_date, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, string(p.Type), p.URL, p.Date, p.CreatedAt)
	if err != nil {
		slog.Error(s.name+" AddPhoto failed", "error", err, "userID", p.UserID)
		return fmt.Errorf("failed to insert photo for %s: %w", p.UserID, err)
	}
	return nil
}

func (s *sqlStore) ListPhotos(userID string, photoType models.PhotoType, limit int) ([]models.Photo, error) {
	query := `SELECT id, user_id, photo_type, url, photo_date, created_at FROM photos WHERE user_id = ?`
	args := []interface{}{userID}
	if photoType != "" {
		query += ` AND photo_type = ?`
		args = append(args, string(photoType))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(limit))

	rows, err := s.query(query, args...)
	if err != nil {
		slog.Error(s.name+" ListPhotos query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()
	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		var ptype string
		if err := rows.Scan(&p.ID, &p.UserID, &ptype, &p.URL, &p.Date, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan photo row: %w", err)
		}
		p.Type = models.PhotoType(ptype)
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photo rows: %w", err)
	}
	return photos, nil
}

// ---- Flow sessions ----

// SaveFlowState stores or updates a flow session for a user.
func (s *sqlStore) SaveFlowState(state models.FlowState) error {
	var stateData string
	if len(state.StateData) > 0 {
		encoded, err := marshalJSON(state.StateData)
		if err != nil {
			slog.Error(s.name+" SaveFlowState JSON marshal failed", "error", err, "userID", state.UserID)
			return err
		}
		stateData = encoded
	}
	var expiresAt interface{}
	if !state.ExpiresAt.IsZero() {
		expiresAt = state.ExpiresAt
	}
	_, err := s.exec(`
		INSERT INTO flow_states (user_id, flow_type, current_state, state_data, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, flow_type) DO UPDATE SET
			current_state = excluded.current_state,
			state_data = excluded.state_data,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		state.UserID, string(state.FlowType), string(state.CurrentState), stateData, state.CreatedAt, state.UpdatedAt, expiresAt)
	if err != nil {
		slog.Error(s.name+" SaveFlowState failed", "error", err, "userID", state.UserID, "flowType", state.FlowType)
		return err
	}
	slog.Debug(s.name+" SaveFlowState succeeded", "userID", state.UserID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

// GetFlowState retrieves a flow session for a user.
func (s *sqlStore) GetFlowState(userID string, flowType models.FlowType) (*models.FlowState, error) {
	var state models.FlowState
	var flow, current, stateData string
	var expiresAt sql.NullTime
	err := s.queryRow(`
		SELECT user_id, flow_type, current_state, state_data, created_at, updated_at, expires_at
		FROM flow_states WHERE user_id = ? AND flow_type = ?`, userID, string(flowType)).
		Scan(&state.UserID, &flow, &current, &stateData, &state.CreatedAt, &state.UpdatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		slog.Debug(s.name+" GetFlowState not found", "userID", userID, "flowType", flowType)
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetFlowState failed", "error", err, "userID", userID, "flowType", flowType)
		return nil, err
	}
	state.FlowType = models.FlowType(flow)
	state.CurrentState = models.StateType(current)
	if expiresAt.Valid {
		state.ExpiresAt = expiresAt.Time
	}
	state.StateData = make(map[models.DataKey]string)
	if stateData != "" {
		if err := unmarshalJSON(stateData, &state.StateData); err != nil {
			slog.Error(s.name+" GetFlowState JSON unmarshal failed", "error", err, "userID", userID)
			// Continue with empty map rather than failing
			state.StateData = make(map[models.DataKey]string)
		}
	}
	return &state, nil
}

// DeleteFlowState removes a flow session for a user.
func (s *sqlStore) DeleteFlowState(userID string, flowType models.FlowType) error {
	_, err := s.exec(`DELETE FROM flow_states WHERE user_id = ? AND flow_type = ?`, userID, string(flowType))
	if err != nil {
		slog.Error(s.name+" DeleteFlowState failed", "error", err, "userID", userID, "flowType", flowType)
		return err
	}
	slog.Debug(s.name+" DeleteFlowState succeeded", "userID", userID, "flowType", flowType)
	return nil
}

// ---- Inbound dedup ----

func (s *sqlStore) RecordInbound(messageID, userID string) (bool, error) {
	res, err := s.exec(
		`INSERT INTO inbound_dedup (message_id, user_id, received_at) VALUES (?, ?, ?) ON CONFLICT (message_id) DO NOTHING`,
		messageID, userID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record inbound rows affected failed: %w", err)
	}
	return n > 0, nil
}

func (s *sqlStore) MarkProcessed(messageID string) error {
	_, err := s.exec(`UPDATE inbound_dedup SET processed_at = ? WHERE message_id = ?`, time.Now(), messageID)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	slog.Debug("Closing " + s.name + " database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close "+s.name+" database", "error", err)
	} else {
		slog.Debug(s.name + " database connection closed successfully")
	}
	return err
}
