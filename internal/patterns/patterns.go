// Package patterns records recurring user statements and behaviours with
// frequency counts. Content is matched exactly; nothing is fuzzy-grouped.
package patterns

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

// Memory is the pattern store used by the flows and escalation logic.
type Memory struct {
	st  store.Store
	now func() time.Time
}

// NewMemory creates a Memory backed by st.
func NewMemory(st store.Store) *Memory {
	return &Memory{st: st, now: time.Now}
}

// Record stores one observation of content under patternType, incrementing its
// frequency when the identical content has been seen before. Surrounding
// whitespace is trimmed; empty content is ignored.
func (m *Memory) Record(userID string, patternType models.PatternType, content string) (*models.Pattern, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	existing, err := m.st.GetPattern(userID, patternType, content)
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern: %w", err)
	}
	now := m.now()
	p := models.Pattern{UserID: userID, Type: patternType, Content: content, Frequency: 1, FirstSeen: now, LastSeen: now}
	if existing != nil {
		p = *existing
		p.Frequency++
		p.LastSeen = now
	}
	if err := m.st.SavePattern(p); err != nil {
		return nil, fmt.Errorf("failed to save pattern: %w", err)
	}
	slog.Debug("Patterns.Record: observation stored", "userID", userID, "type", patternType, "frequency", p.Frequency)
	return &p, nil
}

// SeenAtLeast reports whether content of patternType has been recorded n or more times.
func (m *Memory) SeenAtLeast(userID string, patternType models.PatternType, content string, n int) (bool, error) {
	p, err := m.st.GetPattern(userID, patternType, strings.TrimSpace(content))
	if err != nil {
		return false, err
	}
	return p != nil && p.Frequency >= n, nil
}

// Top returns up to limit patterns of patternType ordered by frequency then
// recency. An empty patternType covers every type.
func (m *Memory) Top(userID string, patternType models.PatternType, limit int) ([]models.Pattern, error) {
	return m.st.ListPatterns(userID, patternType, limit)
}

// MostFrequent returns the most frequently recorded pattern of patternType, or nil.
func (m *Memory) MostFrequent(userID string, patternType models.PatternType) (*models.Pattern, error) {
	top, err := m.st.ListPatterns(userID, patternType, 1)
	if err != nil || len(top) == 0 {
		return nil, err
	}
	return &top[0], nil
}

// Repeated returns the most frequent pattern of patternType whose frequency is at
// least n, or nil.
func (m *Memory) Repeated(userID string, patternType models.PatternType, n int) (*models.Pattern, error) {
	p, err := m.MostFrequent(userID, patternType)
	if err != nil || p == nil || p.Frequency < n {
		return nil, err
	}
	return p, nil
}
