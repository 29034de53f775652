package patterns

import (
	"testing"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

func newTestMemory() *Memory {
	m := NewMemory(store.NewInMemoryStore())
	clock := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return m
}

func TestRecordIncrementsExactContent(t *testing.T) {
	m := newTestMemory()
	for i := 0; i < 3; i++ {
		if _, err := m.Record("u1", models.PatternMissReason, "work stress"); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	p, err := m.Record("u1", models.PatternMissReason, "Work stress")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if p.Frequency != 1 {
		t.Errorf("expected case-different content to be a separate pattern, got frequency %d", p.Frequency)
	}
	ok, err := m.SeenAtLeast("u1", models.PatternMissReason, " work stress ", 3)
	if err != nil || !ok {
		t.Errorf("expected 'work stress' seen 3 times, got %v %v", ok, err)
	}
	ok, _ = m.SeenAtLeast("u1", models.PatternMissReason, "work stress", 4)
	if ok {
		t.Error("expected frequency below 4")
	}
}

func TestRecordKeepsFirstSeen(t *testing.T) {
	m := newTestMemory()
	first, _ := m.Record("u1", models.PatternTrigger, "boss")
	second, _ := m.Record("u1", models.PatternTrigger, "boss")
	if !second.FirstSeen.Equal(first.FirstSeen) {
		t.Errorf("first seen changed: %v -> %v", first.FirstSeen, second.FirstSeen)
	}
	if !second.LastSeen.After(first.LastSeen) {
		t.Error("expected last seen to advance")
	}
}

func TestRecordIgnoresEmpty(t *testing.T) {
	m := newTestMemory()
	p, err := m.Record("u1", models.PatternEmotion, "   ")
	if err != nil || p != nil {
		t.Errorf("expected empty content to be ignored, got %+v %v", p, err)
	}
}

func TestMostFrequentAndRepeated(t *testing.T) {
	m := newTestMemory()
	m.Record("u1", models.PatternMissReason, "late dinner")
	m.Record("u1", models.PatternMissReason, "work stress")
	m.Record("u1", models.PatternMissReason, "work stress")
	m.Record("u2", models.PatternMissReason, "travel")

	p, err := m.MostFrequent("u1", models.PatternMissReason)
	if err != nil || p == nil || p.Content != "work stress" {
		t.Fatalf("MostFrequent = %+v %v", p, err)
	}
	rep, _ := m.Repeated("u1", models.PatternMissReason, 2)
	if rep == nil || rep.Content != "work stress" {
		t.Errorf("expected repeated 'work stress', got %+v", rep)
	}
	rep, _ = m.Repeated("u2", models.PatternMissReason, 2)
	if rep != nil {
		t.Errorf("expected no repeated pattern for u2, got %+v", rep)
	}
	none, _ := m.MostFrequent("u3", models.PatternMissReason)
	if none != nil {
		t.Errorf("expected nil for unknown user, got %+v", none)
	}
	top, _ := m.Top("u1", "", 10)
	if len(top) != 2 {
		t.Errorf("expected 2 patterns, got %d", len(top))
	}
}
