// Package scheduler provides scheduling logic for LockIn.
//
// Each user owns a set of daily jobs (morning message, nightly reminder, risk
// windows) that fire at local wall-clock times in the user's timezone.
// Registering a user again replaces every job that user had before.
package scheduler

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/robfig/cron/v3"
)

// Job kinds registered per user.
const (
	KindMorning         = "morning"
	KindNightlyReminder = "nightly_reminder"
	KindRiskWindow      = "risk_window"
)

// Job is one recurring daily callback at Clock (24-hour HH:MM).
type Job struct {
	Kind  string
	Clock string
	Run   func()
}

type registered struct {
	id    cron.EntryID
	entry models.ScheduleEntry
}

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron

	mu    sync.Mutex
	users map[string][]registered
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c, users: make(map[string][]registered)}
}

// DailySpec builds the cron expression firing every day at clock in timezone.
func DailySpec(clock, timezone string) (string, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", fmt.Errorf("invalid clock %q: %w", clock, err)
	}
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", timezone, t.Minute(), t.Hour()), nil
}

// ReplaceUserJobs cancels every job previously registered for userID and
// registers jobs in their place. All specs are validated before anything is
// removed, so an invalid job leaves the previous registration intact.
func (s *Scheduler) ReplaceUserJobs(userID, timezone string, jobs []Job) error {
	specs := make([]string, len(jobs))
	for i, j := range jobs {
		spec, err := DailySpec(j.Clock, timezone)
		if err != nil {
			return fmt.Errorf("job %s for %s: %w", j.Kind, userID, err)
		}
		specs[i] = spec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(userID)
	regs := make([]registered, 0, len(jobs))
	for i, j := range jobs {
		id, err := s.cron.AddFunc(specs[i], j.Run)
		if err != nil {
			for _, r := range regs {
				s.cron.Remove(r.id)
			}
			return fmt.Errorf("failed to add job %s for %s: %w", j.Kind, userID, err)
		}
		regs = append(regs, registered{
			id:    id,
			entry: models.ScheduleEntry{UserID: userID, Kind: j.Kind, Clock: j.Clock, Spec: specs[i]},
		})
	}
	s.users[userID] = regs
	slog.Info("Scheduler.ReplaceUserJobs: registered", "userID", userID, "jobs", len(regs), "timezone", timezone)
	return nil
}

// RemoveUser cancels every job registered for userID.
func (s *Scheduler) RemoveUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(userID)
}

func (s *Scheduler) removeLocked(userID string) {
	for _, r := range s.users[userID] {
		s.cron.Remove(r.id)
	}
	if n := len(s.users[userID]); n > 0 {
		slog.Debug("Scheduler: removed user jobs", "userID", userID, "count", n)
	}
	delete(s.users, userID)
}

// Entries lists every registered job with its next run time, ordered by user
// then clock.
func (s *Scheduler) Entries() []models.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduleEntry
	for _, regs := range s.users {
		for _, r := range regs {
			e := r.entry
			e.NextRun = s.cron.Entry(r.id).Next
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		if out[i].Clock != out[j].Clock {
			return out[i].Clock < out[j].Clock
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
