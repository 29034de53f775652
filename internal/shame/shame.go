// Package shame decides how hard accountability messages push, from the user's
// chosen intensity and recent failure signals.
package shame

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/LockIn/internal/models"
)

// Tier is an escalation level. Higher tiers are more severe.
type Tier int

const (
	TierNone Tier = iota
	Tier1
	Tier2
	Tier3
)

func (t Tier) String() string {
	if t == TierNone {
		return "none"
	}
	return fmt.Sprintf("tier%d", int(t))
}

// Window is the number of most recent daily logs considered.
const Window = 7

// FailScore is the total below which a day counts as failed.
const FailScore = 5

// RepeatExcuseFrequency is the frequency at which a miss reason counts as a repeat excuse.
const RepeatExcuseFrequency = 2

// Input is everything the decision looks at. Logs must be ordered newest first.
type Input struct {
	ShameLevel int
	Logs       []models.DailyLog
	Patterns   []models.Pattern
}

// Decision is the chosen tier and the facts that led to it.
type Decision struct {
	Tier         Tier
	Rule         string
	FailedDays   int
	Consecutive  int
	RepeatExcuse *models.Pattern
}

// signals are derived once and shared by every rule.
type signals struct {
	level        int
	failedDays   int
	consecutive  int
	repeatExcuse *models.Pattern
}

type rule struct {
	name  string
	tier  Tier
	match func(s signals) bool
}

// rules are evaluated in order; the first match wins. The disabled rule comes
// first so shame level 0 always yields no escalation.
var rules = []rule{
	{"disabled", TierNone, func(s signals) bool { return s.level <= 0 }},
	{"sustained_failure", Tier3, func(s signals) bool { return s.level >= 3 && s.failedDays >= 4 }},
	{"streak_or_repeat_excuse", Tier2, func(s signals) bool {
		return s.level >= 2 && (s.consecutive >= 2 || s.repeatExcuse != nil)
	}},
	{"recent_slip", Tier1, func(s signals) bool { return s.level >= 1 && s.failedDays >= 1 && s.failedDays <= 2 }},
}

func derive(in Input) signals {
	s := signals{level: in.ShameLevel}
	logs := in.Logs
	if len(logs) > Window {
		logs = logs[:Window]
	}
	streak := true
	for _, l := range logs {
		failed := l.TotalScore < FailScore
		if failed {
			s.failedDays++
		}
		if streak && failed {
			s.consecutive++
		} else {
			streak = false
		}
	}
	for i := range in.Patterns {
		p := in.Patterns[i]
		if p.Type != models.PatternMissReason || p.Frequency < RepeatExcuseFrequency {
			continue
		}
		if s.repeatExcuse == nil || p.Frequency > s.repeatExcuse.Frequency {
			s.repeatExcuse = &p
		}
	}
	return s
}

// Evaluate returns the first tier whose rule holds, or TierNone.
func Evaluate(in Input) Decision {
	s := derive(in)
	d := Decision{FailedDays: s.failedDays, Consecutive: s.consecutive, RepeatExcuse: s.repeatExcuse}
	for _, r := range rules {
		if r.match(s) {
			d.Tier = r.tier
			d.Rule = r.name
			return d
		}
	}
	return d
}

// Message renders the escalation text for a decision. TierNone renders empty.
func Message(d Decision, name string) string {
	switch d.Tier {
	case Tier3:
		return fmt.Sprintf("%s, %d of your last %d days were failures. Look at where you started and where you are. This is the pattern you said you were done with. Today is binary: lock in or admit you chose this.",
			name, d.FailedDays, Window)
	case Tier2:
		if d.RepeatExcuse != nil {
			return fmt.Sprintf("%s, you've used \"%s\" %d times now. That's not a reason anymore, it's a script. What's different today?",
				name, d.RepeatExcuse.Content, d.RepeatExcuse.Frequency)
		}
		return fmt.Sprintf("%s, that's %d failed days in a row. Streaks like this don't break themselves.", name, d.Consecutive)
	case Tier1:
		return fmt.Sprintf("%s, you slipped recently. Remember why you started.", name)
	}
	return ""
}

// PhotoURLs picks the photos attached to an escalation: tier 3 shows the
// baseline with the most recent photo, tier 1 the baseline only.
func PhotoURLs(d Decision, baseline *models.Photo, recent []models.Photo) []string {
	var urls []string
	switch d.Tier {
	case Tier3:
		if baseline != nil {
			urls = append(urls, baseline.URL)
		}
		for _, p := range recent {
			if baseline == nil || p.ID != baseline.ID {
				urls = append(urls, p.URL)
				break
			}
		}
	case Tier1:
		if baseline != nil {
			urls = append(urls, baseline.URL)
		}
	}
	return urls
}

// Describe summarizes a decision for logs and admin output.
func Describe(d Decision) string {
	parts := []string{d.Tier.String()}
	if d.Rule != "" {
		parts = append(parts, d.Rule)
	}
	return strings.Join(parts, ":")
}
