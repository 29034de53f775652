package parse

import (
	"regexp"
	"strings"

	"github.com/BTreeMap/LockIn/internal/models"
)

// Schedule defaults applied when a field is not found in the onboarding reply.
const (
	DefaultWake              = "07:00"
	DefaultSleep             = "22:00"
	DefaultEatingWindowStart = "12:00"
	DefaultEatingWindowEnd   = "20:00"
	DefaultRiskTime          = "21:00"
)

// Schedule field names reported in Fields.
const (
	FieldWake         = "wake"
	FieldSleep        = "sleep"
	FieldEatingWindow = "eating_window"
	FieldRiskTimes    = "danger_times"
)

var (
	wakeRe   = regexp.MustCompile(`(?i)\b(?:wake(?:\s*up)?|get\s+up|up)\b[^0-9\n]{0,12}(` + timeToken + `)`)
	sleepRe  = regexp.MustCompile(`(?i)\b(?:sleep|bed(?:time)?|asleep|lights\s+out)\b[^0-9\n]{0,12}(` + timeToken + `)`)
	eatingRe = regexp.MustCompile(`(?i)\b(?:eat(?:ing)?(?:\s*window)?|meals?|window)\b[^0-9\n]{0,12}(` + timeToken + `)\s*(?:-|–|to|until|till)\s*(` + timeToken + `)`)
	dangerRe = regexp.MustCompile(`(?i)\b(?:danger\w*|risk\w*|crav\w*|weak)\b[^0-9\n]{0,20}((?:` + timeToken + `)(?:\s*(?:,|and|&|/)\s*(?:` + timeToken + `))*)`)
	tokenRe  = regexp.MustCompile(`(?i)` + timeToken)
)

// ScheduleResult is the tagged result of ParseSchedule.
type ScheduleResult struct {
	Schedule models.Schedule
	Fields
}

// ParseSchedule extracts wake, sleep, eating window and danger times from free
// text such as "wake 6:30am, sleep 11pm, eat 12-8pm, danger 3pm and 9pm".
func ParseSchedule(text string) ScheduleResult {
	var r ScheduleResult
	s := &r.Schedule

	s.Wake = findClock(wakeRe, text)
	if s.Wake == "" {
		s.Wake = DefaultWake
		r.fallback(FieldWake)
	} else {
		r.match(FieldWake)
	}

	s.Sleep = findClock(sleepRe, text)
	if s.Sleep == "" {
		s.Sleep = DefaultSleep
		r.fallback(FieldSleep)
	} else {
		r.match(FieldSleep)
	}

	start, end := "", ""
	if m := eatingRe.FindStringSubmatch(text); m != nil {
		start, end = rangeEnds(m[1], m[2])
	}
	if start == "" || end == "" {
		s.EatingWindowStart, s.EatingWindowEnd = DefaultEatingWindowStart, DefaultEatingWindowEnd
		r.fallback(FieldEatingWindow)
	} else {
		s.EatingWindowStart, s.EatingWindowEnd = start, end
		r.match(FieldEatingWindow)
	}

	if m := dangerRe.FindStringSubmatch(text); m != nil {
		seen := make(map[string]bool)
		for _, raw := range tokenRe.FindAllString(m[1], -1) {
			if c, ok := ParseClock(raw); ok && !seen[c] {
				seen[c] = true
				s.RiskTimes = append(s.RiskTimes, c)
			}
		}
	}
	if len(s.RiskTimes) == 0 {
		s.RiskTimes = []string{DefaultRiskTime}
		r.fallback(FieldRiskTimes)
	} else {
		r.match(FieldRiskTimes)
	}
	return r
}

func findClock(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	c, _ := ParseClock(m[1])
	return c
}

// rangeEnds normalizes both ends of a window. A start without a meridiem
// borrows the end's ("12-8pm" is noon to 8pm, "6-10pm" is 6pm to 10pm) unless
// that would put the start after the end.
func rangeEnds(rawStart, rawEnd string) (string, string) {
	end, ok := ParseClock(rawEnd)
	if !ok {
		return "", ""
	}
	lowerStart := strings.ToLower(rawStart)
	if !strings.ContainsAny(lowerStart, "ap:") {
		if suffix := meridiem(rawEnd); suffix != "" {
			if borrowed, ok := ParseClock(rawStart + suffix); ok && borrowed < end {
				return borrowed, end
			}
		}
	}
	start, ok := ParseClock(rawStart)
	if !ok {
		return "", ""
	}
	return start, end
}

func meridiem(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "p"):
		return "pm"
	case strings.Contains(lower, "a"):
		return "am"
	}
	return ""
}
