// Package parse converts loosely formatted free text (clock times, day windows,
// action lists, plan fields) into normalized values. Parsers never fail: fields
// that cannot be recognized fall back to fixed defaults and are reported as such.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fields records which fields of a parse result came from the input and which
// fell back to defaults.
type Fields struct {
	Matched   []string `json:"matched,omitempty"`
	Defaulted []string `json:"defaulted,omitempty"`
}

// UsedDefaults reports whether any field fell back to its default.
func (f Fields) UsedDefaults() bool {
	return len(f.Defaulted) > 0
}

func (f *Fields) match(name string) { f.Matched = append(f.Matched, name) }

func (f *Fields) fallback(name string) { f.Defaulted = append(f.Defaulted, name) }

// timeToken matches a single clock expression inside a larger text.
const timeToken = `\d{1,2}(?::\d{2})?\s*(?:[ap]\.?m\.?)?`

var (
	clockExact   = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*([ap])?\.?(?:m\.?)?$`)
	clockMention = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}(?:\s*(?:[ap]m\b|[ap]\.m\.))?|\d{1,2}\s*(?:[ap]m\b|[ap]\.m\.))`)
)

// ParseClock normalizes a clock expression such as "9pm", "7:30am", "21:00" or
// "7" into 24-hour "HH:MM". It reports false when the text is not a valid time.
func ParseClock(text string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, " ", "")
	m := clockExact.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if minute > 59 {
		return "", false
	}
	switch m[3] {
	case "a", "p":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
		if m[3] == "p" {
			hour += 12
		}
	default:
		// A trailing "m" without a/p ("7m") is not a clock.
		if strings.HasSuffix(s, "m") {
			return "", false
		}
		if hour > 23 {
			return "", false
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// SplitClock returns the hour and minute of a normalized "HH:MM" value.
func SplitClock(clock string) (hour, minute int, ok bool) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// NightlyReminderClock returns the time two hours before sleep, wrapping across midnight.
func NightlyReminderClock(sleep string) (string, bool) {
	h, m, ok := SplitClock(sleep)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", (h-2+24)%24, m), true
}

// ClockMentions returns every explicit clock time ("3pm", "14:30") in text, normalized.
// Bare numbers are ignored since they are usually counts, not times.
func ClockMentions(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range clockMention.FindAllString(text, -1) {
		if c, ok := ParseClock(raw); ok && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
