package parse

import (
	"strconv"
	"strings"
	"unicode"
)

// greetings are replies that look like a hello rather than a name.
var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hey there": true, "hi there": true,
	"yo": true, "sup": true, "hiya": true, "howdy": true, "hola": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"start": true, "begin": true, "ok": true, "okay": true, "yes": true,
}

// IsGreeting reports whether text looks like a greeting or is too short to be a name.
func IsGreeting(text string) bool {
	s := strings.ToLower(strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	}))
	if len([]rune(s)) < 2 {
		return true
	}
	return greetings[s]
}

// ParseName returns the first word of text, lowercased with the first letter
// capitalized. It reports false when no word remains.
func ParseName(text string) (string, bool) {
	fields := strings.Fields(text)
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) })
		if f == "" {
			continue
		}
		runes := []rune(strings.ToLower(f))
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes), true
	}
	return "", false
}

// DefaultShameLevel is used when the reply is not 1, 2 or 3.
const DefaultShameLevel = 1

// ParseShameLevel accepts the integers 1 to 3; anything else yields the default.
func ParseShameLevel(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > 3 {
		return DefaultShameLevel, false
	}
	return n, true
}

// timesOfDay is checked in order so "late night" wins over "night".
var timesOfDay = []string{
	"late night", "midnight", "morning", "breakfast", "lunch", "afternoon",
	"dinner", "evening", "night", "weekend",
}

// DetectTimeOfDay returns the first time-of-day word found in text.
func DetectTimeOfDay(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, t := range timesOfDay {
		if strings.Contains(lower, t) {
			return t, true
		}
	}
	return "", false
}

var emotionWords = []string{
	"stressed", "anxious", "sad", "angry", "tired", "exhausted", "lonely", "bored",
	"frustrated", "overwhelmed", "depressed", "upset", "guilty", "ashamed", "numb",
}

// Emotions returns the emotion words present in text as whole words.
func Emotions(text string) []string {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		words[w] = true
	}
	var out []string
	for _, e := range emotionWords {
		if words[e] {
			out = append(out, e)
		}
	}
	return out
}
