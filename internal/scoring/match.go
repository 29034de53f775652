package scoring

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/BTreeMap/LockIn/internal/models"
)

// prefixLen is how many leading characters two words must share to count as a
// word-overlap match ("protein" ~ "prot", "walked" ~ "walk").
const prefixLen = 4

var negations = map[string]bool{
	"no": true, "not": true, "didn't": true, "didnt": true, "missed": true, "skipped": true,
	"failed": true, "forgot": true, "without": true, "never": true, "nope": true, "couldn't": true,
	"didn": true, "couldn": true, "wasn't": true, "wasn": true,
}

var (
	clauseSplit = regexp.MustCompile(`(?i)[,;.\n]+|\bbut\b|\bexcept\b`)
	// segmentSplit cuts a clause into the parts a negation word can reach:
	// "hit protein and didn't walk" negates only the walk.
	segmentSplit = regexp.MustCompile(`(?i)\s+(?:and|then|plus|also)\s+|\s*[&+/]\s*`)
	// allExcept matches "all/everything ... except/but/besides X" anywhere in
	// the reply; group 1 is the excluded part.
	allExcept = regexp.MustCompile(`(?i)\b(?:all|everything)\b.*?\b(?:except|but|besides|other than|apart from)\b(.*)$`)
)

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// negated reports whether a clause contains a negation word.
func negated(clause string) bool {
	for _, w := range words(clause) {
		if negations[w] {
			return true
		}
	}
	return false
}

// mentionsExact reports whether text contains the action name, with
// underscores read as spaces or kept as written.
func mentionsExact(text string, a models.BinaryAction) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, a.DisplayName()) || strings.Contains(lower, strings.ToLower(a.Name))
}

func mentionsLoose(text string, a models.BinaryAction) bool {
	return prefixOverlap(words(text), strings.Split(strings.ToLower(a.Name), "_"))
}

func mentions(text string, a models.BinaryAction) bool {
	return mentionsExact(text, a) || mentionsLoose(text, a)
}

// prefixOverlap reports whether any action word shares its first prefixLen
// characters with a message word. Words shorter than prefixLen only match exactly.
func prefixOverlap(msgWords, actionWords []string) bool {
	for _, aw := range actionWords {
		for _, mw := range msgWords {
			if aw == mw {
				return true
			}
			if len(aw) >= prefixLen && len(mw) >= prefixLen && aw[:prefixLen] == mw[:prefixLen] {
				return true
			}
		}
	}
	return false
}

// MatchCompleted returns the names of the contract actions the nightly scoring
// reply reports as done. "all" and "none" are handled literally, "all except X"
// (or "everything but X") subtracts the named actions, and otherwise each
// segment naming an action marks it done unless that segment is negated.
func MatchCompleted(text string, contract *models.Contract) map[string]bool {
	done := make(map[string]bool)
	trimmed := strings.ToLower(strings.TrimSpace(text))
	trimmed = strings.TrimRight(trimmed, ".!")
	switch trimmed {
	case "all", "all done", "everything", "all of them":
		for _, a := range contract.Actions {
			done[a.Name] = true
		}
		return done
	case "none", "nothing", "zero", "0":
		return done
	}

	if m := allExcept.FindStringSubmatch(trimmed); m != nil {
		for _, a := range contract.Actions {
			if !mentions(m[1], a) {
				done[a.Name] = true
			}
		}
		return done
	}

	segments := splitSegments(text)
	for _, match := range []func(string, models.BinaryAction) bool{mentionsExact, mentionsLoose} {
		for _, seg := range segments {
			if negated(seg) {
				continue
			}
			for _, a := range contract.Actions {
				if match(seg, a) {
					done[a.Name] = true
				}
			}
		}
		if len(done) > 0 {
			break
		}
	}
	return done
}

// ScoreUpdate is a single-action report parsed from a free-text message.
type ScoreUpdate struct {
	Action    string
	Completed bool
	Value     int // numeric amount when one was given (kcal, grams, steps)
	HasValue  bool
}

var (
	calorieRe = regexp.MustCompile(`(?i)\b(\d{3,4})\s*(?:k?cals?|kcal|calories|calorie)\b`)
	proteinRe = regexp.MustCompile(`(?i)\b(\d{2,3})\s*(?:(?:g|grams?)\s*(?:of\s+)?protein|g\b|grams?\b|protein\b)`)
	stepsRe   = regexp.MustCompile(`(?i)\b(\d{1,2},\d{3}|\d{4,5})\s*(?:steps?)\b`)
	numberRe  = regexp.MustCompile(`\d+`)
)

// StepGoal is the step count at which a walk counts as done.
const StepGoal = 10000

// ParseScoreUpdate recognizes a message such as "hit protein", "no walk today",
// "1800 calories" or "12,000 steps". It returns nil when nothing is recognized
// so the caller can fall through to intent classification. Questions are never
// treated as reports.
func ParseScoreUpdate(text string, contract *models.Contract) *ScoreUpdate {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasSuffix(trimmed, "?") {
		return nil
	}
	numeric := numericUpdate(trimmed, contract)
	if contract == nil {
		return numeric
	}
	segments := splitSegments(trimmed)
	for _, match := range []func(string, models.BinaryAction) bool{mentionsExact, mentionsLoose} {
		for _, seg := range segments {
			for _, a := range contract.Actions {
				if !match(seg, a) {
					continue
				}
				if numeric != nil && numeric.Action == a.Name {
					return numeric
				}
				return &ScoreUpdate{Action: a.Name, Completed: !negated(seg)}
			}
		}
	}
	return numeric
}

// splitSegments cuts text into clauses, then each clause into negation-scoped segments.
func splitSegments(text string) []string {
	var segments []string
	for _, clause := range clauseSplit.Split(text, -1) {
		for _, seg := range segmentSplit.Split(clause, -1) {
			if strings.TrimSpace(seg) != "" {
				segments = append(segments, seg)
			}
		}
	}
	return segments
}

func numericUpdate(text string, contract *models.Contract) *ScoreUpdate {
	if m := calorieRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.Atoi(m[1])
		completed := true
		if limit, ok := thresholdNumber(contract, "calories"); ok {
			completed = v <= limit
		}
		return &ScoreUpdate{Action: "calories", Completed: completed, Value: v, HasValue: true}
	}
	if m := proteinRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.Atoi(m[1])
		completed := true
		if target, ok := thresholdNumber(contract, "protein"); ok {
			completed = v >= target
		}
		return &ScoreUpdate{Action: "protein", Completed: completed, Value: v, HasValue: true}
	}
	if m := stepsRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if v >= 1000 {
			return &ScoreUpdate{Action: "walk", Completed: v >= StepGoal, Value: v, HasValue: true}
		}
	}
	return nil
}

// thresholdNumber extracts the first number from an action's threshold text.
func thresholdNumber(contract *models.Contract, name string) (int, bool) {
	if contract == nil {
		return 0, false
	}
	a, ok := contract.Action(name)
	if !ok {
		return 0, false
	}
	raw := numberRe.FindString(strings.ReplaceAll(a.Threshold, ",", ""))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}
