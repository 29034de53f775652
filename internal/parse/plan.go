package parse

import (
	"regexp"
	"strings"

	"github.com/BTreeMap/LockIn/internal/models"
)

// Plan defaults applied to fields missing from the nightly planning reply.
const (
	DefaultPlanEatingWindow = "12pm-8pm"
	DefaultPlanFirstMeal    = "12pm"
	DefaultPlanWalkTime     = "morning"
	DefaultPlanDanger       = "evening"
)

// Plan field names reported in Fields.
const (
	FieldPlanEatingWindow = "eating_window"
	FieldPlanFirstMeal    = "first_meal"
	FieldPlanWalkTime     = "walk_time"
	FieldPlanStrength     = "strength"
	FieldPlanDanger       = "danger_moment"
)

var (
	planWindowRe   = regexp.MustCompile(`(?i)\b(?:eat(?:ing)?(?:\s*window)?|window)\b\s*[:\-]?\s*(` + timeToken + `\s*(?:-|–|to)\s*` + timeToken + `)`)
	planRangeRe    = regexp.MustCompile(`(?i)\b(` + timeToken + `\s*(?:-|–|to)\s*` + timeToken + `)`)
	planFirstMeal  = regexp.MustCompile(`(?i)\bfirst\s*meal\b\s*(?:[:\-]|at|is)?\s*([^\n,;]+)`)
	planWalk       = regexp.MustCompile(`(?i)\bwalk(?:ing)?(?:\s*time)?\b\s*(?:[:\-]|at|in)?\s*([^\n,;]+)`)
	planStrength   = regexp.MustCompile(`(?i)\bstrength\b\s*[:\-]?\s*(\S+)`)
	planStrengthOn = regexp.MustCompile(`(?i)^(?:yes|y|✓|✔|true)(?:\W|$)`)
	planDanger     = regexp.MustCompile(`(?i)\bdanger(?:\s*moment)?\b\s*(?:[:\-]|is)?\s*([^\n,;]+)`)
)

// PlanResult is the tagged result of ParsePlan.
type PlanResult struct {
	Plan models.TomorrowPlan
	Fields
}

// ParsePlan extracts tomorrow's plan from free text. Each field is matched by an
// independent expression, so fields may appear in any order, one per line or
// comma separated.
func ParsePlan(text string) PlanResult {
	var r PlanResult
	p := &r.Plan

	window := ""
	if m := planWindowRe.FindStringSubmatch(text); m != nil {
		window = m[1]
	} else if m := planRangeRe.FindStringSubmatch(text); m != nil {
		window = m[1]
	}
	if window = compactRange(window); window != "" {
		p.EatingWindow = window
		r.match(FieldPlanEatingWindow)
	} else {
		p.EatingWindow = DefaultPlanEatingWindow
		r.fallback(FieldPlanEatingWindow)
	}

	p.FirstMeal = captureField(planFirstMeal, text)
	if p.FirstMeal == "" {
		p.FirstMeal = DefaultPlanFirstMeal
		r.fallback(FieldPlanFirstMeal)
	} else {
		r.match(FieldPlanFirstMeal)
	}

	p.WalkTime = captureField(planWalk, text)
	if p.WalkTime == "" {
		p.WalkTime = DefaultPlanWalkTime
		r.fallback(FieldPlanWalkTime)
	} else {
		r.match(FieldPlanWalkTime)
	}

	if m := planStrength.FindStringSubmatch(text); m != nil {
		p.Strength = planStrengthOn.MatchString(m[1])
		r.match(FieldPlanStrength)
	} else {
		r.fallback(FieldPlanStrength)
	}

	p.DangerMoment = captureField(planDanger, text)
	if p.DangerMoment == "" {
		p.DangerMoment = DefaultPlanDanger
		r.fallback(FieldPlanDanger)
	} else {
		r.match(FieldPlanDanger)
	}
	return r
}

func captureField(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(m[1], ". "))
}

// compactRange turns "12 pm - 8 pm" into "12pm-8pm".
func compactRange(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	raw = strings.ReplaceAll(raw, "–", "-")
	raw = strings.ReplaceAll(raw, " to ", "-")
	return strings.Join(strings.Fields(raw), "")
}
