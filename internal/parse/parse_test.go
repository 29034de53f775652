package parse

import (
	"reflect"
	"testing"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9pm", "21:00", true},
		{"12am", "00:00", true},
		{"12pm", "12:00", true},
		{"7:30am", "07:30", true},
		{"7:30 PM", "19:30", true},
		{"10 p.m.", "22:00", true},
		{"21:00", "21:00", true},
		{"7", "07:00", true},
		{"13pm", "", false},
		{"25:00", "", false},
		{"7:75", "", false},
		{"soon", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseClock(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseClock(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNightlyReminderClock(t *testing.T) {
	tests := map[string]string{"22:00": "20:00", "01:30": "23:30", "00:00": "22:00", "02:15": "00:15"}
	for sleep, want := range tests {
		got, ok := NightlyReminderClock(sleep)
		if !ok || got != want {
			t.Errorf("NightlyReminderClock(%q) = %q, want %q", sleep, got, want)
		}
	}
	if _, ok := NightlyReminderClock("late"); ok {
		t.Error("expected invalid sleep time to be rejected")
	}
}

func TestClockMentions(t *testing.T) {
	got := ClockMentions("it hit at 3pm and again around 21:30, ate 2 apples")
	want := []string{"15:00", "21:30"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ClockMentions = %v, want %v", got, want)
	}
}

func TestParseScheduleFull(t *testing.T) {
	r := ParseSchedule("I wake up at 6:30am, sleep 11pm, eating window 12-8pm, danger times 3pm and 9pm")
	s := r.Schedule
	if s.Wake != "06:30" || s.Sleep != "23:00" {
		t.Errorf("unexpected wake/sleep: %+v", s)
	}
	if s.EatingWindowStart != "12:00" || s.EatingWindowEnd != "20:00" {
		t.Errorf("unexpected eating window: %s-%s", s.EatingWindowStart, s.EatingWindowEnd)
	}
	if !reflect.DeepEqual(s.RiskTimes, []string{"15:00", "21:00"}) {
		t.Errorf("unexpected risk times: %v", s.RiskTimes)
	}
	if r.UsedDefaults() {
		t.Errorf("expected no defaults, got %v", r.Defaulted)
	}
}

func TestParseScheduleDefaults(t *testing.T) {
	r := ParseSchedule("whenever really")
	s := r.Schedule
	if s.Wake != DefaultWake || s.Sleep != DefaultSleep || s.EatingWindowStart != "12:00" || s.EatingWindowEnd != "20:00" {
		t.Errorf("expected defaults, got %+v", s)
	}
	if !reflect.DeepEqual(s.RiskTimes, []string{"21:00"}) {
		t.Errorf("expected default risk time, got %v", s.RiskTimes)
	}
	want := []string{FieldWake, FieldSleep, FieldEatingWindow, FieldRiskTimes}
	if !reflect.DeepEqual(r.Defaulted, want) {
		t.Errorf("Defaulted = %v, want %v", r.Defaulted, want)
	}
}

func TestParseSchedulePartial(t *testing.T) {
	r := ParseSchedule("bed 10:30pm")
	if r.Schedule.Sleep != "22:30" {
		t.Errorf("expected sleep 22:30, got %s", r.Schedule.Sleep)
	}
	if !reflect.DeepEqual(r.Matched, []string{FieldSleep}) {
		t.Errorf("Matched = %v", r.Matched)
	}
}

func TestParseBinaryActionsWeighting(t *testing.T) {
	actions, defaulted := ParseBinaryActions("calories\nprotein\nwalk")
	if defaulted {
		t.Fatal("expected parsed actions, got defaults")
	}
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(actions))
	}
	want := []struct {
		name   string
		points int
	}{{"calories", 2}, {"protein", 2}, {"walk", 1}}
	for i, w := range want {
		if actions[i].Name != w.name || actions[i].Points != w.points {
			t.Errorf("action %d = %+v, want %s/%d", i, actions[i], w.name, w.points)
		}
	}
}

func TestParseBinaryActionsBulletsAndThresholds(t *testing.T) {
	text := "1. Walk: 10k steps\n- protein - 150g\n\n* Weigh-in\n• walk\n2) cold shower"
	actions, defaulted := ParseBinaryActions(text)
	if defaulted {
		t.Fatal("unexpected defaults")
	}
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.Name
	}
	if !reflect.DeepEqual(names, []string{"walk", "protein", "weigh_in", "cold_shower"}) {
		t.Errorf("unexpected names %v", names)
	}
	if actions[0].Threshold != "10k steps" || actions[1].Threshold != "150g" {
		t.Errorf("thresholds not kept: %+v", actions[:2])
	}
	if actions[2].Points != 1 || actions[3].Points != 1 {
		t.Errorf("expected later actions worth 1 point: %+v", actions)
	}
}

func TestParseBinaryActionsFallback(t *testing.T) {
	actions, defaulted := ParseBinaryActions(" \n - \n")
	if !defaulted {
		t.Fatal("expected default template")
	}
	total := 0
	for _, a := range actions {
		total += a.Points
	}
	if len(actions) != 8 || total != 10 {
		t.Errorf("expected 8 default actions totaling 10, got %d totaling %d", len(actions), total)
	}
}

func TestParseBinaryActionsCommaList(t *testing.T) {
	actions, _ := ParseBinaryActions("calories, protein, steps")
	if len(actions) != 3 || actions[2].Name != "steps" {
		t.Errorf("unexpected actions %+v", actions)
	}
}

func TestParseBinaryActionsCommaInThreshold(t *testing.T) {
	tests := []struct {
		in        string
		name      string
		threshold string
	}{
		{"calories: under 1,800", "calories", "under 1,800"},
		{"steps 10,000 a day", "steps_10000_a_day", "steps 10,000 a day"},
		{"walk - 8,000 steps", "walk", "8,000 steps"},
	}
	for _, tt := range tests {
		actions, defaulted := ParseBinaryActions(tt.in)
		if defaulted || len(actions) != 1 {
			t.Errorf("ParseBinaryActions(%q) = %+v, want one action", tt.in, actions)
			continue
		}
		if actions[0].Name != tt.name || actions[0].Threshold != tt.threshold || actions[0].Points != 2 {
			t.Errorf("ParseBinaryActions(%q) = %+v", tt.in, actions[0])
		}
	}
}

func TestParseName(t *testing.T) {
	tests := map[string]string{"sAM smith": "Sam", "  ALEX": "Alex", "jo!": "Jo", "i'm": "I'm"}
	for in, want := range tests {
		if got, ok := ParseName(in); !ok || got != want {
			t.Errorf("ParseName(%q) = %q, want %q", in, got, want)
		}
	}
	if _, ok := ParseName("  123 "); ok {
		t.Error("expected no name from digits")
	}
}

func TestIsGreeting(t *testing.T) {
	for _, in := range []string{"hi", "Hello!", "hey there", "k", "  "} {
		if !IsGreeting(in) {
			t.Errorf("expected %q to be a greeting", in)
		}
	}
	for _, in := range []string{"Sam", "jordan lee"} {
		if IsGreeting(in) {
			t.Errorf("expected %q to be a name", in)
		}
	}
}

func TestParseShameLevel(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{{"1", 1, true}, {" 3 ", 3, true}, {"0", 1, false}, {"4", 1, false}, {"max", 1, false}}
	for _, tt := range tests {
		got, ok := ParseShameLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseShameLevel(%q) = %d,%v", tt.in, got, ok)
		}
	}
}

func TestParsePlan(t *testing.T) {
	r := ParsePlan("eating 11am - 7pm\nfirst meal: eggs at 11\nwalk: after lunch\nstrength: yes\ndanger: 9pm couch")
	p := r.Plan
	if p.EatingWindow != "11am-7pm" || p.FirstMeal != "eggs at 11" || p.WalkTime != "after lunch" || !p.Strength || p.DangerMoment != "9pm couch" {
		t.Errorf("unexpected plan %+v", p)
	}
	if r.UsedDefaults() {
		t.Errorf("expected no defaults, got %v", r.Defaulted)
	}
}

func TestParsePlanDefaults(t *testing.T) {
	r := ParsePlan("same as today")
	p := r.Plan
	if p.EatingWindow != "12pm-8pm" || p.FirstMeal != "12pm" || p.WalkTime != "morning" || p.Strength || p.DangerMoment != "evening" {
		t.Errorf("expected defaults, got %+v", p)
	}
	if len(r.Defaulted) != 5 {
		t.Errorf("expected all five fields defaulted, got %v", r.Defaulted)
	}
}

func TestParsePlanStrengthVariants(t *testing.T) {
	for in, want := range map[string]bool{"strength: y": true, "strength ✓": true, "strength: true": true, "strength: no": false} {
		if got := ParsePlan(in).Plan.Strength; got != want {
			t.Errorf("ParsePlan(%q).Strength = %v, want %v", in, got, want)
		}
	}
}

func TestDetectTimeOfDay(t *testing.T) {
	if got, _ := DetectTimeOfDay("snacked late night again"); got != "late night" {
		t.Errorf("expected late night, got %q", got)
	}
	if got, _ := DetectTimeOfDay("work ran long in the evening"); got != "evening" {
		t.Errorf("expected evening, got %q", got)
	}
	if _, ok := DetectTimeOfDay("just forgot"); ok {
		t.Error("expected no time of day")
	}
}

func TestEmotions(t *testing.T) {
	got := Emotions("Honestly so TIRED and stressed, kind of sad-ish")
	want := []string{"stressed", "sad", "tired"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Emotions = %v, want %v", got, want)
	}
}
