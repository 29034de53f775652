package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"ON", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("LOCKIN_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("LOCKIN_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 12 * time.Hour},
		{"90m", 90 * time.Minute},
		{"-1h", 12 * time.Hour},
		{"soon", 12 * time.Hour},
	}
	for _, tt := range tests {
		t.Setenv("SESSION_TTL", tt.value)
		if got := ParseDurationEnv("SESSION_TTL", 12*time.Hour); got != tt.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("LOCKIN_TEST_INT", "25")
	if got := ParseIntEnv("LOCKIN_TEST_INT", 10); got != 25 {
		t.Errorf("got %d", got)
	}
	t.Setenv("LOCKIN_TEST_INT", "x")
	if got := ParseIntEnv("LOCKIN_TEST_INT", 10); got != 10 {
		t.Errorf("expected default, got %d", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("LOCKIN_TEST_STR", "  ")
	if got := GetEnv("LOCKIN_TEST_STR", "def"); got != "def" {
		t.Errorf("blank value should fall back, got %q", got)
	}
	t.Setenv("LOCKIN_TEST_STR", "twilio")
	if got := GetEnv("LOCKIN_TEST_STR", "def"); got != "twilio" {
		t.Errorf("got %q", got)
	}
}
