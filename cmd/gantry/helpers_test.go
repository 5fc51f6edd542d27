package main

import (
	"testing"
	"time"

	"github.com/gantrylabs/gantry/internal/config"
	"github.com/gantrylabs/gantry/pkg/models"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    models.Priority
		wantErr bool
	}{
		{name: "lowercase", input: "urgent", want: models.PriorityUrgent},
		{name: "mixed case", input: "Critical", want: models.PriorityCritical},
		{name: "uppercase", input: "LOW", want: models.PriorityLow},
		{name: "unknown value", input: "sometime", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePriority(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parsePriority(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePriority(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parsePriority(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    models.TaskStatus
		wantErr bool
	}{
		{name: "pending", input: "pending", want: models.TaskStatusPending},
		{name: "in_progress upper", input: "IN_PROGRESS", want: models.TaskStatusInProgress},
		{name: "done is not a status", input: "done", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStatus(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseStatus(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStatus(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseComplexityAndType(t *testing.T) {
	if c, err := parseComplexity("Very_Complex"); err != nil || c != models.ComplexityVeryComplex {
		t.Errorf("parseComplexity(Very_Complex) = %q, %v", c, err)
	}
	if _, err := parseComplexity("huge"); err == nil {
		t.Error("parseComplexity(huge) error = nil, want error")
	}
	if tt, err := parseTaskType("bug"); err != nil || tt != models.TaskTypeBug {
		t.Errorf("parseTaskType(bug) = %q, %v", tt, err)
	}
	if _, err := parseTaskType("chore"); err == nil {
		t.Error("parseTaskType(chore) error = nil, want error")
	}
	if r, err := parseRating("HIGH"); err != nil || r != models.RatingHigh {
		t.Errorf("parseRating(HIGH) = %q, %v", r, err)
	}
	if _, err := parseRating("extreme"); err == nil {
		t.Error("parseRating(extreme) error = nil, want error")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "plain date",
			input: "2026-03-15",
			want:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339",
			input: "2026-03-15T09:30:00Z",
			want:  time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		},
		{name: "us format rejected", input: "03/15/2026", wantErr: true},
		{name: "garbage", input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDate(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDate(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{hours: 6, want: "6h"},
		{hours: 6.5, want: "6.5h"},
		{hours: 0.5, want: "0.5h"},
		{hours: 0, want: "0h"},
	}

	for _, tt := range tests {
		if got := formatHours(tt.hours); got != tt.want {
			t.Errorf("formatHours(%v) = %q, want %q", tt.hours, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 45 * time.Second, want: "45s"},
		{d: 15 * time.Minute, want: "15m"},
		{d: 2 * time.Hour, want: "2h"},
		{d: 2*time.Hour + 30*time.Minute, want: "2h30m"},
		{d: 72 * time.Hour, want: "3d"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestDescribeInterval(t *testing.T) {
	if got := describeInterval(0); got != "disabled" {
		t.Errorf("describeInterval(0) = %q, want disabled", got)
	}
	if got := describeInterval(15 * time.Minute); got != "every 15m" {
		t.Errorf("describeInterval(15m) = %q, want \"every 15m\"", got)
	}
}

func TestShortIDAndTruncate(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q, want 01234567", got)
	}
	if got := shortID("short"); got != "short" {
		t.Errorf("shortID(short) = %q", got)
	}
	if got := truncate("a long task title here", 10); got != "a long ..." {
		t.Errorf("truncate = %q, want %q", got, "a long ...")
	}
	if got := truncate("fits", 10); got != "fits" {
		t.Errorf("truncate(fits) = %q", got)
	}
}

func TestConfigValueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  string
		set  string
		want string
	}{
		{name: "string key", key: "storage.backend", set: "sqlite", want: "sqlite"},
		{name: "path key", key: "storage.path", set: "/tmp/tasks.db", want: "/tmp/tasks.db"},
		{name: "int key", key: "hierarchy.max_depth", set: "7", want: "7"},
		{name: "float key", key: "priority.policy.min_confidence", set: "0.75", want: "0.75"},
		{name: "duration key", key: "loops.adjust_interval", set: "30m", want: "30m0s"},
		{name: "bool key", key: "loops.rescore_on_change", set: "false", want: "false"},
		{name: "case insensitive key", key: "LOOPS.FEED_COMPLETIONS", set: "true", want: "true"},
		{name: "learning duration", key: "learning.max_age", set: "2160h", want: "2160h0m0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			if err := setConfigValue(c, tt.key, tt.set); err != nil {
				t.Fatalf("setConfigValue(%q, %q) error = %v", tt.key, tt.set, err)
			}
			got, err := getConfigValue(c, tt.key)
			if err != nil {
				t.Fatalf("getConfigValue(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("getConfigValue(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestSetConfigValueRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown key", key: "storage.engine", value: "sqlite"},
		{name: "bad int", key: "hierarchy.max_depth", value: "deep"},
		{name: "bad float", key: "decompose.gates.min_score", value: "half"},
		{name: "bad bool", key: "loops.feed_completions", value: "yep"},
		{name: "bad duration", key: "loops.learn_interval", value: "hourly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			if err := setConfigValue(c, tt.key, tt.value); err == nil {
				t.Errorf("setConfigValue(%q, %q) error = nil, want error", tt.key, tt.value)
			}
		})
	}
}

func TestGetConfigValueUnknownKey(t *testing.T) {
	if _, err := getConfigValue(config.Default(), "tui.refresh_rate"); err == nil {
		t.Error("getConfigValue(tui.refresh_rate) error = nil, want error")
	}
}
