package core

import (
	"reflect"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want string
	}{
		{"set", "./tmp/studio.db", "./tmp/studio.db"},
		{"unset", "", "./data/studio.db"},
		{"blank", "   ", "./data/studio.db"},
		{"trimmed", " ./x.db ", "./x.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STUDIO_DB_PATH", tt.env)
			if got := GetEnvOrDefault("STUDIO_DB_PATH", "./data/studio.db"); got != tt.want {
				t.Errorf("GetEnvOrDefault() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		env  string
		want int
	}{
		{"250", 250},
		{"-1", -1},
		{"", 100},
		{"lots", 100},
		{"12.5", 100},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("HISTORY_LIMIT", tt.env)
			if got := ParseIntEnv("HISTORY_LIMIT", 100); got != tt.want {
				t.Errorf("ParseIntEnv(%q) = %d, want %d", tt.env, got, tt.want)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		env  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"1", false, true},
		{"False", true, false},
		{"off", true, false},
		{"0", true, false},
		{"", true, true},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("COPY_SUGGESTIONS", tt.env)
			if got := ParseBoolEnv("COPY_SUGGESTIONS", tt.def); got != tt.want {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.env, tt.def, got, tt.want)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		env  string
		want time.Duration
	}{
		{"", time.Second},
		{"3", 3 * time.Second},
		{"0", 0},
		{"1500ms", 1500 * time.Millisecond},
		{"2m", 2 * time.Minute},
		{"soon", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("RETRY_DELAY", tt.env)
			if got := ParseDurationEnv("RETRY_DELAY", 1); got != tt.want {
				t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.env, got, tt.want)
			}
		})
	}
}

func TestParseListEnv(t *testing.T) {
	defaults := []string{"motion blur"}
	tests := []struct {
		env  string
		want []string
	}{
		{"", defaults},
		{"lens flare", []string{"lens flare"}},
		{" lens flare , , watermark ", []string{"lens flare", "watermark"}},
		{" , ,", defaults},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("DEFAULT_NEGATIVES", tt.env)
			if got := ParseListEnv("DEFAULT_NEGATIVES", defaults); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseListEnv(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}
