package slogobs

import (
	"log/slog"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"compact", FormatCompact},
		{"PRETTY", FormatPretty},
		{" json ", FormatJSON},
		{"", FormatCompact},
		{"xml", FormatCompact},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.input); got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetFormatFromEnv_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		specific string
		generic  string
		want     Format
	}{
		{"nothing set", "", "", FormatCompact},
		{"generic only", "", "json", FormatJSON},
		{"specific wins", "pretty", "json", FormatPretty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLogFormat, tt.specific)
			t.Setenv(envGenericLogFormat, tt.generic)
			if got := GetFormatFromEnv(); got != tt.want {
				t.Errorf("GetFormatFromEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestGetLogLevelFromEnv_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		specific string
		generic  string
		want     slog.Level
	}{
		{"nothing set", "", "", slog.LevelInfo},
		{"generic only", "", "debug", slog.LevelDebug},
		{"specific wins", "error", "debug", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLogLevel, tt.specific)
			t.Setenv(envGenericLogLevel, tt.generic)
			if got := GetLogLevelFromEnv(); got != tt.want {
				t.Errorf("GetLogLevelFromEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogLevelString(t *testing.T) {
	tests := map[slog.Level]string{
		LevelTrace:      "TRACE",
		slog.LevelDebug: "DEBUG",
		slog.LevelInfo:  "INFO",
		slog.LevelWarn:  "WARN",
		slog.LevelError: "ERROR",
		slog.Level(2):   "LEVEL(2)",
	}
	for level, want := range tests {
		if got := LogLevelString(level); got != want {
			t.Errorf("LogLevelString(%d) = %q, want %q", level, got, want)
		}
	}
}
