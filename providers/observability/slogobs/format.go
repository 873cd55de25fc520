package slogobs

import (
	"os"
	"strings"
)

// Format represents the output format for logs.
type Format string

const (
	// FormatCompact is a single-line format with JSON attributes (default).
	// Example: 2026-03-02 10:40:35  INFO run completed → {"run.outputs":3}
	FormatCompact Format = "compact"

	// FormatPretty is a multi-line format with one attribute per line.
	FormatPretty Format = "pretty"

	// FormatJSON is one JSON object per record, for log aggregation.
	FormatJSON Format = "json"
)

// Environment variables consulted by GetFormatFromEnv, highest priority first.
const (
	EnvLogFormat        = "SEQUENCER_LOG_FORMAT"
	envGenericLogFormat = "LOG_FORMAT"
)

// ParseFormat parses a format string and returns the corresponding Format.
// Unknown values map to FormatCompact.
func ParseFormat(value string) Format {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// GetFormatFromEnv reads SEQUENCER_LOG_FORMAT, then LOG_FORMAT, and defaults
// to FormatCompact.
func GetFormatFromEnv() Format {
	for _, name := range []string{EnvLogFormat, envGenericLogFormat} {
		if format := os.Getenv(name); format != "" {
			return ParseFormat(format)
		}
	}
	return FormatCompact
}

// String returns the string representation of the Format.
func (f Format) String() string {
	return string(f)
}
