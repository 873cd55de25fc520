package slogobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/mattn/go-isatty"
)

// Handler is a slog.Handler that writes compact, pretty or JSON records.
type Handler struct {
	format Format
	level  slog.Level
	output io.Writer
	colors bool
	mu     *sync.Mutex
	// attrs are already qualified with the groups open when they were added.
	attrs  []slog.Attr
	groups []string
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Format specifies the output format (compact, pretty, json).
	Format Format
	// Level is the minimum log level to output.
	Level slog.Level
	// Output is where logs are written (defaults to os.Stderr).
	Output io.Writer
	// Colors enables ANSI color codes (compact and pretty only). When false,
	// colors are still enabled if Output is a terminal.
	Colors bool
}

// NewHandler creates a new Handler with the given options.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	format := opts.Format
	if format == "" {
		format = FormatCompact
	}

	colors := opts.Colors
	if !colors && format != FormatJSON {
		if file, ok := output.(*os.File); ok {
			colors = isTerminal(file)
		}
	}

	return &Handler{
		format: format,
		level:  opts.Level,
		output: output,
		colors: colors,
		mu:     &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	var line []byte
	var err error
	switch h.format {
	case FormatPretty:
		line = h.formatPretty(record)
	case FormatJSON:
		line, err = h.formatJSON(record)
	default:
		line = h.formatCompact(record)
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.output.Write(line)
	return err
}

// WithAttrs returns a new Handler with additional attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	prefix := h.groupPrefix()
	derived := *h
	derived.attrs = append([]slog.Attr{}, h.attrs...)
	for _, attr := range attrs {
		derived.attrs = appendFlat(derived.attrs, prefix, attr)
	}
	return &derived
}

// WithGroup returns a new Handler whose attribute keys are prefixed with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.groups = append(append([]string{}, h.groups...), name)
	return &derived
}

// formatCompact renders "2006-01-02 15:04:05 LEVEL Message → {json attrs}".
func (h *Handler) formatCompact(record slog.Record) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, record.Time.Format("2006-01-02 15:04:05")...)
	buf = append(buf, ' ')
	buf = h.appendLevel(buf, record.Level, "%5s")
	buf = append(buf, ' ')
	buf = append(buf, record.Message...)

	attrs := h.collectAttrs(record)
	if len(attrs) > 0 {
		buf = append(buf, " → "...)
		encoded, err := json.Marshal(attrs)
		if err != nil {
			buf = append(buf, "[json-error]"...)
		} else {
			buf = append(buf, encoded...)
		}
	}
	return append(buf, '\n')
}

// formatPretty renders the message on one line and every attribute, sorted by
// key, on its own tree-indented line below it.
func (h *Handler) formatPretty(record slog.Record) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, record.Time.Format("2006-01-02 15:04:05")...)
	buf = append(buf, ' ')
	buf = append(buf, emojiForLevel(record.Level)...)
	buf = append(buf, ' ')
	buf = h.appendLevel(buf, record.Level, "%-7s")
	buf = append(buf, record.Message...)
	buf = append(buf, '\n')

	attrs := h.collectAttrs(record)
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for index, key := range keys {
		branch := "├─ "
		if index == len(keys)-1 {
			branch = "└─ "
		}
		buf = append(buf, "                   "...)
		buf = append(buf, branch...)
		buf = append(buf, key...)
		buf = append(buf, ": "...)
		buf = append(buf, fmt.Sprintf("%v", attrs[key])...)
		buf = append(buf, '\n')
	}
	return buf
}

// formatJSON renders {"time":...,"level":...,"msg":...} with attributes merged
// at the top level.
func (h *Handler) formatJSON(record slog.Record) ([]byte, error) {
	data := h.collectAttrs(record)
	data["time"] = record.Time.Format("2006-01-02T15:04:05")
	data["level"] = levelString(record.Level)
	data["msg"] = record.Message

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(encoded, '\n'), nil
}

func (h *Handler) appendLevel(buf []byte, level slog.Level, layout string) []byte {
	text := fmt.Sprintf(layout, levelString(level))
	if !h.colors {
		return append(buf, text...)
	}
	buf = append(buf, colorForLevel(level)...)
	buf = append(buf, text...)
	return append(buf, colorReset...)
}

// collectAttrs merges the handler attributes and the record attributes into
// one map. Record keys are prefixed with every open group; handler attributes
// keep the prefix they got in WithAttrs.
func (h *Handler) collectAttrs(record slog.Record) map[string]any {
	flat := append([]slog.Attr{}, h.attrs...)
	prefix := h.groupPrefix()
	record.Attrs(func(attr slog.Attr) bool {
		flat = appendFlat(flat, prefix, attr)
		return true
	})

	attrs := make(map[string]any, len(flat))
	for _, attr := range flat {
		value := attr.Value.Any()
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		attrs[attr.Key] = value
	}
	return attrs
}

func (h *Handler) groupPrefix() string {
	prefix := ""
	for _, group := range h.groups {
		prefix += group + "."
	}
	return prefix
}

// appendFlat resolves attr, flattens group values into dotted keys and drops
// empty attributes.
func appendFlat(dst []slog.Attr, prefix string, attr slog.Attr) []slog.Attr {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			dst = appendFlat(dst, groupPrefix, member)
		}
		return dst
	}
	return append(dst, slog.Attr{Key: prefix + attr.Key, Value: attr.Value})
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func colorForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return colorGray
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}

func emojiForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "🔍"
	case level < slog.LevelInfo:
		return "🔵"
	case level < slog.LevelWarn:
		return "🟢"
	case level < slog.LevelError:
		return "🟡"
	default:
		return "🔴"
	}
}

func isTerminal(file *os.File) bool {
	if file == nil {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
