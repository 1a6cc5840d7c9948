// Package log provides the slog handler hookguard writes diagnostics with.
package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Prefix starts every line.
const Prefix = "[hookguard]"

// TerminalHandler implements slog.Handler with terse single-line output:
//
//	[hookguard] WARN could not save approvals path=.hookguard error="..."
type TerminalHandler struct {
	opts   handlerConfig
	w      io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

// HandlerOption configures the TerminalHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
	color     bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	_, noColor := os.LookupEnv("NO_COLOR")
	return handlerConfig{
		level: slog.LevelInfo,
		color: !noColor && !color.NoColor,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithColor forces colour on or off. By default colour follows NO_COLOR and
// whether stderr is a terminal.
func WithColor(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.color = enabled
	}
}

// NewHandler creates a TerminalHandler writing to w.
func NewHandler(w io.Writer, opts ...HandlerOption) *TerminalHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TerminalHandler{opts: cfg, w: w, mu: &sync.Mutex{}}
}

// Setup installs a TerminalHandler on w as the default logger.
func Setup(level slog.Leveler, w io.Writer, opts ...HandlerOption) *slog.Logger {
	logger := slog.New(NewHandler(w, append([]HandlerOption{WithLevel(level)}, opts...)...))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps debug/info/warn/error to a level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Enabled reports whether the handler handles records at the given level.
func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// WithAttrs returns a new TerminalHandler that includes the given attributes.
func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	for _, a := range attrs {
		nh.attrs = append(nh.attrs, h.qualify(a))
	}
	return nh
}

// WithGroup returns a new TerminalHandler with the given group name.
func (h *TerminalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

// Handle writes one line for record.
func (h *TerminalHandler) Handle(_ context.Context, record slog.Record) error {
	var buf bytes.Buffer
	buf.WriteString(Prefix)
	buf.WriteByte(' ')
	buf.WriteString(h.paint(levelColor(record.Level), record.Level.String()))
	buf.WriteByte(' ')
	buf.WriteString(record.Message)

	if h.opts.addSource && record.PC != 0 {
		if src := record.Source(); src != nil {
			writeAttr(&buf, slog.String(slog.SourceKey, src.File+":"+itoa(src.Line)))
		}
	}
	for _, a := range h.attrs {
		writeAttr(&buf, a)
	}
	record.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.qualify(a))
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *TerminalHandler) clone() *TerminalHandler {
	nh := *h
	nh.attrs = append([]slog.Attr(nil), h.attrs...)
	nh.groups = append([]string(nil), h.groups...)
	return &nh
}

func (h *TerminalHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	a.Key = strings.Join(h.groups, ".") + "." + a.Key
	return a
}

func (h *TerminalHandler) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if h.opts.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func levelColor(l slog.Level) color.Attribute {
	switch {
	case l >= slog.LevelError:
		return color.FgRed
	case l >= slog.LevelWarn:
		return color.FgYellow
	case l >= slog.LevelInfo:
		return color.FgBlue
	default:
		return color.FgCyan
	}
}

func writeAttr(buf *bytes.Buffer, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			if a.Key != "" {
				ga.Key = a.Key + "." + ga.Key
			}
			writeAttr(buf, ga)
		}
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(quote(formatValue(a.Value)))
}
