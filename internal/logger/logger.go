package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/thushan/striker/internal/util"
	"github.com/thushan/striker/theme"
)

type Config struct {
	Output     io.Writer // terminal output, os.Stderr when nil
	Level      string
	LogDir     string
	Theme      string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	FileOutput bool
}

const (
	DefaultLogOutputName = "striker.log"

	LogLevelDebug   = "debug"
	LogLevelInfo    = "info"
	LogLevelWarn    = "warn"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

type detailKey struct{}

// WithDetail marks ctx so that records logged with it only reach the log
// file, keeping the terminal free of the extra noise.
func WithDetail(ctx context.Context) context.Context {
	return context.WithValue(ctx, detailKey{}, true)
}

func isDetail(ctx context.Context) bool {
	d, _ := ctx.Value(detailKey{}).(bool)
	return d
}

// New builds the striker logger and a cleanup func that closes the log file.
func New(cfg *Config) (*slog.Logger, func(), error) {
	level := ParseLevel(cfg.Level)
	appTheme := theme.GetTheme(cfg.Theme)

	out := cfg.Output
	if out == nil {
		// stdout belongs to command output
		out = os.Stderr
	}

	terminalHandler := createTerminalHandler(out, level, appTheme)
	if !cfg.FileOutput {
		return slog.New(&teeHandler{terminal: terminalHandler}), func() {}, nil
	}

	fileHandler, cleanup, err := createFileHandler(cfg, level)
	if err != nil {
		return nil, nil, err
	}

	handler := &teeHandler{
		terminal: terminalHandler,
		file:     fileHandler,
	}
	return slog.New(handler), cleanup, nil
}

func createTerminalHandler(out io.Writer, level slog.Level, appTheme *theme.Theme) slog.Handler {
	if util.ShouldUseColors(out) {
		plogger := pterm.DefaultLogger.
			WithLevel(convertToPTermLevel(level)).
			WithWriter(out).
			WithFormatter(pterm.LogFormatterColorful)

		keyStyles := map[string]pterm.Style{
			"level": *appTheme.Info,
			"msg":   *appTheme.Info,
			"time":  *appTheme.Muted,
		}
		plogger = plogger.WithKeyStyles(keyStyles)
		return pterm.NewSlogHandler(plogger)
	}

	// not a terminal (CI, pipes), keep it machine readable
	return slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})
}

func createFileHandler(cfg *Config, level slog.Level) (slog.Handler, func(), error) {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory %s: %w", cfg.LogDir, err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, DefaultLogOutputName),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})

	cleanup := func() {
		_ = rotator.Close()
	}

	return handler, cleanup, nil
}

// replaceAttr strips styling from strings and flattens complex values
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		return slog.Attr{
			Key:   "timestamp",
			Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05")),
		}
	default:
		switch a.Value.Kind() {
		case slog.KindString:
			str := a.Value.String()
			if strings.ContainsRune(str, '\x1b') {
				return slog.Attr{Key: a.Key, Value: slog.StringValue(stripAnsiCodes(str))}
			}
		case slog.KindAny:
			if err, ok := a.Value.Any().(error); ok {
				return slog.Attr{Key: a.Key, Value: slog.StringValue(err.Error())}
			}
			return slog.Attr{Key: a.Key, Value: slog.StringValue(fmt.Sprintf("%v", a.Value.Any()))}
		}
	}
	return a
}

// teeHandler sends records to the terminal and, when enabled, the log file.
// Detail records (see WithDetail) skip the terminal.
type teeHandler struct {
	terminal slog.Handler
	file     slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.terminal.Enabled(ctx, level) {
		return true
	}
	return h.file != nil && h.file.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	if !isDetail(ctx) && h.terminal.Enabled(ctx, record.Level) {
		if err := h.terminal.Handle(ctx, record); err != nil {
			return err
		}
	}

	if h.file != nil && h.file.Enabled(ctx, record.Level) {
		return h.file.Handle(ctx, record)
	}

	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := &teeHandler{terminal: h.terminal.WithAttrs(attrs)}
	if h.file != nil {
		c.file = h.file.WithAttrs(attrs)
	}
	return c
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	c := &teeHandler{terminal: h.terminal.WithGroup(name)}
	if h.file != nil {
		c.file = h.file.WithGroup(name)
	}
	return c
}

// ParseLevel maps a level name to slog, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn, LogLevelWarning:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func convertToPTermLevel(level slog.Level) pterm.LogLevel {
	switch level {
	case slog.LevelDebug:
		return pterm.LogLevelDebug
	case slog.LevelInfo:
		return pterm.LogLevelInfo
	case slog.LevelWarn:
		return pterm.LogLevelWarn
	case slog.LevelError:
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}
