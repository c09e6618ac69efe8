package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/go-units"
	"github.com/pterm/pterm"

	"github.com/thushan/striker/theme"
)

// StyledLogger wraps slog.Logger with Theme-aware formatting
type StyledLogger struct {
	logger *slog.Logger
	Theme  *theme.Theme
}

func NewStyledLogger(logger *slog.Logger, theme *theme.Theme) *StyledLogger {
	return &StyledLogger{
		logger: logger,
		Theme:  theme,
	}
}

func NewWithTheme(cfg *Config) (*slog.Logger, *StyledLogger, func(), error) {
	logger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	styledLogger := NewStyledLogger(logger, theme.GetTheme(cfg.Theme))
	return logger, styledLogger, cleanup, nil
}

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *StyledLogger) InfoWithPath(msg string, path string, args ...any) {
	sl.logger.Info(sl.join(msg, sl.Theme.Path, path), args...)
}

func (sl *StyledLogger) InfoWithCommand(msg string, cmd string, args ...any) {
	sl.logger.Info(sl.join(msg, sl.Theme.Command, cmd), args...)
}

func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Numbers}.Sprint("(", count, ")"))
	sl.logger.Info(styledMsg, args...)
}

// InfoWithDelay renders d the way people say it ("About a minute")
func (sl *StyledLogger) InfoWithDelay(msg string, d time.Duration, args ...any) {
	sl.logger.Info(sl.join(msg, sl.Theme.Numbers, units.HumanDuration(d)), args...)
}

func (sl *StyledLogger) join(msg string, colour pterm.Color, value string) string {
	return fmt.Sprintf("%s %s", msg, pterm.Style{colour}.Sprint(value))
}

// LogContext separates what the terminal shows from what only the log file
// needs, such as captured command output.
type LogContext struct {
	UserArgs     []any
	DetailedArgs []any
}

func (sl *StyledLogger) InfoWithContext(msg string, cmd string, lc LogContext) {
	sl.logWithContext(slog.LevelInfo, msg, cmd, lc)
}

func (sl *StyledLogger) WarnWithContext(msg string, cmd string, lc LogContext) {
	sl.logWithContext(slog.LevelWarn, msg, cmd, lc)
}

func (sl *StyledLogger) ErrorWithContext(msg string, cmd string, lc LogContext) {
	sl.logWithContext(slog.LevelError, msg, cmd, lc)
}

func (sl *StyledLogger) logWithContext(level slog.Level, msg string, cmd string, lc LogContext) {
	ctx := context.Background()
	sl.logger.Log(ctx, level, sl.join(msg, sl.Theme.Command, cmd), lc.UserArgs...)

	if len(lc.DetailedArgs) == 0 {
		return
	}

	allArgs := make([]any, 0, len(lc.UserArgs)+len(lc.DetailedArgs)+2)
	allArgs = append(allArgs, "cmd", cmd)
	allArgs = append(allArgs, lc.UserArgs...)
	allArgs = append(allArgs, lc.DetailedArgs...)

	sl.logger.Log(WithDetail(ctx), level, msg, allArgs...)
}
