package logger

import (
	"errors"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// schedulerLogger routes gocron's internal logging into slog.
type schedulerLogger struct {
	log *slog.Logger
}

// NewSchedulerLogger returns a gocron.Logger backed by log. gocron is chatty
// at info level, so its info lines are demoted to debug.
//
//nolint:ireturn // gocron.WithLogger takes the interface
func NewSchedulerLogger(log *slog.Logger) gocron.Logger {
	if log == nil {
		log = slog.Default()
	}
	return &schedulerLogger{log: log.With("component", "gocron")}
}

func (l *schedulerLogger) Debug(msg string, args ...any) { l.log.Debug(msg, schedulerArgs(args)...) }
func (l *schedulerLogger) Info(msg string, args ...any)  { l.log.Debug(msg, schedulerArgs(args)...) }
func (l *schedulerLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, schedulerArgs(args)...) }
func (l *schedulerLogger) Error(msg string, args ...any) { l.log.Error(msg, schedulerArgs(args)...) }

// schedulerArgs tags gocron errors that mean a job id went stale, so they
// can be filtered apart from task failures.
func schedulerArgs(args []any) []any {
	out := make([]any, 0, len(args)+2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out = append(out, args[i])
			break
		}
		key, val := args[i], args[i+1]
		out = append(out, key, val)
		if err, ok := val.(error); ok && errors.Is(err, gocron.ErrJobNotFound) {
			out = append(out, "stale_job", true)
		}
	}
	return out
}
