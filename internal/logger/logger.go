// Package logger wraps logrus the way the teacher's scheduler-service
// does: a thin Logger embedding *logrus.Logger, with context-scoped
// trace/learner fields attached via WithContext.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
)

type Logger struct {
	*logrus.Logger
}

type contextKey string

const (
	TraceIDKey   contextKey = "trace_id"
	LearnerIDKey contextKey = "learner_id"
)

// New creates a Logger from the supplied LoggingConfig.
func New(cfg config.LoggingConfig) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// Noop returns a Logger that discards all output, for embedders and
// tests that don't care about log lines.
func Noop() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return &Logger{Logger: log}
}

// WithContext attaches trace/learner fields pulled from ctx, mirroring
// the teacher's WithContext helper.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.WithFields(logrus.Fields{})

	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	if learnerID := ctx.Value(LearnerIDKey); learnerID != nil {
		entry = entry.WithField("learner_id", learnerID)
	}

	return entry
}

// WithTraceID returns a context carrying the given trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithLearnerID returns a context carrying the given learner id.
func WithLearnerID(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, LearnerIDKey, learnerID)
}
