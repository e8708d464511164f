package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{ name string }

var (
	loggerKey = ctxKey{"logger"}
	runIDKey  = ctxKey{"run_id"}
)

// WithLogger attaches logger to ctx. A nil logger attaches Default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// WithLoggerIfAbsent attaches logger unless ctx already carries one, so a
// caller's run-scoped logger survives a library call.
func WithLoggerIfAbsent(ctx context.Context, logger *zerolog.Logger) context.Context {
	if _, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok {
		return ctx
	}
	return WithLogger(ctx, logger)
}

// FromContext returns the logger attached to ctx, or Default.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

// Ctx is FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx)
}

// WithRun stores the run id in ctx and adds it to the logger. Sinks journal
// changes under this id.
func WithRun(ctx context.Context, runID string) context.Context {
	return WithField(context.WithValue(ctx, runIDKey, runID), "run_id", runID)
}

// RunID returns the run id stored by WithRun, or "".
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithFields adds fields to the logger of ctx.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	l := FromContext(ctx).With().Fields(fields).Logger()
	return WithLogger(ctx, &l)
}

// WithField adds one field to the logger of ctx.
func WithField(ctx context.Context, key string, value any) context.Context {
	return WithFields(ctx, map[string]any{key: value})
}

// WithSource tags the logger with an event source id.
func WithSource(ctx context.Context, source string) context.Context {
	return WithField(ctx, "source", source)
}

// WithSink tags the logger with a booking sink id.
func WithSink(ctx context.Context, sink string) context.Context {
	return WithField(ctx, "sink", sink)
}

// WithOffice tags the logger with an office.
func WithOffice(ctx context.Context, office string) context.Context {
	return WithField(ctx, "office", office)
}

// WithError adds err to the logger of ctx. A nil err is ignored.
func WithError(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	return WithField(ctx, zerolog.ErrorFieldName, err)
}
