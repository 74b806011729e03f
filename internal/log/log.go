// Package log wires logrus for the service and carries a request-scoped
// logger and correlation id through context.Context.
package log

import (
	"context"
	"os"

	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationIDKey
)

// Init configures the standard logrus logger. Development gets text output,
// everything else JSON.
func Init(level string, development bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stdout)
	if development {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

func ToContext(ctx context.Context, l *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext never returns nil; without a stored entry it falls back to the
// standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if l, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return l
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

func NewCorrelationID() string { return "gen_" + shortuuid.New() }
