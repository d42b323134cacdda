package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// Init configures the standard logrus logger from the configured level and format.
// Unknown levels fall back to info; format "json" selects the JSON formatter.
func Init(level, format string) {
	InitWithOutput(level, format, os.Stdout)
}

// InitWithOutput is Init with an explicit writer
func InitWithOutput(level, format string, out io.Writer) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(out)

	if strings.EqualFold(format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// New returns a fresh entry on the standard logger
func New() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}

// WithContext stores an entry in ctx for later retrieval by FromContext
func WithContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the entry stored in ctx, or a new one
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && entry != nil {
			return entry
		}
	}
	return New()
}
