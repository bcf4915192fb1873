// Package logging configures the process-wide logrus logger.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// Configure sets level ("debug", "info", ...) and format ("json" or "text").
// An unknown level falls back to info.
func Configure(level, format string) *logrus.Logger {
	return configure(logger, os.Stdout, level, format)
}

func configure(l *logrus.Logger, out io.Writer, level, format string) *logrus.Logger {
	l.SetOutput(out)
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Logger returns the process logger.
func Logger() *logrus.Logger {
	return logger
}

// WithContext returns an entry tagged with the request id set by chi's RequestID middleware.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logger)
	if ctx == nil {
		return entry
	}
	if id := middleware.GetReqID(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}
