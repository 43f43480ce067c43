// Package logging builds the application's logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing JSON in production and human readable text elsewhere.
// An unknown level falls back to info.
func New(level string, production bool) *logrus.Logger {
	return NewWithWriter(os.Stdout, level, production)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string, production bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	if production {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

// Discard returns a logger that drops everything, for tests and library defaults.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
