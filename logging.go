package main

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewLogger returns the run logger. Every entry carries a run_id so the
// lines of one activation can be told apart in a shared CI log.
func NewLogger(debug bool, out io.Writer) *logrus.Entry {
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	return logger.WithField("run_id", uuid.NewString())
}
