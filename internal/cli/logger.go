package cli

import (
	"io"

	"github.com/sirupsen/logrus"

	"codeberg.org/snonux/ynlb/internal"
	"codeberg.org/snonux/ynlb/internal/log"
	loglogrus "codeberg.org/snonux/ynlb/internal/log/logrus"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// NewLogger returns the application logger writing to stderr.
func NewLogger(flags *Flags, stderr io.Writer) log.Logger {
	if flags.NoLog {
		return log.Noop
	}

	logrusLog := logrus.New()
	logrusLog.Out = stderr // Keep stdout for translations.
	logrusLogEntry := logrus.NewEntry(logrusLog)

	// Only warnings unless debugging, translations are the real output.
	logrusLogEntry.Logger.SetLevel(logrus.WarnLevel)
	if flags.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	switch flags.LogFormat {
	case LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": internal.Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}
