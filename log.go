package ipc

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// XLogLevelEnv is the environment variable that selects log verbosity, per
// the design: one of ERRO, WARN, INFO (default), DEBG. Logging is
// observational only; no behavior in this package depends on the chosen
// level.
const XLogLevelEnv = "XLOG_LEVEL"

var (
	loggerOnce sync.Once
	baseLogger *logrus.Logger
)

// log returns the package-wide logrus.Logger, initializing it from
// XLOG_LEVEL on first use.
func log() *logrus.Logger {
	loggerOnce.Do(func() {
		baseLogger = logrus.New()
		baseLogger.SetLevel(levelFromEnv(os.Getenv(XLogLevelEnv)))
	})
	return baseLogger
}

func levelFromEnv(v string) logrus.Level {
	switch v {
	case "ERRO":
		return logrus.ErrorLevel
	case "WARN":
		return logrus.WarnLevel
	case "DEBG":
		return logrus.DebugLevel
	case "", "INFO":
		return logrus.InfoLevel
	default:
		return logrus.InfoLevel
	}
}

// loggerEntry carries the channel name and direction as structured fields
// on every line a Node logs, so a multi-channel process's log stream can
// be filtered per channel without string parsing.
type loggerEntry struct {
	entry *logrus.Entry
}

func newLoggerEntry(name string, dir Direction) *loggerEntry {
	return newLoggerEntryFrom(log(), name, dir)
}

// newLoggerEntryFrom builds a loggerEntry against a caller-supplied
// logrus.Logger, for WithLogger, instead of the package-wide default.
func newLoggerEntryFrom(logger *logrus.Logger, name string, dir Direction) *loggerEntry {
	return &loggerEntry{entry: logger.WithFields(logrus.Fields{
		"channel":   name,
		"direction": dir.String(),
	})}
}

func (l *loggerEntry) infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *loggerEntry) warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *loggerEntry) debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

// errorf logs err at error level alongside a contextual message, matching
// the design's "a failed send/receive emits an error-level log line."
func (l *loggerEntry) errorf(err error, format string, args ...interface{}) {
	l.entry.WithError(err).Errorf(format, args...)
}
