package logger

import (
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// LogrusWrapper wraps a logrus.Entry to implement the Logger interface.
type LogrusWrapper struct {
	entry *logrus.Entry
}

// NewLogrus creates a Logger backed by logrus, writing to stderr.
func NewLogrus() *LogrusWrapper {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &LogrusWrapper{entry: logrus.NewEntry(l)}
}

// NewLogrusWithFileRotation creates a Logger that writes daily-rotated
// log files to logPath in addition to stderr.
func NewLogrusWithFileRotation(logPath string, level Level) *LogrusWrapper {
	l := logrus.New()
	writer, err := rotatelogs.New(
		logPath+".%Y%m%d",
		rotatelogs.WithLinkName(logPath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		l.SetOutput(os.Stderr)
	} else {
		l.SetOutput(writer)
	}
	l.SetFormatter(&logrus.JSONFormatter{})
	w := &LogrusWrapper{entry: logrus.NewEntry(l)}
	switch level {
	case DebugLevel:
		w.SetToDebug()
	case ErrorLevel:
		w.SetToError()
	default:
		w.SetToInfo()
	}
	return w
}

// NewNop returns a Logger that discards everything. Useful for tests.
func NewNop() *LogrusWrapper {
	l := logrus.New()
	l.SetOutput(ioDiscard{})
	return &LogrusWrapper{entry: logrus.NewEntry(l)}
}

type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }

func (l *LogrusWrapper) SetToDebug() { l.entry.Logger.SetLevel(logrus.DebugLevel) }
func (l *LogrusWrapper) SetToInfo()  { l.entry.Logger.SetLevel(logrus.InfoLevel) }
func (l *LogrusWrapper) SetToError() { l.entry.Logger.SetLevel(logrus.ErrorLevel) }

// Module returns a child logger whose entries carry a "module" field
// set to ns.
func (l *LogrusWrapper) Module(ns string) Logger {
	return &LogrusWrapper{entry: l.entry.WithField("module", ns)}
}

func (l *LogrusWrapper) fields(keyValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keyValues); i += 2 {
		if k, ok := keyValues[i].(string); ok {
			f[k] = keyValues[i+1]
		}
	}
	return f
}

func (l *LogrusWrapper) Debug(msg string, keyValues ...interface{}) {
	l.entry.WithFields(l.fields(keyValues)).Debug(msg)
}

func (l *LogrusWrapper) Info(msg string, keyValues ...interface{}) {
	l.entry.WithFields(l.fields(keyValues)).Info(msg)
}

func (l *LogrusWrapper) Error(msg string, keyValues ...interface{}) {
	l.entry.WithFields(l.fields(keyValues)).Error(msg)
}

func (l *LogrusWrapper) Fatal(msg string, keyValues ...interface{}) {
	l.entry.WithFields(l.fields(keyValues)).Fatal(msg)
}

func (l *LogrusWrapper) Warn(msg string, keyValues ...interface{}) {
	l.entry.WithFields(l.fields(keyValues)).Warn(msg)
}
