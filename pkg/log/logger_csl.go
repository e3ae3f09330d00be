package log

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// CslLogger writes leveled lines to the console through logrus. Alert, Notice,
// Critical and Emergency have no logrus level of their own and are tagged with
// a "severity" field instead.
type CslLogger struct {
	entry *logrus.Logger
}

func NewCslLogger() (*CslLogger, error) {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return &CslLogger{entry: l}, nil
}

// NewCslLoggerWith wraps an existing logrus logger, tests hand in one with a hook.
func NewCslLoggerWith(l *logrus.Logger) *CslLogger {
	return &CslLogger{entry: l}
}

func (l *CslLogger) SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.entry.SetLevel(lvl)
	return nil
}

func (l *CslLogger) with(ctx context.Context) *logrus.Entry {
	return l.entry.WithFields(logrus.Fields(FieldsFrom(ctx)))
}

func (l *CslLogger) Info(ctx context.Context, format string, args ...interface{}) {
	l.with(ctx).Infof(format, args...)
}

func (l *CslLogger) Alert(ctx context.Context, format string, args ...interface{}) {
	l.with(ctx).WithField("severity", "alert").Errorf(format, args...)
}

func (l *CslLogger) Error(ctx context.Context, format string, args ...interface{}) {
	l.with(ctx).Errorf(format, args...)
}

func (l *CslLogger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.with(ctx).Warnf(format, args...)
}

func (l *CslLogger) Debug(ctx context.Context, format string, args ...interface{}) {
	l.with(ctx).Debugf(format, args...)
}

func (l *CslLogger) Critical(ctx context.Context, format string, args ...interface{}) {
	l.with(ctx).WithField("severity", "critical").Errorf(format, args...)
}

func (l *CslLogger) Emergency(ctx context.Context, format string, args ...interface{}) {
	l.with(ctx).WithField("severity", "emergency").Errorf(format, args...)
}

func (l *CslLogger) Notice(ctx context.Context, format string, args ...interface{}) {
	l.with(ctx).WithField("severity", "notice").Infof(format, args...)
}
