// Package logrus adapts sirupsen/logrus to the logger.Logger interface
package logrus

import (
	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Adapter wraps a logrus entry
type Adapter struct {
	*logrus.Entry
}

// New creates a text or JSON logrus logger at the given level
func New(level string, json bool) (*Adapter, error) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(parsed)
	if json {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Adapter{logrus.NewEntry(log)}, nil
}

// WithField implements logger.Logger.
func (l *Adapter) WithField(key string, value any) logger.Logger {
	return &Adapter{l.Entry.WithField(key, value)}
}

// WithFields implements logger.Logger.
func (l *Adapter) WithFields(fields map[string]any) logger.Logger {
	return &Adapter{l.Entry.WithFields(fields)}
}

// WithError implements logger.Logger.
func (l *Adapter) WithError(err error) logger.Logger {
	return &Adapter{l.Entry.WithError(err)}
}

// SetLevel implements logger.Logger.
func (l *Adapter) SetLevel(level logger.Level) {
	switch level {
	case logger.TraceLevel:
		l.Logger.SetLevel(logrus.TraceLevel)
	case logger.DebugLevel:
		l.Logger.SetLevel(logrus.DebugLevel)
	case logger.InfoLevel:
		l.Logger.SetLevel(logrus.InfoLevel)
	case logger.WarnLevel:
		l.Logger.SetLevel(logrus.WarnLevel)
	case logger.ErrorLevel:
		l.Logger.SetLevel(logrus.ErrorLevel)
	case logger.FatalLevel:
		l.Logger.SetLevel(logrus.FatalLevel)
	default:
		l.Logger.SetLevel(logrus.PanicLevel)
	}
}

// GetLevel implements logger.Logger.
func (l *Adapter) GetLevel() logger.Level {
	switch l.Logger.GetLevel() {
	case logrus.TraceLevel:
		return logger.TraceLevel
	case logrus.DebugLevel:
		return logger.DebugLevel
	case logrus.InfoLevel:
		return logger.InfoLevel
	case logrus.WarnLevel:
		return logger.WarnLevel
	case logrus.ErrorLevel:
		return logger.ErrorLevel
	case logrus.FatalLevel:
		return logger.FatalLevel
	default:
		return logger.PanicLevel
	}
}
