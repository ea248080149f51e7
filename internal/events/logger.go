package events

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/hpungsan/pocket/internal/logging"
)

// watermillLogger forwards watermill's logging to a pocket Logger.
type watermillLogger struct {
	log    *logging.Logger
	fields watermill.LogFields
}

// NewWatermillLogger adapts log to watermill.LoggerAdapter.
func NewWatermillLogger(log *logging.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: log}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.log.Error(msg, append(l.keysAndValues(fields), "error", err)...)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.log.Info(msg, l.keysAndValues(fields)...)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.log.Debug(msg, l.keysAndValues(fields)...)
}

// Trace is folded into debug; zap has no trace level.
func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.log.Debug(msg, l.keysAndValues(fields)...)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{log: l.log, fields: l.fields.Add(fields)}
}

func (l *watermillLogger) keysAndValues(fields watermill.LogFields) []any {
	all := l.fields.Add(fields)
	kv := make([]any, 0, 2*len(all))
	for k, v := range all {
		kv = append(kv, k, v)
	}
	return kv
}
