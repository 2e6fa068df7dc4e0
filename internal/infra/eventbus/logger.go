package eventbus

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-kratos/kratos/v2/log"
)

// KratosLoggerAdapter bridges Watermill's LoggerAdapter onto the kratos
// logger so bus internals log through the same sink as the rest of the app.
type KratosLoggerAdapter struct {
	logger *log.Helper
	fields watermill.LogFields
}

// NewKratosLoggerAdapter wraps a kratos logger for Watermill.
func NewKratosLoggerAdapter(logger log.Logger) watermill.LoggerAdapter {
	return &KratosLoggerAdapter{
		logger: log.NewHelper(logger),
		fields: make(watermill.LogFields),
	}
}

func (l *KratosLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.emit(log.LevelError, msg, fields, err)
}

func (l *KratosLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.emit(log.LevelInfo, msg, fields, nil)
}

func (l *KratosLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.emit(log.LevelDebug, msg, fields, nil)
}

// Trace maps to debug; kratos has no trace level.
func (l *KratosLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.emit(log.LevelDebug, msg, fields, nil)
}

// With returns a copy carrying the merged persistent fields.
func (l *KratosLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	merged := make(watermill.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &KratosLoggerAdapter{
		logger: l.logger,
		fields: merged,
	}
}

func (l *KratosLoggerAdapter) emit(level log.Level, msg string, fields watermill.LogFields, err error) {
	keyvals := make([]interface{}, 0, (len(l.fields)+len(fields))*2+4)
	keyvals = append(keyvals, "msg", msg)
	for k, v := range l.fields {
		keyvals = append(keyvals, k, v)
	}
	for k, v := range fields {
		keyvals = append(keyvals, k, v)
	}
	if err != nil {
		keyvals = append(keyvals, "error", err)
	}
	l.logger.Log(level, keyvals...)
}
