package session

import "go.uber.org/zap"

var _ Logger = &ZapLogger{}

// ZapLogger adapts a zap logger to the Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps l for use with WithLogger and friends.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: l.Sugar()}
}

func (z *ZapLogger) Debug(format string, args ...any) { z.sugar.Debugf(format, args...) }
func (z *ZapLogger) Info(format string, args ...any)  { z.sugar.Infof(format, args...) }
func (z *ZapLogger) Warn(format string, args ...any)  { z.sugar.Warnf(format, args...) }
func (z *ZapLogger) Error(format string, args ...any) { z.sugar.Errorf(format, args...) }
