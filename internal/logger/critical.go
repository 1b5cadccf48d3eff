package logger

import "go.uber.org/zap"

// SeverityCritical tags entries that need manual reconciliation.
const SeverityCritical = "critical"

// Critical logs at Error level tagged severity=critical. Alerting keys off the
// tag, so the process keeps running.
func Critical(l *zap.Logger, msg string, fields ...zap.Field) {
	l.Error(msg, append([]zap.Field{zap.String("severity", SeverityCritical)}, fields...)...)
}
