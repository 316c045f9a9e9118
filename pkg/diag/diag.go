// Package diag is the diagnostics sink for enrollment operations. Every
// back-end and Kerberos failure is reported here in full detail before being
// mapped to the coarse error taxonomy the caller sees. Emitting diagnostics
// is fire-and-forget and never fails the calling operation.
package diag

import (
	"fmt"

	"github.com/MalloZup/realmd/internal/logger"
)

// Op tags diagnostics with the inbound operation they belong to.
type Op struct {
	// Operation names the remote call: join, leave, deconfigure,
	// login-policy, discover.
	Operation string
	// Realm is the realm or domain the operation targets.
	Realm string
	// Invoker identifies the inbound caller, for diagnostics only.
	Invoker string
}

// Sink receives operation diagnostics.
type Sink interface {
	Info(op Op, format string, args ...any)
	Error(op Op, err error, label string)
}

// LogSink emits diagnostics through the process logger.
type LogSink struct{}

// NewLogSink creates the default logger-backed sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (*LogSink) fields(op Op) []any {
	fields := make([]any, 0, 6)
	if op.Operation != "" {
		fields = append(fields, logger.KeyOperation, op.Operation)
	}
	if op.Realm != "" {
		fields = append(fields, logger.KeyRealm, op.Realm)
	}
	if op.Invoker != "" {
		fields = append(fields, logger.KeyInvoker, op.Invoker)
	}
	return fields
}

func (s *LogSink) Info(op Op, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	logger.Info(msg, s.fields(op)...)
}

func (s *LogSink) Error(op Op, err error, label string) {
	fields := append(s.fields(op), logger.KeyError, err)
	if label == "" {
		label = "Operation failed"
	}
	logger.Error(label, fields...)
}
