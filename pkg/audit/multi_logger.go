package audit

import (
	"context"
)

// MultiLogger fans out each record to several loggers, for example the
// database store plus a structured log sink.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to every destination.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Record delivers the record to all loggers. Delivery continues past
// failures and the first error is returned.
func (m *MultiLogger) Record(ctx context.Context, rec *Record) error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Record(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
