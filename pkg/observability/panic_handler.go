package observability

import (
	"runtime/debug"
)

// RecoverPanic is deferred at the top of long-lived goroutines so a panic
// in one of them is logged with its stack instead of killing the process.
// The panic is swallowed, not re-raised.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logger.WithFields(map[string]interface{}{
			"panic": r,
			"where": where,
			"stack": string(debug.Stack()),
		}).Error("panic recovered")
	}
}
