// Package logger holds the process-wide zap logger shared by every engine package.
// By default nothing is logged; call SetLogger to enable output.
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// loggerPtr stores the active logger. Accessed atomically so SetLogger can race with logging.
var loggerPtr atomic.Pointer[zap.Logger]

func init() {
	loggerPtr.Store(zap.NewNop())
}

// SetLogger configures the logger for the engine and all its sub-packages.
// Pass nil to restore the default silent logger.
//
// Log levels used by the engine:
//   - Debug: batch creation, pipeline state creation, buffer growth
//   - Info: lifecycle events and profiler output
//   - Warn: pool contract violations in debug mode
//   - Error: backend failures that abort a frame
//
// Parameters:
//   - l: the logger to install, or nil for a nop logger
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
//
// Returns:
//   - *zap.Logger: the active logger, never nil
func Logger() *zap.Logger {
	return loggerPtr.Load()
}
