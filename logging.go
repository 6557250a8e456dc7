// Package-level configuration for structured logging.
//
// The runtime logs through a logiface logger, allowing external integration
// with any supported sink (stumpy, zerolog, logrus, slog). The default is a
// nil logger, which logiface treats as disabled with no overhead.

package coroutine

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

var globalLogger atomic.Pointer[logiface.Logger[logiface.Event]]

// SetLogger sets the package-level structured logger. A nil logger disables
// logging. Safe to call concurrently, though it is intended to be called
// once, at startup.
func SetLogger(l *logiface.Logger[logiface.Event]) {
	globalLogger.Store(l)
}

// logger returns the current package-level logger, which may be nil (all
// logiface builder methods are no-ops on a nil logger).
func logger() *logiface.Logger[logiface.Event] {
	return globalLogger.Load()
}
