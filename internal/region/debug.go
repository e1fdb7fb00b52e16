package region

import "sync/atomic"

// debugLoggingEnabled guards per-sample and per-event debug logs on the hot path.
var debugLoggingEnabled atomic.Bool

// EnableDebugLogging enables or disables hot-path debug logging.
// Called once from main after parsing config.LogLevel.
func EnableDebugLogging(enabled bool) {
	debugLoggingEnabled.Store(enabled)
}

// IsDebugEnabled returns true if hot-path debug logging is enabled.
func IsDebugEnabled() bool {
	return debugLoggingEnabled.Load()
}
