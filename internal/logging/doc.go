// Package logging provides structured logging for the serlink tools.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used by the settings server and CLI.
//
// # Log Levels
//
//   - Debug: page renders, form decoding details
//   - Info: requests, settings updates, mDNS registration
//   - Warn: degraded renders (unknown enum value), rejected submissions
//   - Error: startup failures, store write failures
//
// # Structured Logging
//
//	logging.Info("Settings updated",
//	    zap.String("source", "form"),
//	    zap.Strings("fields", []string{"ip", "bd_0"}),
//	)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and SERLINK_LOG_LEVEL is unset the logger is a
// no-op, which keeps CLI output clean.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
