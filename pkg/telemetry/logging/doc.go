// Package logging configures the process-wide structured logger.
//
// Everything in this module logs through log/slog with component-scoped
// loggers; this package only decides level, format, and destination.
package logging
