// Package logging provides structured logging for hearthd.
//
// It wraps log/slog with configuration-driven format, level and output
// selection, and stamps every record with the service name and version.
// Core packages do not import this package directly; they accept a minimal
// Logger interface so they can be tested with a no-op implementation.
package logging
