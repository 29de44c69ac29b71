// Package logging wraps log/slog with the attribute helpers, component
// loggers, and context field carriage used across discmapper.
package logging
