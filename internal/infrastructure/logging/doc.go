// Package logging provides structured logging for ThermoCloud Core.
//
// It wraps log/slog with level parsing, output selection, and default
// service attributes so every component logs in a consistent shape.
package logging
