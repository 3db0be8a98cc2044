// Package logging builds the slog loggers used by the console binaries.
package logging
