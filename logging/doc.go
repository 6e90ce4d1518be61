// Package logging provides a tiny abstraction over structured loggers so the
// execution core can depend on a minimal interface (Logger) while deployments
// plug in slog, zap or anything else. Credentials never reach this layer in
// raw form; provider configuration masks them before logging.
package logging
