// Package logging constructs the process-wide structured logger.
package logging

import "go.uber.org/zap"

// New builds a zap logger appropriate for env, which is typically the
// resolved APP_ENV config value ("production" or anything else for a
// development-friendly, console-encoded logger).
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// NewNop returns a logger that discards everything, used by tests that do
// not assert on log output.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
