// Package log constructs the process-wide zap.Logger used across every
// component.
package log

import "go.uber.org/zap"

// New builds a production logger, or a development logger (more verbose,
// human-readable) when debug is set. If construction fails — it can, if
// the process can't open its configured output paths — a no-op logger is
// returned so the caller always has a usable *zap.Logger rather than a
// construction failure of its own.
func New(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
