// Package logging builds the zap loggers used by portbridge binaries.
//
// Stdout belongs to the frame protocol, so every logger built here writes to
// stderr regardless of profile.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Config selects the level and encoding of a logger.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoding instead of JSON
}

// New returns a sugared logger writing to stderr.
func New(cfg Config) (*zap.SugaredLogger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
		}
		zc.Level = lvl
	}
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l.Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
