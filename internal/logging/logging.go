// Package logging builds the zap logger shared by every component.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a development logger at debug level when verbose is set, and
// a console logger at warn level otherwise so that diagnostics do not
// interleave with progress output.
func New(verbose bool) (*zap.Logger, error) {
	return newConfig(verbose).Build()
}

// NewFile is New appending to the file at path instead of stderr, for
// full-screen terminal interfaces.
func NewFile(path string, verbose bool) (*zap.Logger, error) {
	cfg := newConfig(verbose)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

// Must is New for binaries: it falls back to a no-op logger instead of
// failing.
func Must(verbose bool) *zap.Logger {
	log, err := New(verbose)
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func newConfig(verbose bool) zap.Config {
	if verbose {
		return zap.NewDevelopmentConfig()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	return cfg
}
