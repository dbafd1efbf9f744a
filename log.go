package devotional

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu       sync.RWMutex
	logger      = newLogger(false)
	verboseMode bool
)

func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetVerbose sets the global verbose mode
func SetVerbose(verbose bool) {
	logMu.Lock()
	defer logMu.Unlock()
	verboseMode = verbose
	logger = newLogger(verbose)
}

// SetLogger replaces the package logger, e.g. with zap.NewNop() in tests.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l.Sugar()
}

// Logger returns the package logger
func Logger() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// VerboseLog logs only when verbose mode is enabled
func VerboseLog(msg string, keysAndValues ...interface{}) {
	logMu.RLock()
	defer logMu.RUnlock()
	if verboseMode {
		logger.Debugw(msg, keysAndValues...)
	}
}

// Sync flushes buffered log entries
func Sync() {
	_ = Logger().Sync()
}
