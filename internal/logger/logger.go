package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op logger until Init is called
// so packages can log unconditionally, including from tests.
var Log = zap.NewNop()

// Init installs a development logger at Info level.
func Init() {
	InitWithLevel(zapcore.InfoLevel)
}

// InitWithLevel installs a development logger writing console-encoded
// entries at the given level or above.
func InitWithLevel(level zapcore.Level) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	l, err := cfg.Build()
	if err != nil {
		// Fall back to the stock development logger rather than running blind.
		l, _ = zap.NewDevelopment()
	}
	Log = l
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}
