package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Hook is called for every entry that passes the core's level check.
type Hook func(entry zapcore.Entry)

type hookCore struct {
	zapcore.Core
	hooks []Hook
}

func (c *hookCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *hookCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	for _, hook := range c.hooks {
		hook(entry)
	}
	return c.Core.Write(entry, fields)
}

func (c *hookCore) With(fields []zapcore.Field) zapcore.Core {
	return &hookCore{Core: c.Core.With(fields), hooks: c.hooks}
}

// WithHooks returns a logger that runs hooks before each write.
func WithHooks(logger Logger, hooks ...Hook) Logger {
	if len(hooks) == 0 {
		return logger
	}
	zl := logger.Zap()
	return FromZap(zl.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &hookCore{Core: core, hooks: hooks}
	})))
}

// LevelCounter returns a Hook that reports each entry's level to inc.
// The server uses it to count warnings and errors in its metrics.
func LevelCounter(min zapcore.Level, inc func(level string)) Hook {
	return func(entry zapcore.Entry) {
		if entry.Level >= min {
			inc(entry.Level.String())
		}
	}
}
