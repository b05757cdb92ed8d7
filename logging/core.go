package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func encoderConfig(config Config) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:    "message",
		LevelKey:      "level",
		TimeKey:       "time",
		NameKey:       "logger",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   config.ZapEncodeLevel(),
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format(config.TimeFormat))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// newEncoder returns a JSON or console encoder for config.Format.
func newEncoder(config Config) zapcore.Encoder {
	if config.Format == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig(config))
	}
	return zapcore.NewJSONEncoder(encoderConfig(config))
}

// rotatingFile returns a lumberjack writer for one log file.
func rotatingFile(config Config, name string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(config.Director, name),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true,
	})
}

// buildCores splits output into picpipe.log for entries below error and
// error.log for error and above, plus stderr when LogInTerminal is set.
// When the log directory cannot be created the file cores are skipped,
// stderr is used instead and the error is returned with the cores.
func buildCores(config Config) ([]zapcore.Core, error) {
	min := config.TransportLevel()
	enc := newEncoder(config)

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= min && l < zapcore.ErrorLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= min && l >= zapcore.ErrorLevel
	})

	var (
		cores  []zapcore.Core
		dirErr error
	)
	if config.Director != "" {
		if err := os.MkdirAll(config.Director, 0o755); err != nil {
			dirErr = fmt.Errorf("create log directory %s: %w", config.Director, err)
		} else {
			cores = append(cores,
				zapcore.NewCore(enc, rotatingFile(config, "picpipe.log"), low),
				zapcore.NewCore(enc.Clone(), rotatingFile(config, "error.log"), high),
			)
		}
	}
	if config.LogInTerminal || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.Lock(os.Stderr), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= min
		})))
	}
	return cores, dirErr
}
