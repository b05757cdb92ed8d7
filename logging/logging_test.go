package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Director != "logs" {
		t.Errorf("expected Director 'logs', got '%s'", cfg.Director)
	}
	if cfg.Level != "info" {
		t.Errorf("expected Level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected Format 'json', got '%s'", cfg.Format)
	}
	if !cfg.LogInTerminal {
		t.Error("expected LogInTerminal to be true")
	}
	if cfg.MaxSize != 100 {
		t.Errorf("expected MaxSize 100, got %d", cfg.MaxSize)
	}
}

func TestConfigTransportLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{Level: tt.level}
			if got := cfg.TransportLevel(); got != tt.expected {
				t.Errorf("TransportLevel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfigApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{Level: "debug", MaxAge: 3}
	cfg.applyDefaults()

	if cfg.Level != "debug" || cfg.MaxAge != 3 {
		t.Errorf("explicit values overwritten: %+v", cfg)
	}
	if cfg.Format != "json" || cfg.MaxBackups != 10 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.LogInTerminal {
		t.Error("applyDefaults must not flip booleans")
	}
}

func TestNewLoggerWritesSplitFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Director = dir
	cfg.LogInTerminal = false

	logger := NewLogger(cfg)
	logger.Info("resized", zap.String("key", "a.jpg"))
	logger.Error("upload failed")
	_ = logger.Sync()

	info, err := os.ReadFile(filepath.Join(dir, "picpipe.log"))
	if err != nil {
		t.Fatalf("read picpipe.log: %v", err)
	}
	if !strings.Contains(string(info), `"message":"resized"`) || strings.Contains(string(info), "upload failed") {
		t.Errorf("unexpected picpipe.log content: %s", info)
	}

	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	if err != nil {
		t.Fatalf("read error.log: %v", err)
	}
	if !strings.Contains(string(errs), "upload failed") {
		t.Errorf("error.log missing error entry: %s", errs)
	}
}

func TestBuildCoresReportsUnusableDirector(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Director = filepath.Join(blocker, "logs")
	cfg.LogInTerminal = false

	cores, err := buildCores(cfg)
	if err == nil {
		t.Fatal("expected an error for a director under a regular file")
	}
	if len(cores) != 1 {
		t.Errorf("expected only the stderr fallback core, got %d", len(cores))
	}
	if !strings.Contains(err.Error(), cfg.Director) {
		t.Errorf("error should name the director: %v", err)
	}
}

func TestNopLogger(t *testing.T) {
	logger := Nop()
	logger.Info("discarded")
	if logger.Named("x").With(zap.Int("n", 1)) == nil {
		t.Fatal("Nop children should not be nil")
	}
}

func TestContextFunctions(t *testing.T) {
	ctx := context.Background()

	ctx = SetTraceID(ctx, "trace-123")
	if got := GetTraceID(ctx); got != "trace-123" {
		t.Errorf("GetTraceID() = %v, want %v", got, "trace-123")
	}

	ctx = SetJobID(ctx, "job-456")
	if got := GetJobID(ctx); got != "job-456" {
		t.Errorf("GetJobID() = %v, want %v", got, "job-456")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	ctx := SetJobID(SetTraceID(context.Background(), "trace-1"), "job-1")
	WithContext(logger, ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["trace_id"] != "trace-1" || fields["job_id"] != "job-1" {
		t.Errorf("missing context fields: %v", fields)
	}
}

func TestWithContextNilContext(t *testing.T) {
	logger := Nop()
	//nolint:staticcheck // nil context is part of the contract
	if WithContext(logger, nil) != logger {
		t.Error("WithContext(nil) should return the original logger")
	}
}

func TestContextLoggerStorage(t *testing.T) {
	logger := Nop()
	ctx := ToContext(context.Background(), logger)

	if FromContext(ctx).Zap() != logger.Zap() {
		t.Error("FromContext should return the stored logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should fall back to the global logger")
	}
}

func TestSetGlobal(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	logger := Nop()
	SetGlobal(logger)
	if Global().Zap() != logger.Zap() {
		t.Error("SetGlobal should replace the global logger")
	}
}

func TestLevelCounterHook(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	counts := map[string]int{}
	logger := WithHooks(FromZap(zap.New(core)), LevelCounter(zapcore.WarnLevel, func(level string) {
		counts[level]++
	}))

	logger.Info("ignored")
	logger.Warn("slow encode")
	logger.Error("codec failed")
	logger.With(zap.String("k", "v")).Error("again")

	if counts["warn"] != 1 || counts["error"] != 2 || counts["info"] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestHTTPMiddlewareLogsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	h := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			t.Error("request logger missing from context")
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["status"]; got != int64(http.StatusTeapot) {
		t.Errorf("status field = %v", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := RecoveryMiddleware(FromZap(zap.New(core)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/images/resize", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if logs.FilterMessage("http panic recovered").Len() != 1 {
		t.Error("panic not logged")
	}
}
