package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Envs(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "test"} {
		if _, err := NewLogger(env); err != nil {
			t.Errorf("NewLogger(%q): %v", env, err)
		}
	}
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown env")
	}
	if _, err := NewLogger("local", "loud"); err == nil {
		t.Error("expected error for bad level")
	}
}

func TestConfigFor_ProdIsUnsampled(t *testing.T) {
	cfg, err := configFor("prod")
	if err != nil {
		t.Fatalf("configFor: %v", err)
	}
	if cfg.Sampling != nil {
		t.Error("prod logger must not sample entries")
	}
	if cfg.Encoding != "json" {
		t.Errorf("encoding = %q, want json", cfg.Encoding)
	}
}

func TestCritical(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Critical(zap.New(core), "index write lost", zap.String("entity", "unit"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.ErrorLevel {
		t.Errorf("level = %v", e.Level)
	}
	ctx := e.ContextMap()
	if ctx["severity"] != SeverityCritical || ctx["entity"] != "unit" {
		t.Errorf("fields = %v", ctx)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background(), nil) == nil {
		t.Fatal("expected nop logger")
	}
	fallback := zap.NewExample()
	if FromContext(context.Background(), fallback) != fallback {
		t.Error("fallback not used for a bare context")
	}
	l := zap.NewExample()
	if FromContext(ContextWithLogger(context.Background(), l), fallback) != l {
		t.Error("logger not round-tripped through context")
	}
}

func TestWith_LayersFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := With(context.Background(), base, zap.String("request_id", "r-1"))
	ctx = With(ctx, nil, zap.String("event_type", "unit.updated"))
	FromContext(ctx, nil).Info("handled")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r-1" || fields["event_type"] != "unit.updated" {
		t.Errorf("fields = %v", fields)
	}
}
