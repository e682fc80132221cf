package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		env      string
		override string
		want     zapcore.Level
	}{
		{"prod", "", zapcore.InfoLevel},
		{"local", "", zapcore.DebugLevel},
		{"test", "", zapcore.WarnLevel},
		{"dev", "error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			l, err := NewLogger(tt.env, tt.override)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !l.Core().Enabled(tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("level %s should be disabled", tt.want-1)
			}
		})
	}
}

func TestNewLogger_Errors(t *testing.T) {
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown env")
	}
	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestContextLogger(t *testing.T) {
	if _, ok := Lookup(context.Background()); ok {
		t.Error("empty context must not carry a logger")
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext must never return nil")
	}

	l := zaptest.NewLogger(t).With(zap.String("request_id", "r1"))
	ctx := ContextWithLogger(context.Background(), l)
	if got, ok := Lookup(ctx); !ok || got != l {
		t.Error("expected stored logger")
	}
	if FromContext(ctx) != l {
		t.Error("expected stored logger from FromContext")
	}
}
