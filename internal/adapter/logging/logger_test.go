package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewConfigLevels(t *testing.T) {
	if got := newConfig(false).Level.Level(); got != zapcore.InfoLevel {
		t.Errorf("production level = %v, want info", got)
	}
	if got := newConfig(true).Level.Level(); got != zapcore.DebugLevel {
		t.Errorf("debug level = %v, want debug", got)
	}
}

func TestNewZapLogger(t *testing.T) {
	for _, debug := range []bool{false, true} {
		l := NewZapLogger(debug)
		if l == nil || l.logger == nil {
			t.Fatalf("NewZapLogger(%v) returned unusable logger", debug)
		}
	}
}
