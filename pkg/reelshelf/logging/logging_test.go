package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewReplacesGlobal(t *testing.T) {
	log, err := New("warn", "production")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	if zap.L() != log {
		t.Error("Expected global logger to be replaced")
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Error("Expected info to be disabled at warn level")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", "development"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
