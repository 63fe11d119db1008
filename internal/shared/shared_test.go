package shared

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected log output to contain message, got %q", buf.String())
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == "" || b == "" {
		t.Fatal("expected non-empty IDs")
	}
	if a == b {
		t.Error("expected distinct IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected UUID string length 36, got %d", len(a))
	}
}

func TestTakenString(t *testing.T) {
	if TakenString(true) != "taken" {
		t.Error("expected 'taken'")
	}
	if TakenString(false) != "empty" {
		t.Error("expected 'empty'")
	}
}

func TestPercentString(t *testing.T) {
	if got := PercentString(1, 4); got != "25%" {
		t.Errorf("expected 25%%, got %q", got)
	}
	if got := PercentString(0, 0); got != "0%" {
		t.Errorf("expected 0%% for zero total, got %q", got)
	}
}
