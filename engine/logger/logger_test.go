package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	Logger().Warn("pool violation", zap.String("op", "get"))

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["op"]; got != "get" {
		t.Errorf("op field = %v, want get", got)
	}

	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("SetLogger(nil) must install a nop logger")
	}
	Logger().Warn("discarded")
	if logs.Len() != 1 {
		t.Errorf("nop logger wrote to the observer")
	}
}
