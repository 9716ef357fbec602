package logger

import (
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]bool{
		"cbr_rates":      true,
		"binance_signed": true,
		"pool_stats":     true,
		"dashboard":      false,
	}
	for component, want := range cases {
		w, e := classify(component)
		if got := w != nil && e != nil; got != want {
			t.Errorf("classify(%q): tracked=%v, want %v", component, got, want)
		}
	}
}
