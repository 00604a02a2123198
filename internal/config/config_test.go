package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, name, data string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return NewManager(path, zerolog.Nop())
}

func TestLoadYAML(t *testing.T) {
	m := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
lock:
  addr: "127.0.0.1:9321"
  retry_interval: 5s
storage:
  path: ./data
registry:
  path: ./data/clients.json
source:
  path: ./feed
notifier:
  vocabulary: ./vocabulary.yaml
  sends_per_sec: 3
`)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Lock.Addr != "127.0.0.1:9321" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Notifier.SendsPerSec != 3 {
		t.Fatalf("unexpected notifier config: %+v", cfg.Notifier)
	}
	d, err := cfg.LockRetryInterval(30 * time.Second)
	if err != nil || d != 5*time.Second {
		t.Fatalf("retry interval: %v (%v)", d, err)
	}
	if m.Get() != cfg {
		t.Fatal("Get must return the committed config")
	}
}

func TestLoadJSON(t *testing.T) {
	m := writeConfig(t, "config.json", `{"registry": {"path": "./c.json"}, "notifier": {"vocabulary": "./v.json"}}`)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Registry.Path != "./c.json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	// Defaults fill the gaps.
	if cfg.Storage.Driver != "file" || cfg.Notifier.SendsPerSec != 1 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	m := writeConfig(t, "config.yaml", "registry:\n  path: ./c.json\nnotifierr:\n  vocabulary: ./v\n")
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestParseDuration(t *testing.T) {
	if _, err := ParseDuration("x", "banana", 0); err == nil {
		t.Fatal("expected error for junk duration")
	}
	if _, err := ParseDuration("x", "-3s", 0); err == nil {
		t.Fatal("expected error for negative duration")
	}
	d, err := ParseDuration("x", "", 7*time.Second)
	if err != nil || d != 7*time.Second {
		t.Fatalf("default not applied: %v (%v)", d, err)
	}
	d, err = ParseDuration("x", "250ms", 7*time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("explicit value must win over default: %v (%v)", d, err)
	}
}
