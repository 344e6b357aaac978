package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func TestInitConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := InitConfig(path)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if cfg.Build.TopK != 10 {
		t.Errorf("TopK = %d, want default 10", cfg.Build.TopK)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file not created: %v", err)
	}

	// A second init loads the file it just wrote.
	again, err := InitConfig(path)
	if err != nil {
		t.Fatalf("re-init failed: %v", err)
	}
	if *again != *cfg {
		t.Errorf("reloaded config differs: %+v vs %+v", again, cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
max_limit = 5
max_prefix = 32

[build]
top_k = 6
max_error_rate = 0.2
terms_path = "/srv/terms.tsv"

[snapshot]
path = "/srv/terms.snap"
watch = false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.MaxLimit != 5 || cfg.Server.MaxPrefix != 32 {
		t.Errorf("server section not applied: %+v", cfg.Server)
	}
	if cfg.Build.TopK != 6 || cfg.Build.MaxErrorRate != 0.2 {
		t.Errorf("build section not applied: %+v", cfg.Build)
	}
	if cfg.Snapshot.Watch || cfg.Snapshot.Path != "/srv/terms.snap" {
		t.Errorf("snapshot section not applied: %+v", cfg.Snapshot)
	}
	// Unset keys keep their defaults.
	if cfg.Build.MaxTermLen != 256 {
		t.Errorf("MaxTermLen = %d, want default 256", cfg.Build.MaxTermLen)
	}
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	// The build section is valid TOML; the trailing line is not.
	content := `
[build]
top_k = 7
`
	if err := os.WriteFile(path, []byte(content+"\nnot valid toml ][\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	// Whatever could not be salvaged falls back to defaults.
	if cfg.Server.MaxLimit != 10 {
		t.Errorf("MaxLimit = %d, want default 10", cfg.Server.MaxLimit)
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Build.IntervalSecs = 60
	cfg.Server.MetricsAddr = ":9100"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Build.IntervalSecs != 60 || loaded.Server.MetricsAddr != ":9100" {
		t.Errorf("round-trip lost values: %+v", loaded)
	}
}
