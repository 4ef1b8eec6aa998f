package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearEnv blanks every override so ambient environment doesn't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"ANTHROPIC_API_KEY", "TAPESTRY_CONCEPT_URL", "TAPESTRY_CHAT_MODEL",
		"TAPESTRY_TASK_MODEL", "TAPESTRY_DB", "TAPESTRY_ADDR",
	} {
		t.Setenv(env, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != DefaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, DefaultDBPath)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
}

func TestLoadGlobalFile(t *testing.T) {
	clearEnv(t)
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	yml := "anthropic_api_key: from-file\nlisten_addr: \":4000\"\ndb_path: /tmp/t.sqlite3\n"
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile), []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnthropicAPIKey != "from-file" {
		t.Errorf("AnthropicAPIKey = %q, want from-file", cfg.AnthropicAPIKey)
	}
	if cfg.ListenAddr != ":4000" {
		t.Errorf("ListenAddr = %q, want :4000", cfg.ListenAddr)
	}
	if cfg.DBPath != "/tmp/t.sqlite3" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile),
		[]byte("anthropic_api_key: from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	t.Setenv("TAPESTRY_ADDR", ":9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnthropicAPIKey != "from-env" {
		t.Errorf("AnthropicAPIKey = %q, want env to win", cfg.AnthropicAPIKey)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.ListenAddr)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile),
		[]byte("{not yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load with invalid YAML did not error")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/data/t.sqlite3", filepath.Join(home, "data/t.sqlite3")},
		{"/abs/path.db", "/abs/path.db"},
		{"relative.db", "relative.db"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
