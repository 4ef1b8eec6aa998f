// Package config handles global configuration and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the merged server configuration: the YAML global config file,
// overridden by environment variables, overridden by flags at the command
// layer.
type Config struct {
	// AnthropicAPIKey authenticates concept-service requests.
	AnthropicAPIKey string `yaml:"anthropic_api_key,omitempty"`

	// ConceptBaseURL overrides the concept-service endpoint.
	ConceptBaseURL string `yaml:"concept_base_url,omitempty"`

	// ChatModel and TaskModel override the concept-service models.
	ChatModel string `yaml:"chat_model,omitempty"`
	TaskModel string `yaml:"task_model,omitempty"`

	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path,omitempty"`

	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "tapestry"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// DefaultDBPath is used when nothing configures a database location.
	DefaultDBPath = "tapestry.sqlite3"
	// DefaultListenAddr is used when nothing configures an address.
	DefaultListenAddr = "localhost:3000"
)

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/tapestry/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// Load reads the global config file, then applies environment overrides.
// A missing config file is not an error; a present-but-invalid one is.
// A .env file in the working directory is loaded first for development.
func Load() (*Config, error) {
	// Ignore absence; .env is a development convenience.
	_ = godotenv.Load()

	cfg := &Config{}
	if path := GlobalConfigPath(); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fine
		case err != nil:
			return nil, fmt.Errorf("reading global config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	} else {
		cfg.DBPath = ExpandPath(cfg.DBPath)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	for env, target := range map[string]*string{
		"ANTHROPIC_API_KEY":    &cfg.AnthropicAPIKey,
		"TAPESTRY_CONCEPT_URL": &cfg.ConceptBaseURL,
		"TAPESTRY_CHAT_MODEL":  &cfg.ChatModel,
		"TAPESTRY_TASK_MODEL":  &cfg.TaskModel,
		"TAPESTRY_DB":          &cfg.DBPath,
		"TAPESTRY_ADDR":        &cfg.ListenAddr,
	} {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
