package main

import (
	"os"

	"github.com/nickelm/tapestry/internal/concept"
	"github.com/nickelm/tapestry/internal/config"
	"github.com/nickelm/tapestry/internal/store"
)

// mustLoadConfig loads the merged configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(outputError(ExitConfigError, "loading config: %v", err))
	}
	return cfg
}

// mustOpenStore opens (or creates) the configured database, exits on error.
func mustOpenStore(cfg *config.Config) *store.DB {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		os.Exit(outputError(ExitError, "opening database %s: %v", cfg.DBPath, err))
	}
	return db
}

// conceptClient builds a concept-service client from the configuration.
func conceptClient(cfg *config.Config) *concept.Client {
	var opts []concept.ClientOption
	if cfg.AnthropicAPIKey != "" {
		opts = append(opts, concept.WithAPIKey(cfg.AnthropicAPIKey))
	}
	if cfg.ConceptBaseURL != "" {
		opts = append(opts, concept.WithBaseURL(cfg.ConceptBaseURL))
	}
	if cfg.ChatModel != "" || cfg.TaskModel != "" {
		chat, task := cfg.ChatModel, cfg.TaskModel
		if chat == "" {
			chat = concept.DefaultChatModel
		}
		if task == "" {
			task = concept.DefaultTaskModel
		}
		opts = append(opts, concept.WithModels(chat, task))
	}
	return concept.NewClient(opts...)
}
