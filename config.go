package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration from ~/.zenspace/config.json,
// overridden by environment variables.
type Config struct {
	GeminiAPIKey     string   `json:"gemini_api_key,omitempty"`
	EmbeddingModel   string   `json:"embedding_model,omitempty"`
	DetectModels     []string `json:"detect_models,omitempty"`
	ChatModels       []string `json:"chat_models,omitempty"`
	SuggestModels    []string `json:"suggest_models,omitempty"`
	ImageModels      []string `json:"image_models,omitempty"`
	ImagenModels     []string `json:"imagen_models,omitempty"`
	FrameDir         string   `json:"frame_dir,omitempty"`
	DataDir          string   `json:"data_dir,omitempty"`
	SpeechLocale     string   `json:"speech_locale,omitempty"`
	AutoScanSeconds  int      `json:"auto_scan_seconds,omitempty"`
	SpeechEnabled    bool     `json:"speech_enabled"`
}

// AutoScanInterval returns the configured auto-scan period.
func (c *Config) AutoScanInterval() time.Duration {
	if c.AutoScanSeconds <= 0 {
		return DefaultAutoScanInterval
	}
	return time.Duration(c.AutoScanSeconds) * time.Second
}

// LoadConfig reads configuration from ~/.zenspace/config.json, applies
// environment overrides, and fills defaults.
func LoadConfig(logger *log.Logger) (*Config, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	cfg := &Config{SpeechEnabled: true}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	configPath := filepath.Join(homeDir, ".zenspace", "config.json")

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config.json: %w", err)
		}
		logger.Printf("Loaded config from %s", configPath)
	case os.IsNotExist(err):
		logger.Printf("Config file not found at %s, using defaults and environment variables", configPath)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment overrides
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.GeminiAPIKey = key
	}
	if model := os.Getenv("ZENSPACE_EMBEDDING_MODEL"); model != "" {
		cfg.EmbeddingModel = model
	}
	if models := os.Getenv("ZENSPACE_DETECT_MODELS"); models != "" {
		cfg.DetectModels = splitModels(models)
	}
	if models := os.Getenv("ZENSPACE_CHAT_MODELS"); models != "" {
		cfg.ChatModels = splitModels(models)
	}
	if dir := os.Getenv("ZENSPACE_FRAME_DIR"); dir != "" {
		cfg.FrameDir = dir
	}
	if dir := os.Getenv("ZENSPACE_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if locale := os.Getenv("ZENSPACE_SPEECH_LOCALE"); locale != "" {
		cfg.SpeechLocale = locale
	}

	// Defaults
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if len(cfg.DetectModels) == 0 {
		cfg.DetectModels = DefaultDetectModels
	}
	if len(cfg.ChatModels) == 0 {
		cfg.ChatModels = DefaultChatModels
	}
	if len(cfg.SuggestModels) == 0 {
		cfg.SuggestModels = DefaultSuggestModels
	}
	if len(cfg.ImageModels) == 0 {
		cfg.ImageModels = DefaultImageModels
	}
	if len(cfg.ImagenModels) == 0 {
		cfg.ImagenModels = DefaultImagenModels
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(homeDir, ".zenspace")
	}
	if cfg.SpeechLocale == "" {
		cfg.SpeechLocale = "en-US"
	}

	return cfg, nil
}

// SaveConfig writes configuration to ~/.zenspace/config.json.
func SaveConfig(cfg *Config, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".zenspace")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create .zenspace directory: %w", err)
	}

	configPath := filepath.Join(dir, "config.json")
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config.json: %w", err)
	}

	logger.Printf("Saved config to %s", configPath)
	return nil
}

func splitModels(s string) []string {
	var models []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}
