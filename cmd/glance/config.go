package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfigPath = "GLANCE_CONFIG"

// Config represents the glance configuration file
// ($XDG_CONFIG_HOME/glance/config.yaml). Numeric fields are pointers so we
// can distinguish "not set" from zero values.
type Config struct {
	Model    string `yaml:"model"`
	ModelDir string `yaml:"model_dir"`
	Runtime  string `yaml:"runtime"`
	Backend  string `yaml:"backend"`

	MaxConcurrent *int64         `yaml:"max_concurrent"`
	MaxNewTokens  *int64         `yaml:"max_new_tokens"`
	DefaultPrompt string         `yaml:"default_prompt"`
	ChatTemplate  string         `yaml:"chat_template"`
	MaxImageEdge  *int64         `yaml:"max_image_edge"`
	LoadTimeout   *time.Duration `yaml:"load_timeout"`

	// Runtimes
	LlamaServerBin string `yaml:"llama_server_bin"`
	LlamaServerURL string `yaml:"llama_server_url"`
	GGUF           string `yaml:"gguf"`
	MMProj         string `yaml:"mmproj"`
	OllamaURL      string `yaml:"ollama_url"`
	OllamaModel    string `yaml:"ollama_model"`
	OllamaPull     *bool  `yaml:"ollama_pull"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	if path := strings.TrimSpace(os.Getenv(envConfigPath)); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "glance", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file yields a zero
// Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyLogConfig applies config file defaults to the logging flags.
func applyLogConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyModelConfig applies config file defaults to the model and runtime
// flags when the corresponding flag was not explicitly set.
func applyModelConfig(c *cli.Command, cfg Config) {
	setString := func(flag, value string, dst *string) {
		if value != "" && !c.IsSet(flag) {
			*dst = value
		}
	}
	setInt := func(flag string, value *int64, dst *int64) {
		if value != nil && !c.IsSet(flag) {
			*dst = *value
		}
	}

	setString("model", cfg.Model, &modelID)
	setString("model-dir", cfg.ModelDir, &modelDir)
	setString("runtime", cfg.Runtime, &runtimeName)
	setString("backend", cfg.Backend, &backendName)
	setString("default-prompt", cfg.DefaultPrompt, &defaultPrompt)
	setString("chat-template", cfg.ChatTemplate, &chatTemplate)
	setString("llama-server-bin", cfg.LlamaServerBin, &llamaServerBin)
	setString("llama-server-url", cfg.LlamaServerURL, &llamaServerURL)
	setString("gguf", cfg.GGUF, &ggufModelPath)
	setString("mmproj", cfg.MMProj, &ggufMMProjPath)
	setString("ollama-url", cfg.OllamaURL, &ollamaURL)
	setString("ollama-model", cfg.OllamaModel, &ollamaModel)
	setInt("max-concurrent", cfg.MaxConcurrent, &maxConcurrent)
	setInt("max-new-tokens", cfg.MaxNewTokens, &maxNewTokens)
	setInt("max-image-edge", cfg.MaxImageEdge, &maxImageEdge)
	if cfg.LoadTimeout != nil && !c.IsSet("load-timeout") {
		loadTimeout = *cfg.LoadTimeout
	}
	if cfg.OllamaPull != nil && !c.IsSet("ollama-pull") {
		ollamaPull = *cfg.OllamaPull
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyModelConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
