package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
model: HuggingFaceTB/SmolVLM-500M-Instruct
runtime: ollama
backend: cpu
max_concurrent: 2
max_new_tokens: 64
default_prompt: Write alt text for this image.
load_timeout: 90s
ollama_pull: true
log_level: debug
server_address: 0.0.0.0:9000
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Model != "HuggingFaceTB/SmolVLM-500M-Instruct" || cfg.Runtime != "ollama" || cfg.Backend != "cpu" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.MaxConcurrent == nil || *cfg.MaxConcurrent != 2 {
		t.Fatalf("unexpected max_concurrent %v", cfg.MaxConcurrent)
	}
	if cfg.LoadTimeout == nil || *cfg.LoadTimeout != 90*time.Second {
		t.Fatalf("unexpected load_timeout %v", cfg.LoadTimeout)
	}
	if cfg.OllamaPull == nil || !*cfg.OllamaPull {
		t.Fatalf("unexpected ollama_pull %v", cfg.OllamaPull)
	}
	if cfg.MaxImageEdge != nil {
		t.Fatalf("max_image_edge should be unset, got %d", *cfg.MaxImageEdge)
	}
}

func TestLoadConfigMissingAndMalformed(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config should not fail: %v", err)
	}
	if cfg.Model != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
	if _, err := LoadConfig(writeConfig(t, "max_concurrent: [1, 2")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv(envConfigPath, "/etc/glance.yaml")
	if got := configPath(); got != "/etc/glance.yaml" {
		t.Fatalf("got %q, want %q", got, "/etc/glance.yaml")
	}

	t.Setenv(envConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := configPath(); got != filepath.Join("/tmp/xdg", "glance", "config.yaml") {
		t.Fatalf("unexpected default path %q", got)
	}
}

// TestApplyModelConfigRespectsFlags runs a command so IsSet reflects the
// parsed arguments. Not parallel: flag destinations are package globals.
func TestApplyModelConfigRespectsFlags(t *testing.T) {
	two, edge := int64(2), int64(512)
	cfg := Config{
		Model:         "HuggingFaceTB/SmolVLM-500M-Instruct",
		Backend:       "cpu",
		MaxConcurrent: &two,
		MaxImageEdge:  &edge,
		ServerAddress: "0.0.0.0:9000",
	}

	var addr string
	cmd := &cli.Command{
		Name: "serve",
		Flags: append(modelFlags(), &cli.StringFlag{
			Name:        "addr",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, cfg, &addr)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"serve", "--backend", "cuda"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if backendName != "cuda" {
		t.Fatalf("explicit flag overridden: backend = %q", backendName)
	}
	if modelID != cfg.Model {
		t.Fatalf("got model %q, want %q", modelID, cfg.Model)
	}
	if maxConcurrent != 2 || maxImageEdge != 512 {
		t.Fatalf("got max_concurrent=%d max_image_edge=%d", maxConcurrent, maxImageEdge)
	}
	if addr != "0.0.0.0:9000" {
		t.Fatalf("got addr %q", addr)
	}
}
