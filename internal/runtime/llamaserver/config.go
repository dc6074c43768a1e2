// Package llamaserver runs vision-language models through llama.cpp's
// llama-server, either spawned as a child process or already running.
package llamaserver

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samcharles93/glance/internal/backend"
	"github.com/samcharles93/glance/internal/inference"
)

const (
	Name = "llama-server"

	// ImagePlaceholder is where llama-server splices each image's embeddings.
	ImagePlaceholder = "<__media__>"

	DefaultBin              = "llama-server"
	DefaultHost             = "127.0.0.1"
	DefaultQuantAccelerated = "Q4_K_M"
	DefaultQuantFallback    = "F16"
	DefaultLoadTimeout      = 10 * time.Minute
)

type Config struct {
	// URL attaches to a running server instead of spawning one.
	URL  string
	Bin  string
	Host string
	// Port 0 picks a free port.
	Port int

	// QuantAccelerated and QuantFallback select the GGUF file fetched with
	// -hf for each load plan.
	QuantAccelerated string
	QuantFallback    string

	// ModelPath and MMProjPath load local GGUF files instead of a repository.
	ModelPath  string
	MMProjPath string
	ExtraArgs  []string

	LoadTimeout time.Duration
	// Output receives the server's stdout and stderr.
	Output io.Writer
	HTTP   *http.Client
}

func (c Config) withDefaults() Config {
	if c.Bin == "" {
		c.Bin = DefaultBin
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.QuantAccelerated == "" {
		c.QuantAccelerated = DefaultQuantAccelerated
	}
	if c.QuantFallback == "" {
		c.QuantFallback = DefaultQuantFallback
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = DefaultLoadTimeout
	}
	if c.Output == nil {
		c.Output = io.Discard
	}
	if c.HTTP == nil {
		c.HTTP = &http.Client{}
	}
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	return c
}

// buildArgs maps a load plan onto llama-server flags. The accelerated plan
// offloads every layer and lets llama.cpp split them across visible devices;
// the fallback plan keeps all weights in system memory.
func buildArgs(cfg Config, spec inference.LoadSpec, port int) ([]string, error) {
	var args []string
	switch {
	case cfg.ModelPath != "":
		args = append(args, "-m", cfg.ModelPath)
		if cfg.MMProjPath != "" {
			args = append(args, "--mmproj", cfg.MMProjPath)
		}
	case spec.Info.GGUFRepo != "":
		quant := cfg.QuantFallback
		if spec.Plan.Accelerated() {
			quant = cfg.QuantAccelerated
		}
		args = append(args, "-hf", spec.Info.GGUFRepo+":"+quant)
	default:
		return nil, fmt.Errorf("no GGUF conversion known for %q (set a local model path)", spec.Info.ID)
	}

	args = append(args, "--host", cfg.Host, "--port", strconv.Itoa(port))
	if spec.Plan.Device == backend.CUDA {
		args = append(args, "-ngl", "999", "--split-mode", "layer")
	} else {
		args = append(args, "-ngl", "0", "--device", "none")
	}
	args = append(args, "--parallel", strconv.Itoa(max(spec.Slots, 1)))
	args = append(args, cfg.ExtraArgs...)
	return args, nil
}
