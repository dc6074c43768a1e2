// Package ollama runs vision-language models through an Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/samcharles93/glance/internal/backend"
	"github.com/samcharles93/glance/internal/inference"
	"github.com/samcharles93/glance/internal/logger"
)

const (
	Name = "ollama"

	DefaultURL = "http://127.0.0.1:11434"

	// ImagePlaceholder marks the first image of a raw prompt. Predictions
	// carry a single image.
	ImagePlaceholder = "[img-0]"

	DefaultQuantAccelerated = "Q4_K_M"
	DefaultQuantFallback    = "F16"
)

type Config struct {
	URL string
	// Model is an Ollama tag. When empty the GGUF repository of the
	// requested model is used through Ollama's hf.co/ namespace.
	Model            string
	QuantAccelerated string
	QuantFallback    string
	// Pull downloads the model when the server does not have it.
	Pull bool
	HTTP *http.Client
}

func (c Config) withDefaults() Config {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.QuantAccelerated == "" {
		c.QuantAccelerated = DefaultQuantAccelerated
	}
	if c.QuantFallback == "" {
		c.QuantFallback = DefaultQuantFallback
	}
	if c.HTTP == nil {
		c.HTTP = &http.Client{}
	}
	return c
}

// modelTag picks the Ollama tag to run for spec.
func modelTag(cfg Config, spec inference.LoadSpec) (string, error) {
	if cfg.Model != "" {
		return cfg.Model, nil
	}
	if spec.Info.GGUFRepo == "" {
		return "", fmt.Errorf("no GGUF conversion known for %q (set an ollama model tag)", spec.Info.ID)
	}
	quant := cfg.QuantFallback
	if spec.Plan.Accelerated() {
		quant = cfg.QuantAccelerated
	}
	return "hf.co/" + spec.Info.GGUFRepo + ":" + quant, nil
}

// Opener returns an inference.Opener that loads the model into Ollama and
// keeps it resident until Close.
func Opener(cfg Config) inference.Opener {
	cfg = cfg.withDefaults()
	return func(ctx context.Context, spec inference.LoadSpec) (inference.Model, error) {
		tag, err := modelTag(cfg, spec)
		if err != nil {
			return nil, err
		}
		m := &Model{
			name:   spec.Info.ID,
			tag:    tag,
			device: spec.Plan.Device,
			url:    cfg.URL,
			client: cfg.HTTP,
		}
		log := logger.FromContext(ctx).With("runtime", Name, "model", tag)

		err = m.preload(ctx)
		if isNotFound(err) && cfg.Pull {
			log.Info("pulling model")
			if err = m.pull(ctx); err == nil {
				err = m.preload(ctx)
			}
		}
		if err != nil {
			return nil, err
		}
		log.Debug("model resident")
		return m, nil
	}
}

// Model is a model resident in an Ollama server.
type Model struct {
	name   string
	tag    string
	device string
	url    string
	client *http.Client

	closeOnce sync.Once
	closeErr  error
}

func (m *Model) Name() string             { return m.name }
func (m *Model) Device() string           { return m.device }
func (m *Model) ImagePlaceholder() string { return ImagePlaceholder }

type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	NumGPU      *int     `json:"num_gpu,omitempty"`
}

type generateRequest struct {
	Model     string   `json:"model"`
	Prompt    string   `json:"prompt,omitempty"`
	Images    []string `json:"images,omitempty"`
	Raw       bool     `json:"raw,omitempty"`
	Stream    bool     `json:"stream"`
	KeepAlive *int     `json:"keep_alive,omitempty"`
	Options   *options `json:"options,omitempty"`
}

type generateResponse struct {
	Response     string `json:"response"`
	Done         bool   `json:"done"`
	EvalCount    int    `json:"eval_count"`
	EvalDuration int64  `json:"eval_duration"`
}

type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", Name, e.Message, e.Status)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

func (m *Model) Generate(ctx context.Context, in *inference.Inputs, opts inference.GenerateOptions) (*inference.Output, error) {
	if err := inference.CheckDevice(m, in); err != nil {
		return nil, err
	}

	req := generateRequest{
		Model:   m.tag,
		Prompt:  in.Prompt,
		Raw:     true,
		Options: m.options(opts),
	}
	for _, img := range in.Images {
		req.Images = append(req.Images, base64.StdEncoding.EncodeToString(img))
	}

	start := time.Now()
	var resp generateResponse
	if err := m.post(ctx, "/api/generate", req, &resp); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	if resp.EvalDuration > 0 {
		elapsed = time.Duration(resp.EvalDuration)
	}
	return &inference.Output{
		Text:            resp.Response,
		TokensGenerated: resp.EvalCount,
		Duration:        elapsed,
	}, nil
}

func (m *Model) options(opts inference.GenerateOptions) *options {
	o := &options{NumPredict: opts.MaxNewTokens}
	if opts.Greedy {
		temp, topK := 0.0, 1
		o.Temperature = &temp
		o.TopK = &topK
	}
	if m.device == backend.CPU {
		zero := 0
		o.NumGPU = &zero
	}
	return o
}

func (m *Model) preload(ctx context.Context) error {
	forever := -1
	req := generateRequest{Model: m.tag, KeepAlive: &forever}
	if m.device == backend.CPU {
		req.Options = m.options(inference.GenerateOptions{})
	}
	return m.post(ctx, "/api/generate", req, nil)
}

func (m *Model) pull(ctx context.Context) error {
	return m.post(ctx, "/api/pull", pullRequest{Model: m.tag}, nil)
}

// Close unloads the model from the server.
func (m *Model) Close() error {
	m.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zero := 0
		m.closeErr = m.post(ctx, "/api/generate", generateRequest{Model: m.tag, KeepAlive: &zero}, nil)
	})
	return m.closeErr
}

func (m *Model) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", Name, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", Name, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &statusError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", Name, path, err)
	}
	return nil
}

var _ inference.Model = (*Model)(nil)
