package llamaserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/samcharles93/glance/internal/inference"
	"github.com/samcharles93/glance/internal/logger"
)

// Opener returns an inference.Opener that brings a model up on llama-server.
func Opener(cfg Config) inference.Opener {
	cfg = cfg.withDefaults()
	return func(ctx context.Context, spec inference.LoadSpec) (inference.Model, error) {
		return open(ctx, cfg, spec)
	}
}

func open(ctx context.Context, cfg Config, spec inference.LoadSpec) (*Model, error) {
	log := logger.FromContext(ctx).With("runtime", Name)
	m := &Model{
		name:   spec.Info.ID,
		device: spec.Plan.Device,
		url:    cfg.URL,
		client: cfg.HTTP,
	}

	if m.url == "" {
		port := cfg.Port
		if port == 0 {
			var err error
			if port, err = freePort(cfg.Host); err != nil {
				return nil, err
			}
		}
		args, err := buildArgs(cfg, spec, port)
		if err != nil {
			return nil, err
		}
		log.Info("starting server", "bin", cfg.Bin, "args", args)
		if m.proc, err = startProcess(cfg.Bin, args, cfg); err != nil {
			return nil, err
		}
		m.url = baseURL(cfg.Host, port)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	defer cancel()
	waitErr := func() error { return m.proc.waitErr }
	if err := waitHealthy(waitCtx, m.client, m.url, m.proc.exited(), waitErr); err != nil {
		m.proc.stop()
		return nil, err
	}
	log.Debug("server ready", "url", m.url)
	return m, nil
}

// Model is a model served by llama-server.
type Model struct {
	name   string
	device string
	url    string
	client *http.Client
	proc   *process

	closeOnce sync.Once
}

func (m *Model) Name() string             { return m.name }
func (m *Model) Device() string           { return m.device }
func (m *Model) ImagePlaceholder() string { return ImagePlaceholder }

type multimodalPrompt struct {
	PromptString   string   `json:"prompt_string"`
	MultimodalData []string `json:"multimodal_data,omitempty"`
}

type completionRequest struct {
	Prompt      multimodalPrompt `json:"prompt"`
	NPredict    int              `json:"n_predict"`
	Temperature *float64         `json:"temperature,omitempty"`
	TopK        *int             `json:"top_k,omitempty"`
	Stream      bool             `json:"stream"`
	CachePrompt bool             `json:"cache_prompt"`
}

type completionResponse struct {
	Content         string `json:"content"`
	TokensPredicted int    `json:"tokens_predicted"`
	Timings         struct {
		PredictedMS float64 `json:"predicted_ms"`
	} `json:"timings"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (m *Model) Generate(ctx context.Context, in *inference.Inputs, opts inference.GenerateOptions) (*inference.Output, error) {
	if err := inference.CheckDevice(m, in); err != nil {
		return nil, err
	}

	body := completionRequest{
		Prompt:      multimodalPrompt{PromptString: in.Prompt},
		NPredict:    opts.MaxNewTokens,
		CachePrompt: false,
	}
	for _, img := range in.Images {
		body.Prompt.MultimodalData = append(body.Prompt.MultimodalData, base64.StdEncoding.EncodeToString(img))
	}
	if opts.Greedy {
		temp, topK := 0.0, 1
		body.Temperature = &temp
		body.TopK = &topK
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url+"/completion", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s completion: read body: %w", Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("%s completion: %s (status %d)", Name, apiErr.Error.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s completion: status %d: %s", Name, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s completion: decode response: %w", Name, err)
	}
	elapsed := time.Since(start)
	if out.Timings.PredictedMS > 0 {
		elapsed = time.Duration(out.Timings.PredictedMS * float64(time.Millisecond))
	}
	return &inference.Output{
		Text:            out.Content,
		TokensGenerated: out.TokensPredicted,
		Duration:        elapsed,
	}, nil
}

// Close stops a spawned server. Attached servers are left running.
func (m *Model) Close() error {
	m.closeOnce.Do(func() {
		m.proc.stop()
	})
	return nil
}

var _ inference.Model = (*Model)(nil)
