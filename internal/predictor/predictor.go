// Package predictor owns the loaded model and runs predictions on a fixed
// pool of workers.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/glance/internal/backend"
	"github.com/samcharles93/glance/internal/imagecodec"
	"github.com/samcharles93/glance/internal/inference"
	"github.com/samcharles93/glance/internal/logger"
	"github.com/samcharles93/glance/internal/metrics"
)

// DefaultMaxConcurrent serializes predictions.
const DefaultMaxConcurrent = 1

var ErrClosed = errors.New("predictor is closed")

type Config struct {
	ModelID  string
	ModelDir string
	GGUFPath string
	// Runtime names a runtime registered with inference.Register.
	Runtime string
	// Open replaces the runtime lookup when set.
	Open    inference.Opener
	Backend string
	// Devices reports visible accelerators. Defaults to backend.Detect.
	Devices func() int

	// MaxConcurrent is the number of predictions allowed to run at once.
	// Further calls wait, without limit, for a free worker.
	MaxConcurrent int
	MaxNewTokens  int
	DefaultPrompt string
	ChatTemplate  string
	MaxImageEdge  int

	Metrics *metrics.Metrics
}

// Request is one prediction input. ImageB64 may carry a data URI header.
type Request struct {
	ImageB64 string `json:"image_b64"`
	Prompt   string `json:"prompt,omitempty"`
}

type Result struct {
	ID     string
	Output string
	Stats  inference.Stats
}

// Predictor is a loaded model ready to serve. The only way to obtain one is
// Load, so a Predictor never exists without its model.
type Predictor struct {
	engine  *inference.Engine
	info    inference.ModelInfo
	plan    backend.Plan
	workers int
	metrics *metrics.Metrics

	pool *pool
}

// Load selects a backend plan, brings the model up and starts the worker
// pool. Errors are fatal: nothing is retried.
func Load(ctx context.Context, cfg Config) (*Predictor, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	devices := cfg.Devices
	if devices == nil {
		devices = backend.Detect
	}
	plan, err := backend.Select(cfg.Backend, devices())
	if err != nil {
		return nil, err
	}
	workers := cfg.MaxConcurrent
	if workers <= 0 {
		workers = DefaultMaxConcurrent
	}
	maxNew := cfg.MaxNewTokens
	if maxNew <= 0 || maxNew > inference.MaxNewTokens {
		maxNew = inference.MaxNewTokens
	}

	log.Info("loading model", "model", modelName(cfg.ModelID), "runtime", cfg.Runtime, "plan", plan.String())
	loader := inference.Loader{
		ModelID:          cfg.ModelID,
		ModelDir:         cfg.ModelDir,
		GGUFPath:         cfg.GGUFPath,
		Runtime:          cfg.Runtime,
		Open:             cfg.Open,
		ChatTemplatePath: cfg.ChatTemplate,
		MaxImageEdge:     cfg.MaxImageEdge,
		Slots:            workers,
		DefaultPrompt:    cfg.DefaultPrompt,
		Generate:         inference.GenerateOptions{MaxNewTokens: maxNew, Greedy: true},
	}
	res, err := loader.Load(ctx, plan)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	cfg.Metrics.ObserveLoad(elapsed, workers)
	log.Info("model loaded",
		"model", res.Info.ID,
		"device", plan.Device,
		"template", res.TemplateSource,
		"template_family", res.TemplateFamily,
		"workers", workers,
		"elapsed", elapsed.Round(time.Millisecond),
	)

	p := &Predictor{
		engine:  res.Engine,
		info:    res.Info,
		plan:    plan,
		workers: workers,
		metrics: cfg.Metrics,
	}
	p.pool = newPool(workers)
	return p, nil
}

func modelName(id string) string {
	if id == "" {
		return inference.DefaultModelID
	}
	return id
}

func (p *Predictor) Info() inference.ModelInfo { return p.info }
func (p *Predictor) Plan() backend.Plan        { return p.plan }
func (p *Predictor) Workers() int              { return p.workers }

// Predict returns the model's answer for req.
func (p *Predictor) Predict(ctx context.Context, req Request) (string, error) {
	res, err := p.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// Run is Predict with an id and generation stats. ctx is honored only while
// the call waits for a worker; once started the prediction runs to
// completion.
func (p *Predictor) Run(ctx context.Context, req Request) (*Result, error) {
	id := "pred_" + uuid.NewString()
	log := logger.FromContext(ctx).With("prediction", id)
	queued := time.Now()

	var (
		out    *inference.Result
		runErr error
	)
	p.metrics.Enqueued()
	started, err := p.pool.do(ctx, func() {
		wait := time.Since(queued)
		p.metrics.Started(wait)
		start := time.Now()

		jobCtx := logger.WithContext(context.WithoutCancel(ctx), log)
		out, runErr = p.engine.Run(jobCtx, req.ImageB64, req.Prompt)

		elapsed := time.Since(start)
		if runErr != nil {
			p.metrics.Finished(classify(runErr), elapsed, 0)
			log.Warn("prediction failed", "error", runErr, "elapsed", elapsed.Round(time.Millisecond))
			return
		}
		p.metrics.Finished(metrics.ResultOK, elapsed, out.Stats.TokensGenerated)
		log.Debug("prediction done",
			"queue_wait", wait.Round(time.Millisecond),
			"elapsed", elapsed.Round(time.Millisecond),
			"tokens", out.Stats.TokensGenerated,
			"chars", len(out.Text),
		)
	})
	switch {
	case err != nil && !started:
		p.metrics.Abandoned()
		return nil, err
	case err != nil:
		p.metrics.Finished(metrics.ResultModelError, time.Since(queued), 0)
		log.Error("prediction panicked", "error", err)
		return nil, err
	case runErr != nil:
		return nil, runErr
	}
	return &Result{ID: id, Output: out.Text, Stats: out.Stats}, nil
}

func classify(err error) string {
	if errors.Is(err, imagecodec.ErrInvalidBase64) || errors.Is(err, imagecodec.ErrInvalidImage) {
		return metrics.ResultInputError
	}
	return metrics.ResultModelError
}

// Close stops accepting predictions, waits for running ones and releases
// the model.
func (p *Predictor) Close() error {
	if !p.pool.close() {
		return nil
	}
	if err := p.engine.Close(); err != nil {
		return fmt.Errorf("close model: %w", err)
	}
	return nil
}
