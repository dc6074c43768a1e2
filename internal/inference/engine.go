package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samcharles93/glance/internal/imagecodec"
)

type Stats struct {
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

type Result struct {
	Text string
	// Prompt is the rendered chat template sent to the runtime.
	Prompt string
	Stats  Stats
}

// Engine pairs a loaded Model with its Processor and runs one prediction at a
// time per call. It holds no per-request state, so callers decide how many
// calls may run at once.
type Engine struct {
	model         Model
	proc          *Processor
	opts          GenerateOptions
	defaultPrompt string
}

func NewEngine(m Model, p *Processor, opts GenerateOptions, defaultPrompt string) *Engine {
	if opts.MaxNewTokens <= 0 || opts.MaxNewTokens > MaxNewTokens {
		opts.MaxNewTokens = MaxNewTokens
	}
	return &Engine{model: m, proc: p, opts: opts, defaultPrompt: defaultPrompt}
}

func (e *Engine) Model() Model          { return e.model }
func (e *Engine) Processor() *Processor { return e.proc }

// Run decodes a base64 image payload, renders the conversation, generates and
// returns the cleaned answer.
func (e *Engine) Run(ctx context.Context, payload, prompt string) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	img, err := imagecodec.DecodeRGB(payload)
	if err != nil {
		return nil, err
	}

	rendered, err := e.proc.ApplyChatTemplate(BuildConversation(prompt, e.defaultPrompt))
	if err != nil {
		return nil, err
	}
	in, err := e.proc.Preprocess(img, rendered)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	start := time.Now()
	out, err := safeGenerate(ctx, e.model, in, e.opts)
	if err != nil {
		return nil, err
	}

	stats := Stats{TokensGenerated: out.TokensGenerated, Duration: out.Duration}
	if stats.Duration == 0 {
		stats.Duration = time.Since(start)
	}
	if stats.Duration.Seconds() > 0 {
		stats.TPS = float64(stats.TokensGenerated) / stats.Duration.Seconds()
	}
	return &Result{
		Text:   ExtractAnswer(e.proc.Decode(out)),
		Prompt: rendered,
		Stats:  stats,
	}, nil
}

func (e *Engine) Close() error {
	if e == nil || e.model == nil {
		return nil
	}
	return e.model.Close()
}

func safeGenerate(ctx context.Context, m Model, in *Inputs, opts GenerateOptions) (out *Output, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Generate: %v", rec)
		}
	}()
	out, err = m.Generate(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("runtime returned no output")
	}
	return out, nil
}
