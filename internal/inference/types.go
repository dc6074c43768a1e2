package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samcharles93/glance/internal/backend"
)

// MaxNewTokens caps generation for every prediction. Lower caps may be
// configured; higher ones are clamped.
const MaxNewTokens = 200

var (
	ErrDeviceMismatch = errors.New("device mismatch")
	ErrNoChatTemplate = errors.New("no chat template for model")
)

// Model is the external model component: weights loaded by a runtime that
// owns tokenization, the vision encoder and the generation loop.
type Model interface {
	Name() string
	// Device reports where the weights live (backend.CPU or backend.CUDA).
	Device() string
	// ImagePlaceholder is the marker the runtime expects in the prompt text
	// for each image. Empty means the chat template's own token is used.
	ImagePlaceholder() string
	Generate(ctx context.Context, in *Inputs, opts GenerateOptions) (*Output, error)
	Close() error
}

// Inputs are prompt text and images already bound to a compute device.
type Inputs struct {
	Prompt string
	// Images holds PNG encoded RGB images in prompt order.
	Images [][]byte
	Device string
}

type GenerateOptions struct {
	MaxNewTokens int
	// Greedy disables sampling: the most likely token is always taken.
	Greedy bool
}

func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{MaxNewTokens: MaxNewTokens, Greedy: true}
}

// Output is the raw decoded sequence returned by a runtime. Text may still
// contain special control tokens.
type Output struct {
	Text            string
	TokensGenerated int
	Duration        time.Duration
}

// LoadSpec is everything a runtime needs to bring a model up.
type LoadSpec struct {
	Info ModelInfo
	Plan backend.Plan
	// Slots is the number of generations the runtime must be able to run at once.
	Slots int
}

// Opener loads a model for a runtime. Errors are fatal to the caller.
type Opener func(ctx context.Context, spec LoadSpec) (Model, error)

// CheckDevice fails when inputs were prepared for a device other than the
// one holding the model weights.
func CheckDevice(m Model, in *Inputs) error {
	if in.Device != m.Device() {
		return fmt.Errorf("%w: inputs on %q, model %s on %q", ErrDeviceMismatch, in.Device, m.Name(), m.Device())
	}
	return nil
}
