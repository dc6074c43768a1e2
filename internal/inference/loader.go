package inference

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samcharles93/glance/internal/backend"
)

var (
	runtimesMu sync.RWMutex
	runtimes   = map[string]Opener{}
)

// Register makes a runtime available by name. It panics on a duplicate name
// or a nil opener, as database/sql does for drivers.
func Register(name string, open Opener) {
	runtimesMu.Lock()
	defer runtimesMu.Unlock()
	if open == nil {
		panic("inference: Register opener is nil")
	}
	if _, dup := runtimes[name]; dup {
		panic("inference: Register called twice for runtime " + name)
	}
	runtimes[name] = open
}

// Runtimes returns the sorted names of registered runtimes.
func Runtimes() []string {
	runtimesMu.RLock()
	defer runtimesMu.RUnlock()
	names := make([]string, 0, len(runtimes))
	for name := range runtimes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookupRuntime(name string) (Opener, error) {
	runtimesMu.RLock()
	open, ok := runtimes[name]
	runtimesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown runtime %q (available: %s)", name, strings.Join(Runtimes(), ", "))
	}
	return open, nil
}

// Loader brings a model up through a runtime and pairs it with a Processor.
type Loader struct {
	ModelID  string
	ModelDir string
	// GGUFPath is a local llama.cpp conversion whose metadata fills gaps in
	// the model info.
	GGUFPath string
	Runtime  string
	// Open replaces the registry lookup for Runtime when set.
	Open             Opener
	ChatTemplatePath string
	MaxImageEdge     int
	Slots            int
	DefaultPrompt    string
	Generate         GenerateOptions
}

type LoadResult struct {
	Engine         *Engine
	Info           ModelInfo
	Plan           backend.Plan
	TemplateSource string
	TemplateFamily string
}

func (l Loader) Load(ctx context.Context, plan backend.Plan) (*LoadResult, error) {
	info, err := ResolveModelInfo(l.ModelID, l.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("resolve model %q: %w", l.ModelID, err)
	}
	if l.GGUFPath != "" {
		if err := overlayGGUF(&info, l.GGUFPath); err != nil {
			return nil, fmt.Errorf("resolve model %q: %w", info.ID, err)
		}
	}

	open := l.Open
	if open == nil {
		if open, err = l.lookup(); err != nil {
			return nil, err
		}
	}

	slots := max(l.Slots, 1)
	m, err := open(ctx, LoadSpec{Info: info, Plan: plan, Slots: slots})
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", info.ID, err)
	}

	proc, err := NewProcessor(info, ProcessorConfig{
		TemplateOverride: l.ChatTemplatePath,
		Device:           plan.Device,
		ImageToken:       m.ImagePlaceholder(),
		MaxImageEdge:     l.MaxImageEdge,
	})
	if err != nil {
		_ = m.Close()
		return nil, err
	}

	return &LoadResult{
		Engine:         NewEngine(m, proc, l.Generate, l.DefaultPrompt),
		Info:           info,
		Plan:           plan,
		TemplateSource: proc.TemplateSource(),
		TemplateFamily: proc.TemplateFamily(),
	}, nil
}

func (l Loader) lookup() (Opener, error) {
	name := strings.TrimSpace(l.Runtime)
	if name == "" {
		return nil, fmt.Errorf("runtime is required")
	}
	return lookupRuntime(name)
}
