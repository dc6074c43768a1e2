package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/samcharles93/glance/internal/inference"
	"github.com/samcharles93/glance/internal/logger"
	"github.com/samcharles93/glance/internal/metrics"
	"github.com/samcharles93/glance/internal/predictor"
	"github.com/samcharles93/glance/internal/runtime/llamaserver"
	"github.com/samcharles93/glance/internal/runtime/ollama"
)

var registerOnce sync.Once

// registerRuntimes makes both runtimes available under their names, built
// from the current flag values.
func registerRuntimes(ctx context.Context) {
	registerOnce.Do(func() {
		cfg := llamaserver.Config{
			URL:         llamaServerURL,
			Bin:         llamaServerBin,
			ModelPath:   ggufModelPath,
			MMProjPath:  ggufMMProjPath,
			LoadTimeout: loadTimeout,
		}
		// Server output is only interesting when debugging.
		if logger.FromContext(ctx).Enabled(slog.LevelDebug) {
			cfg.Output = os.Stderr
		}
		inference.Register(llamaserver.Name, llamaserver.Opener(cfg))
		inference.Register(ollama.Name, ollama.Opener(ollama.Config{
			URL:   ollamaURL,
			Model: ollamaModel,
			Pull:  ollamaPull,
		}))
		logger.FromContext(ctx).Debug("runtimes registered", "runtimes", inference.Runtimes())
	})
}

// loadPredictor brings the configured model up. Load failures are fatal to
// the command.
func loadPredictor(ctx context.Context, met *metrics.Metrics) (*predictor.Predictor, error) {
	registerRuntimes(ctx)
	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	return predictor.Load(loadCtx, predictor.Config{
		ModelID:       modelID,
		ModelDir:      modelDir,
		GGUFPath:      ggufModelPath,
		Runtime:       runtimeName,
		Backend:       backendName,
		MaxConcurrent: int(maxConcurrent),
		MaxNewTokens:  int(maxNewTokens),
		DefaultPrompt: defaultPrompt,
		ChatTemplate:  chatTemplate,
		MaxImageEdge:  int(maxImageEdge),
		Metrics:       met,
	})
}
