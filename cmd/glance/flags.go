package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glance/internal/backend"
	"github.com/samcharles93/glance/internal/inference"
	"github.com/samcharles93/glance/internal/runtime/llamaserver"
	"github.com/samcharles93/glance/internal/runtime/ollama"
)

var (
	modelID       string
	modelDir      string
	runtimeName   string
	backendName   string
	maxConcurrent int64
	maxNewTokens  int64
	defaultPrompt string
	chatTemplate  string
	maxImageEdge  int64
	loadTimeout   time.Duration

	llamaServerBin string
	llamaServerURL string
	ggufModelPath  string
	ggufMMProjPath string

	ollamaURL   string
	ollamaModel string
	ollamaPull  bool

	logLevel  string
	logFormat string
	debug     bool
)

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Hugging Face model id",
			Value:       inference.DefaultModelID,
			Destination: &modelID,
		},
		&cli.StringFlag{
			Name:        "model-dir",
			Usage:       "local Hugging Face snapshot used for the chat template and special tokens",
			Destination: &modelDir,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "execution backend (auto, cpu, cuda)",
			Value:       backend.Auto,
			Destination: &backendName,
		},
		&cli.Int64Flag{
			Name:        "max-concurrent",
			Aliases:     []string{"j"},
			Usage:       "predictions allowed to run at once",
			Value:       1,
			Destination: &maxConcurrent,
		},
		&cli.Int64Flag{
			Name:        "max-new-tokens",
			Usage:       "generation cap per prediction, at most 200",
			Value:       inference.MaxNewTokens,
			Destination: &maxNewTokens,
		},
		&cli.StringFlag{
			Name:        "default-prompt",
			Usage:       "prompt used when a request has none",
			Value:       inference.DefaultPrompt,
			Destination: &defaultPrompt,
		},
		&cli.StringFlag{
			Name:        "chat-template",
			Usage:       "chat template (inline or path to a .jinja file); only selects the built-in renderer family (idefics3, chatml, llava, qwen2_vl) it matches",
			Destination: &chatTemplate,
		},
		&cli.Int64Flag{
			Name:        "max-image-edge",
			Usage:       "downscale images whose longest edge exceeds this many pixels (0 keeps the original size)",
			Destination: &maxImageEdge,
		},
		&cli.DurationFlag{
			Name:        "load-timeout",
			Usage:       "how long to wait for the runtime to load the model",
			Value:       llamaserver.DefaultLoadTimeout,
			Destination: &loadTimeout,
		},
	}
}

func runtimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "runtime",
			Usage:       "model runtime (llama-server, ollama)",
			Value:       llamaserver.Name,
			Destination: &runtimeName,
		},
		&cli.StringFlag{
			Name:        "llama-server-bin",
			Usage:       "llama-server executable",
			Value:       llamaserver.DefaultBin,
			Destination: &llamaServerBin,
		},
		&cli.StringFlag{
			Name:        "llama-server-url",
			Usage:       "attach to a running llama-server instead of starting one",
			Destination: &llamaServerURL,
		},
		&cli.StringFlag{
			Name:        "gguf",
			Usage:       "local GGUF weights for llama-server; its metadata also fills in the chat template",
			Destination: &ggufModelPath,
		},
		&cli.StringFlag{
			Name:        "mmproj",
			Usage:       "local GGUF vision projector for llama-server",
			Destination: &ggufMMProjPath,
		},
		&cli.StringFlag{
			Name:        "ollama-url",
			Usage:       "Ollama server URL",
			Value:       ollama.DefaultURL,
			Destination: &ollamaURL,
		},
		&cli.StringFlag{
			Name:        "ollama-model",
			Usage:       "Ollama model tag (defaults to the GGUF conversion of --model)",
			Destination: &ollamaModel,
		},
		&cli.BoolFlag{
			Name:        "ollama-pull",
			Usage:       "pull the model into Ollama when it is missing",
			Destination: &ollamaPull,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
