package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glance/internal/predictor"
)

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

func predictCmd() *cli.Command {
	var (
		prompt   string
		imageB64 string
	)

	return &cli.Command{
		Name:      "predict",
		Usage:     "Describe a single image",
		ArgsUsage: "[image file | -]",
		Flags: append(append(modelFlags(), runtimeFlags()...),
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "question or instruction for the model",
				Destination: &prompt,
			},
			&cli.StringFlag{
				Name:        "image-b64",
				Usage:       "base64 image payload, optionally with a data URI header",
				Destination: &imageB64,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyModelConfig(cmd, fileConfig)

			payload, err := resolveImagePayload(imageB64, cmd.Args().First(), os.Stdin)
			if err != nil {
				return err
			}

			p, err := loadPredictor(ctx, nil)
			if err != nil {
				return err
			}
			defer p.Close()

			out, err := p.Predict(ctx, predictor.Request{ImageB64: payload, Prompt: prompt})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, strings.TrimSpace(out))
			return err
		},
	}
}

// resolveImagePayload returns the base64 payload from --image-b64, an image
// file, or stdin ("-" or piped input). Files and stdin hold raw image bytes.
func resolveImagePayload(flagValue, arg string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		if arg != "" {
			return "", errors.New("pass either --image-b64 or an image file, not both")
		}
		return flagValue, nil
	}

	var (
		data []byte
		err  error
	)
	switch {
	case arg == "-" || (arg == "" && !stdinIsTTY()):
		data, err = io.ReadAll(stdin)
	case arg != "":
		data, err = os.ReadFile(arg)
	default:
		return "", errors.New("no image given (pass a file, --image-b64, or pipe the image on stdin)")
	}
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("image is empty")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
