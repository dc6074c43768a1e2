package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glance/internal/logger"
)

// fileConfig is loaded once by the root command's Before hook.
var fileConfig Config

func main() {
	app := &cli.Command{
		Name:  "glance",
		Usage: "Describe images with a small vision-language model",
		Flags: loggingFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configPath())
			if err != nil {
				return ctx, err
			}
			fileConfig = cfg
			applyLogConfig(cmd, cfg)
			if debug {
				logLevel = "debug"
			}
			log, err := logger.Setup(os.Stderr, logLevel, logFormat)
			if err != nil {
				return ctx, err
			}
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			predictCmd(),
			serveCmd(),
			devicesCmd(),
			inspectCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
