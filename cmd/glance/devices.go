package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glance/internal/backend"
	"github.com/samcharles93/glance/internal/inference"
)

func devicesCmd() *cli.Command {
	var requested string

	return &cli.Command{
		Name:  "devices",
		Usage: "Show available backends and the load plan that would be used",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "backend",
				Usage:       "execution backend (auto, cpu, cuda)",
				Value:       backend.Auto,
				Destination: &requested,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if fileConfig.Backend != "" && !cmd.IsSet("backend") {
				requested = fileConfig.Backend
			}
			n := backend.Detect()
			fmt.Fprintf(os.Stdout, "backends:  %s\n", backend.Available())
			fmt.Fprintf(os.Stdout, "devices:   %d\n", n)
			registerRuntimes(ctx)
			fmt.Fprintf(os.Stdout, "runtimes:  %s\n", strings.Join(inference.Runtimes(), ", "))

			plan, err := backend.Select(requested, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "plan:      %s\n", plan)
			fmt.Fprintf(os.Stdout, "max new:   %d tokens, greedy\n", inference.MaxNewTokens)
			return nil
		},
	}
}
