package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glance/internal/api"
	"github.com/samcharles93/glance/internal/logger"
	"github.com/samcharles93/glance/internal/metrics"
)

func serveCmd() *cli.Command {
	var (
		addr              string
		readHeaderTimeout time.Duration
		maxBodyBytes      int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve predictions over HTTP",
		Flags: append(append(modelFlags(), runtimeFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-header-timeout",
				Usage:       "time allowed to read request headers",
				Value:       30 * time.Second,
				Destination: &readHeaderTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-body-bytes",
				Usage:       "largest accepted request body",
				Value:       api.DefaultMaxBodyBytes,
				Destination: &maxBodyBytes,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, fileConfig, &addr)
			log := logger.FromContext(ctx)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			met := metrics.New()
			p, err := loadPredictor(ctx, met)
			if err != nil {
				return err
			}
			defer func() {
				if err := p.Close(); err != nil {
					log.Warn("close predictor", "error", err)
				}
			}()

			server := api.NewServer(p, api.Config{
				Model:        p.Info().ID,
				Device:       p.Plan().Device,
				Workers:      p.Workers(),
				MaxBodyBytes: maxBodyBytes,
				Metrics:      met.Handler(),
				Logger:       log.With("component", "api"),
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "workers", p.Workers())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readHeaderTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
