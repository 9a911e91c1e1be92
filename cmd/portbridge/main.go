// Command portbridge is the worker end of the bridge. It reads length-prefixed
// commands from stdin, answers each on stdout, and exits when stdin closes.
// Logs go to stderr.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"portbridge/handlers"
	"portbridge/logging"
	"portbridge/middleware"
	"portbridge/protocol"
	"portbridge/server"
)

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:  "portbridge",
		Usage: "answer framed opcode/operand commands on stdin/stdout",
		// Stdout carries protocol bytes only.
		Writer:    os.Stderr,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "One of [debug,info,warn,error].",
				Value:   "info",
				EnvVars: []string{"PORTBRIDGE_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-dev",
				Usage:   "Human-readable console logs instead of JSON.",
				EnvVars: []string{"PORTBRIDGE_LOG_DEV"},
			},
			&cli.IntFlag{
				Name:    "max-request-bytes",
				Usage:   "Largest request frame accepted before the stream is treated as corrupt.",
				Value:   server.DefaultMaxRequestBytes,
				EnvVars: []string{"PORTBRIDGE_MAX_REQUEST"},
			},
			&cli.Float64Flag{
				Name:    "rate-limit",
				Usage:   "Commands per second answered before replying rate-limited. 0 disables.",
				EnvVars: []string{"PORTBRIDGE_RATE_LIMIT"},
			},
			&cli.IntFlag{
				Name:    "rate-burst",
				Usage:   "Token bucket burst for --rate-limit.",
				Value:   1,
				EnvVars: []string{"PORTBRIDGE_RATE_BURST"},
			},
			&cli.DurationFlag{
				Name:    "handler-timeout",
				Usage:   "Deadline for a single handler call. 0 disables.",
				EnvVars: []string{"PORTBRIDGE_HANDLER_TIMEOUT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			logger, err := logging.New(logging.Config{
				Level:       ctx.String("log-level"),
				Development: ctx.Bool("log-dev"),
			})
			if err != nil {
				return err
			}
			defer logger.Sync()

			maxRequest := ctx.Int("max-request-bytes")
			if maxRequest < 2 || maxRequest > protocol.MaxPayloadLen {
				return fmt.Errorf("max-request-bytes must be between 2 and %d, got %d", protocol.MaxPayloadLen, maxRequest)
			}

			svr := server.NewServer(
				server.WithLogger(logger),
				server.WithLimits(protocol.Limits{MaxReadBytes: maxRequest}),
			)
			if err := svr.RegisterTable(handlers.Table()); err != nil {
				return fmt.Errorf("registering handlers: %w", err)
			}

			mws := []middleware.Middleware{middleware.LoggingMiddleware(logger)}
			if r := ctx.Float64("rate-limit"); r > 0 {
				mws = append(mws, middleware.RateLimitMiddleware(r, ctx.Int("rate-burst")))
			}
			if d := ctx.Duration("handler-timeout"); d > 0 {
				mws = append(mws, middleware.TimeOutMiddleware(d))
			}
			// Innermost, so it also runs on the timeout goroutine.
			mws = append(mws, middleware.RecoverMiddleware(logger))
			for _, mw := range mws {
				if err := svr.Use(mw); err != nil {
					return fmt.Errorf("installing middleware: %w", err)
				}
			}

			if err := svr.Serve(context.Background(), stdin, stdout); err != nil {
				logger.Errorw("command loop failed", "err", err, "served", svr.Served())
				return err
			}
			return nil
		},
	}
}

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
