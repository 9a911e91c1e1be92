// Command porthost drives one or more portbridge workers. Each argument is a
// command written as opcode:operand; its result is printed on its own line.
//
//	porthost --worker ./portbridge 1:5 2:7
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"portbridge/loadbalance"
	"portbridge/logging"
	"portbridge/message"
	"portbridge/transport"
)

// parseCommand reads "opcode:operand" with both parts in 0..255.
func parseCommand(s string) (message.Command, error) {
	opStr, argStr, ok := strings.Cut(s, ":")
	if !ok {
		return message.Command{}, fmt.Errorf("command %q: want opcode:operand", s)
	}
	op, err := strconv.ParseUint(opStr, 10, 8)
	if err != nil {
		return message.Command{}, fmt.Errorf("command %q: opcode: %w", s, err)
	}
	arg, err := strconv.ParseUint(argStr, 10, 8)
	if err != nil {
		return message.Command{}, fmt.Errorf("command %q: operand: %w", s, err)
	}
	return message.Command{Opcode: message.Opcode(op), Operand: byte(arg)}, nil
}

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "porthost",
		Usage:     "send commands to portbridge workers",
		ArgsUsage: "opcode:operand...",
		Writer:    stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker",
				Usage:   "Path to the portbridge worker binary.",
				Value:   "portbridge",
				EnvVars: []string{"PORTHOST_WORKER"},
			},
			&cli.StringSliceFlag{
				Name:  "worker-arg",
				Usage: "Extra argument passed to every worker. Repeatable.",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of worker processes to start.",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "balancer",
				Usage: "One of [round-robin,consistent-hash].",
				Value: "round-robin",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "One of [debug,info,warn,error].",
				Value:   "warn",
				EnvVars: []string{"PORTHOST_LOG_LEVEL"},
			},
		},
		Action: func(ctx *cli.Context) error {
			logger, err := logging.New(logging.Config{Level: ctx.String("log-level")})
			if err != nil {
				return err
			}
			defer logger.Sync()

			cmds := make([]message.Command, 0, ctx.NArg())
			for _, a := range ctx.Args().Slice() {
				cmd, err := parseCommand(a)
				if err != nil {
					return err
				}
				cmds = append(cmds, cmd)
			}

			bal, err := loadbalance.New(ctx.String("balancer"))
			if err != nil {
				return err
			}
			n := ctx.Int("workers")
			if n < 1 {
				return fmt.Errorf("workers must be at least 1, got %d", n)
			}

			group, err := transport.StartGroup(ctx.Context, n, bal, transport.Config{
				Path: ctx.String("worker"),
				Args: ctx.StringSlice("worker-arg"),
				Log:  logger,
			})
			if err != nil {
				return fmt.Errorf("starting workers: %w", err)
			}
			logger.Infow("workers started", "count", n, "balancer", bal.Name())

			for _, cmd := range cmds {
				res, err := group.Call(ctx.Context, cmd.Opcode, cmd.Operand)
				if err != nil {
					group.Close()
					return err
				}
				fmt.Fprintf(ctx.App.Writer, "%d:%d -> %d\n", cmd.Opcode, cmd.Operand, res)
			}
			return group.Close()
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
