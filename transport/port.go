// Package transport runs portbridge workers as child processes and binds
// their standard streams to a client.
//
//	host                         worker
//	Client ──WriteFrame──► stdin  ─► Serve
//	Client ◄──ReadFrame─── stdout ◄─ Serve
//	                       stderr ─► host stderr (logs)
//
// Closing a Port closes the worker's stdin. The worker sees end-of-stream,
// leaves its loop and exits; Close then reaps it.
package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"portbridge/client"
	"portbridge/loadbalance"
	"portbridge/logging"
)

// Config describes how to launch a worker.
type Config struct {
	Path   string
	Args   []string
	Env    []string  // nil inherits the host environment
	Stderr io.Writer // worker logs; defaults to the host's stderr
	Log    *zap.SugaredLogger
}

// Port is one running worker process.
type Port struct {
	cmd    *exec.Cmd
	client *client.Client
	log    *zap.SugaredLogger

	closeOnce sync.Once
	closeErr  error
}

// Start launches the worker described by cfg. Cancelling ctx kills the process.
func Start(ctx context.Context, cfg Config) (*Port, error) {
	log := cfg.Log
	if log == nil {
		log = logging.Nop()
	}

	cmd := exec.CommandContext(ctx, cfg.Path, cfg.Args...)
	cmd.Env = cfg.Env
	cmd.Stderr = cfg.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, stdout, err := openPipes(cmd)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %s: %w", cfg.Path, err)
	}

	log = log.With("pid", cmd.Process.Pid)
	log.Debugw("worker started", "path", cfg.Path)
	return &Port{
		cmd:    cmd,
		client: client.NewClient(stdout, stdin, client.WithLogger(log)),
		log:    log,
	}, nil
}

// openPipes attaches stdin and stdout pipes to cmd. If the second pipe cannot
// be opened, both ends of the first are closed before returning.
func openPipes(cmd *exec.Cmd) (io.WriteCloser, io.ReadCloser, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("opening worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		if childEnd, ok := cmd.Stdin.(io.Closer); ok {
			childEnd.Close()
		}
		return nil, nil, fmt.Errorf("opening worker stdout: %w", err)
	}
	return stdin, stdout, nil
}

// Client returns the client bound to the worker's stdin and stdout.
func (p *Port) Client() *client.Client {
	return p.client
}

func (p *Port) Pid() int {
	return p.cmd.Process.Pid
}

// Close signals end-of-stream to the worker and waits for it to exit.
// A non-zero worker exit is returned as an *exec.ExitError. Later calls
// return the result of the first.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		err := p.client.Close()
		if waitErr := p.cmd.Wait(); waitErr != nil {
			err = multierr.Append(err, fmt.Errorf("worker %d: %w", p.Pid(), waitErr))
		}
		p.log.Debugw("worker stopped", "err", err)
		p.closeErr = err
	})
	return p.closeErr
}

// Group is a set of workers behind a balancer.
type Group struct {
	*client.Group
	ports []*Port
}

// StartGroup launches n workers. If any fails to start, the ones already
// running are closed and the start error is returned.
func StartGroup(ctx context.Context, n int, bal loadbalance.Balancer, cfg Config) (*Group, error) {
	ports := make([]*Port, 0, n)
	clients := make([]*client.Client, 0, n)
	for i := 0; i < n; i++ {
		p, err := Start(ctx, cfg)
		if err != nil {
			for _, started := range ports {
				err = multierr.Append(err, started.Close())
			}
			return nil, err
		}
		ports = append(ports, p)
		clients = append(clients, p.Client())
	}
	return &Group{Group: client.NewGroup(bal, clients...), ports: ports}, nil
}

func (g *Group) Ports() []*Port {
	return g.ports
}

// Close stops every worker and combines their errors.
func (g *Group) Close() error {
	var err error
	for _, p := range g.ports {
		err = multierr.Append(err, p.Close())
	}
	return err
}
