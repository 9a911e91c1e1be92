// Package loadbalance decides which worker of a group serves a command.
//
// Two strategies are implemented:
//   - RoundRobin:     identical workers, even spread
//   - ConsistentHash: the same command always reaches the same worker
package loadbalance

import (
	"errors"

	"portbridge/message"
)

var ErrNoWorkers = errors.New("loadbalance: no workers available")

// Balancer picks the index of the worker that should serve cmd out of n.
// Implementations must be goroutine-safe.
type Balancer interface {
	Pick(n int, cmd message.Command) (int, error)

	// Name returns the strategy name for logging.
	Name() string
}

// New returns the balancer registered under name, or an error for unknown names.
func New(name string) (Balancer, error) {
	switch name {
	case "round-robin", "":
		return &RoundRobinBalancer{}, nil
	case "consistent-hash":
		return NewConsistentHashBalancer(), nil
	default:
		return nil, errors.New("loadbalance: unknown strategy " + name)
	}
}
