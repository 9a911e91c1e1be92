package loadbalance

import (
	"sync/atomic"

	"portbridge/message"
)

// RoundRobinBalancer hands commands to workers in turn using a lock-free counter.
type RoundRobinBalancer struct {
	counter atomic.Uint64
}

func (b *RoundRobinBalancer) Pick(n int, cmd message.Command) (int, error) {
	if n <= 0 {
		return 0, ErrNoWorkers
	}
	next := b.counter.Add(1) - 1
	return int(next % uint64(n)), nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
