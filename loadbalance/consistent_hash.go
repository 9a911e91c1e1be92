package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"sync"

	"portbridge/message"
)

// ConsistentHashBalancer maps each command onto a hash ring of workers, so a
// repeated command always lands on the same worker while the group size is
// unchanged. Each worker owns replicas virtual nodes to even out the ring.
//
// The ring is rebuilt lazily whenever Pick sees a different worker count.
type ConsistentHashBalancer struct {
	replicas int

	mu    sync.Mutex
	size  int
	ring  []uint32       // sorted virtual node hashes
	nodes map[uint32]int // virtual node hash → worker index
}

// NewConsistentHashBalancer creates a ring with 100 virtual nodes per worker.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{replicas: 100}
}

func (b *ConsistentHashBalancer) build(n int) {
	b.size = n
	b.ring = make([]uint32, 0, n*b.replicas)
	b.nodes = make(map[uint32]int, n*b.replicas)
	for w := 0; w < n; w++ {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("worker-%d#%d", w, i)))
			if _, taken := b.nodes[hash]; taken {
				continue
			}
			b.ring = append(b.ring, hash)
			b.nodes[hash] = w
		}
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// Pick hashes the command bytes and walks clockwise to the first virtual node.
func (b *ConsistentHashBalancer) Pick(n int, cmd message.Command) (int, error) {
	if n <= 0 {
		return 0, ErrNoWorkers
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if n != b.size {
		b.build(n)
	}

	hash := crc32.ChecksumIEEE([]byte{byte(cmd.Opcode), cmd.Operand})
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	// Past the last node: wrap to the start of the ring.
	if idx == len(b.ring) {
		idx = 0
	}
	return b.nodes[b.ring[idx]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
