package signalchain

import (
	"regexp"
	"strconv"
	"sync"
)

// IDAllocator hands out node ids that never collide with ids already in the
// graph it was seeded from.
type IDAllocator interface {
	Next() string
	// Seed restarts the sequence after the highest id in nodes.
	Seed(nodes []Node)
}

var nodeIDPattern = regexp.MustCompile(`node_(\d+)`)

// CounterAllocator produces node_1, node_2, ...
type CounterAllocator struct {
	mu   sync.Mutex
	next int
}

// NewCounterAllocator starts at node_1.
func NewCounterAllocator() *CounterAllocator {
	return &CounterAllocator{next: 1}
}

func (a *CounterAllocator) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := "node_" + strconv.Itoa(a.next)
	a.next++
	return id
}

func (a *CounterAllocator) Seed(nodes []Node) {
	max := 0
	for _, n := range nodes {
		if m := nodeIDPattern.FindStringSubmatch(n.ID); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v > max {
				max = v
			}
		}
	}
	a.mu.Lock()
	a.next = max + 1
	a.mu.Unlock()
}
