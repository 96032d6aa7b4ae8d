package engine

import (
	"sort"
	"sync"
)

const (
	// maxTrackedCommands caps the distinct command names per counter.
	maxTrackedCommands = 1000

	// topLimit is the number of entries in Stats.TopBlocked and
	// Stats.TopCommands.
	topLimit = 10

	// otherCommand collects commands beyond maxTrackedCommands.
	otherCommand = "other"
)

// commandCounter counts commands by name.
type commandCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	limit  int
}

func newCommandCounter(limit int) *commandCounter {
	return &commandCounter{counts: make(map[string]int64), limit: limit}
}

func (c *commandCounter) Inc(name string) {
	if name == "" {
		name = "(empty)"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.counts[name]; !ok && len(c.counts) >= c.limit {
		name = otherCommand
	}
	c.counts[name]++
}

// Top returns the n most counted names, ties broken by name.
func (c *commandCounter) Top(n int) []CommandCount {
	c.mu.Lock()
	out := make([]CommandCount, 0, len(c.counts))
	for name, count := range c.counts {
		out = append(out, CommandCount{Command: name, Count: count})
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Command < out[j].Command
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (c *commandCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts = make(map[string]int64)
}
