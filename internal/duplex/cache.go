package duplex

import (
	"sync"

	"github.com/strandline-data/duplex.report/internal/reads"
)

// pendingCache holds reads whose partner has not arrived yet, at most one
// entry per unresolved pair. The single takeOrStore operation keeps the
// lock scope to the map access; ownership of both reads transfers entirely
// to the caller before any encoding work starts.
type pendingCache struct {
	mu    sync.Mutex
	reads map[string]*reads.SimplexRead
}

func newPendingCache() *pendingCache {
	return &pendingCache{reads: make(map[string]*reads.SimplexRead)}
}

// takeOrStore either removes and returns the already-cached partner read,
// or stores r under its own id for the partner to find later.
func (c *pendingCache) takeOrStore(partnerID string, r *reads.SimplexRead) (*reads.SimplexRead, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if partner, ok := c.reads[partnerID]; ok {
		delete(c.reads, partnerID)
		return partner, true
	}
	c.reads[r.ID] = r
	return nil, false
}

// size reports the number of unresolved reads currently held.
func (c *pendingCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reads)
}
