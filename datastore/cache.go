package datastore

import (
	"sync"

	"github.com/netdox/netdox/node"
)

// Cache fronts the reference Store to avoid redundant reads within one
// resolver/publisher pass, adapted from owasp-amass-engine's
// cache/cache.go (GetAsset/SetAsset/GetRelations/SetRelation) onto
// processed nodes keyed by link id instead of OAM assets.
type Cache struct {
	mu    sync.RWMutex
	nodes map[string]*node.Processed
}

func NewCache() *Cache {
	return &Cache{nodes: make(map[string]*node.Processed)}
}

func (c *Cache) GetProcessedNode(linkID string) (*node.Processed, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pn, ok := c.nodes[linkID]
	return pn, ok
}

func (c *Cache) SetProcessedNode(pn *node.Processed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[pn.LinkID] = pn
}

func (c *Cache) Invalidate(linkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.nodes, linkID)
}
