// Package cache holds the in-memory per-server status snapshots and
// the poller that maintains them. The cache is process-local: it starts
// empty and the poller repopulates it.
package cache

import (
	"sync"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// StatusCache maps server id to its latest poll snapshot. The poller is
// the single writer; read handlers take copies.
type StatusCache struct {
	mu      sync.RWMutex
	entries map[string]types.ServerStatusRecord
}

// NewStatusCache creates an empty cache.
func NewStatusCache() *StatusCache {
	return &StatusCache{entries: make(map[string]types.ServerStatusRecord)}
}

// Get returns a copy of the snapshot for the server, if present.
func (c *StatusCache) Get(serverID string) (types.ServerStatusRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[serverID]
	if !ok {
		return types.ServerStatusRecord{}, false
	}
	return copyRecord(rec), true
}

// Set replaces the snapshot for the server.
func (c *StatusCache) Set(serverID string, rec types.ServerStatusRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[serverID] = copyRecord(rec)
}

// SetContainers replaces only the container list of an existing entry,
// used to refresh the cache right after a container action.
func (c *StatusCache) SetContainers(serverID string, containers []types.ContainerSummary, polledTs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[serverID]
	if !ok {
		return
	}
	rec.Containers = append([]types.ContainerSummary(nil), containers...)
	rec.LastPolledTs = polledTs
	c.entries[serverID] = rec
}

// Delete drops the snapshot for a removed server.
func (c *StatusCache) Delete(serverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, serverID)
}

// copyRecord deep-copies the parts a reader could otherwise mutate.
func copyRecord(rec types.ServerStatusRecord) types.ServerStatusRecord {
	if rec.Stats != nil {
		stats := *rec.Stats
		stats.CPU.PerCore = append([]float64(nil), rec.Stats.CPU.PerCore...)
		stats.Disk.Disks = append([]types.SingleDiskUsage(nil), rec.Stats.Disk.Disks...)
		rec.Stats = &stats
	}
	rec.Containers = append([]types.ContainerSummary(nil), rec.Containers...)
	return rec
}
