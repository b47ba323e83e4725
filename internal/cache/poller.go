package cache

import (
	"context"
	"sync"
	"time"

	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/metrics"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// AgentClient is the slice of the periphery client the poller needs.
type AgentClient interface {
	Health(ctx context.Context) error
	Version(ctx context.Context) (string, error)
	SystemStats(ctx context.Context) (types.SystemStats, error)
	ListContainers(ctx context.Context) ([]types.ContainerSummary, error)
}

// ClientFactory builds an agent client for one server.
type ClientFactory func(server *types.Server) AgentClient

// PollerStore is the persistence the poller depends on.
type PollerStore interface {
	ListServers() ([]types.Server, error)
	AppendStats(rec *types.SystemStatsRecord) error
}

// AlertSink receives derived alerts. Delivery failures are the sink's
// problem; the poller never blocks on them beyond the send call.
type AlertSink interface {
	Send(ctx context.Context, alerts []types.Alert)
}

// Poller keeps the status cache fresh: every StatusPollInterval it
// contacts each server's agent concurrently, diffs the new snapshot
// against the cached one for alerts, and persists a stats sample once
// per MonitoringInterval.
type Poller struct {
	store      PollerStore
	cache      *StatusCache
	alerts     AlertSink
	clients    ClientFactory
	thresholds config.Thresholds
	log        *logging.Logger

	pollInterval       time.Duration
	monitoringInterval time.Duration
	pollTimeout        time.Duration

	mu           sync.Mutex
	lastRecorded map[string]int64 // server id -> rounded ts of last persisted sample
}

// NewPoller wires a poller. Run starts it.
func NewPoller(cfg *config.Core, store PollerStore, cache *StatusCache, alerts AlertSink, clients ClientFactory, log *logging.Logger) *Poller {
	return &Poller{
		store:              store,
		cache:              cache,
		alerts:             alerts,
		clients:            clients,
		thresholds:         cfg.Thresholds,
		log:                log,
		pollInterval:       cfg.StatusPollInterval,
		monitoringInterval: cfg.MonitoringInterval,
		pollTimeout:        cfg.PollTimeout,
		lastRecorded:       make(map[string]int64),
	}
}

// Run polls immediately, then on every tick until the context ends.
func (p *Poller) Run(ctx context.Context) {
	p.PollAll(ctx)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollAll(ctx)
		}
	}
}

// PollAll runs one full poll cycle across every server.
func (p *Poller) PollAll(ctx context.Context) {
	started := time.Now()
	servers, err := p.store.ListServers()
	if err != nil {
		p.log.Error("list servers for poll", "err", err)
		return
	}

	var unreachable int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, server := range servers {
		wg.Add(1)
		go func(server types.Server) {
			defer wg.Done()
			rec := p.pollServer(ctx, server)
			if rec.Status == types.ServerNotOK {
				mu.Lock()
				unreachable++
				mu.Unlock()
			}
		}(server)
	}
	wg.Wait()

	metrics.ServersPolled.Set(float64(len(servers)))
	metrics.ServersUnreachable.Set(float64(unreachable))
	metrics.PollDuration.Observe(time.Since(started).Seconds())
}

// pollServer fetches one server's snapshot, updates the cache, emits
// transition alerts, and persists stats on the monitoring cadence.
func (p *Poller) pollServer(ctx context.Context, server types.Server) types.ServerStatusRecord {
	now := types.Now()
	rec := types.ServerStatusRecord{Status: types.ServerDisabled, LastPolledTs: now}

	if server.Enabled {
		callCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
		defer cancel()
		rec = p.fetchStatus(callCtx, server, now)
	}

	prev, known := p.cache.Get(server.ID)
	p.cache.Set(server.ID, rec)

	if alerts := deriveAlerts(server, prev, known, rec, p.thresholds); len(alerts) > 0 {
		p.alerts.Send(ctx, alerts)
	}
	if rec.Status == types.ServerOK && rec.Stats != nil {
		p.recordStats(server.ID, now, *rec.Stats)
	}
	return rec
}

func (p *Poller) fetchStatus(ctx context.Context, server types.Server, now int64) types.ServerStatusRecord {
	client := p.clients(&server)
	if err := client.Health(ctx); err != nil {
		p.log.Debug("server unreachable", "server", server.Name, "err", err)
		return types.ServerStatusRecord{Status: types.ServerNotOK, LastPolledTs: now}
	}

	rec := types.ServerStatusRecord{Status: types.ServerOK, LastPolledTs: now}
	if version, err := client.Version(ctx); err == nil {
		rec.Version = version
	}
	// Ok requires the stats call too: an agent that answers health but
	// cannot report stats is not fit to receive actions.
	if stats, err := client.SystemStats(ctx); err == nil {
		rec.Stats = &stats
	} else {
		p.log.Warn("fetch system stats", "server", server.Name, "err", err)
		rec.Status = types.ServerNotOK
		return rec
	}
	if containers, err := client.ListContainers(ctx); err == nil {
		rec.Containers = containers
	} else {
		p.log.Warn("list containers", "server", server.Name, "err", err)
	}
	return rec
}

// recordStats persists at most one sample per monitoring interval,
// stamped with the interval-floored timestamp so repeat polls within
// the same slot overwrite rather than accumulate.
func (p *Poller) recordStats(serverID string, now int64, stats types.SystemStats) {
	interval := p.monitoringInterval.Milliseconds()
	if interval <= 0 {
		return
	}
	slot := now - now%interval

	p.mu.Lock()
	if p.lastRecorded[serverID] == slot {
		p.mu.Unlock()
		return
	}
	p.lastRecorded[serverID] = slot
	p.mu.Unlock()

	if err := p.store.AppendStats(&types.SystemStatsRecord{SID: serverID, TS: slot, Stats: stats}); err != nil {
		p.log.Error("persist stats sample", "server", serverID, "err", err)
	}
}
