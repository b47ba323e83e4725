package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/types"
)

func TestGrade(t *testing.T) {
	threshold := config.Threshold{Warning: 80, Critical: 95}
	cases := []struct {
		pct  float64
		want types.Severity
	}{
		{0, types.SeverityOK},
		{79.9, types.SeverityOK},
		{80, types.SeverityWarning},
		{94.9, types.SeverityWarning},
		{95, types.SeverityCritical},
		{100, types.SeverityCritical},
	}
	for _, tc := range cases {
		if got := Grade(tc.pct, threshold); got != tc.want {
			t.Errorf("Grade(%.1f) = %v, want %v", tc.pct, got, tc.want)
		}
	}
}

func TestCacheGetReturnsCopy(t *testing.T) {
	c := NewStatusCache()
	c.Set("s1", types.ServerStatusRecord{
		Status:     types.ServerOK,
		Stats:      &types.SystemStats{CPU: types.CPUUsage{CPUPerc: 10}},
		Containers: []types.ContainerSummary{{Name: "api", State: types.ContainerRunning}},
	})

	got, ok := c.Get("s1")
	if !ok {
		t.Fatal("expected entry")
	}
	got.Stats.CPU.CPUPerc = 99
	got.Containers[0].State = types.ContainerDead

	again, _ := c.Get("s1")
	if again.Stats.CPU.CPUPerc != 10 {
		t.Error("reader mutation leaked into cached stats")
	}
	if again.Containers[0].State != types.ContainerRunning {
		t.Error("reader mutation leaked into cached containers")
	}
}

func TestCacheSetContainers(t *testing.T) {
	c := NewStatusCache()
	c.SetContainers("missing", nil, 1) // no entry, no-op

	c.Set("s1", types.ServerStatusRecord{Status: types.ServerOK, Version: "v1"})
	c.SetContainers("s1", []types.ContainerSummary{{Name: "api"}}, 42)

	got, _ := c.Get("s1")
	if got.Version != "v1" || len(got.Containers) != 1 || got.LastPolledTs != 42 {
		t.Errorf("got %+v", got)
	}
}

func server() types.Server {
	return types.Server{ID: "s1", Name: "host-a", Region: "eu-1", Enabled: true}
}

func statsWithCPU(pct float64) *types.SystemStats {
	return &types.SystemStats{CPU: types.CPUUsage{CPUPerc: pct}}
}

func TestDeriveAlertsFirstObservationSilent(t *testing.T) {
	alerts := deriveAlerts(server(), types.ServerStatusRecord{}, false,
		types.ServerStatusRecord{Status: types.ServerNotOK}, config.DefaultThresholds())
	if len(alerts) != 0 {
		t.Errorf("first observation should not alert, got %v", alerts)
	}
}

func TestDeriveAlertsReachabilityFlips(t *testing.T) {
	down := deriveAlerts(server(),
		types.ServerStatusRecord{Status: types.ServerOK}, true,
		types.ServerStatusRecord{Status: types.ServerNotOK}, config.DefaultThresholds())
	if len(down) != 1 || down[0].Type != types.AlertServerUnreachable || down[0].Level != types.SeverityCritical {
		t.Fatalf("got %v", down)
	}

	up := deriveAlerts(server(),
		types.ServerStatusRecord{Status: types.ServerNotOK}, true,
		types.ServerStatusRecord{Status: types.ServerOK}, config.DefaultThresholds())
	if len(up) != 1 || up[0].Type != types.AlertServerUnreachable || up[0].Level != types.SeverityOK {
		t.Fatalf("got %v", up)
	}
}

func TestDeriveAlertsSeverityTransitions(t *testing.T) {
	thresholds := config.DefaultThresholds() // cpu 90/99
	cases := []struct {
		name       string
		prev, next float64
		want       int
		wantLevel  types.Severity
	}{
		{"escalate to warning", 50, 91, 1, types.SeverityWarning},
		{"escalate to critical", 91, 99.5, 1, types.SeverityCritical},
		{"steady warning silent", 91, 92, 0, 0},
		{"critical to warning silent", 99.5, 91, 0, 0},
		{"critical to ok recovers", 99.5, 10, 1, types.SeverityOK},
		{"warning to ok silent", 91, 10, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alerts := deriveAlerts(server(),
				types.ServerStatusRecord{Status: types.ServerOK, Stats: statsWithCPU(tc.prev)}, true,
				types.ServerStatusRecord{Status: types.ServerOK, Stats: statsWithCPU(tc.next)}, thresholds)
			if len(alerts) != tc.want {
				t.Fatalf("got %d alerts: %v", len(alerts), alerts)
			}
			if tc.want == 1 {
				if alerts[0].Type != types.AlertServerCPU || alerts[0].Level != tc.wantLevel {
					t.Errorf("got %+v", alerts[0])
				}
				if alerts[0].Percentage != tc.next {
					t.Errorf("percentage = %v, want %v", alerts[0].Percentage, tc.next)
				}
			}
		})
	}
}

func TestDeriveAlertsDiskPerMount(t *testing.T) {
	prev := types.ServerStatusRecord{Status: types.ServerOK, Stats: &types.SystemStats{
		Disk: types.DiskUsage{Disks: []types.SingleDiskUsage{
			{Mount: "/", UsedGB: 10, TotalGB: 100},
			{Mount: "/var", UsedGB: 10, TotalGB: 100},
		}},
	}}
	next := types.ServerStatusRecord{Status: types.ServerOK, Stats: &types.SystemStats{
		Disk: types.DiskUsage{Disks: []types.SingleDiskUsage{
			{Mount: "/", UsedGB: 10, TotalGB: 100},
			{Mount: "/var", UsedGB: 95, TotalGB: 100}, // crosses critical (90)
		}},
	}}
	alerts := deriveAlerts(server(), prev, true, next, config.DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("got %v", alerts)
	}
	a := alerts[0]
	if a.Type != types.AlertServerDisk || a.Path != "/var" || a.Level != types.SeverityCritical {
		t.Errorf("got %+v", a)
	}
}

func TestDeriveAlertsContainerChanges(t *testing.T) {
	prev := types.ServerStatusRecord{Status: types.ServerOK, Containers: []types.ContainerSummary{
		{Name: "api", State: types.ContainerRunning},
		{Name: "worker", State: types.ContainerRunning},
		{Name: "cron", State: types.ContainerExited},
	}}
	next := types.ServerStatusRecord{Status: types.ServerOK, Containers: []types.ContainerSummary{
		{Name: "api", State: types.ContainerExited}, // state change
		{Name: "cron", State: types.ContainerExited},
		{Name: "fresh", State: types.ContainerRunning}, // new, silent
		// worker gone
	}}
	alerts := deriveAlerts(server(), prev, true, next, config.DefaultThresholds())
	if len(alerts) != 2 {
		t.Fatalf("got %v", alerts)
	}
	byName := map[string]types.Alert{}
	for _, a := range alerts {
		byName[a.Name] = a
	}
	if a := byName["api"]; a.From != types.ContainerRunning || a.To != types.ContainerExited {
		t.Errorf("api alert = %+v", a)
	}
	if a := byName["worker"]; a.To != types.ContainerNotDeployed {
		t.Errorf("worker alert = %+v", a)
	}
}

func TestDeriveAlertsDisabledSilent(t *testing.T) {
	alerts := deriveAlerts(server(),
		types.ServerStatusRecord{Status: types.ServerOK}, true,
		types.ServerStatusRecord{Status: types.ServerDisabled}, config.DefaultThresholds())
	if len(alerts) != 0 {
		t.Errorf("disabled server should be silent, got %v", alerts)
	}
}

// ---- poller ----

type fakeAgent struct {
	healthErr  error
	statsErr   error
	stats      types.SystemStats
	containers []types.ContainerSummary
}

func (f *fakeAgent) Health(ctx context.Context) error { return f.healthErr }
func (f *fakeAgent) Version(ctx context.Context) (string, error) {
	return "test", nil
}
func (f *fakeAgent) SystemStats(ctx context.Context) (types.SystemStats, error) {
	if f.statsErr != nil {
		return types.SystemStats{}, f.statsErr
	}
	return f.stats, nil
}
func (f *fakeAgent) ListContainers(ctx context.Context) ([]types.ContainerSummary, error) {
	return f.containers, nil
}

type fakeStore struct {
	mu      sync.Mutex
	servers []types.Server
	appends []types.SystemStatsRecord
}

func (f *fakeStore) ListServers() ([]types.Server, error) { return f.servers, nil }
func (f *fakeStore) AppendStats(rec *types.SystemStatsRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, *rec)
	return nil
}

type fakeSink struct {
	mu     sync.Mutex
	alerts []types.Alert
}

func (f *fakeSink) Send(ctx context.Context, alerts []types.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alerts...)
}

func pollerConfig() *config.Core {
	return &config.Core{
		StatusPollInterval: time.Second,
		MonitoringInterval: time.Minute,
		PollTimeout:        time.Second,
		Thresholds:         config.DefaultThresholds(),
	}
}

func TestPollerCachesAndAlertsOnTransition(t *testing.T) {
	agent := &fakeAgent{stats: *statsWithCPU(10)}
	store := &fakeStore{servers: []types.Server{server()}}
	sink := &fakeSink{}
	cache := NewStatusCache()
	p := NewPoller(pollerConfig(), store, cache, sink,
		func(*types.Server) AgentClient { return agent }, logging.Discard())

	p.PollAll(context.Background())
	rec, ok := cache.Get("s1")
	if !ok || rec.Status != types.ServerOK || rec.Version != "test" {
		t.Fatalf("cache after first poll: %+v ok=%v", rec, ok)
	}
	if len(sink.alerts) != 0 {
		t.Fatalf("first poll should not alert, got %v", sink.alerts)
	}

	agent.healthErr = errors.New("connection refused")
	p.PollAll(context.Background())
	rec, _ = cache.Get("s1")
	if rec.Status != types.ServerNotOK {
		t.Fatalf("status = %v", rec.Status)
	}
	if len(sink.alerts) != 1 || sink.alerts[0].Type != types.AlertServerUnreachable {
		t.Fatalf("alerts = %v", sink.alerts)
	}
}

func TestPollerStatsFailureReadsNotOk(t *testing.T) {
	// Answering health but failing stats is not a healthy server: the
	// cache must read NotOk so actions stay gated.
	agent := &fakeAgent{statsErr: errors.New("stats collector broken")}
	store := &fakeStore{servers: []types.Server{server()}}
	cache := NewStatusCache()
	p := NewPoller(pollerConfig(), store, cache, &fakeSink{},
		func(*types.Server) AgentClient { return agent }, logging.Discard())

	p.PollAll(context.Background())
	rec, ok := cache.Get("s1")
	if !ok || rec.Status != types.ServerNotOK {
		t.Fatalf("rec = %+v ok=%v, want not_ok", rec, ok)
	}
	if len(store.appends) != 0 {
		t.Errorf("no sample should persist without stats, got %d", len(store.appends))
	}
}

func TestPollerDisabledServerNotContacted(t *testing.T) {
	srv := server()
	srv.Enabled = false
	store := &fakeStore{servers: []types.Server{srv}}
	cache := NewStatusCache()
	p := NewPoller(pollerConfig(), store, cache, &fakeSink{},
		func(*types.Server) AgentClient {
			t.Error("disabled server must not be dialed")
			return &fakeAgent{}
		}, logging.Discard())

	p.PollAll(context.Background())
	rec, ok := cache.Get("s1")
	if !ok || rec.Status != types.ServerDisabled {
		t.Fatalf("rec = %+v ok=%v", rec, ok)
	}
}

func TestPollerRecordsStatsOncePerSlot(t *testing.T) {
	agent := &fakeAgent{stats: *statsWithCPU(10)}
	store := &fakeStore{servers: []types.Server{server()}}
	p := NewPoller(pollerConfig(), store, NewStatusCache(), &fakeSink{},
		func(*types.Server) AgentClient { return agent }, logging.Discard())

	// Polls land in the same monitoring slot: only one sample persists.
	p.PollAll(context.Background())
	p.PollAll(context.Background())
	if len(store.appends) != 1 {
		t.Fatalf("appends = %d, want 1", len(store.appends))
	}
	rec := store.appends[0]
	if rec.SID != "s1" {
		t.Errorf("sid = %q", rec.SID)
	}
	if rec.TS%time.Minute.Milliseconds() != 0 {
		t.Errorf("ts %d not floored to the monitoring interval", rec.TS)
	}
}
