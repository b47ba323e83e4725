package cache

import (
	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// deriveAlerts compares two consecutive poll snapshots of a server and
// returns the alerts the transition warrants. First observation of a
// server (prevKnown false) never alerts: there is nothing to compare
// against, and restarts would otherwise replay the whole fleet state.
func deriveAlerts(server types.Server, prev types.ServerStatusRecord, prevKnown bool, next types.ServerStatusRecord, thresholds config.Thresholds) []types.Alert {
	if !prevKnown || next.Status == types.ServerDisabled {
		return nil
	}
	now := types.Now()
	var alerts []types.Alert

	// Reachability flips alert in both directions.
	if prev.Status != next.Status && prev.Status != types.ServerDisabled {
		level := types.SeverityCritical
		if next.Status == types.ServerOK {
			level = types.SeverityOK
		}
		alerts = append(alerts, types.Alert{
			Type:   types.AlertServerUnreachable,
			Level:  level,
			Ts:     now,
			Name:   server.Name,
			Region: server.Region,
		})
	}

	if prev.Stats != nil && next.Stats != nil {
		alerts = append(alerts, statsAlerts(server, *prev.Stats, *next.Stats, thresholds, now)...)
	}
	alerts = append(alerts, containerAlerts(server, prev.Containers, next.Containers, now)...)
	return alerts
}

// statsAlerts emits an alert when a metric's severity rises, and an Ok
// alert when it recovers from Critical.
func statsAlerts(server types.Server, prev, next types.SystemStats, thresholds config.Thresholds, now int64) []types.Alert {
	var alerts []types.Alert

	prevCPU := Grade(prev.CPU.CPUPerc, thresholds.CPU)
	nextCPU := Grade(next.CPU.CPUPerc, thresholds.CPU)
	if shouldAlert(prevCPU, nextCPU) {
		alerts = append(alerts, types.Alert{
			Type: types.AlertServerCPU, Level: nextCPU, Ts: now,
			Name: server.Name, Region: server.Region,
			Percentage: next.CPU.CPUPerc,
		})
	}

	prevMem := Grade(memPct(prev.Basic), thresholds.Mem)
	nextMem := Grade(memPct(next.Basic), thresholds.Mem)
	if shouldAlert(prevMem, nextMem) {
		alerts = append(alerts, types.Alert{
			Type: types.AlertServerMem, Level: nextMem, Ts: now,
			Name: server.Name, Region: server.Region,
			UsedGB: next.Basic.MemUsedGB, TotalGB: next.Basic.MemTotalGB,
		})
	}

	prevDisks := make(map[string]types.Severity, len(prev.Disk.Disks))
	for _, d := range prev.Disk.Disks {
		prevDisks[d.Mount] = Grade(diskPct(d), thresholds.Disk)
	}
	for _, d := range next.Disk.Disks {
		before, seen := prevDisks[d.Mount]
		if !seen {
			continue
		}
		after := Grade(diskPct(d), thresholds.Disk)
		if shouldAlert(before, after) {
			alerts = append(alerts, types.Alert{
				Type: types.AlertServerDisk, Level: after, Ts: now,
				Name: server.Name, Region: server.Region,
				Path: d.Mount, UsedGB: d.UsedGB, TotalGB: d.TotalGB,
			})
		}
	}
	return alerts
}

// shouldAlert: any severity increase, or recovery to Ok from Critical.
// Critical -> Warning stays silent until it either recovers fully or
// escalates again.
func shouldAlert(prev, next types.Severity) bool {
	if next > prev {
		return true
	}
	return prev == types.SeverityCritical && next == types.SeverityOK
}

// containerAlerts reports state changes for containers present in both
// snapshots, and treats disappearance as a transition to not_deployed.
// Newly appeared containers stay silent: every deploy would otherwise
// alert on its own container.
func containerAlerts(server types.Server, prev, next []types.ContainerSummary, now int64) []types.Alert {
	current := make(map[string]types.ContainerState, len(next))
	for _, c := range next {
		current[c.Name] = c.State
	}
	var alerts []types.Alert
	for _, c := range prev {
		to, present := current[c.Name]
		if !present {
			to = types.ContainerNotDeployed
		}
		if to == c.State {
			continue
		}
		alerts = append(alerts, types.Alert{
			Type: types.AlertContainerStateChange, Ts: now,
			Name: c.Name, ServerName: server.Name,
			From: c.State, To: to,
		})
	}
	return alerts
}
