package core

import (
	"context"

	"github.com/flotilla-dev/flotilla/internal/store"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// StatsPerPage bounds one page of historical stats.
const StatsPerPage = 500

// ---- servers ----

func (s *State) GetServer(user *types.User, serverID string) (types.Server, error) {
	server, err := s.Store.GetServer(serverID)
	if err != nil {
		return types.Server{}, err
	}
	if !canRead(user, server.Permissions) {
		return types.Server{}, ErrPermissionDenied
	}
	return server, nil
}

func (s *State) ListServers(user *types.User) ([]types.Server, error) {
	all, err := s.Store.ListServers()
	if err != nil {
		return nil, err
	}
	out := make([]types.Server, 0, len(all))
	for _, server := range all {
		if canRead(user, server.Permissions) {
			out = append(out, server)
		}
	}
	return out, nil
}

// ServersSummary tallies fleet health from the status cache.
type ServersSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Disabled  int `json:"disabled"`
	Unknown   int `json:"unknown"` // registered but not yet polled
}

func (s *State) GetServersSummary(user *types.User) (ServersSummary, error) {
	servers, err := s.ListServers(user)
	if err != nil {
		return ServersSummary{}, err
	}
	summary := ServersSummary{Total: len(servers)}
	for _, server := range servers {
		rec, ok := s.Status.Get(server.ID)
		switch {
		case !ok:
			summary.Unknown++
		case rec.Status == types.ServerOK:
			summary.Healthy++
		case rec.Status == types.ServerDisabled:
			summary.Disabled++
		default:
			summary.Unhealthy++
		}
	}
	return summary, nil
}

// GetServerStatus returns the cached poll snapshot. Servers never
// polled yet read as NotOk with no stats.
func (s *State) GetServerStatus(user *types.User, serverID string) (types.ServerStatusRecord, error) {
	if _, err := s.GetServer(user, serverID); err != nil {
		return types.ServerStatusRecord{}, err
	}
	rec, ok := s.Status.Get(serverID)
	if !ok {
		return types.ServerStatusRecord{Status: types.ServerNotOK}, nil
	}
	return rec, nil
}

// GetSystemStats returns the latest cached stats snapshot for a server.
func (s *State) GetSystemStats(user *types.User, serverID string) (*types.SystemStats, error) {
	rec, err := s.GetServerStatus(user, serverID)
	if err != nil {
		return nil, err
	}
	return rec.Stats, nil
}

// GetPeripheryVersion returns the agent version captured on the last
// successful poll.
func (s *State) GetPeripheryVersion(user *types.User, serverID string) (string, error) {
	rec, err := s.GetServerStatus(user, serverID)
	if err != nil {
		return "", err
	}
	return rec.Version, nil
}

// The sub-slice readers below serialize pieces of the cached snapshot
// directly, so dashboards polling one panel don't pull the whole thing.

func (s *State) GetBasicSystemStats(user *types.User, serverID string) (types.BasicSystemStats, error) {
	stats, err := s.GetSystemStats(user, serverID)
	if err != nil || stats == nil {
		return types.BasicSystemStats{}, err
	}
	return stats.Basic, nil
}

func (s *State) GetCpuUsage(user *types.User, serverID string) (types.CPUUsage, error) {
	stats, err := s.GetSystemStats(user, serverID)
	if err != nil || stats == nil {
		return types.CPUUsage{}, err
	}
	return stats.CPU, nil
}

func (s *State) GetDiskUsage(user *types.User, serverID string) (types.DiskUsage, error) {
	stats, err := s.GetSystemStats(user, serverID)
	if err != nil || stats == nil {
		return types.DiskUsage{}, err
	}
	return stats.Disk, nil
}

func (s *State) GetNetworkUsage(user *types.User, serverID string) (types.NetworkUsage, error) {
	stats, err := s.GetSystemStats(user, serverID)
	if err != nil || stats == nil {
		return types.NetworkUsage{}, err
	}
	return stats.Network, nil
}

func (s *State) GetServerContainers(user *types.User, serverID string) ([]types.ContainerSummary, error) {
	rec, err := s.GetServerStatus(user, serverID)
	if err != nil {
		return nil, err
	}
	return rec.Containers, nil
}

// GetDockerImages lists images live from the server's agent.
func (s *State) GetDockerImages(ctx context.Context, user *types.User, serverID string) ([]types.ImageSummary, error) {
	server, err := s.GetServer(user, serverID)
	if err != nil {
		return nil, err
	}
	if _, err := s.serverForAction(serverID); err != nil {
		return nil, err
	}
	return s.Agents(&server).ListImages(ctx)
}

// GetDockerNetworks lists networks live from the server's agent.
func (s *State) GetDockerNetworks(ctx context.Context, user *types.User, serverID string) ([]types.NetworkSummary, error) {
	server, err := s.GetServer(user, serverID)
	if err != nil {
		return nil, err
	}
	if _, err := s.serverForAction(serverID); err != nil {
		return nil, err
	}
	return s.Agents(&server).ListNetworks(ctx)
}

// HistoricalStats is one page of persisted stats samples, newest first.
// NextPage is -1 on the last page.
type HistoricalStats struct {
	Stats    []types.SystemStatsRecord `json:"stats"`
	NextPage int                       `json:"next_page"`
}

// GetHistoricalServerStats pages backwards through persisted samples at
// the given interval granularity, StatsPerPage timestamps per page.
func (s *State) GetHistoricalServerStats(user *types.User, serverID string, interval int64, page int) (HistoricalStats, error) {
	if _, err := s.GetServer(user, serverID); err != nil {
		return HistoricalStats{}, err
	}
	if interval <= 0 {
		interval = s.Cfg.MonitoringInterval.Milliseconds()
	}
	if page < 0 {
		page = 0
	}
	newest := types.Now() / interval * interval
	timestamps := make([]int64, 0, StatsPerPage)
	for i := 0; i < StatsPerPage; i++ {
		timestamps = append(timestamps, newest-int64(page*StatsPerPage+i)*interval)
	}
	records, err := s.Store.StatsAtTimestamps(serverID, timestamps)
	if err != nil {
		return HistoricalStats{}, err
	}
	out := HistoricalStats{Stats: records, NextPage: -1}
	if len(records) == StatsPerPage {
		out.NextPage = page + 1
	}
	return out, nil
}

// ---- deployments ----

// DeploymentWithContainer pairs a deployment with its container's
// cached state on the attached server.
type DeploymentWithContainer struct {
	Deployment types.Deployment        `json:"deployment"`
	State      types.ContainerState    `json:"state"`
	Container  *types.ContainerSummary `json:"container,omitempty"`
}

func (s *State) attachContainer(d types.Deployment) DeploymentWithContainer {
	out := DeploymentWithContainer{Deployment: d, State: types.ContainerUnknown}
	if d.ServerID == "" {
		out.State = types.ContainerNotDeployed
		return out
	}
	rec, ok := s.Status.Get(d.ServerID)
	if !ok || rec.Status != types.ServerOK {
		return out
	}
	for i := range rec.Containers {
		if rec.Containers[i].Name == d.Name {
			out.State = rec.Containers[i].State
			out.Container = &rec.Containers[i]
			return out
		}
	}
	out.State = types.ContainerNotDeployed
	return out
}

func (s *State) GetDeployment(user *types.User, deploymentID string) (DeploymentWithContainer, error) {
	d, err := s.Store.GetDeployment(deploymentID)
	if err != nil {
		return DeploymentWithContainer{}, err
	}
	if !canRead(user, d.Permissions) {
		return DeploymentWithContainer{}, ErrPermissionDenied
	}
	return s.attachContainer(d), nil
}

func (s *State) ListDeployments(user *types.User) ([]DeploymentWithContainer, error) {
	all, err := s.Store.ListDeployments()
	if err != nil {
		return nil, err
	}
	out := make([]DeploymentWithContainer, 0, len(all))
	for _, d := range all {
		if canRead(user, d.Permissions) {
			out = append(out, s.attachContainer(d))
		}
	}
	return out, nil
}

// ---- builds ----

func (s *State) GetBuild(user *types.User, buildID string) (types.Build, error) {
	b, err := s.Store.GetBuild(buildID)
	if err != nil {
		return types.Build{}, err
	}
	if !canRead(user, b.Permissions) {
		return types.Build{}, ErrPermissionDenied
	}
	return b, nil
}

func (s *State) ListBuilds(user *types.User) ([]types.Build, error) {
	all, err := s.Store.ListBuilds()
	if err != nil {
		return nil, err
	}
	out := make([]types.Build, 0, len(all))
	for _, b := range all {
		if canRead(user, b.Permissions) {
			out = append(out, b)
		}
	}
	return out, nil
}

// ---- procedures / alerters / tags ----

func (s *State) GetProcedure(user *types.User, procedureID string) (types.Procedure, error) {
	p, err := s.Store.GetProcedure(procedureID)
	if err != nil {
		return types.Procedure{}, err
	}
	if !canRead(user, p.Permissions) {
		return types.Procedure{}, ErrPermissionDenied
	}
	return p, nil
}

func (s *State) ListProcedures(user *types.User) ([]types.Procedure, error) {
	all, err := s.Store.ListProcedures()
	if err != nil {
		return nil, err
	}
	out := make([]types.Procedure, 0, len(all))
	for _, p := range all {
		if canRead(user, p.Permissions) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *State) GetAlerter(user *types.User, alerterID string) (types.Alerter, error) {
	a, err := s.Store.GetAlerter(alerterID)
	if err != nil {
		return types.Alerter{}, err
	}
	if !canRead(user, a.Permissions) {
		return types.Alerter{}, ErrPermissionDenied
	}
	return a, nil
}

func (s *State) ListAlerters(user *types.User) ([]types.Alerter, error) {
	all, err := s.Store.ListAlerters()
	if err != nil {
		return nil, err
	}
	out := make([]types.Alerter, 0, len(all))
	for _, a := range all {
		if canRead(user, a.Permissions) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *State) ListTags(user *types.User) ([]types.Tag, error) {
	return s.Store.ListTags()
}

func (s *State) GetTag(user *types.User, tagID string) (types.Tag, error) {
	return s.Store.GetTag(tagID)
}

// ---- variables ----

// ListVariables returns every variable; secret values are redacted for
// non-admins.
func (s *State) ListVariables(user *types.User) ([]types.Variable, error) {
	all, err := s.Store.ListVariables()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].IsSecret && !user.Admin {
			all[i].Value = ""
		}
	}
	return all, nil
}

func (s *State) GetVariable(user *types.User, name string) (types.Variable, error) {
	v, err := s.Store.GetVariable(types.NormalizeName(name))
	if err != nil {
		return types.Variable{}, err
	}
	if v.IsSecret && !user.Admin {
		v.Value = ""
	}
	return v, nil
}

// ---- updates ----

func (s *State) GetUpdate(user *types.User, updateID string) (types.Update, error) {
	return s.Store.GetUpdate(updateID)
}

// ListUpdates returns the newest matching update records; limit
// defaults to 50.
func (s *State) ListUpdates(user *types.User, filter store.UpdateFilter, limit int) ([]types.Update, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.Store.ListUpdates(filter, limit)
}

// ---- action states ----

func (s *State) GetServerActionState(serverID string) types.ServerActionState {
	return s.Servers.Get(serverID)
}

func (s *State) GetDeploymentActionState(deploymentID string) types.DeploymentActionState {
	return s.Deployments.Get(deploymentID)
}

func (s *State) GetBuildActionState(buildID string) types.BuildActionState {
	return s.Builds.Get(buildID)
}

// ---- users ----

func (s *State) GetUser(user *types.User, userID string) (types.User, error) {
	if !user.Admin && user.ID != userID {
		return types.User{}, ErrPermissionDenied
	}
	u, err := s.Store.GetUser(userID)
	if err != nil {
		return types.User{}, err
	}
	return u.Sanitized(), nil
}

func (s *State) ListUsers(user *types.User) ([]types.User, error) {
	if !user.Admin {
		return nil, ErrPermissionDenied
	}
	all, err := s.Store.ListUsers()
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i] = all[i].Sanitized()
	}
	return all, nil
}

// ---- agent passthroughs ----

// GetAvailableAccounts lists account names ("github" or "docker")
// configured on a server's agent.
func (s *State) GetAvailableAccounts(ctx context.Context, user *types.User, serverID, kind string) ([]string, error) {
	server, err := s.GetServer(user, serverID)
	if err != nil {
		return nil, err
	}
	if _, err := s.serverForAction(serverID); err != nil {
		return nil, err
	}
	return s.Agents(&server).GetAccounts(ctx, kind)
}

// GetAvailableSecrets lists secret names configured on a server's agent.
func (s *State) GetAvailableSecrets(ctx context.Context, user *types.User, serverID string) ([]string, error) {
	server, err := s.GetServer(user, serverID)
	if err != nil {
		return nil, err
	}
	if _, err := s.serverForAction(serverID); err != nil {
		return nil, err
	}
	return s.Agents(&server).GetSecrets(ctx)
}
