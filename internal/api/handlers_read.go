package api

import (
	"context"
	"encoding/json"

	"github.com/flotilla-dev/flotilla/internal/store"
	"github.com/flotilla-dev/flotilla/internal/types"
)

type idParams struct {
	ID string `json:"id"`
}

type serverIDParams struct {
	ServerID string `json:"server_id"`
}

type nameParams struct {
	Name string `json:"name"`
}

// readHandlers builds the /read dispatch table.
func (s *Server) readHandlers() map[string]handler {
	return map[string]handler{
		// servers
		"GetServer": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetServer(user, p.ID)
		},
		"ListServers": func(_ context.Context, user *types.User, _ json.RawMessage) (any, error) {
			return s.state.ListServers(user)
		},
		"GetServersSummary": func(_ context.Context, user *types.User, _ json.RawMessage) (any, error) {
			return s.state.GetServersSummary(user)
		},
		"GetServerStatus": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetServerStatus(user, p.ServerID)
		},
		"GetPeripheryVersion": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			v, err := s.state.GetPeripheryVersion(user, p.ServerID)
			if err != nil {
				return nil, err
			}
			return map[string]string{"version": v}, nil
		},
		"GetAllSystemStats": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetSystemStats(user, p.ServerID)
		},
		"GetBasicSystemStats": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetBasicSystemStats(user, p.ServerID)
		},
		"GetCpuUsage": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetCpuUsage(user, p.ServerID)
		},
		"GetDiskUsage": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetDiskUsage(user, p.ServerID)
		},
		"GetNetworkUsage": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetNetworkUsage(user, p.ServerID)
		},
		"GetDockerContainers": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetServerContainers(user, p.ServerID)
		},
		"GetDockerImages": func(ctx context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetDockerImages(ctx, user, p.ServerID)
		},
		"GetDockerNetworks": func(ctx context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetDockerNetworks(ctx, user, p.ServerID)
		},
		"GetHistoricalServerStats": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				ServerID string `json:"server_id"`
				Interval int64  `json:"interval"` // milliseconds
				Page     int    `json:"page"`
			}](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetHistoricalServerStats(user, p.ServerID, p.Interval, p.Page)
		},
		"GetServerActionState": func(_ context.Context, _ *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetServerActionState(p.ServerID), nil
		},

		// deployments
		"GetDeployment": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetDeployment(user, p.ID)
		},
		"ListDeployments": func(_ context.Context, user *types.User, _ json.RawMessage) (any, error) {
			return s.state.ListDeployments(user)
		},
		"GetDeploymentActionState": func(_ context.Context, _ *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetDeploymentActionState(p.ID), nil
		},

		// builds
		"GetBuild": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetBuild(user, p.ID)
		},
		"ListBuilds": func(_ context.Context, user *types.User, _ json.RawMessage) (any, error) {
			return s.state.ListBuilds(user)
		},
		"GetBuildActionState": func(_ context.Context, _ *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetBuildActionState(p.ID), nil
		},

		// procedures
		"GetProcedure": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetProcedure(user, p.ID)
		},
		"ListProcedures": func(_ context.Context, user *types.User, _ json.RawMessage) (any, error) {
			return s.state.ListProcedures(user)
		},

		// alerters / tags / variables
		"GetAlerter": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetAlerter(user, p.ID)
		},
		"ListAlerters": func(_ context.Context, user *types.User, _ json.RawMessage) (any, error) {
			return s.state.ListAlerters(user)
		},
		"GetTag": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetTag(user, p.ID)
		},
		"ListTags": func(_ context.Context, user *types.User, _ json.RawMessage) (any, error) {
			return s.state.ListTags(user)
		},
		"GetVariable": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[nameParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetVariable(user, p.Name)
		},
		"ListVariables": func(_ context.Context, user *types.User, _ json.RawMessage) (any, error) {
			return s.state.ListVariables(user)
		},

		// updates
		"GetUpdate": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetUpdate(user, p.ID)
		},
		"ListUpdates": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				Target   *types.UpdateTarget `json:"target,omitempty"`
				Operator string              `json:"operator,omitempty"`
				Limit    int                 `json:"limit,omitempty"`
			}](params)
			if err != nil {
				return nil, err
			}
			return s.state.ListUpdates(user, store.UpdateFilter{Target: p.Target, Operator: p.Operator}, p.Limit)
		},

		// users
		"GetUser": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			if p.ID == "" {
				p.ID = user.ID
			}
			return s.state.GetUser(user, p.ID)
		},
		"ListUsers": func(_ context.Context, user *types.User, _ json.RawMessage) (any, error) {
			return s.state.ListUsers(user)
		},

		// agent passthroughs
		"GetAvailableAccounts": func(ctx context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				ServerID string `json:"server_id"`
				Kind     string `json:"kind"`
			}](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetAvailableAccounts(ctx, user, p.ServerID, p.Kind)
		},
		"GetAvailableSecrets": func(ctx context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.GetAvailableSecrets(ctx, user, p.ServerID)
		},
	}
}
