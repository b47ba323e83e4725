package api

import (
	"context"
	"encoding/json"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// executeHandlers builds the /execute dispatch table. Every handler
// returns the finalized update record for the action.
func (s *Server) executeHandlers() map[string]handler {
	deploymentOp := func(run func(ctx context.Context, user *types.User, id string) (types.Update, error)) handler {
		return func(ctx context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				DeploymentID string `json:"deployment_id"`
			}](params)
			if err != nil {
				return nil, err
			}
			return run(ctx, user, p.DeploymentID)
		}
	}
	serverOp := func(run func(ctx context.Context, user *types.User, id string) (types.Update, error)) handler {
		return func(ctx context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[serverIDParams](params)
			if err != nil {
				return nil, err
			}
			return run(ctx, user, p.ServerID)
		}
	}

	// Stop and remove accept optional overrides for the termination
	// signal and timeout; absent values fall back to the deployment's
	// configured params.
	stopOp := func(run func(ctx context.Context, user *types.User, id, signal string, timeout int) (types.Update, error)) handler {
		return func(ctx context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				DeploymentID string `json:"deployment_id"`
				Signal       string `json:"signal,omitempty"`
				Time         int    `json:"time,omitempty"`
			}](params)
			if err != nil {
				return nil, err
			}
			return run(ctx, user, p.DeploymentID, p.Signal, p.Time)
		}
	}

	return map[string]handler{
		"Deploy":          deploymentOp(s.state.Deploy),
		"StartContainer":  deploymentOp(s.state.StartContainer),
		"StopContainer":   stopOp(s.state.StopContainer),
		"RemoveContainer": stopOp(s.state.RemoveContainer),

		"StopAllContainers": serverOp(s.state.StopAllContainers),
		"PruneContainers":   serverOp(s.state.PruneContainers),
		"PruneImages":       serverOp(s.state.PruneImages),
		"PruneNetworks":     serverOp(s.state.PruneNetworks),

		"RunBuild": func(ctx context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				BuildID string `json:"build_id"`
			}](params)
			if err != nil {
				return nil, err
			}
			return s.state.RunBuild(ctx, user, p.BuildID)
		},
		"RunProcedure": func(ctx context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				ProcedureID string `json:"procedure_id"`
			}](params)
			if err != nil {
				return nil, err
			}
			return s.state.RunProcedure(ctx, user, p.ProcedureID)
		},
	}
}
