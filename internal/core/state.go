// Package core implements the coordinator's action handlers: the
// resource CRUD, the execute pipeline against periphery agents, and the
// read surface over the store and status cache. Handlers share one
// State and are safe for concurrent use.
package core

import (
	"context"

	"github.com/flotilla-dev/flotilla/internal/actionstate"
	"github.com/flotilla-dev/flotilla/internal/cache"
	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/interpolate"
	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/periphery"
	"github.com/flotilla-dev/flotilla/internal/store"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// Agent is the periphery surface the handlers call. The concrete
// implementation is periphery.Client; tests substitute fakes.
type Agent interface {
	Health(ctx context.Context) error
	Version(ctx context.Context) (string, error)
	SystemStats(ctx context.Context) (types.SystemStats, error)
	ListContainers(ctx context.Context) ([]types.ContainerSummary, error)
	Deploy(ctx context.Context, req periphery.DeployRequest) (types.Log, error)
	StartContainer(ctx context.Context, name string) (types.Log, error)
	StopContainer(ctx context.Context, name, signal string, time int) (types.Log, error)
	RemoveContainer(ctx context.Context, name, signal string, time int) (types.Log, error)
	PruneContainers(ctx context.Context) (types.Log, error)
	ListImages(ctx context.Context) ([]types.ImageSummary, error)
	PruneImages(ctx context.Context) (types.Log, error)
	ListNetworks(ctx context.Context) ([]types.NetworkSummary, error)
	PruneNetworks(ctx context.Context) (types.Log, error)
	Build(ctx context.Context, build types.Build) ([]types.Log, error)
	GetAccounts(ctx context.Context, kind string) ([]string, error)
	GetSecrets(ctx context.Context) ([]string, error)
}

// AgentFactory builds the agent client for one server.
type AgentFactory func(server *types.Server) Agent

// State bundles everything the handlers need.
type State struct {
	Cfg    *config.Core
	Log    *logging.Logger
	Store  *store.Store
	Status *cache.StatusCache

	Servers     *actionstate.Registry[types.ServerActionState]
	Deployments *actionstate.Registry[types.DeploymentActionState]
	Builds      *actionstate.Registry[types.BuildActionState]

	Agents AgentFactory
}

// NewState wires a State with empty action registries and the real
// periphery client factory.
func NewState(cfg *config.Core, log *logging.Logger, st *store.Store, status *cache.StatusCache) *State {
	return &State{
		Cfg:         cfg,
		Log:         log,
		Store:       st,
		Status:      status,
		Servers:     actionstate.NewRegistry[types.ServerActionState](),
		Deployments: actionstate.NewRegistry[types.DeploymentActionState](),
		Builds:      actionstate.NewRegistry[types.BuildActionState](),
		Agents: func(server *types.Server) Agent {
			return periphery.NewClient(server, cfg.PeripheryPasskey, cfg.RequestTimeout)
		},
	}
}

// serverForAction loads the server an action targets and gates on its
// cached status: actions only dispatch to servers currently polled Ok.
func (s *State) serverForAction(serverID string) (types.Server, error) {
	if serverID == "" {
		return types.Server{}, ErrNoServer
	}
	server, err := s.Store.GetServer(serverID)
	if err != nil {
		return types.Server{}, err
	}
	rec, ok := s.Status.Get(serverID)
	if !ok || rec.Status != types.ServerOK {
		return types.Server{}, ErrServerUnavailable
	}
	return server, nil
}

// variablesAndSecrets loads the interpolation maps from the store.
func (s *State) variablesAndSecrets() (interpolate.VariablesAndSecrets, error) {
	all, err := s.Store.ListVariables()
	if err != nil {
		return interpolate.VariablesAndSecrets{}, err
	}
	vs := interpolate.VariablesAndSecrets{
		Variables: make(map[string]string),
		Secrets:   make(map[string]string),
	}
	for _, v := range all {
		if v.IsSecret {
			vs.Secrets[v.Name] = v.Value
		} else {
			vs.Variables[v.Name] = v.Value
		}
	}
	return vs, nil
}

// refreshContainers re-lists containers after an action so reads see
// the new state before the next poll cycle.
func (s *State) refreshContainers(ctx context.Context, agent Agent, serverID string) {
	containers, err := agent.ListContainers(ctx)
	if err != nil {
		s.Log.Debug("refresh containers after action", "server", serverID, "err", err)
		return
	}
	s.Status.SetContainers(serverID, containers, types.Now())
}
