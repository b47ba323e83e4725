package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// serverAction is the shared admission and lifecycle around
// server-scoped actions (prunes, stop-all).
func (s *State) serverAction(
	ctx context.Context,
	user *types.User,
	serverID string,
	op types.Operation,
	flag func(*types.ServerActionState) *bool,
	run func(ctx context.Context, agent Agent, server types.Server, update *types.Update),
) (types.Update, error) {
	if s.Servers.Busy(serverID) {
		return types.Update{}, ErrServerBusy
	}
	server, err := s.Store.GetServer(serverID)
	if err != nil {
		return types.Update{}, err
	}
	if err := requireLevel(user, server.Permissions, types.PermissionExecute); err != nil {
		return types.Update{}, err
	}
	if _, err := s.serverForAction(serverID); err != nil {
		return types.Update{}, err
	}

	s.Servers.Update(serverID, func(st *types.ServerActionState) { *flag(st) = true })
	defer s.Servers.Update(serverID, func(st *types.ServerActionState) { *flag(st) = false })

	update := newUpdate(types.ServerTarget(serverID), op, user.ID)
	if err := s.Store.CreateUpdate(&update); err != nil {
		return types.Update{}, err
	}

	agent := s.Agents(&server)
	run(ctx, agent, server, &update)

	s.refreshContainers(ctx, agent, server.ID)
	s.finalizeUpdate(&update)
	return update, nil
}

// pruneAction runs one agent prune call under the given flag.
func (s *State) pruneAction(
	ctx context.Context,
	user *types.User,
	serverID string,
	op types.Operation,
	flag func(*types.ServerActionState) *bool,
	call func(ctx context.Context, agent Agent) (types.Log, error),
) (types.Update, error) {
	return s.serverAction(ctx, user, serverID, op, flag,
		func(ctx context.Context, agent Agent, _ types.Server, update *types.Update) {
			log, err := call(ctx, agent)
			if err != nil {
				update.PushErrorLog(string(op), err.Error())
				return
			}
			update.Logs = append(update.Logs, log)
		})
}

// PruneContainers removes stopped containers on the server.
func (s *State) PruneContainers(ctx context.Context, user *types.User, serverID string) (types.Update, error) {
	return s.pruneAction(ctx, user, serverID, types.OpPruneContainersServer,
		func(st *types.ServerActionState) *bool { return &st.PruningContainers },
		func(ctx context.Context, agent Agent) (types.Log, error) { return agent.PruneContainers(ctx) })
}

// PruneImages removes dangling images on the server.
func (s *State) PruneImages(ctx context.Context, user *types.User, serverID string) (types.Update, error) {
	return s.pruneAction(ctx, user, serverID, types.OpPruneImagesServer,
		func(st *types.ServerActionState) *bool { return &st.PruningImages },
		func(ctx context.Context, agent Agent) (types.Log, error) { return agent.PruneImages(ctx) })
}

// PruneNetworks removes unused networks on the server.
func (s *State) PruneNetworks(ctx context.Context, user *types.User, serverID string) (types.Update, error) {
	return s.pruneAction(ctx, user, serverID, types.OpPruneNetworksServer,
		func(st *types.ServerActionState) *bool { return &st.PruningNetworks },
		func(ctx context.Context, agent Agent) (types.Log, error) { return agent.PruneNetworks(ctx) })
}

// StopAllContainers stops the container of every deployment pinned to
// the server, fanning the stops out concurrently and joining before
// the update finalizes. The first log names every targeted deployment;
// any failed stop marks the whole update unsuccessful without
// affecting the other stops.
func (s *State) StopAllContainers(ctx context.Context, user *types.User, serverID string) (types.Update, error) {
	return s.serverAction(ctx, user, serverID, types.OpStopAllContainers,
		func(st *types.ServerActionState) *bool { return &st.StoppingContainers },
		func(ctx context.Context, agent Agent, server types.Server, update *types.Update) {
			deployments, err := s.Store.ListDeploymentsOnServer(server.ID)
			if err != nil {
				update.PushErrorLog("list deployments", err.Error())
				return
			}

			names := make([]string, len(deployments))
			for i, d := range deployments {
				names[i] = fmt.Sprintf("%s (%s)", d.Name, d.ID)
			}
			update.PushSimpleLog("stopping containers", strings.Join(names, "\n"))

			logs := make([]types.Log, len(deployments))
			var wg sync.WaitGroup
			for i, d := range deployments {
				wg.Add(1)
				go func(i int, d types.Deployment) {
					defer wg.Done()
					signal, timeout := terminationParams(d)
					log, err := agent.StopContainer(ctx, d.Name, signal, timeout)
					if err != nil {
						log = types.ErrorLog("stop container failure",
							fmt.Sprintf("failed to stop container %s (%s)\n\n%s", d.Name, d.ID, err))
					}
					logs[i] = log
				}(i, d)
			}
			wg.Wait()
			update.Logs = append(update.Logs, logs...)
		})
}
