package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// RunBuild bumps the build's patch version, runs the docker build on
// the builder server, and persists the new version only when every
// build stage succeeded.
func (s *State) RunBuild(ctx context.Context, user *types.User, buildID string) (types.Update, error) {
	if s.Builds.Busy(buildID) {
		return types.Update{}, ErrBuildBusy
	}
	build, err := s.Store.GetBuild(buildID)
	if err != nil {
		return types.Update{}, err
	}
	if err := requireLevel(user, build.Permissions, types.PermissionExecute); err != nil {
		return types.Update{}, err
	}
	server, err := s.serverForAction(build.ServerID)
	if err != nil {
		return types.Update{}, err
	}

	s.Builds.Update(buildID, func(st *types.BuildActionState) { st.Building = true })
	defer s.Builds.Update(buildID, func(st *types.BuildActionState) { st.Building = false })

	update := newUpdate(types.BuildTarget(buildID), types.OpRunBuild, user.ID)
	if err := s.Store.CreateUpdate(&update); err != nil {
		return types.Update{}, err
	}

	next := bumpPatch(build.Version)
	update.Version = next
	attempt := build
	attempt.Version = next

	logs, err := s.Agents(&server).Build(ctx, attempt)
	if err != nil {
		update.PushErrorLog("run build", err.Error())
	} else {
		update.Logs = append(update.Logs, logs...)
	}
	s.finalizeUpdate(&update)

	if update.Success {
		build.Version = next
		build.UpdatedAt = types.Now()
		if err := s.Store.ReplaceBuild(build.Name, &build); err != nil {
			s.Log.Error("persist build version", "build", build.Name, "version", next, "err", err)
		}
	}
	return update, nil
}

// bumpPatch increments the patch component of an x.y.z version. A
// malformed or empty version restarts at 0.0.1.
func bumpPatch(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) == 3 {
		patch, err := strconv.Atoi(parts[2])
		if err == nil {
			return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1)
		}
	}
	return "0.0.1"
}
