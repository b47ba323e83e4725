package core

import (
	"context"
	"fmt"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// RunProcedure executes the procedure's stages in order, each stage
// dispatching through the normal action pipeline with its own admission
// checks and update record. The first failed stage aborts the rest.
func (s *State) RunProcedure(ctx context.Context, user *types.User, procedureID string) (types.Update, error) {
	proc, err := s.Store.GetProcedure(procedureID)
	if err != nil {
		return types.Update{}, err
	}
	if err := requireLevel(user, proc.Permissions, types.PermissionExecute); err != nil {
		return types.Update{}, err
	}

	update := newUpdate(types.ProcedureTarget(procedureID), types.OpRunProcedure, user.ID)
	if err := s.Store.CreateUpdate(&update); err != nil {
		return types.Update{}, err
	}

	for i, stage := range proc.Stages {
		label := fmt.Sprintf("stage %d: %s", i+1, stage.Operation)
		sub, err := s.runStage(ctx, user, stage)
		if err != nil {
			update.PushErrorLog(label, err.Error())
			break
		}
		if !sub.Success {
			update.PushErrorLog(label, fmt.Sprintf("action failed, see update %s", sub.ID))
			break
		}
		update.PushSimpleLog(label, fmt.Sprintf("action complete, see update %s", sub.ID))
	}

	s.finalizeUpdate(&update)
	return update, nil
}

// runStage maps one stage onto its execute handler.
func (s *State) runStage(ctx context.Context, user *types.User, stage types.ProcedureStage) (types.Update, error) {
	switch stage.Operation {
	case types.OpDeployContainer:
		return s.Deploy(ctx, user, stage.TargetID)
	case types.OpStartContainer:
		return s.StartContainer(ctx, user, stage.TargetID)
	case types.OpStopContainer:
		return s.StopContainer(ctx, user, stage.TargetID, "", 0)
	case types.OpRemoveContainer:
		return s.RemoveContainer(ctx, user, stage.TargetID, "", 0)
	case types.OpPruneContainersServer:
		return s.PruneContainers(ctx, user, stage.TargetID)
	case types.OpPruneImagesServer:
		return s.PruneImages(ctx, user, stage.TargetID)
	case types.OpPruneNetworksServer:
		return s.PruneNetworks(ctx, user, stage.TargetID)
	case types.OpStopAllContainers:
		return s.StopAllContainers(ctx, user, stage.TargetID)
	case types.OpRunBuild:
		return s.RunBuild(ctx, user, stage.TargetID)
	default:
		return types.Update{}, fmt.Errorf("operation %q cannot run in a procedure", stage.Operation)
	}
}
