package core

import (
	"context"
	"fmt"

	"github.com/flotilla-dev/flotilla/internal/interpolate"
	"github.com/flotilla-dev/flotilla/internal/periphery"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// defaultTerminationTimeout applies when a deployment does not set one.
const defaultTerminationTimeout = 10

// Deploy resolves the deployment's image, interpolates its templates,
// and tells the agent to pull and (re)create the container. The full
// attempt, including a failed agent call, lands in the returned update.
func (s *State) Deploy(ctx context.Context, user *types.User, deploymentID string) (types.Update, error) {
	if s.Deployments.Busy(deploymentID) {
		return types.Update{}, ErrDeploymentBusy
	}
	d, err := s.Store.GetDeployment(deploymentID)
	if err != nil {
		return types.Update{}, err
	}
	if err := requireLevel(user, d.Permissions, types.PermissionExecute); err != nil {
		return types.Update{}, err
	}
	server, err := s.serverForAction(d.ServerID)
	if err != nil {
		return types.Update{}, err
	}

	s.Deployments.Update(deploymentID, func(st *types.DeploymentActionState) { st.Deploying = true })
	defer s.Deployments.Update(deploymentID, func(st *types.DeploymentActionState) { st.Deploying = false })

	update := newUpdate(types.DeploymentTarget(deploymentID), types.OpDeployContainer, user.ID)
	if err := s.Store.CreateUpdate(&update); err != nil {
		return types.Update{}, err
	}

	if err := s.resolveImage(&d, &update); err != nil {
		update.PushErrorLog("resolve image", err.Error())
		s.finalizeUpdate(&update)
		return update, nil
	}
	if err := s.interpolateDeployment(&d, &update); err != nil {
		update.PushErrorLog("interpolate", err.Error())
		s.finalizeUpdate(&update)
		return update, nil
	}

	signal, timeout := terminationParams(d)
	agent := s.Agents(&server)
	log, err := agent.Deploy(ctx, periphery.DeployRequest{
		Deployment: d,
		StopSignal: signal,
		StopTime:   timeout,
	})
	if err != nil {
		update.PushErrorLog("deploy container", err.Error())
	} else {
		update.Logs = append(update.Logs, log)
	}

	s.refreshContainers(ctx, agent, server.ID)
	s.finalizeUpdate(&update)
	return update, nil
}

// resolveImage turns a build-sourced image into a direct reference,
// stamping the update with the deployed version. Deployments without a
// docker account inherit the build's.
func (s *State) resolveImage(d *types.Deployment, update *types.Update) error {
	if d.Image.Type != types.ImageFromBuild {
		return nil
	}
	build, err := s.Store.GetBuild(d.Image.BuildID)
	if err != nil {
		return fmt.Errorf("resolve build for deployment: %w", err)
	}
	version := build.Version
	if d.Image.Version != "" {
		version = d.Image.Version
	}
	d.Image = types.DeploymentImage{
		Type:  types.ImageFromRef,
		Image: fmt.Sprintf("%s:%s", build.ImageName, version),
	}
	if d.DockerAccount == "" {
		d.DockerAccount = build.DockerAccount
	}
	update.Version = version
	return nil
}

// interpolateDeployment substitutes variables and secrets into the
// deployment's templates and writes the audit trail.
func (s *State) interpolateDeployment(d *types.Deployment, update *types.Update) error {
	vs, err := s.variablesAndSecrets()
	if err != nil {
		return fmt.Errorf("load variables: %w", err)
	}
	global, secret := interpolate.NewSet(), interpolate.NewSet()
	interpolate.IntoEnvironment(d.Environment, vs, global, secret)
	interpolate.IntoArgs(d.ExtraArgs, vs, global, secret)
	interpolate.IntoCommand(&d.OnDeploy, vs, global, secret)
	interpolate.AddLog(update, global, secret)
	return nil
}

func terminationParams(d types.Deployment) (string, int) {
	timeout := d.TerminationTimeout
	if timeout <= 0 {
		timeout = defaultTerminationTimeout
	}
	return d.TerminationSignal, timeout
}

// terminationOverrides resolves a request's optional signal/time
// against the deployment's configured termination params.
func terminationOverrides(d types.Deployment, signal string, timeout int) (string, int) {
	cfgSignal, cfgTimeout := terminationParams(d)
	if signal == "" {
		signal = cfgSignal
	}
	if timeout <= 0 {
		timeout = cfgTimeout
	}
	return signal, timeout
}

// containerAction is the shared admission and lifecycle around the
// start/stop/remove calls. The container carries the deployment's name.
func (s *State) containerAction(
	ctx context.Context,
	user *types.User,
	deploymentID string,
	op types.Operation,
	stage string,
	flag func(*types.DeploymentActionState) *bool,
	call func(ctx context.Context, agent Agent, d types.Deployment) (types.Log, error),
) (types.Update, error) {
	if s.Deployments.Busy(deploymentID) {
		return types.Update{}, ErrDeploymentBusy
	}
	d, err := s.Store.GetDeployment(deploymentID)
	if err != nil {
		return types.Update{}, err
	}
	if err := requireLevel(user, d.Permissions, types.PermissionExecute); err != nil {
		return types.Update{}, err
	}
	server, err := s.serverForAction(d.ServerID)
	if err != nil {
		return types.Update{}, err
	}

	s.Deployments.Update(deploymentID, func(st *types.DeploymentActionState) { *flag(st) = true })
	defer s.Deployments.Update(deploymentID, func(st *types.DeploymentActionState) { *flag(st) = false })

	update := newUpdate(types.DeploymentTarget(deploymentID), op, user.ID)
	if err := s.Store.CreateUpdate(&update); err != nil {
		return types.Update{}, err
	}

	agent := s.Agents(&server)
	log, err := call(ctx, agent, d)
	if err != nil {
		update.PushErrorLog(stage, err.Error())
	} else {
		update.Logs = append(update.Logs, log)
	}

	s.refreshContainers(ctx, agent, server.ID)
	s.finalizeUpdate(&update)
	return update, nil
}

// StartContainer starts the deployment's container.
func (s *State) StartContainer(ctx context.Context, user *types.User, deploymentID string) (types.Update, error) {
	return s.containerAction(ctx, user, deploymentID, types.OpStartContainer, "start container",
		func(st *types.DeploymentActionState) *bool { return &st.Starting },
		func(ctx context.Context, agent Agent, d types.Deployment) (types.Log, error) {
			return agent.StartContainer(ctx, d.Name)
		})
}

// StopContainer stops the deployment's container. An empty signal or
// non-positive timeout falls back to the deployment's configured
// termination params.
func (s *State) StopContainer(ctx context.Context, user *types.User, deploymentID, signal string, timeout int) (types.Update, error) {
	return s.containerAction(ctx, user, deploymentID, types.OpStopContainer, "stop container",
		func(st *types.DeploymentActionState) *bool { return &st.Stopping },
		func(ctx context.Context, agent Agent, d types.Deployment) (types.Log, error) {
			signal, timeout := terminationOverrides(d, signal, timeout)
			return agent.StopContainer(ctx, d.Name, signal, timeout)
		})
}

// RemoveContainer stops and deletes the deployment's container. The
// deployment itself stays configured. Signal/timeout resolve like
// StopContainer.
func (s *State) RemoveContainer(ctx context.Context, user *types.User, deploymentID, signal string, timeout int) (types.Update, error) {
	return s.containerAction(ctx, user, deploymentID, types.OpRemoveContainer, "remove container",
		func(st *types.DeploymentActionState) *bool { return &st.Removing },
		func(ctx context.Context, agent Agent, d types.Deployment) (types.Log, error) {
			signal, timeout := terminationOverrides(d, signal, timeout)
			return agent.RemoveContainer(ctx, d.Name, signal, timeout)
		})
}
