package core

import (
	"fmt"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// ---- servers ----

// CreateServer registers a host. Restricted to admins and users granted
// server creation.
func (s *State) CreateServer(user *types.User, server types.Server) (types.Server, error) {
	if !user.Admin && !user.CreateServerPermissions {
		return types.Server{}, ErrPermissionDenied
	}
	now := types.Now()
	server.ID = ""
	server.Name = types.NormalizeName(server.Name)
	server.Permissions = ownerPermissions(user)
	server.CreatedAt = now
	server.UpdatedAt = now
	if err := s.Store.CreateServer(&server); err != nil {
		return types.Server{}, err
	}
	s.recordWrite(types.ServerTarget(server.ID), types.OpCreateServer, user.ID,
		fmt.Sprintf("created server %s at %s", server.Name, server.Address))
	return server, nil
}

// UpdateServer overwrites a server's configuration. Permissions and
// creation time are never writable through this path.
func (s *State) UpdateServer(user *types.User, server types.Server) (types.Server, error) {
	existing, err := s.Store.GetServer(server.ID)
	if err != nil {
		return types.Server{}, err
	}
	if err := requireLevel(user, existing.Permissions, types.PermissionUpdate); err != nil {
		return types.Server{}, err
	}
	if s.Servers.Busy(server.ID) {
		return types.Server{}, ErrServerBusy
	}
	server.Name = types.NormalizeName(server.Name)
	server.Permissions = existing.Permissions
	server.CreatedAt = existing.CreatedAt
	server.UpdatedAt = types.Now()
	if err := s.Store.ReplaceServer(existing.Name, &server); err != nil {
		return types.Server{}, err
	}
	s.recordWrite(types.ServerTarget(server.ID), types.OpUpdateServer, user.ID,
		"updated server "+server.Name)
	return server, nil
}

// DeleteServer removes a host. Deployments pinned to it are detached,
// not deleted, so their configuration survives re-homing.
func (s *State) DeleteServer(user *types.User, serverID string) (types.Server, error) {
	server, err := s.Store.GetServer(serverID)
	if err != nil {
		return types.Server{}, err
	}
	if err := requireLevel(user, server.Permissions, types.PermissionUpdate); err != nil {
		return types.Server{}, err
	}
	if s.Servers.Busy(serverID) {
		return types.Server{}, ErrServerBusy
	}
	deployments, err := s.Store.ListDeploymentsOnServer(serverID)
	if err != nil {
		return types.Server{}, err
	}
	for _, d := range deployments {
		d.ServerID = ""
		d.UpdatedAt = types.Now()
		if err := s.Store.ReplaceDeployment(d.Name, &d); err != nil {
			return types.Server{}, fmt.Errorf("detach deployment %s: %w", d.Name, err)
		}
	}
	if err := s.Store.DeleteServer(serverID, server.Name); err != nil {
		return types.Server{}, err
	}
	s.Status.Delete(serverID)
	s.recordWrite(types.ServerTarget(serverID), types.OpDeleteServer, user.ID,
		fmt.Sprintf("deleted server %s, detached %d deployments", server.Name, len(deployments)))
	return server, nil
}

// ---- deployments ----

func (s *State) CreateDeployment(user *types.User, d types.Deployment) (types.Deployment, error) {
	if d.ServerID != "" {
		server, err := s.Store.GetServer(d.ServerID)
		if err != nil {
			return types.Deployment{}, err
		}
		if err := requireLevel(user, server.Permissions, types.PermissionExecute); err != nil {
			return types.Deployment{}, err
		}
	}
	now := types.Now()
	d.ID = ""
	d.Name = types.NormalizeName(d.Name)
	d.Permissions = ownerPermissions(user)
	d.CreatedAt = now
	d.UpdatedAt = now
	if err := s.Store.CreateDeployment(&d); err != nil {
		return types.Deployment{}, err
	}
	s.recordWrite(types.DeploymentTarget(d.ID), types.OpCreateDeployment, user.ID,
		"created deployment "+d.Name)
	return d, nil
}

func (s *State) UpdateDeployment(user *types.User, d types.Deployment) (types.Deployment, error) {
	existing, err := s.Store.GetDeployment(d.ID)
	if err != nil {
		return types.Deployment{}, err
	}
	if err := requireLevel(user, existing.Permissions, types.PermissionUpdate); err != nil {
		return types.Deployment{}, err
	}
	if s.Deployments.Busy(d.ID) {
		return types.Deployment{}, ErrDeploymentBusy
	}
	d.Name = types.NormalizeName(d.Name)
	d.Permissions = existing.Permissions
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = types.Now()
	if err := s.Store.ReplaceDeployment(existing.Name, &d); err != nil {
		return types.Deployment{}, err
	}
	s.recordWrite(types.DeploymentTarget(d.ID), types.OpUpdateDeployment, user.ID,
		"updated deployment "+d.Name)
	return d, nil
}

func (s *State) DeleteDeployment(user *types.User, deploymentID string) (types.Deployment, error) {
	d, err := s.Store.GetDeployment(deploymentID)
	if err != nil {
		return types.Deployment{}, err
	}
	if err := requireLevel(user, d.Permissions, types.PermissionUpdate); err != nil {
		return types.Deployment{}, err
	}
	if s.Deployments.Busy(deploymentID) {
		return types.Deployment{}, ErrDeploymentBusy
	}
	if err := s.Store.DeleteDeployment(deploymentID, d.Name); err != nil {
		return types.Deployment{}, err
	}
	s.recordWrite(types.DeploymentTarget(deploymentID), types.OpDeleteDeployment, user.ID,
		"deleted deployment "+d.Name)
	return d, nil
}

// ---- builds ----

func (s *State) CreateBuild(user *types.User, b types.Build) (types.Build, error) {
	now := types.Now()
	b.ID = ""
	b.Name = types.NormalizeName(b.Name)
	if b.Version == "" {
		b.Version = "0.0.0"
	}
	b.Permissions = ownerPermissions(user)
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := s.Store.CreateBuild(&b); err != nil {
		return types.Build{}, err
	}
	s.recordWrite(types.BuildTarget(b.ID), types.OpCreateBuild, user.ID,
		"created build "+b.Name)
	return b, nil
}

func (s *State) UpdateBuild(user *types.User, b types.Build) (types.Build, error) {
	existing, err := s.Store.GetBuild(b.ID)
	if err != nil {
		return types.Build{}, err
	}
	if err := requireLevel(user, existing.Permissions, types.PermissionUpdate); err != nil {
		return types.Build{}, err
	}
	if s.Builds.Busy(b.ID) {
		return types.Build{}, ErrBuildBusy
	}
	b.Name = types.NormalizeName(b.Name)
	b.Permissions = existing.Permissions
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = types.Now()
	if err := s.Store.ReplaceBuild(existing.Name, &b); err != nil {
		return types.Build{}, err
	}
	s.recordWrite(types.BuildTarget(b.ID), types.OpUpdateBuild, user.ID,
		"updated build "+b.Name)
	return b, nil
}

func (s *State) DeleteBuild(user *types.User, buildID string) (types.Build, error) {
	b, err := s.Store.GetBuild(buildID)
	if err != nil {
		return types.Build{}, err
	}
	if err := requireLevel(user, b.Permissions, types.PermissionUpdate); err != nil {
		return types.Build{}, err
	}
	if s.Builds.Busy(buildID) {
		return types.Build{}, ErrBuildBusy
	}
	if err := s.Store.DeleteBuild(buildID, b.Name); err != nil {
		return types.Build{}, err
	}
	s.recordWrite(types.BuildTarget(buildID), types.OpDeleteBuild, user.ID,
		"deleted build "+b.Name)
	return b, nil
}

// ---- procedures ----

func (s *State) CreateProcedure(user *types.User, p types.Procedure) (types.Procedure, error) {
	now := types.Now()
	p.ID = ""
	p.Name = types.NormalizeName(p.Name)
	p.Permissions = ownerPermissions(user)
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.Store.CreateProcedure(&p); err != nil {
		return types.Procedure{}, err
	}
	s.recordWrite(types.ProcedureTarget(p.ID), types.OpCreateProcedure, user.ID,
		"created procedure "+p.Name)
	return p, nil
}

func (s *State) UpdateProcedure(user *types.User, p types.Procedure) (types.Procedure, error) {
	existing, err := s.Store.GetProcedure(p.ID)
	if err != nil {
		return types.Procedure{}, err
	}
	if err := requireLevel(user, existing.Permissions, types.PermissionUpdate); err != nil {
		return types.Procedure{}, err
	}
	p.Name = types.NormalizeName(p.Name)
	p.Permissions = existing.Permissions
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = types.Now()
	if err := s.Store.ReplaceProcedure(existing.Name, &p); err != nil {
		return types.Procedure{}, err
	}
	s.recordWrite(types.ProcedureTarget(p.ID), types.OpUpdateProcedure, user.ID,
		"updated procedure "+p.Name)
	return p, nil
}

func (s *State) DeleteProcedure(user *types.User, procedureID string) (types.Procedure, error) {
	p, err := s.Store.GetProcedure(procedureID)
	if err != nil {
		return types.Procedure{}, err
	}
	if err := requireLevel(user, p.Permissions, types.PermissionUpdate); err != nil {
		return types.Procedure{}, err
	}
	if err := s.Store.DeleteProcedure(procedureID, p.Name); err != nil {
		return types.Procedure{}, err
	}
	s.recordWrite(types.ProcedureTarget(procedureID), types.OpDeleteProcedure, user.ID,
		"deleted procedure "+p.Name)
	return p, nil
}

// ---- alerters ----

func (s *State) CreateAlerter(user *types.User, a types.Alerter) (types.Alerter, error) {
	now := types.Now()
	a.ID = ""
	a.Name = types.NormalizeName(a.Name)
	a.Permissions = ownerPermissions(user)
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.Store.CreateAlerter(&a); err != nil {
		return types.Alerter{}, err
	}
	s.recordWrite(types.SystemTarget(), types.OpCreateAlerter, user.ID,
		"created alerter "+a.Name)
	return a, nil
}

func (s *State) UpdateAlerter(user *types.User, a types.Alerter) (types.Alerter, error) {
	existing, err := s.Store.GetAlerter(a.ID)
	if err != nil {
		return types.Alerter{}, err
	}
	if err := requireLevel(user, existing.Permissions, types.PermissionUpdate); err != nil {
		return types.Alerter{}, err
	}
	a.Name = types.NormalizeName(a.Name)
	a.Permissions = existing.Permissions
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = types.Now()
	if err := s.Store.ReplaceAlerter(existing.Name, &a); err != nil {
		return types.Alerter{}, err
	}
	s.recordWrite(types.SystemTarget(), types.OpUpdateAlerter, user.ID,
		"updated alerter "+a.Name)
	return a, nil
}

func (s *State) DeleteAlerter(user *types.User, alerterID string) (types.Alerter, error) {
	a, err := s.Store.GetAlerter(alerterID)
	if err != nil {
		return types.Alerter{}, err
	}
	if err := requireLevel(user, a.Permissions, types.PermissionUpdate); err != nil {
		return types.Alerter{}, err
	}
	if err := s.Store.DeleteAlerter(alerterID, a.Name); err != nil {
		return types.Alerter{}, err
	}
	s.recordWrite(types.SystemTarget(), types.OpDeleteAlerter, user.ID,
		"deleted alerter "+a.Name)
	return a, nil
}

// ---- tags ----

func (s *State) CreateTag(user *types.User, t types.Tag) (types.Tag, error) {
	t.ID = ""
	t.Name = types.NormalizeName(t.Name)
	t.Owner = user.ID
	t.CreatedAt = types.Now()
	if err := s.Store.CreateTag(&t); err != nil {
		return types.Tag{}, err
	}
	s.recordWrite(types.SystemTarget(), types.OpCreateTag, user.ID, "created tag "+t.Name)
	return t, nil
}

func (s *State) UpdateTag(user *types.User, t types.Tag) (types.Tag, error) {
	existing, err := s.Store.GetTag(t.ID)
	if err != nil {
		return types.Tag{}, err
	}
	if !user.Admin && existing.Owner != user.ID {
		return types.Tag{}, ErrPermissionDenied
	}
	t.Name = types.NormalizeName(t.Name)
	t.Owner = existing.Owner
	t.CreatedAt = existing.CreatedAt
	if err := s.Store.ReplaceTag(existing.Name, &t); err != nil {
		return types.Tag{}, err
	}
	s.recordWrite(types.SystemTarget(), types.OpUpdateTag, user.ID, "updated tag "+t.Name)
	return t, nil
}

func (s *State) DeleteTag(user *types.User, tagID string) (types.Tag, error) {
	t, err := s.Store.GetTag(tagID)
	if err != nil {
		return types.Tag{}, err
	}
	if !user.Admin && t.Owner != user.ID {
		return types.Tag{}, ErrPermissionDenied
	}
	if err := s.Store.DeleteTag(tagID, t.Name); err != nil {
		return types.Tag{}, err
	}
	s.recordWrite(types.SystemTarget(), types.OpDeleteTag, user.ID, "deleted tag "+t.Name)
	return t, nil
}

// ---- variables ----

// Variables feed interpolation into commands sent to agents, so
// managing them is admin-only.

func (s *State) CreateVariable(user *types.User, v types.Variable) (types.Variable, error) {
	if !user.Admin {
		return types.Variable{}, ErrPermissionDenied
	}
	v.Name = types.NormalizeName(v.Name)
	if _, err := s.Store.GetVariable(v.Name); err == nil {
		return types.Variable{}, fmt.Errorf("variable %q already exists", v.Name)
	}
	now := types.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	if err := s.Store.SetVariable(&v); err != nil {
		return types.Variable{}, err
	}
	s.recordWrite(types.SystemTarget(), types.OpCreateVariable, user.ID,
		variableDetail("created", v))
	return v, nil
}

func (s *State) UpdateVariable(user *types.User, v types.Variable) (types.Variable, error) {
	if !user.Admin {
		return types.Variable{}, ErrPermissionDenied
	}
	v.Name = types.NormalizeName(v.Name)
	existing, err := s.Store.GetVariable(v.Name)
	if err != nil {
		return types.Variable{}, err
	}
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = types.Now()
	if err := s.Store.SetVariable(&v); err != nil {
		return types.Variable{}, err
	}
	s.recordWrite(types.SystemTarget(), types.OpUpdateVariable, user.ID,
		variableDetail("updated", v))
	return v, nil
}

func (s *State) DeleteVariable(user *types.User, name string) (types.Variable, error) {
	if !user.Admin {
		return types.Variable{}, ErrPermissionDenied
	}
	name = types.NormalizeName(name)
	v, err := s.Store.GetVariable(name)
	if err != nil {
		return types.Variable{}, err
	}
	if err := s.Store.DeleteVariable(name); err != nil {
		return types.Variable{}, err
	}
	s.recordWrite(types.SystemTarget(), types.OpDeleteVariable, user.ID,
		"deleted variable "+name)
	return v, nil
}

// variableDetail writes the audit line for a variable change. Secret
// values never reach update logs.
func variableDetail(verb string, v types.Variable) string {
	if v.IsSecret {
		return fmt.Sprintf("%s secret variable %s", verb, v.Name)
	}
	return fmt.Sprintf("%s variable %s = %s", verb, v.Name, v.Value)
}
