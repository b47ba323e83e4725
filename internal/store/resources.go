package store

import (
	"github.com/flotilla-dev/flotilla/internal/types"
)

// ---- servers ----

// CreateServer inserts a server, assigning an id when empty.
func (s *Store) CreateServer(srv *types.Server) error {
	if srv.ID == "" {
		srv.ID = NewID()
	}
	return s.createNamed(bucketServers, srv.ID, srv.Name, srv)
}

func (s *Store) GetServer(id string) (types.Server, error) {
	return getOne[types.Server](s, bucketServers, id)
}

func (s *Store) ListServers() ([]types.Server, error) {
	return listAll[types.Server](s, bucketServers)
}

// ReplaceServer overwrites the server document, tracking a rename.
func (s *Store) ReplaceServer(oldName string, srv *types.Server) error {
	return s.replaceNamed(bucketServers, srv.ID, oldName, srv.Name, srv)
}

func (s *Store) DeleteServer(id, name string) error {
	return s.deleteNamed(bucketServers, id, name)
}

// ---- deployments ----

func (s *Store) CreateDeployment(d *types.Deployment) error {
	if d.ID == "" {
		d.ID = NewID()
	}
	return s.createNamed(bucketDeployments, d.ID, d.Name, d)
}

func (s *Store) GetDeployment(id string) (types.Deployment, error) {
	return getOne[types.Deployment](s, bucketDeployments, id)
}

func (s *Store) ListDeployments() ([]types.Deployment, error) {
	return listAll[types.Deployment](s, bucketDeployments)
}

// ListDeploymentsOnServer filters deployments pinned to one server.
func (s *Store) ListDeploymentsOnServer(serverID string) ([]types.Deployment, error) {
	all, err := s.ListDeployments()
	if err != nil {
		return nil, err
	}
	var out []types.Deployment
	for _, d := range all {
		if d.ServerID == serverID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) ReplaceDeployment(oldName string, d *types.Deployment) error {
	return s.replaceNamed(bucketDeployments, d.ID, oldName, d.Name, d)
}

func (s *Store) DeleteDeployment(id, name string) error {
	return s.deleteNamed(bucketDeployments, id, name)
}

// ---- builds ----

func (s *Store) CreateBuild(b *types.Build) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return s.createNamed(bucketBuilds, b.ID, b.Name, b)
}

func (s *Store) GetBuild(id string) (types.Build, error) {
	return getOne[types.Build](s, bucketBuilds, id)
}

func (s *Store) ListBuilds() ([]types.Build, error) {
	return listAll[types.Build](s, bucketBuilds)
}

func (s *Store) ReplaceBuild(oldName string, b *types.Build) error {
	return s.replaceNamed(bucketBuilds, b.ID, oldName, b.Name, b)
}

func (s *Store) DeleteBuild(id, name string) error {
	return s.deleteNamed(bucketBuilds, id, name)
}

// ---- procedures ----

func (s *Store) CreateProcedure(p *types.Procedure) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return s.createNamed(bucketProcedures, p.ID, p.Name, p)
}

func (s *Store) GetProcedure(id string) (types.Procedure, error) {
	return getOne[types.Procedure](s, bucketProcedures, id)
}

func (s *Store) ListProcedures() ([]types.Procedure, error) {
	return listAll[types.Procedure](s, bucketProcedures)
}

func (s *Store) ReplaceProcedure(oldName string, p *types.Procedure) error {
	return s.replaceNamed(bucketProcedures, p.ID, oldName, p.Name, p)
}

func (s *Store) DeleteProcedure(id, name string) error {
	return s.deleteNamed(bucketProcedures, id, name)
}

// ---- alerters ----

func (s *Store) CreateAlerter(a *types.Alerter) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	return s.createNamed(bucketAlerters, a.ID, a.Name, a)
}

func (s *Store) GetAlerter(id string) (types.Alerter, error) {
	return getOne[types.Alerter](s, bucketAlerters, id)
}

func (s *Store) ListAlerters() ([]types.Alerter, error) {
	return listAll[types.Alerter](s, bucketAlerters)
}

// ListEnabledAlerters returns only alerters whose sink is enabled.
func (s *Store) ListEnabledAlerters() ([]types.Alerter, error) {
	all, err := s.ListAlerters()
	if err != nil {
		return nil, err
	}
	var out []types.Alerter
	for _, a := range all {
		if a.Config.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ReplaceAlerter(oldName string, a *types.Alerter) error {
	return s.replaceNamed(bucketAlerters, a.ID, oldName, a.Name, a)
}

func (s *Store) DeleteAlerter(id, name string) error {
	return s.deleteNamed(bucketAlerters, id, name)
}

// ---- tags ----

func (s *Store) CreateTag(t *types.Tag) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return s.createNamed(bucketTags, t.ID, t.Name, t)
}

func (s *Store) GetTag(id string) (types.Tag, error) {
	return getOne[types.Tag](s, bucketTags, id)
}

func (s *Store) ListTags() ([]types.Tag, error) {
	return listAll[types.Tag](s, bucketTags)
}

func (s *Store) ReplaceTag(oldName string, t *types.Tag) error {
	return s.replaceNamed(bucketTags, t.ID, oldName, t.Name, t)
}

func (s *Store) DeleteTag(id, name string) error {
	return s.deleteNamed(bucketTags, id, name)
}

// ---- variables (keyed by name) ----

func (s *Store) SetVariable(v *types.Variable) error {
	return s.putDoc(bucketVariables, v.Name, v)
}

func (s *Store) GetVariable(name string) (types.Variable, error) {
	return getOne[types.Variable](s, bucketVariables, name)
}

func (s *Store) ListVariables() ([]types.Variable, error) {
	return listAll[types.Variable](s, bucketVariables)
}

func (s *Store) DeleteVariable(name string) error {
	return s.deleteUnindexed(bucketVariables, name)
}
