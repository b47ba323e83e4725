package api

import (
	"context"
	"encoding/json"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// writeHandlers builds the /write dispatch table. Create and Update
// types take the resource document as params; Delete types take an id.
func (s *Server) writeHandlers() map[string]handler {
	return map[string]handler{
		// servers
		"CreateServer": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Server](params)
			if err != nil {
				return nil, err
			}
			return s.state.CreateServer(user, p)
		},
		"UpdateServer": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Server](params)
			if err != nil {
				return nil, err
			}
			return s.state.UpdateServer(user, p)
		},
		"DeleteServer": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.DeleteServer(user, p.ID)
		},

		// deployments
		"CreateDeployment": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Deployment](params)
			if err != nil {
				return nil, err
			}
			return s.state.CreateDeployment(user, p)
		},
		"UpdateDeployment": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Deployment](params)
			if err != nil {
				return nil, err
			}
			return s.state.UpdateDeployment(user, p)
		},
		"DeleteDeployment": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.DeleteDeployment(user, p.ID)
		},

		// builds
		"CreateBuild": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Build](params)
			if err != nil {
				return nil, err
			}
			return s.state.CreateBuild(user, p)
		},
		"UpdateBuild": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Build](params)
			if err != nil {
				return nil, err
			}
			return s.state.UpdateBuild(user, p)
		},
		"DeleteBuild": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.DeleteBuild(user, p.ID)
		},

		// procedures
		"CreateProcedure": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Procedure](params)
			if err != nil {
				return nil, err
			}
			return s.state.CreateProcedure(user, p)
		},
		"UpdateProcedure": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Procedure](params)
			if err != nil {
				return nil, err
			}
			return s.state.UpdateProcedure(user, p)
		},
		"DeleteProcedure": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.DeleteProcedure(user, p.ID)
		},

		// alerters
		"CreateAlerter": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Alerter](params)
			if err != nil {
				return nil, err
			}
			return s.state.CreateAlerter(user, p)
		},
		"UpdateAlerter": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Alerter](params)
			if err != nil {
				return nil, err
			}
			return s.state.UpdateAlerter(user, p)
		},
		"DeleteAlerter": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.DeleteAlerter(user, p.ID)
		},

		// tags
		"CreateTag": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Tag](params)
			if err != nil {
				return nil, err
			}
			return s.state.CreateTag(user, p)
		},
		"UpdateTag": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Tag](params)
			if err != nil {
				return nil, err
			}
			return s.state.UpdateTag(user, p)
		},
		"DeleteTag": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[idParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.DeleteTag(user, p.ID)
		},

		// variables
		"CreateVariable": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Variable](params)
			if err != nil {
				return nil, err
			}
			return s.state.CreateVariable(user, p)
		},
		"UpdateVariable": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[types.Variable](params)
			if err != nil {
				return nil, err
			}
			return s.state.UpdateVariable(user, p)
		},
		"DeleteVariable": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[nameParams](params)
			if err != nil {
				return nil, err
			}
			return s.state.DeleteVariable(user, p.Name)
		},

		// user administration
		"UpdateUserEnabled": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				UserID  string `json:"user_id"`
				Enabled bool   `json:"enabled"`
			}](params)
			if err != nil {
				return nil, err
			}
			return s.state.UpdateUserEnabled(user, p.UserID, p.Enabled)
		},
		"UpdateUserCreateServerPermissions": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				UserID  string `json:"user_id"`
				Allowed bool   `json:"allowed"`
			}](params)
			if err != nil {
				return nil, err
			}
			return s.state.UpdateUserCreateServerPermissions(user, p.UserID, p.Allowed)
		},
		"UpdateResourcePermission": func(_ context.Context, user *types.User, params json.RawMessage) (any, error) {
			p, err := decode[struct {
				Target types.UpdateTarget    `json:"target"`
				UserID string                `json:"user_id"`
				Level  types.PermissionLevel `json:"level"`
			}](params)
			if err != nil {
				return nil, err
			}
			if err := s.state.UpdateResourcePermission(user, p.Target, p.UserID, p.Level); err != nil {
				return nil, err
			}
			return map[string]string{"updated": p.UserID}, nil
		},
	}
}
