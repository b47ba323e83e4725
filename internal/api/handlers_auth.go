package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type credentialsParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createApiKeyParams struct {
	Name string `json:"name"`
}

type deleteApiKeyParams struct {
	Key string `json:"key"`
}

// handleAuth serves credential operations. CreateLocalUser and Login
// are the only unauthenticated request types in the API; api key
// management requires an authenticated caller.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finish(w, "auth", started, nil, badRequest("decode request: "+err.Error()))
		return
	}

	result, err := s.resolveAuth(r, req)
	s.finish(w, "auth", started, result, err)
}

func (s *Server) resolveAuth(r *http.Request, req Request) (any, error) {
	switch req.Type {
	case "CreateLocalUser":
		p, err := decode[credentialsParams](req.Params)
		if err != nil {
			return nil, err
		}
		return s.state.CreateLocalUser(p.Username, p.Password)

	case "Login":
		p, err := decode[credentialsParams](req.Params)
		if err != nil {
			return nil, err
		}
		return s.state.Login(p.Username, p.Password)

	case "CreateApiKey":
		user, err := s.authenticate(r)
		if err != nil {
			return nil, err
		}
		p, err := decode[createApiKeyParams](req.Params)
		if err != nil {
			return nil, err
		}
		return s.state.CreateApiKey(&user, p.Name)

	case "DeleteApiKey":
		user, err := s.authenticate(r)
		if err != nil {
			return nil, err
		}
		p, err := decode[deleteApiKeyParams](req.Params)
		if err != nil {
			return nil, err
		}
		if err := s.state.DeleteApiKey(&user, p.Key); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": p.Key}, nil

	case "ListApiKeys":
		user, err := s.authenticate(r)
		if err != nil {
			return nil, err
		}
		return s.state.ListApiKeys(&user)

	default:
		return nil, badRequest("unknown request type " + strconv.Quote(req.Type))
	}
}
