package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/flotilla-dev/flotilla/internal/cache"
	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/core"
	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/store"
	"github.com/flotilla-dev/flotilla/internal/types"
)

func testServer(t *testing.T) (*Server, *core.State) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	cfg := &config.Core{
		MonitoringInterval: time.Minute,
		RequestTimeout:     time.Second,
		JWTSecret:          "api-test-secret",
		JWTValidFor:        time.Hour,
		Thresholds:         config.DefaultThresholds(),
	}
	state := core.NewState(cfg, logging.Discard(), st, cache.NewStatusCache())
	return NewServer(state, logging.Discard()), state
}

func post(t *testing.T, srv *Server, path string, headers map[string]string, reqType string, params any) *httptest.ResponseRecorder {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			t.Fatal(err)
		}
		raw = data
	}
	body, err := json.Marshal(Request{Type: reqType, Params: raw})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func registerAdmin(t *testing.T, srv *Server) map[string]string {
	t.Helper()
	w := post(t, srv, "/auth", nil, "CreateLocalUser",
		map[string]string{"username": "admin", "password": "correct horse battery"})
	if w.Code != http.StatusOK {
		t.Fatalf("CreateLocalUser: %d %s", w.Code, w.Body)
	}
	var resp core.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return map[string]string{"Authorization": "Bearer " + resp.JWT}
}

func TestUnauthenticatedRejected(t *testing.T) {
	srv, _ := testServer(t)
	for _, path := range []string{"/read", "/write", "/execute"} {
		w := post(t, srv, path, nil, "ListServers", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: code = %d", path, w.Code)
		}
	}
}

func TestLoginAndRead(t *testing.T) {
	srv, _ := testServer(t)
	auth := registerAdmin(t, srv)

	w := post(t, srv, "/auth", nil, "Login",
		map[string]string{"username": "admin", "password": "correct horse battery"})
	if w.Code != http.StatusOK {
		t.Fatalf("Login: %d %s", w.Code, w.Body)
	}

	w = post(t, srv, "/auth", nil, "Login",
		map[string]string{"username": "admin", "password": "wrong password!"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login: %d", w.Code)
	}

	w = post(t, srv, "/read", auth, "ListServers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ListServers: %d %s", w.Code, w.Body)
	}
	var servers []types.Server
	if err := json.Unmarshal(w.Body.Bytes(), &servers); err != nil {
		t.Fatal(err)
	}
	if len(servers) != 0 {
		t.Errorf("servers = %v", servers)
	}
}

func TestWriteThenReadServer(t *testing.T) {
	srv, _ := testServer(t)
	auth := registerAdmin(t, srv)

	w := post(t, srv, "/write", auth, "CreateServer",
		map[string]any{"name": "Host A", "address": "http://host-a:9121", "enabled": true})
	if w.Code != http.StatusOK {
		t.Fatalf("CreateServer: %d %s", w.Code, w.Body)
	}
	var created types.Server
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Name != "host-a" {
		t.Errorf("name = %q", created.Name)
	}

	w = post(t, srv, "/read", auth, "GetServer", idParams{ID: created.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("GetServer: %d %s", w.Code, w.Body)
	}

	// Duplicate name conflicts.
	w = post(t, srv, "/write", auth, "CreateServer",
		map[string]any{"name": "host a", "address": "http://other:9121"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate name: %d %s", w.Code, w.Body)
	}
}

func TestUnknownTypeAndMissingResource(t *testing.T) {
	srv, _ := testServer(t)
	auth := registerAdmin(t, srv)

	w := post(t, srv, "/read", auth, "FrobnicateServer", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown type: %d", w.Code)
	}

	w = post(t, srv, "/read", auth, "GetServer", idParams{ID: "nope"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing resource: %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] == "" {
		t.Error("error body missing")
	}
}

func TestExecuteBusyConflicts(t *testing.T) {
	srv, state := testServer(t)
	auth := registerAdmin(t, srv)

	w := post(t, srv, "/write", auth, "CreateServer",
		map[string]any{"name": "host-a", "address": "http://host-a:9121", "enabled": true})
	var server types.Server
	if err := json.Unmarshal(w.Body.Bytes(), &server); err != nil {
		t.Fatal(err)
	}
	w = post(t, srv, "/write", auth, "CreateDeployment",
		map[string]any{"name": "myapp", "server_id": server.ID,
			"image": map[string]string{"type": "image", "image": "nginx:1"}})
	var d types.Deployment
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}

	state.Deployments.Update(d.ID, func(st *types.DeploymentActionState) { st.Deploying = true })
	w = post(t, srv, "/execute", auth, "Deploy", map[string]string{"deployment_id": d.ID})
	if w.Code != http.StatusConflict {
		t.Errorf("busy deploy: %d %s", w.Code, w.Body)
	}
}

func TestApiKeyFlow(t *testing.T) {
	srv, _ := testServer(t)
	auth := registerAdmin(t, srv)

	w := post(t, srv, "/auth", auth, "CreateApiKey", map[string]string{"name": "ci"})
	if w.Code != http.StatusOK {
		t.Fatalf("CreateApiKey: %d %s", w.Code, w.Body)
	}
	var created core.CreateApiKeyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	keyAuth := map[string]string{"X-Api-Key": created.Key, "X-Api-Secret": created.Secret}
	w = post(t, srv, "/read", keyAuth, "ListServers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("key read: %d %s", w.Code, w.Body)
	}

	w = post(t, srv, "/read", map[string]string{"X-Api-Key": created.Key, "X-Api-Secret": "fs_wrong"},
		"ListServers", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad secret: %d", w.Code)
	}

	w = post(t, srv, "/auth", auth, "DeleteApiKey", map[string]string{"key": created.Key})
	if w.Code != http.StatusOK {
		t.Fatalf("DeleteApiKey: %d %s", w.Code, w.Body)
	}
	w = post(t, srv, "/read", keyAuth, "ListServers", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("revoked key: %d", w.Code)
	}
}

func TestDisabledUserRejected(t *testing.T) {
	srv, _ := testServer(t)
	registerAdmin(t, srv)

	w := post(t, srv, "/auth", nil, "CreateLocalUser",
		map[string]string{"username": "second", "password": "correct horse battery"})
	if w.Code != http.StatusOK {
		t.Fatalf("second user: %d %s", w.Code, w.Body)
	}
	var resp core.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	w = post(t, srv, "/read", map[string]string{"Authorization": "Bearer " + resp.JWT}, "ListServers", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("disabled user read: %d %s", w.Code, w.Body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
}
