package agent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/periphery"
	"github.com/flotilla-dev/flotilla/internal/types"
)

func TestDockerRunCommand(t *testing.T) {
	d := types.Deployment{
		Name: "myapp",
		Image: types.DeploymentImage{
			Type: types.ImageFromRef, Image: "myapp:1.2.3",
		},
		Environment: []types.EnvVar{
			{Variable: "TOKEN", Value: "abc"},
			{Variable: "MSG", Value: "it's here"},
		},
		ExtraArgs: []string{"-p 8080:80", "--restart unless-stopped"},
	}
	cmd := dockerRunCommand(d)

	if !strings.HasPrefix(cmd, "docker run -d --name myapp") {
		t.Errorf("cmd = %q", cmd)
	}
	if !strings.HasSuffix(cmd, " myapp:1.2.3") {
		t.Errorf("image must come last: %q", cmd)
	}
	if !strings.Contains(cmd, "-e TOKEN='abc'") {
		t.Errorf("env missing: %q", cmd)
	}
	if !strings.Contains(cmd, `-e MSG='it'\''s here'`) {
		t.Errorf("quote escaping: %q", cmd)
	}
	if !strings.Contains(cmd, "-p 8080:80 --restart unless-stopped") {
		t.Errorf("extra args: %q", cmd)
	}
}

func TestDockerStopCommand(t *testing.T) {
	cmd := dockerStopCommand("myapp", "SIGTERM", 30)
	if !strings.Contains(cmd, "--signal SIGTERM") || !strings.Contains(cmd, "--time 30") {
		t.Errorf("cmd = %q", cmd)
	}

	plain := dockerStopCommand("myapp", "", 0)
	if strings.Contains(plain, "--signal") || strings.Contains(plain, "--time") {
		t.Errorf("defaults should add no flags: %q", plain)
	}
}

func testAgent(t *testing.T, cfg *config.Periphery) *Agent {
	t.Helper()
	if cfg == nil {
		cfg = &config.Periphery{Passkey: "test-passkey"}
	}
	return New(cfg, logging.Discard(), nil)
}

func get(t *testing.T, a *Agent, path, passkey string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if passkey != "" {
		req.Header.Set("Authorization", passkey)
	}
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	return w
}

func TestGuardRejectsBadPasskey(t *testing.T) {
	a := testAgent(t, nil)

	if w := get(t, a, "/health", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no passkey: %d", w.Code)
	}
	if w := get(t, a, "/health", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong passkey: %d", w.Code)
	}
	if w := get(t, a, "/health", "test-passkey"); w.Code != http.StatusOK {
		t.Errorf("valid passkey: %d", w.Code)
	}
}

func TestGuardIPAllowlist(t *testing.T) {
	a := testAgent(t, &config.Periphery{
		Passkey:    "test-passkey",
		AllowedIPs: []string{"10.0.0.5"},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "test-passkey")
	req.RemoteAddr = "192.168.1.9:51234"
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("disallowed ip: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "test-passkey")
	req.RemoteAddr = "10.0.0.5:51234"
	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("allowed ip: %d", w.Code)
	}
}

func TestAccountsEndpoint(t *testing.T) {
	a := testAgent(t, &config.Periphery{
		Passkey:        "test-passkey",
		DockerAccounts: []string{"dh", "ghcr"},
	})

	w := get(t, a, "/accounts/docker", "test-passkey")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var resp periphery.AccountsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Accounts) != 2 || resp.Accounts[0] != "dh" {
		t.Errorf("accounts = %v", resp.Accounts)
	}

	if w := get(t, a, "/accounts/bogus", "test-passkey"); w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind: %d", w.Code)
	}
}

func TestSecretsListsOnlyResolvable(t *testing.T) {
	t.Setenv("FLOTILLA_TEST_SECRET", "value")
	a := testAgent(t, &config.Periphery{
		Passkey:     "test-passkey",
		SecretNames: []string{"FLOTILLA_TEST_SECRET", "FLOTILLA_TEST_UNSET"},
	})

	w := get(t, a, "/secrets", "test-passkey")
	var names []string
	if err := json.Unmarshal(w.Body.Bytes(), &names); err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "FLOTILLA_TEST_SECRET" {
		t.Errorf("names = %v", names)
	}
}

func TestVersionEndpoint(t *testing.T) {
	a := testAgent(t, nil)
	w := get(t, a, "/version", "test-passkey")
	var resp periphery.VersionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version == "" {
		t.Error("version empty")
	}
}

func TestDeployValidatesRequest(t *testing.T) {
	a := testAgent(t, nil)
	body := strings.NewReader(`{"deployment":{"name":"","image":{"image":""}}}`)
	req := httptest.NewRequest(http.MethodPost, "/container/deploy", body)
	req.Header.Set("Authorization", "test-passkey")
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty deploy: %d", w.Code)
	}
}

func TestBuildRejectsPathTraversal(t *testing.T) {
	a := testAgent(t, nil)
	body := strings.NewReader(`{"build":{"name":"../evil","image_name":"x"}}`)
	req := httptest.NewRequest(http.MethodPost, "/build/build", body)
	req.Header.Set("Authorization", "test-passkey")
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("traversal name: %d", w.Code)
	}
}
