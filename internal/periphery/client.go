// Package periphery is the typed RPC client for the per-host agent.
// Each method maps to one agent route; there are no retries — the
// poller tolerates transient failure and mutating actions capture the
// error in their update log.
package periphery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// Client talks to one periphery agent.
type Client struct {
	address    string
	passkey    string
	httpClient *http.Client
}

// NewClient creates a client for the server's agent address. The
// timeout bounds every call made through this client.
func NewClient(server *types.Server, passkey string, timeout time.Duration) *Client {
	return &Client{
		address:    strings.TrimRight(server.Address, "/"),
		passkey:    passkey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.address+path, reader)
	if err != nil {
		return fmt.Errorf("create request %s: %w", path, err)
	}
	req.Header.Set("Authorization", c.passkey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("periphery %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("periphery %s %s: %s | %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

// Health probes agent reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Version reports the agent version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out VersionResponse
	if err := c.do(ctx, http.MethodGet, "/version", nil, &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// SystemStats fetches the full stats snapshot.
func (c *Client) SystemStats(ctx context.Context) (types.SystemStats, error) {
	var out types.SystemStats
	err := c.do(ctx, http.MethodGet, "/stats/system", nil, &out)
	return out, err
}

// ListContainers lists every container on the host.
func (c *Client) ListContainers(ctx context.Context) ([]types.ContainerSummary, error) {
	var out []types.ContainerSummary
	err := c.do(ctx, http.MethodPost, "/container/list", nil, &out)
	return out, err
}

// Deploy pulls the resolved image and (re)creates the container.
func (c *Client) Deploy(ctx context.Context, req DeployRequest) (types.Log, error) {
	var out types.Log
	err := c.do(ctx, http.MethodPost, "/container/deploy", req, &out)
	return out, err
}

// StartContainer starts a stopped container.
func (c *Client) StartContainer(ctx context.Context, name string) (types.Log, error) {
	var out types.Log
	err := c.do(ctx, http.MethodPost, "/container/start", StartRequest{Name: name}, &out)
	return out, err
}

// StopContainer stops a container with the given signal and timeout.
func (c *Client) StopContainer(ctx context.Context, name, signal string, time_ int) (types.Log, error) {
	var out types.Log
	err := c.do(ctx, http.MethodPost, "/container/stop",
		StopRequest{Name: name, Signal: signal, Time: time_}, &out)
	return out, err
}

// RemoveContainer stops and deletes a container.
func (c *Client) RemoveContainer(ctx context.Context, name, signal string, time_ int) (types.Log, error) {
	var out types.Log
	err := c.do(ctx, http.MethodPost, "/container/remove",
		StopRequest{Name: name, Signal: signal, Time: time_}, &out)
	return out, err
}

// PruneContainers removes stopped containers.
func (c *Client) PruneContainers(ctx context.Context) (types.Log, error) {
	var out types.Log
	err := c.do(ctx, http.MethodPost, "/container/prune", nil, &out)
	return out, err
}

// ListImages lists images on the host.
func (c *Client) ListImages(ctx context.Context) ([]types.ImageSummary, error) {
	var out []types.ImageSummary
	err := c.do(ctx, http.MethodPost, "/image/list", nil, &out)
	return out, err
}

// PruneImages removes dangling images.
func (c *Client) PruneImages(ctx context.Context) (types.Log, error) {
	var out types.Log
	err := c.do(ctx, http.MethodPost, "/image/prune", nil, &out)
	return out, err
}

// ListNetworks lists docker networks on the host.
func (c *Client) ListNetworks(ctx context.Context) ([]types.NetworkSummary, error) {
	var out []types.NetworkSummary
	err := c.do(ctx, http.MethodPost, "/network/list", nil, &out)
	return out, err
}

// PruneNetworks removes unused networks.
func (c *Client) PruneNetworks(ctx context.Context) (types.Log, error) {
	var out types.Log
	err := c.do(ctx, http.MethodPost, "/network/prune", nil, &out)
	return out, err
}

// Build runs a docker build on the host, returning per-stage logs.
func (c *Client) Build(ctx context.Context, build types.Build) ([]types.Log, error) {
	var out []types.Log
	err := c.do(ctx, http.MethodPost, "/build/build", BuildRequest{Build: build}, &out)
	return out, err
}

// GetAccounts lists configured account names of the given kind
// ("github" or "docker").
func (c *Client) GetAccounts(ctx context.Context, kind string) ([]string, error) {
	var out AccountsResponse
	if err := c.do(ctx, http.MethodGet, "/accounts/"+kind, nil, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// GetSecrets lists the names of secrets available on the agent.
func (c *Client) GetSecrets(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "/secrets", nil, &out)
	return out, err
}
