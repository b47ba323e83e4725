// Package agent implements the per-host periphery daemon: a small HTTP
// API over the local docker engine and host stats, authenticated by a
// shared passkey.
package agent

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// Docker wraps the engine API client.
type Docker struct {
	api *client.Client
}

// NewDocker connects to the engine at the given unix socket.
func NewDocker(dockerSock string) (*Docker, error) {
	api, err := client.New(
		client.WithHost("unix://"+dockerSock),
		client.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
					return net.DialTimeout("unix", dockerSock, 30*time.Second)
				},
			},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect docker engine: %w", err)
	}
	return &Docker{api: api}, nil
}

// Ping checks engine reachability.
func (d *Docker) Ping(ctx context.Context) error {
	_, err := d.api.Ping(ctx, client.PingOptions{})
	return err
}

// Close releases the engine client.
func (d *Docker) Close() error {
	return d.api.Close()
}

// ListContainers returns every container on the host, any state.
func (d *Docker) ListContainers(ctx context.Context) ([]types.ContainerSummary, error) {
	result, err := d.api.ContainerList(ctx, client.ContainerListOptions{All: true})
	if err != nil {
		return nil, err
	}
	out := make([]types.ContainerSummary, 0, len(result.Items))
	for _, c := range result.Items {
		out = append(out, summaryFromEngine(c))
	}
	return out, nil
}

func summaryFromEngine(c container.Summary) types.ContainerSummary {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return types.ContainerSummary{
		ID:     c.ID,
		Name:   name,
		Image:  c.Image,
		State:  containerState(string(c.State)),
		Status: c.Status,
	}
}

// containerState normalizes an engine state string.
func containerState(state string) types.ContainerState {
	switch types.ContainerState(state) {
	case types.ContainerRunning, types.ContainerExited, types.ContainerCreated,
		types.ContainerRestarting, types.ContainerPaused, types.ContainerDead:
		return types.ContainerState(state)
	default:
		return types.ContainerUnknown
	}
}

// StartContainer starts a container by name.
func (d *Docker) StartContainer(ctx context.Context, name string) error {
	_, err := d.api.ContainerStart(ctx, name, client.ContainerStartOptions{})
	return err
}

// StopContainer stops a container, optionally overriding the stop
// signal, waiting up to timeout seconds.
func (d *Docker) StopContainer(ctx context.Context, name, signal string, timeout int) error {
	opts := client.ContainerStopOptions{}
	if timeout > 0 {
		opts.Timeout = &timeout
	}
	if signal != "" {
		opts.Signal = signal
	}
	_, err := d.api.ContainerStop(ctx, name, opts)
	return err
}

// RemoveContainer force-removes a container by name.
func (d *Docker) RemoveContainer(ctx context.Context, name string) error {
	_, err := d.api.ContainerRemove(ctx, name, client.ContainerRemoveOptions{Force: true})
	return err
}

// PruneContainers removes all stopped containers.
func (d *Docker) PruneContainers(ctx context.Context) (string, error) {
	report, err := d.api.ContainerPrune(ctx, client.ContainerPruneOptions{})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d containers, reclaimed %d bytes",
		len(report.Report.ContainersDeleted), report.Report.SpaceReclaimed), nil
}

// ListImages returns images with an in-use marker derived from the
// current container set.
func (d *Docker) ListImages(ctx context.Context) ([]types.ImageSummary, error) {
	result, err := d.api.ImageList(ctx, client.ImageListOptions{All: false})
	if err != nil {
		return nil, err
	}
	containers, err := d.api.ContainerList(ctx, client.ContainerListOptions{All: true})
	if err != nil {
		return nil, err
	}
	used := make(map[string]bool)
	for _, c := range containers.Items {
		used[c.ImageID] = true
	}

	out := make([]types.ImageSummary, 0, len(result.Items))
	for _, img := range result.Items {
		out = append(out, types.ImageSummary{
			ID:       img.ID,
			RepoTags: img.RepoTags,
			Size:     img.Size,
			Created:  img.Created,
			InUse:    used[img.ID],
		})
	}
	return out, nil
}

// PruneImages removes dangling images.
func (d *Docker) PruneImages(ctx context.Context) (string, error) {
	report, err := d.api.ImagePrune(ctx, client.ImagePruneOptions{})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d images, reclaimed %d bytes",
		len(report.Report.ImagesDeleted), report.Report.SpaceReclaimed), nil
}

// ListNetworks returns docker networks on the host.
func (d *Docker) ListNetworks(ctx context.Context) ([]types.NetworkSummary, error) {
	result, err := d.api.NetworkList(ctx, client.NetworkListOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]types.NetworkSummary, 0, len(result.Items))
	for _, n := range result.Items {
		out = append(out, types.NetworkSummary{ID: n.ID, Name: n.Name, Driver: n.Driver})
	}
	return out, nil
}

// PruneNetworks removes unused networks.
func (d *Docker) PruneNetworks(ctx context.Context) (string, error) {
	report, err := d.api.NetworkPrune(ctx, client.NetworkPruneOptions{})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d networks", len(report.Report.NetworksDeleted)), nil
}
