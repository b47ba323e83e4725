package periphery

import "github.com/flotilla-dev/flotilla/internal/types"

// Wire types shared by the core client and the agent handlers.

// DeployRequest carries a fully resolved deployment: image already a
// direct reference, variables and secrets already interpolated.
type DeployRequest struct {
	Deployment types.Deployment `json:"deployment"`
	StopSignal string           `json:"stop_signal,omitempty"`
	StopTime   int              `json:"stop_time,omitempty"`
}

// StartRequest starts a stopped container by name.
type StartRequest struct {
	Name string `json:"name"`
}

// StopRequest stops (and for remove, deletes) a container by name.
type StopRequest struct {
	Name   string `json:"name"`
	Signal string `json:"signal,omitempty"`
	Time   int    `json:"time,omitempty"`
}

// BuildRequest runs a docker build for the named build.
type BuildRequest struct {
	Build types.Build `json:"build"`
}

// VersionResponse reports the agent version.
type VersionResponse struct {
	Version string `json:"version"`
}

// AccountsResponse lists account names configured on the agent.
type AccountsResponse struct {
	Accounts []string `json:"accounts"`
}
