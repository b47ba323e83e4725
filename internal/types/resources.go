package types

import "strings"

// Server describes a host running a periphery agent.
type Server struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Address     string         `json:"address"`
	Enabled     bool           `json:"enabled"`
	Region      string         `json:"region,omitempty"`
	Permissions PermissionsMap `json:"permissions"`
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
}

// Image source kinds for a deployment.
const (
	ImageFromBuild = "build"
	ImageFromRef   = "image"
)

// DeploymentImage selects the image a deployment runs: either a direct
// reference or a build whose image name and version resolve at deploy time.
type DeploymentImage struct {
	Type    string `json:"type"`
	Image   string `json:"image,omitempty"`
	BuildID string `json:"build_id,omitempty"`
	Version string `json:"version,omitempty"`
}

// EnvVar is one environment variable passed to the container.
type EnvVar struct {
	Variable string `json:"variable"`
	Value    string `json:"value"`
}

// SystemCommand is a user-supplied command template, subject to
// variable/secret interpolation before dispatch.
type SystemCommand struct {
	Path    string `json:"path,omitempty"`
	Command string `json:"command"`
}

// Deployment pins a container to a server.
type Deployment struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	ServerID           string          `json:"server_id"`
	Image              DeploymentImage `json:"image"`
	DockerAccount      string          `json:"docker_account,omitempty"`
	TerminationSignal  string          `json:"termination_signal,omitempty"`
	TerminationTimeout int             `json:"termination_timeout,omitempty"`
	Environment        []EnvVar        `json:"environment,omitempty"`
	ExtraArgs          []string        `json:"extra_args,omitempty"`
	OnDeploy           SystemCommand   `json:"on_deploy,omitempty"`
	Permissions        PermissionsMap  `json:"permissions"`
	CreatedAt          int64           `json:"created_at"`
	UpdatedAt          int64           `json:"updated_at"`
}

// Build names an image produced on a builder server.
type Build struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ServerID       string         `json:"server_id"`
	ImageName      string         `json:"image_name"`
	Version        string         `json:"version"`
	DockerAccount  string         `json:"docker_account,omitempty"`
	DockerfilePath string         `json:"dockerfile_path,omitempty"`
	Permissions    PermissionsMap `json:"permissions"`
	CreatedAt      int64          `json:"created_at"`
	UpdatedAt      int64          `json:"updated_at"`
}

// ProcedureStage is one step of a procedure: an operation aimed at a resource.
type ProcedureStage struct {
	Operation Operation `json:"operation"`
	TargetID  string    `json:"target_id"`
}

// Procedure is a named ordered sequence of stages run as one action.
type Procedure struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Stages      []ProcedureStage `json:"stages"`
	Permissions PermissionsMap   `json:"permissions"`
	CreatedAt   int64            `json:"created_at"`
	UpdatedAt   int64            `json:"updated_at"`
}

// Alerter sink kinds.
const (
	AlerterSlack  = "slack"
	AlerterCustom = "custom"
	AlerterMQTT   = "mqtt"
)

// AlerterConfig selects and configures one alert sink.
type AlerterConfig struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Topic   string `json:"topic,omitempty"` // mqtt only
	Enabled bool   `json:"enabled"`
}

// Alerter is a user-configured alert destination.
type Alerter struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Config      AlerterConfig  `json:"config"`
	Permissions PermissionsMap `json:"permissions"`
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
}

// Tag is a freeform label attachable to resources.
type Tag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Owner     string `json:"owner,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Variable is a named value for interpolation into command templates.
// Secret variables never have their value written to update logs.
type Variable struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	IsSecret    bool   `json:"is_secret,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// NormalizeName maps a display name onto the canonical resource name:
// lowercase with single dashes for whitespace.
func NormalizeName(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	return strings.ToLower(strings.Join(fields, "-"))
}
