package types

// Server reachability as derived by the status poller.
type ServerStatus string

const (
	ServerOK       ServerStatus = "Ok"
	ServerNotOK    ServerStatus = "NotOk"
	ServerDisabled ServerStatus = "Disabled"
)

// Severity grades a metric against its warning/critical thresholds.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "Warning"
	case SeverityCritical:
		return "Critical"
	default:
		return "Ok"
	}
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Warning"`:
		*s = SeverityWarning
	case `"Critical"`:
		*s = SeverityCritical
	default:
		*s = SeverityOK
	}
	return nil
}

// BasicSystemStats is the headline usage numbers for a host.
type BasicSystemStats struct {
	SystemLoad  float64 `json:"system_load"`
	CPUPerc     float64 `json:"cpu_perc"`
	MemUsedGB   float64 `json:"mem_used_gb"`
	MemTotalGB  float64 `json:"mem_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskTotalGB float64 `json:"disk_total_gb"`
}

// CPUUsage holds total and per-core cpu percentages.
type CPUUsage struct {
	CPUPerc float64   `json:"cpu_perc"`
	PerCore []float64 `json:"per_core,omitempty"`
}

// SingleDiskUsage is usage of one mounted filesystem.
type SingleDiskUsage struct {
	Mount   string  `json:"mount"`
	UsedGB  float64 `json:"used_gb"`
	TotalGB float64 `json:"total_gb"`
}

// DiskUsage aggregates every mount on the host.
type DiskUsage struct {
	UsedGB  float64           `json:"used_gb"`
	TotalGB float64           `json:"total_gb"`
	Disks   []SingleDiskUsage `json:"disks,omitempty"`
}

// NetworkUsage is cumulative network io since boot.
type NetworkUsage struct {
	RecvKB float64 `json:"recv_kb"`
	SentKB float64 `json:"sent_kb"`
}

// SystemStats is the full stats snapshot a periphery agent reports.
type SystemStats struct {
	Basic   BasicSystemStats `json:"basic"`
	CPU     CPUUsage         `json:"cpu"`
	Disk    DiskUsage        `json:"disk"`
	Network NetworkUsage     `json:"network"`
}

// SystemStatsRecord is one persisted stats sample for a server.
type SystemStatsRecord struct {
	ID    string      `json:"id"`
	SID   string      `json:"sid"`
	TS    int64       `json:"ts"`
	Stats SystemStats `json:"stats"`
}

// Container states as reported by docker.
type ContainerState string

const (
	ContainerRunning     ContainerState = "running"
	ContainerExited      ContainerState = "exited"
	ContainerCreated     ContainerState = "created"
	ContainerRestarting  ContainerState = "restarting"
	ContainerPaused      ContainerState = "paused"
	ContainerDead        ContainerState = "dead"
	ContainerNotDeployed ContainerState = "not_deployed"
	ContainerUnknown     ContainerState = "unknown"
)

// ContainerSummary is one row of a periphery container listing.
type ContainerSummary struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Image  string         `json:"image"`
	State  ContainerState `json:"state"`
	Status string         `json:"status,omitempty"`
}

// ImageSummary is one row of a periphery image listing.
type ImageSummary struct {
	ID       string   `json:"id"`
	RepoTags []string `json:"repo_tags,omitempty"`
	Size     int64    `json:"size"`
	Created  int64    `json:"created"`
	InUse    bool     `json:"in_use"`
}

// NetworkSummary is one row of a periphery network listing.
type NetworkSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Driver string `json:"driver,omitempty"`
}

// ServerStatusRecord is the cached poll result for one server. It is
// process-local state, rebuilt by the poller after restart.
type ServerStatusRecord struct {
	Status       ServerStatus       `json:"status"`
	Version      string             `json:"version,omitempty"`
	Stats        *SystemStats       `json:"stats,omitempty"`
	Containers   []ContainerSummary `json:"containers,omitempty"`
	LastPolledTs int64              `json:"last_polled_ts"`
}

// ServerActionState carries the busy flags for server-scoped actions.
type ServerActionState struct {
	Pinging            bool `json:"pinging"`
	PruningNetworks    bool `json:"pruning_networks"`
	PruningImages      bool `json:"pruning_images"`
	PruningContainers  bool `json:"pruning_containers"`
	StoppingContainers bool `json:"stopping_containers"`
}

// Busy reports whether any server action is in flight.
func (s ServerActionState) Busy() bool {
	return s.Pinging || s.PruningNetworks || s.PruningImages ||
		s.PruningContainers || s.StoppingContainers
}

// DeploymentActionState carries the busy flags for deployment actions.
type DeploymentActionState struct {
	Deploying bool `json:"deploying"`
	Starting  bool `json:"starting"`
	Stopping  bool `json:"stopping"`
	Removing  bool `json:"removing"`
	Pulling   bool `json:"pulling"`
	Recloning bool `json:"recloning"`
}

// Busy reports whether any deployment action is in flight.
func (d DeploymentActionState) Busy() bool {
	return d.Deploying || d.Starting || d.Stopping || d.Removing ||
		d.Pulling || d.Recloning
}

// BuildActionState carries the busy flags for build actions.
type BuildActionState struct {
	Building bool `json:"building"`
}

// Busy reports whether a build is in flight.
func (b BuildActionState) Busy() bool { return b.Building }
