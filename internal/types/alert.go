package types

// AlertType discriminates alert payloads.
type AlertType string

const (
	AlertServerUnreachable     AlertType = "server_unreachable"
	AlertServerCPU             AlertType = "server_cpu"
	AlertServerMem             AlertType = "server_mem"
	AlertServerDisk            AlertType = "server_disk"
	AlertContainerStateChange  AlertType = "container_state_change"
	AlertBuilderTerminationErr AlertType = "aws_builder_termination_failed"
)

// Alert is one emitted condition, shaped flat with omitempty so each
// variant serializes only its own fields.
type Alert struct {
	Type  AlertType `json:"type"`
	Level Severity  `json:"level"`
	Ts    int64     `json:"ts"`

	Name   string `json:"name,omitempty"`
	Region string `json:"region,omitempty"`

	// cpu / mem / disk
	Percentage float64 `json:"percentage,omitempty"`
	UsedGB     float64 `json:"used_gb,omitempty"`
	TotalGB    float64 `json:"total_gb,omitempty"`
	Path       string  `json:"path,omitempty"`

	// container state change
	ServerName string         `json:"server_name,omitempty"`
	From       ContainerState `json:"from,omitempty"`
	To         ContainerState `json:"to,omitempty"`

	// builder termination
	InstanceID string `json:"instance_id,omitempty"`
}
