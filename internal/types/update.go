package types

import "time"

// Operation names the action an update record describes.
type Operation string

const (
	OpNone Operation = "none"

	// server
	OpCreateServer          Operation = "create_server"
	OpUpdateServer          Operation = "update_server"
	OpDeleteServer          Operation = "delete_server"
	OpPruneContainersServer Operation = "prune_containers"
	OpPruneImagesServer     Operation = "prune_images"
	OpPruneNetworksServer   Operation = "prune_networks"
	OpStopAllContainers     Operation = "stop_all_containers"

	// deployment
	OpCreateDeployment Operation = "create_deployment"
	OpUpdateDeployment Operation = "update_deployment"
	OpDeleteDeployment Operation = "delete_deployment"
	OpDeployContainer  Operation = "deploy_container"
	OpStartContainer   Operation = "start_container"
	OpStopContainer    Operation = "stop_container"
	OpRemoveContainer  Operation = "remove_container"

	// build
	OpCreateBuild Operation = "create_build"
	OpUpdateBuild Operation = "update_build"
	OpDeleteBuild Operation = "delete_build"
	OpRunBuild    Operation = "run_build"

	// procedure
	OpCreateProcedure Operation = "create_procedure"
	OpUpdateProcedure Operation = "update_procedure"
	OpDeleteProcedure Operation = "delete_procedure"
	OpRunProcedure    Operation = "run_procedure"

	// alerter / tag / variable
	OpCreateAlerter  Operation = "create_alerter"
	OpUpdateAlerter  Operation = "update_alerter"
	OpDeleteAlerter  Operation = "delete_alerter"
	OpCreateTag      Operation = "create_tag"
	OpUpdateTag      Operation = "update_tag"
	OpDeleteTag      Operation = "delete_tag"
	OpCreateVariable Operation = "create_variable"
	OpUpdateVariable Operation = "update_variable"
	OpDeleteVariable Operation = "delete_variable"
)

// Target kinds for update records.
const (
	TargetSystem     = "system"
	TargetServer     = "server"
	TargetDeployment = "deployment"
	TargetBuild      = "build"
	TargetProcedure  = "procedure"
)

// UpdateTarget points an update at the resource it acted on.
type UpdateTarget struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

func SystemTarget() UpdateTarget { return UpdateTarget{Type: TargetSystem} }

func ServerTarget(id string) UpdateTarget { return UpdateTarget{Type: TargetServer, ID: id} }

func DeploymentTarget(id string) UpdateTarget {
	return UpdateTarget{Type: TargetDeployment, ID: id}
}

func BuildTarget(id string) UpdateTarget { return UpdateTarget{Type: TargetBuild, ID: id} }

func ProcedureTarget(id string) UpdateTarget { return UpdateTarget{Type: TargetProcedure, ID: id} }

// UpdateStatus tracks the lifecycle of an update record.
type UpdateStatus string

const (
	UpdateInProgress UpdateStatus = "in_progress"
	UpdateComplete   UpdateStatus = "complete"
)

// Log is one stage of an action's output.
type Log struct {
	Stage   string `json:"stage"`
	Command string `json:"command,omitempty"`
	Stdout  string `json:"stdout,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	Success bool   `json:"success"`
	StartTs int64  `json:"start_ts"`
	EndTs   int64  `json:"end_ts"`
}

// SimpleLog builds a successful single-stage log.
func SimpleLog(stage, stdout string) Log {
	ts := Now()
	return Log{Stage: stage, Stdout: stdout, Success: true, StartTs: ts, EndTs: ts}
}

// ErrorLog builds a failed single-stage log carrying the error text.
func ErrorLog(stage, stderr string) Log {
	ts := Now()
	return Log{Stage: stage, Stderr: stderr, Success: false, StartTs: ts, EndTs: ts}
}

// Update is the append-only audit record for one attempted action.
type Update struct {
	ID        string       `json:"id"`
	Target    UpdateTarget `json:"target"`
	Operation Operation    `json:"operation"`
	Logs      []Log        `json:"logs"`
	StartTs   int64        `json:"start_ts"`
	EndTs     int64        `json:"end_ts,omitempty"`
	Status    UpdateStatus `json:"status"`
	Success   bool         `json:"success"`
	Operator  string       `json:"operator"`
	Version   string       `json:"version,omitempty"`
}

// PushSimpleLog appends a successful log stage.
func (u *Update) PushSimpleLog(stage, stdout string) {
	u.Logs = append(u.Logs, SimpleLog(stage, stdout))
}

// PushErrorLog appends a failed log stage.
func (u *Update) PushErrorLog(stage, stderr string) {
	u.Logs = append(u.Logs, ErrorLog(stage, stderr))
}

// Finalize closes the update: end timestamp, complete status, and
// success as the conjunction of every log's success.
func (u *Update) Finalize() {
	u.Status = UpdateComplete
	u.EndTs = Now()
	u.Success = true
	for _, l := range u.Logs {
		if !l.Success {
			u.Success = false
			break
		}
	}
}

// Now returns the current unix timestamp in milliseconds, the time base
// for every persisted record.
func Now() int64 {
	return time.Now().UnixMilli()
}
