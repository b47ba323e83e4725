package agent

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// runCommand executes a shell command and captures it as a log stage.
// The command text is recorded verbatim, so callers must not embed
// secrets they do not want persisted upstream.
func runCommand(ctx context.Context, stage, command string) types.Log {
	start := types.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	log := types.Log{
		Stage:   stage,
		Command: command,
		Stdout:  strings.TrimSpace(stdout.String()),
		Stderr:  strings.TrimSpace(stderr.String()),
		Success: err == nil,
		StartTs: start,
		EndTs:   types.Now(),
	}
	if err != nil && log.Stderr == "" {
		log.Stderr = err.Error()
	}
	return log
}

// runInDir is runCommand with a working directory.
func runInDir(ctx context.Context, stage, dir, command string) types.Log {
	start := types.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	log := types.Log{
		Stage:   stage,
		Command: command,
		Stdout:  strings.TrimSpace(stdout.String()),
		Stderr:  strings.TrimSpace(stderr.String()),
		Success: err == nil,
		StartTs: start,
		EndTs:   types.Now(),
	}
	if err != nil && log.Stderr == "" {
		log.Stderr = err.Error()
	}
	return log
}
