package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/flotilla-dev/flotilla/internal/periphery"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// deployContainer replaces the deployment's container: stop and remove
// whatever runs under its name, pull the image, then docker run with
// the deployment's configuration. Returns one combined log stage.
func (a *Agent) deployContainer(ctx context.Context, req periphery.DeployRequest) types.Log {
	d := req.Deployment
	start := types.Now()
	var out, errOut []string
	record := func(log types.Log) bool {
		if log.Stdout != "" {
			out = append(out, log.Stdout)
		}
		if log.Stderr != "" {
			errOut = append(errOut, log.Stderr)
		}
		return log.Success
	}

	// A container that was never created is fine to "remove".
	stopCmd := dockerStopCommand(d.Name, req.StopSignal, req.StopTime)
	record(runCommand(ctx, "stop old container", stopCmd+" ; docker rm "+d.Name+" 2>/dev/null ; true"))

	if !record(runCommand(ctx, "pull image", "docker pull "+d.Image.Image)) {
		return failedLog("deploy container", start, out, errOut)
	}
	if !record(runCommand(ctx, "docker run", dockerRunCommand(d))) {
		return failedLog("deploy container", start, out, errOut)
	}
	if d.OnDeploy.Command != "" {
		dir := d.OnDeploy.Path
		if dir == "" {
			dir = "/"
		}
		if !record(runInDir(ctx, "on deploy", dir, d.OnDeploy.Command)) {
			return failedLog("deploy container", start, out, errOut)
		}
	}

	return types.Log{
		Stage:   "deploy container",
		Command: dockerRunCommand(d),
		Stdout:  strings.Join(out, "\n"),
		Stderr:  strings.Join(errOut, "\n"),
		Success: true,
		StartTs: start,
		EndTs:   types.Now(),
	}
}

func failedLog(stage string, start int64, out, errOut []string) types.Log {
	return types.Log{
		Stage:   stage,
		Stdout:  strings.Join(out, "\n"),
		Stderr:  strings.Join(errOut, "\n"),
		Success: false,
		StartTs: start,
		EndTs:   types.Now(),
	}
}

// dockerRunCommand assembles the docker run invocation for a resolved
// deployment. Environment values are single-quoted; extra args pass
// through verbatim.
func dockerRunCommand(d types.Deployment) string {
	parts := []string{"docker run -d --name " + d.Name}
	for _, env := range d.Environment {
		parts = append(parts, fmt.Sprintf("-e %s=%s", env.Variable, shellQuote(env.Value)))
	}
	parts = append(parts, d.ExtraArgs...)
	parts = append(parts, d.Image.Image)
	return strings.Join(parts, " ")
}

// dockerStopCommand assembles the docker stop invocation honoring the
// termination signal and timeout.
func dockerStopCommand(name, signal string, timeout int) string {
	cmd := "docker stop"
	if signal != "" {
		cmd += " --signal " + signal
	}
	if timeout > 0 {
		cmd += fmt.Sprintf(" --time %d", timeout)
	}
	return cmd + " " + name + " 2>/dev/null"
}

// shellQuote single-quotes a value for sh, escaping embedded quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// runBuild clones nothing: the build directory is expected to hold the
// build context (synced out of band), keyed by build name. The image is
// tagged name:version and pushed when a docker account is configured.
func (a *Agent) runBuild(ctx context.Context, build types.Build) []types.Log {
	dir := filepath.Join(a.cfg.BuildDir, build.Name)
	dockerfile := build.DockerfilePath
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	tag := fmt.Sprintf("%s:%s", build.ImageName, build.Version)

	var logs []types.Log
	buildLog := runInDir(ctx, "docker build", dir,
		fmt.Sprintf("docker build -t %s -f %s .", tag, dockerfile))
	logs = append(logs, buildLog)
	if !buildLog.Success {
		return logs
	}

	if build.DockerAccount != "" {
		logs = append(logs, runCommand(ctx, "docker push", "docker push "+tag))
	}
	return logs
}
