package alert

import (
	"fmt"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// FormattedAlert is a rendered alert: a single summary line plus
// detail lines for sinks that support block layouts.
type FormattedAlert struct {
	Header string
	Lines  []string
}

// Text joins header and lines into the plain one-message form.
func (f FormattedAlert) Text() string {
	out := f.Header
	for _, l := range f.Lines {
		out += "\n" + l
	}
	return out
}

// Format renders an alert for human-facing sinks.
func Format(a types.Alert) FormattedAlert {
	level := fmtLevel(a.Level)
	region := fmtRegion(a.Region)
	switch a.Type {
	case types.AlertServerUnreachable:
		if a.Level == types.SeverityOK {
			return FormattedAlert{
				Header: level,
				Lines:  []string{fmt.Sprintf("%s%s is now reachable", a.Name, region)},
			}
		}
		return FormattedAlert{
			Header: level,
			Lines:  []string{fmt.Sprintf("%s%s is unreachable", a.Name, region)},
		}
	case types.AlertServerCPU:
		return FormattedAlert{
			Header: level,
			Lines:  []string{fmt.Sprintf("%s%s cpu usage at %.1f%%", a.Name, region, a.Percentage)},
		}
	case types.AlertServerMem:
		pct := a.Percentage
		if pct == 0 && a.TotalGB > 0 {
			pct = 100 * a.UsedGB / a.TotalGB
		}
		return FormattedAlert{
			Header: level,
			Lines: []string{
				fmt.Sprintf("%s%s memory usage at %.1f%%", a.Name, region, pct),
				fmt.Sprintf("using %.1f GiB / %.1f GiB", a.UsedGB, a.TotalGB),
			},
		}
	case types.AlertServerDisk:
		pct := a.Percentage
		if pct == 0 && a.TotalGB > 0 {
			pct = 100 * a.UsedGB / a.TotalGB
		}
		return FormattedAlert{
			Header: level,
			Lines: []string{
				fmt.Sprintf("%s%s disk usage at %.1f%%", a.Name, region, pct),
				fmt.Sprintf("mount point: %s | using %.1f GiB / %.1f GiB", a.Path, a.UsedGB, a.TotalGB),
			},
		}
	case types.AlertContainerStateChange:
		return FormattedAlert{
			Header: fmt.Sprintf("container %s is now %s", a.Name, fmtContainerState(a.To)),
			Lines:  []string{fmt.Sprintf("server: %s | previous: %s", a.ServerName, a.From)},
		}
	case types.AlertBuilderTerminationErr:
		return FormattedAlert{
			Header: level + " | failed to terminate AWS builder instance",
			Lines:  []string{"instance id: " + a.InstanceID},
		}
	default:
		return FormattedAlert{Header: fmt.Sprintf("%s | %s", level, a.Type)}
	}
}

func fmtRegion(region string) string {
	if region == "" {
		return ""
	}
	return " (" + region + ")"
}

func fmtLevel(level types.Severity) string {
	switch level {
	case types.SeverityCritical:
		return "CRITICAL"
	case types.SeverityWarning:
		return "WARNING"
	default:
		return "OK"
	}
}

func fmtContainerState(state types.ContainerState) string {
	if state == types.ContainerNotDeployed {
		return "not deployed"
	}
	return string(state)
}
