package cache

import (
	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// Grade maps a usage percentage onto a severity via the threshold pair.
func Grade(pct float64, t config.Threshold) types.Severity {
	switch {
	case pct >= t.Critical:
		return types.SeverityCritical
	case pct >= t.Warning:
		return types.SeverityWarning
	default:
		return types.SeverityOK
	}
}

func memPct(b types.BasicSystemStats) float64 {
	if b.MemTotalGB == 0 {
		return 0
	}
	return 100 * b.MemUsedGB / b.MemTotalGB
}

func diskPct(d types.SingleDiskUsage) float64 {
	if d.TotalGB == 0 {
		return 0
	}
	return 100 * d.UsedGB / d.TotalGB
}
