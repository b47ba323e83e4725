package agent

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"

	"github.com/flotilla-dev/flotilla/internal/types"
)

const bytesPerGB = 1024 * 1024 * 1024

// collectStats gathers the full host stats snapshot. Collectors that
// fail leave their section zeroed rather than failing the snapshot.
func collectStats() types.SystemStats {
	var stats types.SystemStats

	if avg, err := load.Avg(); err == nil {
		stats.Basic.SystemLoad = avg.Load1
	}
	if total, err := cpu.Percent(0, false); err == nil && len(total) > 0 {
		stats.CPU.CPUPerc = total[0]
		stats.Basic.CPUPerc = total[0]
	}
	if perCore, err := cpu.Percent(0, true); err == nil {
		stats.CPU.PerCore = perCore
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.Basic.MemUsedGB = float64(vm.Used) / bytesPerGB
		stats.Basic.MemTotalGB = float64(vm.Total) / bytesPerGB
	}

	if parts, err := disk.Partitions(false); err == nil {
		for _, p := range parts {
			usage, err := disk.Usage(p.Mountpoint)
			if err != nil {
				continue
			}
			stats.Disk.Disks = append(stats.Disk.Disks, types.SingleDiskUsage{
				Mount:   p.Mountpoint,
				UsedGB:  float64(usage.Used) / bytesPerGB,
				TotalGB: float64(usage.Total) / bytesPerGB,
			})
			stats.Disk.UsedGB += float64(usage.Used) / bytesPerGB
			stats.Disk.TotalGB += float64(usage.Total) / bytesPerGB
		}
	}
	stats.Basic.DiskUsedGB = stats.Disk.UsedGB
	stats.Basic.DiskTotalGB = stats.Disk.TotalGB

	if counters, err := gopsnet.IOCounters(false); err == nil && len(counters) > 0 {
		stats.Network.RecvKB = float64(counters[0].BytesRecv) / 1024
		stats.Network.SentKB = float64(counters[0].BytesSent) / 1024
	}
	return stats
}
