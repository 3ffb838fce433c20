// Package sysinfo captures a one-shot hardware inventory at startup. The
// CPU and GPU model names feed threshold detection; the rest is served on
// /api/system. Every read is best-effort: a failed probe leaves its field
// empty and never blocks startup.
package sysinfo

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// DiskInfo describes one mounted partition.
type DiskInfo struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	TotalGB    float64 `json:"total_gb"`
	UsedGB     float64 `json:"used_gb"`
	FreeGB     float64 `json:"free_gb"`
	Percent    float64 `json:"percent"`
}

// Info is the full startup inventory.
type Info struct {
	OS        string `json:"os"`
	OSVersion string `json:"os_version"`
	Hostname  string `json:"hostname"`

	CPUName    string  `json:"cpu_name"`
	CPUCores   int     `json:"cpu_cores"`
	CPUThreads int     `json:"cpu_threads"`
	CPUMaxGHz  float64 `json:"cpu_max_ghz"`

	RAMTotalMB uint64  `json:"ram_total_mb"`
	RAMTotalGB float64 `json:"ram_total_gb"`
	SwapUsedMB uint64  `json:"pagefile_used_mb"`
	SwapTotMB  uint64  `json:"pagefile_total_mb"`

	GPUName   string `json:"gpu_name"`
	GPUVRAMMB int    `json:"gpu_vram_mb"`

	Disks      []DiskInfo `json:"disks"`
	CapturedAt time.Time  `json:"captured_at"`
}

// Collect gathers the inventory. Individual probe failures degrade to empty
// fields; Collect itself never fails.
func Collect() *Info {
	info := &Info{
		OS:         runtime.GOOS,
		CapturedAt: time.Now(),
	}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		if h.Platform != "" {
			info.OS = h.Platform
			info.OSVersion = h.PlatformVersion
		}
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		info.CPUName = strings.TrimSpace(infos[0].ModelName)
		info.CPUMaxGHz = round2(infos[0].Mhz / 1000)
	}
	if n, err := cpu.Counts(false); err == nil {
		info.CPUCores = n
	}
	if n, err := cpu.Counts(true); err == nil {
		info.CPUThreads = n
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAMTotalMB = vm.Total / (1 << 20)
		info.RAMTotalGB = round2(float64(vm.Total) / (1 << 30))
	}
	if sw, err := mem.SwapMemory(); err == nil {
		info.SwapUsedMB = sw.Used / (1 << 20)
		info.SwapTotMB = sw.Total / (1 << 20)
	}

	info.GPUName, info.GPUVRAMMB = gpuInventory()
	info.Disks = diskInventory()
	return info
}

// gpuInventory asks nvidia-smi for the first GPU's name and VRAM size.
// Missing binary or non-NVIDIA hardware yields empty values.
func gpuInventory() (name string, vramMB int) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=name,memory.total",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return "", 0
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return "", 0
	}
	name = strings.TrimSpace(parts[0])
	if v, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
		vramMB = v
	}
	return name, vramMB
}

func diskInventory() []DiskInfo {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil
	}
	var disks []DiskInfo
	for _, p := range partitions {
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		disks = append(disks, DiskInfo{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			TotalGB:    round1(float64(usage.Total) / (1 << 30)),
			UsedGB:     round1(float64(usage.Used) / (1 << 30)),
			FreeGB:     round1(float64(usage.Free) / (1 << 30)),
			Percent:    usage.UsedPercent,
		})
	}
	return disks
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }

func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
