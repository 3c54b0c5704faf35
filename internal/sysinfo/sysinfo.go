// Package sysinfo reads the handful of host numbers the dashboard
// shows from /proc. Plain data plumbing, no security logic.
package sysinfo

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Info is a snapshot of host metrics.
type Info struct {
	Load1        float64       `json:"load1"`
	Load5        float64       `json:"load5"`
	Load15       float64       `json:"load15"`
	MemTotal     uint64        `json:"mem_total_bytes"`
	MemAvailable uint64        `json:"mem_available_bytes"`
	Uptime       time.Duration `json:"uptime_ns"`
}

// Collector reads metrics from a proc filesystem root, normally /proc.
type Collector struct {
	procDir string
}

// New creates a Collector. An empty procDir means /proc.
func New(procDir string) *Collector {
	if procDir == "" {
		procDir = "/proc"
	}
	return &Collector{procDir: procDir}
}

// Read gathers a snapshot. Each file is best-effort: a missing or
// malformed file leaves its fields zero rather than failing the whole
// snapshot.
func (c *Collector) Read() Info {
	var info Info

	if data, err := os.ReadFile(filepath.Join(c.procDir, "loadavg")); err == nil {
		info.Load1, info.Load5, info.Load15 = parseLoadAvg(string(data))
	}
	if data, err := os.ReadFile(filepath.Join(c.procDir, "meminfo")); err == nil {
		info.MemTotal, info.MemAvailable = parseMeminfo(string(data))
	}
	if data, err := os.ReadFile(filepath.Join(c.procDir, "uptime")); err == nil {
		info.Uptime = parseUptime(string(data))
	}
	return info
}

func parseLoadAvg(s string) (load1, load5, load15 float64) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return 0, 0, 0
	}
	load1, _ = strconv.ParseFloat(fields[0], 64)
	load5, _ = strconv.ParseFloat(fields[1], 64)
	load15, _ = strconv.ParseFloat(fields[2], 64)
	return load1, load5, load15
}

func parseMeminfo(s string) (total, available uint64) {
	for _, line := range strings.Split(s, "\n") {
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		kb, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "MemTotal":
			total = kb * 1024
		case "MemAvailable":
			available = kb * 1024
		}
	}
	return total, available
}

func parseUptime(s string) time.Duration {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
