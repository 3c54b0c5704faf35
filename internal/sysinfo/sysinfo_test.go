package sysinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadFromFakeProc(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"loadavg": "0.52 0.38 0.25 2/513 12345\n",
		"meminfo": "MemTotal:        8192000 kB\nMemFree:         1024000 kB\nMemAvailable:    4096000 kB\n",
		"uptime":  "3600.50 14000.23\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	info := New(dir).Read()
	if info.Load1 != 0.52 || info.Load5 != 0.38 || info.Load15 != 0.25 {
		t.Fatalf("load = %v/%v/%v", info.Load1, info.Load5, info.Load15)
	}
	if info.MemTotal != 8192000*1024 {
		t.Fatalf("MemTotal = %d", info.MemTotal)
	}
	if info.MemAvailable != 4096000*1024 {
		t.Fatalf("MemAvailable = %d", info.MemAvailable)
	}
	if info.Uptime != time.Duration(3600.5*float64(time.Second)) {
		t.Fatalf("Uptime = %v", info.Uptime)
	}
}

func TestReadMissingFilesLeavesZeros(t *testing.T) {
	info := New(t.TempDir()).Read()
	if info != (Info{}) {
		t.Fatalf("expected zero Info, got %+v", info)
	}
}
