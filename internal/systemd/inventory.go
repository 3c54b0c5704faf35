package systemd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"unitdeck/internal/execgate"
)

// ErrUnknownUnit is returned for any unit name that discovery has not
// seen. Actions are refused for unknown units before systemctl runs.
var ErrUnknownUnit = errors.New("unknown unit")

// Status is the live state of a unit as reported by systemctl show.
type Status struct {
	ActiveState string    `json:"active_state"`
	SubState    string    `json:"sub_state"`
	MainPID     int       `json:"main_pid"`
	MemoryBytes uint64    `json:"memory_bytes"`
	StartedAt   time.Time `json:"started_at"`
}

// Inventory discovers units from the configured directories and caches
// the result. A directory watcher marks the cache stale on any change,
// so edits to unit files show up on the next listing without a restart.
type Inventory struct {
	gate *execgate.Gateway
	dirs []string

	mu      sync.Mutex
	units   map[string]Unit
	scanned bool

	watcher *fsnotify.Watcher
	stop    chan struct{}
	stopped sync.Once
}

// NewInventory creates an Inventory over dirs. Directories that do not
// exist are skipped; the watcher is best-effort and its absence only
// costs cache freshness.
func NewInventory(gate *execgate.Gateway, dirs []string) *Inventory {
	inv := &Inventory{
		gate: gate,
		dirs: dirs,
		stop: make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("systemd: unit watcher disabled: %v", err)
		return inv
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			log.Printf("systemd: not watching %s: %v", dir, err)
		}
	}
	inv.watcher = watcher
	go inv.watch()
	return inv
}

func (inv *Inventory) watch() {
	for {
		select {
		case _, ok := <-inv.watcher.Events:
			if !ok {
				return
			}
			inv.mu.Lock()
			inv.scanned = false
			inv.mu.Unlock()
		case _, ok := <-inv.watcher.Errors:
			if !ok {
				return
			}
		case <-inv.stop:
			return
		}
	}
}

// Close stops the directory watcher. Idempotent.
func (inv *Inventory) Close() {
	inv.stopped.Do(func() {
		close(inv.stop)
		if inv.watcher != nil {
			_ = inv.watcher.Close()
		}
	})
}

// Units returns the discovered units sorted by name, rescanning when
// the cache is stale.
func (inv *Inventory) Units() ([]Unit, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if err := inv.scanLocked(); err != nil {
		return nil, err
	}

	units := make([]Unit, 0, len(inv.units))
	for _, u := range inv.units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}

// Unit returns a single discovered unit by name.
func (inv *Inventory) Unit(name string) (Unit, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if err := inv.scanLocked(); err != nil {
		return Unit{}, err
	}
	u, ok := inv.units[name]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %s", ErrUnknownUnit, name)
	}
	return u, nil
}

func (inv *Inventory) scanLocked() error {
	if inv.scanned {
		return nil
	}

	units := make(map[string]Unit)
	for _, dir := range inv.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("scan %s: %w", dir, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !ValidName(name) {
				continue
			}
			u, err := parseUnitFile(filepath.Join(dir, name), name)
			if err != nil {
				log.Printf("systemd: skipping %s: %v", name, err)
				continue
			}
			units[name] = u
		}
	}

	inv.units = units
	inv.scanned = true
	return nil
}

// Status queries systemctl for the live state of name.
func (inv *Inventory) Status(ctx context.Context, name string) (Status, error) {
	if _, err := inv.Unit(name); err != nil {
		return Status{}, err
	}

	out, err := inv.gate.Run(ctx, "systemctl", "show", name,
		"--property=ActiveState,SubState,MainPID,MemoryCurrent,ExecMainStartTimestamp")
	if err != nil {
		return Status{}, err
	}
	return parseShowOutput(out), nil
}

// parseShowOutput reads the Key=Value lines systemctl show prints.
// Unset numeric properties come back as "[not set]" and are left zero.
func parseShowOutput(out string) Status {
	var st Status
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "ActiveState":
			st.ActiveState = value
		case "SubState":
			st.SubState = value
		case "MainPID":
			st.MainPID, _ = strconv.Atoi(value)
		case "MemoryCurrent":
			st.MemoryBytes, _ = strconv.ParseUint(value, 10, 64)
		case "ExecMainStartTimestamp":
			if value != "" {
				if ts, err := time.Parse("Mon 2006-01-02 15:04:05 MST", value); err == nil {
					st.StartedAt = ts
				}
			}
		}
	}
	return st
}

// Start starts a discovered unit.
func (inv *Inventory) Start(ctx context.Context, name string) error {
	return inv.action(ctx, "start", name)
}

// Stop stops a discovered unit.
func (inv *Inventory) Stop(ctx context.Context, name string) error {
	return inv.action(ctx, "stop", name)
}

// Restart restarts a discovered unit.
func (inv *Inventory) Restart(ctx context.Context, name string) error {
	return inv.action(ctx, "restart", name)
}

func (inv *Inventory) action(ctx context.Context, verb, name string) error {
	if _, err := inv.Unit(name); err != nil {
		return err
	}
	_, err := inv.gate.Run(ctx, "systemctl", verb, name)
	return err
}

// Logs returns the last lines of the unit's journal.
func (inv *Inventory) Logs(ctx context.Context, name string, lines int) (string, error) {
	if _, err := inv.Unit(name); err != nil {
		return "", err
	}
	if lines <= 0 || lines > 1000 {
		lines = 200
	}
	return inv.gate.Run(ctx, "journalctl", "-u", name,
		"-n", strconv.Itoa(lines), "--no-pager", "-o", "short-iso")
}
