package systemd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"unitdeck/internal/execgate"
)

const sampleUnit = `# managed by ops
[Unit]
Description=Demo API server
After=network.target

[Service]
Type=simple
ExecStart=/usr/local/bin/demo-api --port 8080
EnvironmentFile=-%s
Restart=on-failure

[Install]
WantedBy=multi-user.target
`

func writeUnit(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write unit: %v", err)
	}
	return path
}

func testInventory(t *testing.T) (*Inventory, string, string) {
	t.Helper()

	dir := t.TempDir()
	envPath := filepath.Join(dir, "demo-api.env")
	writeUnit(t, dir, "demo-api.service", fmt.Sprintf(sampleUnit, envPath))

	gate := execgate.New(execgate.Config{Allow: []string{"systemctl", "journalctl"}})
	inv := NewInventory(gate, []string{dir})
	t.Cleanup(inv.Close)
	return inv, dir, envPath
}

func TestUnitsParsesFields(t *testing.T) {
	inv, _, envPath := testInventory(t)

	units, err := inv.Units()
	if err != nil {
		t.Fatalf("Units: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("got %d units, want 1", len(units))
	}

	u := units[0]
	if u.Name != "demo-api.service" {
		t.Fatalf("Name = %q", u.Name)
	}
	if u.Description != "Demo API server" {
		t.Fatalf("Description = %q", u.Description)
	}
	if u.ExecStart != "/usr/local/bin/demo-api --port 8080" {
		t.Fatalf("ExecStart = %q", u.ExecStart)
	}
	if u.EnvFile != envPath {
		t.Fatalf("EnvFile = %q, want %q (optional-file dash stripped)", u.EnvFile, envPath)
	}
	if u.WantedBy != "multi-user.target" {
		t.Fatalf("WantedBy = %q", u.WantedBy)
	}
}

func TestUnitUnknownName(t *testing.T) {
	inv, _, _ := testInventory(t)

	if _, err := inv.Unit("other.service"); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("err = %v, want ErrUnknownUnit", err)
	}
	if err := inv.Start(context.Background(), "../etc/passwd"); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("action on bogus name: %v", err)
	}
}

func TestWatcherInvalidatesCache(t *testing.T) {
	inv, dir, _ := testInventory(t)

	if _, err := inv.Units(); err != nil {
		t.Fatalf("Units: %v", err)
	}

	writeUnit(t, dir, "worker.service", "[Unit]\nDescription=Worker\n[Service]\nExecStart=/bin/worker\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		units, err := inv.Units()
		if err != nil {
			t.Fatalf("Units: %v", err)
		}
		if len(units) == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("new unit file never appeared in the listing")
}

func TestValidName(t *testing.T) {
	valid := []string{"nginx.service", "demo-api.service", "getty@tty1.service", "app_2.service"}
	for _, name := range valid {
		if !ValidName(name) {
			t.Fatalf("ValidName(%q) = false", name)
		}
	}
	invalid := []string{"nginx", "nginx.timer", "../nginx.service", "a/b.service", "", ".service"}
	for _, name := range invalid {
		if ValidName(name) {
			t.Fatalf("ValidName(%q) = true", name)
		}
	}
}

func TestParseShowOutput(t *testing.T) {
	out := "ActiveState=active\nSubState=running\nMainPID=4242\nMemoryCurrent=10485760\nExecMainStartTimestamp=Mon 2025-06-02 09:30:00 UTC\n"

	st := parseShowOutput(out)
	if st.ActiveState != "active" || st.SubState != "running" {
		t.Fatalf("states = %q/%q", st.ActiveState, st.SubState)
	}
	if st.MainPID != 4242 {
		t.Fatalf("MainPID = %d", st.MainPID)
	}
	if st.MemoryBytes != 10485760 {
		t.Fatalf("MemoryBytes = %d", st.MemoryBytes)
	}
	want := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	if !st.StartedAt.Equal(want) {
		t.Fatalf("StartedAt = %v, want %v", st.StartedAt, want)
	}
}

func TestParseShowOutputUnsetValues(t *testing.T) {
	out := "ActiveState=inactive\nSubState=dead\nMainPID=0\nMemoryCurrent=[not set]\nExecMainStartTimestamp=\n"

	st := parseShowOutput(out)
	if st.MemoryBytes != 0 {
		t.Fatalf("MemoryBytes = %d, want 0", st.MemoryBytes)
	}
	if !st.StartedAt.IsZero() {
		t.Fatalf("StartedAt = %v, want zero", st.StartedAt)
	}
}

func TestEnvRoundTrip(t *testing.T) {
	inv, _, envPath := testInventory(t)

	// Declared but missing file reads as empty.
	content, err := inv.ReadEnv("demo-api.service")
	if err != nil {
		t.Fatalf("ReadEnv: %v", err)
	}
	if content != "" {
		t.Fatalf("missing env file read as %q", content)
	}

	want := "# demo config\nPORT=8080\nLOG_LEVEL=debug\n"
	if err := inv.WriteEnv("demo-api.service", want); err != nil {
		t.Fatalf("WriteEnv: %v", err)
	}

	got, err := inv.ReadEnv("demo-api.service")
	if err != nil {
		t.Fatalf("ReadEnv: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: %q", got)
	}

	info, err := os.Stat(envPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("env file mode = %o, want 600", perm)
	}
}

func TestWriteEnvRejectsMalformedContent(t *testing.T) {
	inv, _, _ := testInventory(t)

	cases := []string{
		"NOT AN ASSIGNMENT",
		"1BAD=value",
		"KEY WITH SPACE=x",
	}
	for _, content := range cases {
		if err := inv.WriteEnv("demo-api.service", content); err == nil {
			t.Fatalf("WriteEnv accepted %q", content)
		}
	}

	if err := ValidateEnv("# comment\n\nGOOD_KEY=value\n"); err != nil {
		t.Fatalf("ValidateEnv rejected valid content: %v", err)
	}
}

func TestEnvErrorsForUnitWithoutEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "plain.service", "[Unit]\nDescription=Plain\n[Service]\nExecStart=/bin/plain\n")

	gate := execgate.New(execgate.Config{Allow: []string{"systemctl"}})
	inv := NewInventory(gate, []string{dir})
	t.Cleanup(inv.Close)

	if _, err := inv.ReadEnv("plain.service"); !errors.Is(err, ErrNoEnvFile) {
		t.Fatalf("ReadEnv err = %v, want ErrNoEnvFile", err)
	}
	if err := inv.WriteEnv("plain.service", "A=1"); !errors.Is(err, ErrNoEnvFile) {
		t.Fatalf("WriteEnv err = %v, want ErrNoEnvFile", err)
	}
}
