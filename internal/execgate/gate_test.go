package execgate

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestRunRejectsUnlistedBinary(t *testing.T) {
	g := New(Config{Allow: []string{"systemctl"}})

	_, err := g.Run(context.Background(), "rm", "-rf", "/")
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("err = %v, want ErrNotAllowed", err)
	}
}

func TestRunCapturesOutput(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}
	g := New(Config{Allow: []string{"echo"}})

	out, err := g.Run(context.Background(), "echo", "hello", "panel")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(out) != "hello panel" {
		t.Fatalf("output = %q", out)
	}
}

func TestRunReportsExitCode(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	g := New(Config{Allow: []string{"false"}})

	_, err := g.Run(context.Background(), "false")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("err = %v, want *ExecError", err)
	}
	if execErr.ExitCode != 1 {
		t.Fatalf("ExitCode = %d, want 1", execErr.ExitCode)
	}
}
