// Package execgate runs a fixed allowlist of external commands with
// argument-array invocation. Nothing here ever passes through a shell,
// so caller-supplied arguments cannot be interpolated into one.
package execgate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNotAllowed is returned before exec for any binary missing from the
// allowlist.
var ErrNotAllowed = errors.New("command not allowlisted")

// ExecError is a typed failure from an allowlisted command.
type ExecError struct {
	Cmd      string
	ExitCode int
	Output   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Cmd, e.ExitCode, strings.TrimSpace(e.Output))
}

// Config holds gateway settings.
type Config struct {
	// Allow lists the binaries the gateway may run.
	Allow []string
	// Timeout bounds each invocation. Zero means 30 seconds.
	Timeout time.Duration
}

// Gateway executes allowlisted commands and captures their combined
// output.
type Gateway struct {
	allow   map[string]bool
	timeout time.Duration
}

// New creates a Gateway from cfg.
func New(cfg Config) *Gateway {
	allow := make(map[string]bool, len(cfg.Allow))
	for _, name := range cfg.Allow {
		allow[name] = true
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{allow: allow, timeout: timeout}
}

// Run executes name with args and returns its combined output. The
// binary must be allowlisted; failures come back as *ExecError with the
// exit code and captured output.
func (g *Gateway) Run(ctx context.Context, name string, args ...string) (string, error) {
	if !g.allow[name] {
		return "", fmt.Errorf("%w: %s", ErrNotAllowed, name)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &ExecError{Cmd: name, ExitCode: code, Output: string(out)}
	}
	return string(out), nil
}
