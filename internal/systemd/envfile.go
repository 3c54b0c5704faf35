package systemd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNoEnvFile is returned for units whose file declares no
// EnvironmentFile.
var ErrNoEnvFile = errors.New("unit has no environment file")

var envKeyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ReadEnv returns the raw contents of the unit's environment file. A
// declared but missing file reads as empty: the operator can create it
// by saving.
func (inv *Inventory) ReadEnv(name string) (string, error) {
	u, err := inv.Unit(name)
	if err != nil {
		return "", err
	}
	if u.EnvFile == "" {
		return "", fmt.Errorf("%w: %s", ErrNoEnvFile, name)
	}

	data, err := os.ReadFile(u.EnvFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// WriteEnv validates and atomically replaces the unit's environment
// file. The write goes through a temp file and rename so a crash never
// leaves a half-written file behind.
func (inv *Inventory) WriteEnv(name, content string) error {
	u, err := inv.Unit(name)
	if err != nil {
		return err
	}
	if u.EnvFile == "" {
		return fmt.Errorf("%w: %s", ErrNoEnvFile, name)
	}
	if err := ValidateEnv(content); err != nil {
		return err
	}

	dir := filepath.Dir(u.EnvFile)
	tmp, err := os.CreateTemp(dir, ".env-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, u.EnvFile)
}

// ValidateEnv checks that every non-blank, non-comment line is a
// KEY=VALUE assignment with a well-formed key.
func ValidateEnv(content string) error {
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, _, ok := strings.Cut(trimmed, "=")
		if !ok {
			return fmt.Errorf("line %d: not a KEY=VALUE assignment", i+1)
		}
		if !envKeyRe.MatchString(strings.TrimSpace(key)) {
			return fmt.Errorf("line %d: invalid key %q", i+1, strings.TrimSpace(key))
		}
	}
	return nil
}
