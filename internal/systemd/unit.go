// Package systemd discovers service units from unit files on disk and
// drives them through systemctl/journalctl via the exec gateway.
package systemd

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Unit is the static metadata parsed from a .service unit file.
type Unit struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
	ExecStart   string `json:"exec_start"`
	EnvFile     string `json:"env_file,omitempty"`
	WantedBy    string `json:"wanted_by,omitempty"`
}

// unitNameRe matches the unit names the panel is willing to touch.
// Anything else never reaches systemctl.
var unitNameRe = regexp.MustCompile(`^[A-Za-z0-9:_.@-]+\.service$`)

// ValidName reports whether name is a well-formed service unit name.
func ValidName(name string) bool {
	return unitNameRe.MatchString(name)
}

// parseUnitFile reads the subset of unit-file fields the panel shows:
// Description, ExecStart, EnvironmentFile, and WantedBy. Unknown keys
// and sections are skipped.
func parseUnitFile(path, name string) (Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unit{}, err
	}
	defer f.Close()

	u := Unit{Name: name, Path: path}
	section := ""

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(line[1 : len(line)-1])
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch section {
		case "unit":
			if key == "Description" && u.Description == "" {
				u.Description = value
			}
		case "service":
			switch key {
			case "ExecStart":
				if u.ExecStart == "" {
					u.ExecStart = value
				}
			case "EnvironmentFile":
				// A leading "-" marks the file optional to systemd;
				// the panel only cares about the path.
				u.EnvFile = strings.TrimPrefix(value, "-")
			}
		case "install":
			if key == "WantedBy" && u.WantedBy == "" {
				u.WantedBy = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Unit{}, fmt.Errorf("read %s: %w", path, err)
	}
	return u, nil
}
