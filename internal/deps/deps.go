package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external command a transport relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConnect lists the local commands a connect mode shells out to.
func ForConnect(mode string) []Requirement {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "ssh":
		return []Requirement{{
			Name:        "OpenSSH client",
			Command:     "ssh",
			Description: "Pipes try jobs to tryserver on the master host",
		}}
	default:
		return nil
	}
}

// ForVC lists the command a --vc extraction runs.
func ForVC(vc string) []Requirement {
	name := strings.ToLower(strings.TrimSpace(vc))
	if name == "" {
		return nil
	}
	return []Requirement{{
		Name:        name + " client",
		Command:     name,
		Description: "Reads the branch, base revision and diff from the working copy",
	}}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns an error naming every required dependency that is not
// available, or nil.
func Missing(statuses []Status) error {
	var missing []string
	for _, s := range statuses {
		if s.Available || s.Optional {
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", s.Name, s.Detail))
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing dependencies: %s", strings.Join(missing, ", "))
}
