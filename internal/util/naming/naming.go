package naming

import (
	"fmt"
	"path"
	"strings"
)

// maxNameLength is the longest resource name Hetzner Cloud accepts.
const maxNameLength = 63

// Instance returns the provider-unique instance name for a machine.
func Instance(prefix, machineName, machineID string) string {
	suffix := strings.ReplaceAll(machineID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}

	var parts []string
	for _, p := range []string{prefix, machineName, suffix} {
		if p = sanitize(p); p != "" {
			parts = append(parts, p)
		}
	}

	name := strings.Join(parts, "-")
	if len(name) > maxNameLength {
		name = strings.TrimRight(name[:maxNameLength], "-")
	}
	return name
}

// Disk returns the name of the disk backing an instance.
func Disk(instance string) string {
	return instance
}

// ResultPath returns the canonical storage path of a job's results.
func ResultPath(root, userID, projectID string) string {
	return path.Join(root, userID, projectID)
}

// ProgressChannel returns the broadcast channel of a user.
func ProgressChannel(userID string) string {
	return fmt.Sprintf("simulation_progress_%s", userID)
}

// sanitize lowercases s and replaces everything outside [a-z0-9-] with '-'.
func sanitize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
