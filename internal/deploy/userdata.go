package deploy

import (
	"sort"
	"strings"
)

const (
	defaultShebang = "#!/bin/sh"
	metadataFile   = "/etc/simrun/metadata.env"
	metadataEOF    = "SIMRUN_METADATA"
)

// UserData renders the boot script of an instance. The metadata is written
// to /etc/simrun/metadata.env and exported before script runs; script
// keeps its own shebang line if it has one.
func UserData(metadata map[string]string, script string) string {
	shebang := defaultShebang
	body := script
	if strings.HasPrefix(script, "#!") {
		shebang, body, _ = strings.Cut(script, "\n")
	}

	var b strings.Builder
	b.WriteString(shebang + "\n")

	if len(metadata) > 0 {
		b.WriteString("mkdir -p /etc/simrun\n")
		b.WriteString("cat > " + metadataFile + " <<'" + metadataEOF + "'\n")
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(EnvName(k) + "=" + shellQuote(metadata[k]) + "\n")
		}
		b.WriteString(metadataEOF + "\n")
		b.WriteString("set -a\n. " + metadataFile + "\nset +a\n")
	}

	if body != "" {
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// EnvName returns the environment variable a metadata key is exported as.
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString("SIMRUN_")
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
