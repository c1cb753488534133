package journal

import (
	"os"
	"path/filepath"
)

// Environment overrides for the backing file location. Both names are
// honored; EnvPathLegacy is the spelling older deployments still export.
const (
	EnvPath       = "MUNIN_JOURNAL_PATH"
	EnvPathLegacy = "MUNIN_MEMORY_PATH"
)

// DefaultRelPath is where the journal lives when nothing overrides it,
// relative to the current working directory.
const DefaultRelPath = "logs/journal.json"

// ResolvePath determines the backing file location: the explicit override
// wins, then the environment (new name before legacy), then the default.
// Relative results resolve against the current working directory. This is a
// pure read of configuration state; nothing is created.
func ResolvePath(override string) string {
	p := override
	if p == "" {
		p = os.Getenv(EnvPath)
	}
	if p == "" {
		p = os.Getenv(EnvPathLegacy)
	}
	if p == "" {
		p = DefaultRelPath
	}
	if !filepath.IsAbs(p) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}
	return p
}
