package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultStateDir = "~/.parrotbot"

// ExpandHomePath replaces a leading "~" with the user's home directory.
func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}

func ResolveStateDir(stateDir string) string {
	stateDir = strings.TrimSpace(stateDir)
	if stateDir == "" {
		stateDir = defaultStateDir
	}
	return filepath.Clean(ExpandHomePath(stateDir))
}

// ResolveStateChildDir returns name (or fallback when name is blank) under
// the state dir. An absolute name is used as is.
func ResolveStateChildDir(stateDir, name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	name = ExpandHomePath(name)
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(ResolveStateDir(stateDir), name)
}

func ResolveStateFile(stateDir, filename string) string {
	return ResolveStateChildDir(stateDir, filename, filename)
}
