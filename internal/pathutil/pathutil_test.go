package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHomePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandHomePath("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Fatalf("ExpandHomePath() = %q", got)
	}
	if got := ExpandHomePath("/abs"); got != "/abs" {
		t.Fatalf("absolute path changed: %q", got)
	}
	if got := ExpandHomePath("~user/x"); got != "~user/x" {
		t.Fatalf("other user's home must not expand: %q", got)
	}
}

func TestResolveStateChildDir(t *testing.T) {
	base := t.TempDir()
	if got := ResolveStateChildDir(base, "", "corpus"); got != filepath.Join(base, "corpus") {
		t.Fatalf("fallback: %q", got)
	}
	if got := ResolveStateChildDir(base, "msgs", "corpus"); got != filepath.Join(base, "msgs") {
		t.Fatalf("named: %q", got)
	}
	abs := filepath.Join(base, "elsewhere")
	if got := ResolveStateChildDir("/ignored", abs, "corpus"); got != abs {
		t.Fatalf("absolute: %q", got)
	}
	if got := ResolveStateFile(base, "powerups.jsonl"); got != filepath.Join(base, "powerups.jsonl") {
		t.Fatalf("file: %q", got)
	}
}
