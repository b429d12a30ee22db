package fsstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// safeNameMaxLen leaves room for a hash suffix and a lock key prefix.
const safeNameMaxLen = lockKeyMaxLen - 16

func normalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return filepath.Clean(path), nil
}

// SafeName maps an arbitrary name (a chat user name, for example) onto a
// single path component: lowercase ascii letters, digits, '.', '_' and '-'.
// A name that is already in that form is returned unchanged. Otherwise
// other runes become '-', leading and trailing dots are stripped, and a
// short hash of the name is appended so that distinct names never share a
// file.
func SafeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "", fmt.Errorf("%w: name %q has no usable characters", ErrInvalidPath, name)
	}
	if out == name && len(out) <= safeNameMaxLen {
		return out, nil
	}
	if len(out) > safeNameMaxLen {
		out = out[:safeNameMaxLen]
	}
	sum := sha256.Sum256([]byte(name))
	return out + "-" + hex.EncodeToString(sum[:4]), nil
}
