package fsstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AppendJSONLine appends v as one JSON line to path, creating the file and
// its directory when missing. The file is opened and closed per call; it is
// meant for low-volume journals, not hot-path logging.
func AppendJSONLine(path string, v any, opts FileOptions) error {
	normalizedPath, err := normalizePath(path)
	if err != nil {
		return err
	}
	opts = normalizeFileOptions(opts)
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: jsonl encode %s: %v", ErrEncodeFailed, normalizedPath, err)
	}
	data = append(data, '\n')

	if err := EnsureDir(filepath.Dir(normalizedPath), opts.DirPerm); err != nil {
		return err
	}
	file, err := os.OpenFile(normalizedPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, opts.FilePerm)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrAppendFailed, normalizedPath, err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("%w: write %s: %v", ErrAppendFailed, normalizedPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrAppendFailed, normalizedPath, err)
	}
	return nil
}
