package corpus

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/amacrae2/parrot-bot/internal/fsstore"
)

const fileNamePrefix = "message_db_"

// FileStore keeps each corpus in <Dir>/message_db_<user>.json. Reads and
// writes for one user are serialized with an advisory lock under LockRoot.
type FileStore struct {
	dir    string
	locker fsstore.Locker
}

func NewFileStore(dir, lockRoot string) *FileStore {
	dir = strings.TrimSpace(dir)
	lockRoot = strings.TrimSpace(lockRoot)
	if lockRoot == "" && dir != "" {
		lockRoot = filepath.Join(dir, ".fslocks")
	}
	return &FileStore{
		dir:    dir,
		locker: fsstore.Locker{Root: lockRoot},
	}
}

// Path returns the backing file for user.
func (s *FileStore) Path(user string) (string, error) {
	if s == nil || s.dir == "" {
		return "", fmt.Errorf("corpus file store is not initialized")
	}
	name, err := fsstore.SafeName(user)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, fileNamePrefix+name+".json"), nil
}

func (s *FileStore) Load(ctx context.Context, user string) (Corpus, error) {
	path, err := s.Path(user)
	if err != nil {
		return nil, err
	}
	var out Corpus
	err = s.withUserLock(ctx, user, func() error {
		var raw map[string]string
		exists, err := fsstore.ReadJSON(path, &raw)
		if err != nil {
			if errors.Is(err, fsstore.ErrDecodeFailed) {
				return fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
			}
			return err
		}
		if !exists {
			out = Corpus{}
			return fsstore.WriteJSONAtomic(path, out, fsstore.FileOptions{Compact: true})
		}
		if raw == nil {
			return fmt.Errorf("%w: %s holds null, want an object", ErrStorageCorrupt, path)
		}
		out = Corpus(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) Save(ctx context.Context, user string, c Corpus) error {
	path, err := s.Path(user)
	if err != nil {
		return err
	}
	if c == nil {
		c = Corpus{}
	}
	return s.withUserLock(ctx, user, func() error {
		return fsstore.WriteJSONAtomic(path, c, fsstore.FileOptions{Compact: true})
	})
}

func (s *FileStore) withUserLock(ctx context.Context, user string, fn func() error) error {
	name, err := fsstore.SafeName(user)
	if err != nil {
		return err
	}
	return s.locker.With(ctx, "corpus."+name, fn)
}
