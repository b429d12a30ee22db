// Package corpus holds the per-user message corpus: a mapping from a message
// permalink to the message text, plus the stores that persist it.
package corpus

import (
	"context"
	"errors"
	"sort"
)

// ErrStorageCorrupt reports backing data that exists but is not a
// permalink -> text mapping. No partial recovery is attempted.
var ErrStorageCorrupt = errors.New("corpus: storage corrupt")

// Entry is one harvested message.
type Entry struct {
	Key  string `json:"permalink"`
	Text string `json:"text"`
}

// Corpus maps a unique message key (its permalink) to the message text.
type Corpus map[string]string

// Merge folds entries into c by key. A key already present is overwritten
// (last write wins). It returns how many keys were not present before.
func (c Corpus) Merge(entries ...Entry) int {
	added := 0
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		if _, ok := c[e.Key]; !ok {
			added++
		}
		c[e.Key] = e.Text
	}
	return added
}

func (c Corpus) Clone() Corpus {
	out := make(Corpus, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Keys returns the keys in ascending order.
func (c Corpus) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Texts returns the values ordered by key, so that anything derived from
// the text (the joined model corpus, for one) is reproducible.
func (c Corpus) Texts() []string {
	keys := c.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, c[k])
	}
	return out
}

// Store persists one corpus per user name.
type Store interface {
	// Load returns the stored corpus for user. When nothing is stored yet an
	// empty corpus is persisted first and returned.
	Load(ctx context.Context, user string) (Corpus, error)
	// Save replaces the stored corpus for user atomically.
	Save(ctx context.Context, user string, c Corpus) error
}
