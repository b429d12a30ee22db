package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/amacrae2/parrot-bot/internal/corpus"
	"github.com/google/go-cmp/cmp"
)

type pageKey struct {
	query string
	page  int
}

type fakeSearcher struct {
	mu     sync.Mutex
	pages  map[pageKey]Page
	errs   map[pageKey][]error
	calls  map[pageKey]int
	counts []int
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		pages: map[pageKey]Page{},
		errs:  map[pageKey][]error{},
		calls: map[pageKey]int{},
	}
}

func (f *fakeSearcher) SearchMessages(ctx context.Context, query string, page, count int) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := pageKey{query, page}
	f.calls[k]++
	f.counts = append(f.counts, count)
	if queued := f.errs[k]; len(queued) > 0 {
		err := queued[0]
		if len(queued) > 1 {
			f.errs[k] = queued[1:]
		}
		return Page{}, err
	}
	p, ok := f.pages[k]
	if !ok {
		return Page{TotalPages: 1}, nil
	}
	return p, nil
}

func entries(prefix string, n int) []corpus.Entry {
	out := make([]corpus.Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, corpus.Entry{Key: fmt.Sprintf("%s-%d", prefix, i), Text: fmt.Sprintf("message %s %d", prefix, i)})
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErr() error {
	return fmt.Errorf("%w: unexpected end of JSON input", ErrTransientDecode)
}

func mustFetch(t *testing.T, f *Fetcher, user string, channels []string, initial corpus.Corpus) Result {
	t.Helper()
	res, err := f.FetchAll(context.Background(), user, channels, initial)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	return res
}

func TestFetchAllKeepsGoodChannelWhenOtherFails(t *testing.T) {
	s := newFakeSearcher()
	qa := "from:@alice in:#a"
	qb := "from:@alice in:#b"
	s.pages[pageKey{qa, 1}] = Page{Matches: entries("a1", 3), TotalPages: 3}
	s.pages[pageKey{qa, 2}] = Page{Matches: entries("a2", 2), TotalPages: 3}
	s.pages[pageKey{qa, 3}] = Page{Matches: entries("a3", 1), TotalPages: 3}
	s.errs[pageKey{qb, 1}] = []error{decodeErr()}

	f := New(s, Options{Logger: quietLogger()})
	initial := corpus.Corpus{"old": "already here"}
	res := mustFetch(t, f, "alice", []string{"#a", "#b"}, initial)

	if res.NewEntries != 6 {
		t.Fatalf("NewEntries = %d, want 6", res.NewEntries)
	}
	if len(res.Corpus) != 7 || res.Corpus["old"] != "already here" {
		t.Fatalf("Corpus = %v", res.Corpus)
	}
	if got := s.calls[pageKey{qb, 1}]; got != 5 {
		t.Fatalf("channel b tried %d times, want 5", got)
	}
	if diff := cmp.Diff([]string{"#b"}, res.FailedChannels()); diff != "" {
		t.Fatalf("FailedChannels() mismatch (-want +got):\n%s", diff)
	}
	if len(res.Channels) != 2 {
		t.Fatalf("Channels = %+v", res.Channels)
	}
	if res.Channels[0].Pages != 3 {
		t.Fatalf("channel a pages = %d, want 3", res.Channels[0].Pages)
	}
	if !errors.Is(res.Channels[1].Err, ErrTransientDecode) {
		t.Fatalf("channel b error = %v, want ErrTransientDecode", res.Channels[1].Err)
	}
	if len(initial) != 1 {
		t.Fatalf("initial corpus was mutated: %v", initial)
	}
}

func TestFetchAllRetriesTransientDecode(t *testing.T) {
	s := newFakeSearcher()
	q := "from:@bob in:#general"
	s.errs[pageKey{q, 1}] = []error{decodeErr(), decodeErr()}
	s.pages[pageKey{q, 1}] = Page{Matches: entries("g", 2), TotalPages: 1}

	res := mustFetch(t, New(s, Options{Logger: quietLogger()}), "bob", []string{"#general"}, corpus.Corpus{})

	if got := s.calls[pageKey{q, 1}]; got != 3 {
		t.Fatalf("page 1 calls = %d, want 3", got)
	}
	if res.NewEntries != 2 {
		t.Fatalf("NewEntries = %d, want 2", res.NewEntries)
	}
	if failed := res.FailedChannels(); len(failed) != 0 {
		t.Fatalf("FailedChannels() = %v, want none", failed)
	}
}

func TestFetchAllDoesNotRetryOtherErrors(t *testing.T) {
	s := newFakeSearcher()
	q := "from:@bob in:#general"
	s.errs[pageKey{q, 1}] = []error{errors.New("slack search.messages failed: not_authed")}

	res := mustFetch(t, New(s, Options{Logger: quietLogger()}), "bob", []string{"#general"}, nil)

	if got := s.calls[pageKey{q, 1}]; got != 1 {
		t.Fatalf("page 1 calls = %d, want 1", got)
	}
	if res.NewEntries != 0 {
		t.Fatalf("NewEntries = %d, want 0", res.NewEntries)
	}
	if diff := cmp.Diff([]string{"#general"}, res.FailedChannels()); diff != "" {
		t.Fatalf("FailedChannels() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchAllMissingPagingMeansOnePage(t *testing.T) {
	s := newFakeSearcher()
	q := "from:@carol in:#x"
	s.pages[pageKey{q, 1}] = Page{Matches: entries("x", 4)}
	s.pages[pageKey{q, 2}] = Page{Matches: entries("never", 4)}

	res := mustFetch(t, New(s, Options{Logger: quietLogger()}), "carol", []string{"#x"}, nil)

	if res.NewEntries != 4 {
		t.Fatalf("NewEntries = %d, want 4", res.NewEntries)
	}
	if got := s.calls[pageKey{q, 2}]; got != 0 {
		t.Fatalf("page 2 fetched %d times, want 0", got)
	}
}

func TestFetchAllWalksEmptyMiddlePages(t *testing.T) {
	s := newFakeSearcher()
	q := "from:@dan in:#y"
	s.pages[pageKey{q, 1}] = Page{Matches: entries("y1", 1), TotalPages: 3}
	s.pages[pageKey{q, 2}] = Page{TotalPages: 3}
	s.pages[pageKey{q, 3}] = Page{Matches: entries("y3", 1), TotalPages: 3}

	res := mustFetch(t, New(s, Options{PageSize: 20, Logger: quietLogger()}), "dan", []string{"#y"}, nil)

	if res.NewEntries != 2 {
		t.Fatalf("NewEntries = %d, want 2", res.NewEntries)
	}
	if got := s.calls[pageKey{q, 3}]; got != 1 {
		t.Fatalf("page 3 calls = %d, want 1", got)
	}
	for _, c := range s.counts {
		if c != 20 {
			t.Fatalf("page size sent = %d, want 20", c)
		}
	}
}

func TestFetchAllDuplicateKeysCountOnce(t *testing.T) {
	s := newFakeSearcher()
	s.pages[pageKey{"from:@eve in:#a", 1}] = Page{Matches: []corpus.Entry{{Key: "dup", Text: "first"}}, TotalPages: 1}
	s.pages[pageKey{"from:@eve in:#b", 1}] = Page{Matches: []corpus.Entry{{Key: "dup", Text: "second"}}, TotalPages: 1}

	res := mustFetch(t, New(s, Options{Logger: quietLogger()}), "eve", []string{"#a", "#b"}, corpus.Corpus{"dup": "stored"})

	if res.NewEntries != 0 {
		t.Fatalf("NewEntries = %d, want 0", res.NewEntries)
	}
	if got := res.Corpus["dup"]; got != "second" {
		t.Fatalf("dup = %q, want the last channel's text", got)
	}
}

func TestFetchAllParallelMatchesSequential(t *testing.T) {
	build := func() *fakeSearcher {
		s := newFakeSearcher()
		for i := 0; i < 8; i++ {
			q := fmt.Sprintf("from:@zed in:#c%d", i)
			s.pages[pageKey{q, 1}] = Page{Matches: append(entries(fmt.Sprintf("c%d", i), 3), corpus.Entry{Key: "shared", Text: fmt.Sprintf("from c%d", i)}), TotalPages: 1}
		}
		return s
	}
	channels := []string{"#c0", "#c1", "#c2", "#c3", "#c4", "#c5", "#c6", "#c7"}

	seq := mustFetch(t, New(build(), Options{Logger: quietLogger()}), "zed", channels, nil)
	par := mustFetch(t, New(build(), Options{Parallelism: 4, Logger: quietLogger()}), "zed", channels, nil)

	if diff := cmp.Diff(seq.Corpus, par.Corpus); diff != "" {
		t.Fatalf("parallel corpus differs (-seq +par):\n%s", diff)
	}
	if got := par.Corpus["shared"]; got != "from c7" {
		t.Fatalf("shared = %q, want text from the last channel", got)
	}
	if seq.NewEntries != par.NewEntries {
		t.Fatalf("NewEntries seq=%d par=%d", seq.NewEntries, par.NewEntries)
	}
}

func TestFetchAllCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := New(newFakeSearcher(), Options{Logger: quietLogger()})
	if _, err := f.FetchAll(ctx, "alice", []string{"#a"}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchAll() error = %v, want context.Canceled", err)
	}
}
