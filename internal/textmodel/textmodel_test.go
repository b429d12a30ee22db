package textmodel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/amacrae2/parrot-bot/internal/corpus"
	"github.com/amacrae2/parrot-bot/internal/markov"
	"github.com/google/go-cmp/cmp"
)

type notice struct {
	channel string
	text    string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recordingNotifier) SendMessage(_ context.Context, channel, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{channel: channel, text: text})
	return nil
}

func newTestBuilder(n Notifier, opts Options) *Builder {
	opts.HomeChannel = "C_HOME"
	opts.Sentence = markov.SentenceOptions{SkipOverlapCheck: true}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBuilder(n, opts)
}

func (r *recordingNotifier) sent() []notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notice(nil), r.notices...)
}

func mustBuild(t *testing.T, b *Builder, req Request) *Model {
	t.Helper()
	m, err := b.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if m == nil {
		t.Fatalf("Build() returned a nil model")
	}
	return m
}

func TestSanitizeRemovesConfiguredChars(t *testing.T) {
	in := []string{`he said "hi" (twice)`, "[link]", "plain", "", "it's"}
	out := Sanitize(in, DefaultSanitizeChars)

	for _, s := range out {
		if strings.ContainsAny(s, DefaultSanitizeChars) {
			t.Fatalf("left a removable char in %q", s)
		}
	}
	if diff := cmp.Diff([]string{"he said hi twice", "link", "plain", "", "its"}, out); diff != "" {
		t.Fatalf("Sanitize() mismatch (-want +got):\n%s", diff)
	}
	if in[0] != `he said "hi" (twice)` {
		t.Fatalf("input was modified: %q", in[0])
	}
}

func TestSanitizeWithoutCharsCopies(t *testing.T) {
	in := []string{"a (b)"}
	out := Sanitize(in, "")
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("Sanitize() mismatch (-want +got):\n%s", diff)
	}
	out[0] = "changed"
	if in[0] != "a (b)" {
		t.Fatalf("output shares storage with input")
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	n := &recordingNotifier{}
	m := mustBuild(t, newTestBuilder(n, Options{}), Request{User: "alice", Channel: "C1", Corpus: corpus.Corpus{}})

	if !m.Empty() {
		t.Fatalf("model should be empty")
	}
	if _, ok := m.GenerateSentence(); ok {
		t.Fatalf("empty model produced a sentence")
	}
	if got := n.sent(); len(got) != 0 {
		t.Fatalf("unexpected notices: %v", got)
	}
}

func TestBuildHealthyCorpus(t *testing.T) {
	c := corpus.Corpus{"1": "we ship on friday.", "2": "tests are green!", "3": "we ship tests today."}
	m := mustBuild(t, newTestBuilder(nil, Options{}), Request{User: "alice", Corpus: c})

	if m.Empty() || m.Entries != 3 || m.Skipped != 0 || m.Sanitized {
		t.Fatalf("model = {Empty:%v Entries:%d Skipped:%d Sanitized:%v}", m.Empty(), m.Entries, m.Skipped, m.Sanitized)
	}
	if s, ok := m.GenerateSentence(); !ok || s == "" {
		t.Fatalf("GenerateSentence() = %q, %v", s, ok)
	}
}

func TestBuildSkipsOnePoisonedEntry(t *testing.T) {
	n := &recordingNotifier{}
	c := corpus.Corpus{"poison": "check this out (it is broken"}
	for i := 0; i < 9; i++ {
		c[fmt.Sprintf("good-%d", i)] = fmt.Sprintf("good message number %d about lunch", i)
	}

	m := mustBuild(t, newTestBuilder(n, Options{}), Request{User: "alice", Channel: "C1", Corpus: c})

	if m.Empty() || m.Entries != 9 || m.Skipped != 1 || m.Sanitized {
		t.Fatalf("model = {Empty:%v Entries:%d Skipped:%d Sanitized:%v}", m.Empty(), m.Entries, m.Skipped, m.Sanitized)
	}
	if got := n.sent(); len(got) != 0 {
		t.Fatalf("unexpected notices: %v", got)
	}
	s, ok := m.GenerateSentence()
	if !ok {
		t.Fatalf("GenerateSentence() failed")
	}
	if strings.Contains(s, "(") {
		t.Fatalf("sentence %q came from the poisoned entry", s)
	}
}

func TestBuildRetriesWithSanitizedCorpus(t *testing.T) {
	n := &recordingNotifier{}
	c := corpus.Corpus{"a": "look (here) now", "b": "nice [one] friend"}

	m := mustBuild(t, newTestBuilder(n, Options{}), Request{User: "bob", Channel: "C1", Corpus: c})

	if m.Empty() || !m.Sanitized {
		t.Fatalf("model = {Empty:%v Sanitized:%v}, want a sanitized model", m.Empty(), m.Sanitized)
	}
	want := []notice{{channel: "C_HOME", text: "hit a snag on `k (` from ```look (here) now``` - trying again"}}
	if diff := cmp.Diff(want, n.sent(), cmp.AllowUnexported(notice{})); diff != "" {
		t.Fatalf("notices mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildGivesUpAfterRetries(t *testing.T) {
	n := &recordingNotifier{}
	c := corpus.Corpus{"a": "(stuck", "b": "also (stuck"}

	m := mustBuild(t, newTestBuilder(n, Options{SanitizeChars: "#"}), Request{User: "carol", Channel: "C_REQ", Corpus: c})

	if !m.Empty() {
		t.Fatalf("model should be empty after giving up")
	}
	got := n.sent()
	if len(got) != 3 {
		t.Fatalf("notices = %v, want 3", got)
	}
	if got[0].channel != "C_HOME" || got[1].channel != "C_HOME" {
		t.Fatalf("snag notices went to %q and %q", got[0].channel, got[1].channel)
	}
	if want := (notice{channel: "C_REQ", text: "having trouble with messages from user carol"}); got[2] != want {
		t.Fatalf("final notice = %+v, want %+v", got[2], want)
	}
}

func TestBuildRetriesOption(t *testing.T) {
	n := &recordingNotifier{}
	b := newTestBuilder(n, Options{SanitizeChars: "#", Retries: -1})
	m := mustBuild(t, b, Request{User: "dan", Channel: "C_REQ", Corpus: corpus.Corpus{"a": "[x"}})

	if !m.Empty() {
		t.Fatalf("model should be empty")
	}
	got := n.sent()
	if len(got) != 1 || got[0].channel != "C_REQ" {
		t.Fatalf("notices = %v, want one to C_REQ", got)
	}
}

func TestBuildSanitizeFirst(t *testing.T) {
	n := &recordingNotifier{}
	b := newTestBuilder(n, Options{})
	m := mustBuild(t, b, Request{User: "erin", Corpus: corpus.Corpus{"a": `"quoted" words here`}, Sanitize: true})

	if m.Empty() || !m.Sanitized {
		t.Fatalf("model = {Empty:%v Sanitized:%v}, want a sanitized model", m.Empty(), m.Sanitized)
	}
	if got := n.sent(); len(got) != 0 {
		t.Fatalf("unexpected notices: %v", got)
	}
}

func TestBuildCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestBuilder(nil, Options{}).Build(ctx, Request{User: "x", Corpus: corpus.Corpus{"a": "hi"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want context.Canceled", err)
	}
}

func TestFindSnagSkipsBlankWindows(t *testing.T) {
	b := newTestBuilder(nil, Options{})
	part, ok := b.findSnag("ok     (")
	if !ok || !strings.Contains(part, "(") {
		t.Fatalf("findSnag() = %q, %v", part, ok)
	}
	if _, ok := b.findSnag("     "); ok {
		t.Fatalf("blank text should have no snag")
	}
}
