// Package markov builds word-level Markov chains over sentence-split text
// and walks them to produce new sentences.
package markov

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
)

// ErrInsufficientData is returned when the input holds no sentence the
// model can learn from.
var ErrInsufficientData = errors.New("markov: insufficient data")

const (
	DefaultStateSize       = 2
	DefaultTries           = 10
	DefaultMaxOverlapRatio = 0.7
	DefaultMaxOverlapTotal = 15

	begin = "\x00BEGIN"
	end   = "\x00END"
)

type transitions struct {
	words  []string
	counts []int
	index  map[string]int
	total  int
}

func (t *transitions) add(word string) {
	if t.index == nil {
		t.index = map[string]int{}
	}
	if i, ok := t.index[word]; ok {
		t.counts[i]++
	} else {
		t.index[word] = len(t.words)
		t.words = append(t.words, word)
		t.counts = append(t.counts, 1)
	}
	t.total++
}

func (t *transitions) pick(r *rand.Rand) string {
	n := r.IntN(t.total)
	for i, c := range t.counts {
		if n < c {
			return t.words[i]
		}
		n -= c
	}
	return t.words[len(t.words)-1]
}

// Text is an immutable sentence model. The zero value and the value returned
// by Empty produce no sentences.
type Text struct {
	stateSize int
	chain     map[string]*transitions
	rejoined  string
	sentences int
}

// Empty returns a model with nothing to say.
func Empty() *Text {
	return &Text{stateSize: DefaultStateSize}
}

// NewText learns from text. Lines and words ending in '.', '!' or '?' split
// sentences; sentences carrying quotes, brackets or parentheses, or a stray
// leading or trailing apostrophe, are rejected. When no sentence survives,
// NewText returns ErrInsufficientData.
func NewText(text string, stateSize int) (*Text, error) {
	if stateSize <= 0 {
		stateSize = DefaultStateSize
	}
	var accepted [][]string
	for _, s := range splitSentences(text) {
		if !acceptSentence(s) {
			continue
		}
		words := strings.Fields(s)
		if len(words) == 0 {
			continue
		}
		accepted = append(accepted, words)
	}
	if len(accepted) == 0 {
		return nil, ErrInsufficientData
	}

	t := &Text{stateSize: stateSize, chain: map[string]*transitions{}, sentences: len(accepted)}
	joined := make([]string, 0, len(accepted))
	for _, words := range accepted {
		joined = append(joined, strings.Join(words, " "))
		state := make([]string, stateSize)
		for i := range state {
			state[i] = begin
		}
		for _, w := range append(words, end) {
			key := stateKey(state)
			tr := t.chain[key]
			if tr == nil {
				tr = &transitions{}
				t.chain[key] = tr
			}
			tr.add(w)
			state = append(state[1:], w)
		}
	}
	t.rejoined = strings.Join(joined, " ")
	return t, nil
}

// Sentences reports how many input sentences the model learned from.
func (t *Text) Sentences() int {
	if t == nil {
		return 0
	}
	return t.sentences
}

func (t *Text) IsEmpty() bool {
	return t == nil || len(t.chain) == 0
}

type SentenceOptions struct {
	Tries           int
	MaxOverlapRatio float64
	MaxOverlapTotal int
	// SkipOverlapCheck accepts the first walk even when it reproduces a long
	// run of the input verbatim.
	SkipOverlapCheck bool
}

func (o SentenceOptions) withDefaults() SentenceOptions {
	if o.Tries <= 0 {
		o.Tries = DefaultTries
	}
	if o.MaxOverlapRatio <= 0 {
		o.MaxOverlapRatio = DefaultMaxOverlapRatio
	}
	if o.MaxOverlapTotal <= 0 {
		o.MaxOverlapTotal = DefaultMaxOverlapTotal
	}
	return o
}

// MakeSentence walks the chain up to opts.Tries times and returns the first
// sentence that passes the overlap check. ok is false when none did or the
// model is empty. The model is not mutated; r must not be shared between
// goroutines.
func (t *Text) MakeSentence(r *rand.Rand, opts SentenceOptions) (string, bool) {
	if t.IsEmpty() || r == nil {
		return "", false
	}
	opts = opts.withDefaults()
	for i := 0; i < opts.Tries; i++ {
		words := t.walk(r)
		if len(words) == 0 {
			continue
		}
		if opts.SkipOverlapCheck || t.novel(words, opts) {
			return strings.Join(words, " "), true
		}
	}
	return "", false
}

func (t *Text) walk(r *rand.Rand) []string {
	state := make([]string, t.stateSize)
	for i := range state {
		state[i] = begin
	}
	var out []string
	for {
		tr := t.chain[stateKey(state)]
		if tr == nil || tr.total == 0 {
			return out
		}
		w := tr.pick(r)
		if w == end {
			return out
		}
		out = append(out, w)
		state = append(state[1:], w)
	}
}

// novel rejects a sentence containing a run of words that appears verbatim
// in the input and is longer than the allowed overlap.
func (t *Text) novel(words []string, opts SentenceOptions) bool {
	overlapMax := int(math.RoundToEven(opts.MaxOverlapRatio * float64(len(words))))
	if overlapMax > opts.MaxOverlapTotal {
		overlapMax = opts.MaxOverlapTotal
	}
	over := overlapMax + 1
	grams := len(words) - overlapMax
	if grams < 1 {
		grams = 1
	}
	for i := 0; i < grams; i++ {
		j := i + over
		if j > len(words) {
			j = len(words)
		}
		if strings.Contains(t.rejoined, strings.Join(words[i:j], " ")) {
			return false
		}
	}
	return true
}

func stateKey(state []string) string {
	return strings.Join(state, "\x1f")
}

func splitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		var cur []string
		for _, w := range strings.Fields(line) {
			cur = append(cur, w)
			if strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") || strings.HasSuffix(w, "?") {
				out = append(out, strings.Join(cur, " "))
				cur = nil
			}
		}
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
		}
	}
	return out
}

func acceptSentence(s string) bool {
	if strings.ContainsAny(s, "\"()[]") {
		return false
	}
	if strings.HasPrefix(s, "'") || strings.HasSuffix(s, "'") {
		return false
	}
	if strings.Contains(s, " '") || strings.Contains(s, "' ") {
		return false
	}
	return true
}
