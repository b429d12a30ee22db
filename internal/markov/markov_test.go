package markov

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestNewTextRejectsEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n"} {
		_, err := NewText(in, 2)
		require.ErrorIs(t, err, ErrInsufficientData, "input %q", in)
	}
}

func TestNewTextRejectsPoisonedSentences(t *testing.T) {
	cases := []string{
		`he said "hi"`,
		"look (here)",
		"[x]",
		"'quoted",
		"trailing'",
		"a 'b c",
		"a b' c",
	}
	for _, in := range cases {
		_, err := NewText(in, 2)
		assert.ErrorIs(t, err, ErrInsufficientData, "input %q", in)
	}
}

func TestNewTextKeepsApostrophesInsideWords(t *testing.T) {
	m, err := NewText("don't stop me now", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Sentences())
}

func TestPoisonedSentenceOnlyDropsItself(t *testing.T) {
	m, err := NewText("the cat sat. the dog (ran) off. birds fly high!", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Sentences())
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("one two. three four!\nfive six\nseven? eight")
	assert.Equal(t, []string{"one two.", "three four!", "five six", "seven?", "eight"}, got)
}

func TestMakeSentenceSingleSentenceCorpus(t *testing.T) {
	m, err := NewText("hello there general kenobi", 2)
	require.NoError(t, err)

	s, ok := m.MakeSentence(newRand(), SentenceOptions{SkipOverlapCheck: true})
	require.True(t, ok)
	assert.Equal(t, "hello there general kenobi", s)

	// The only possible walk repeats the input verbatim.
	_, ok = m.MakeSentence(newRand(), SentenceOptions{})
	assert.False(t, ok)
}

func TestMakeSentenceUsesOnlyKnownWords(t *testing.T) {
	text := "i like green apples. i like red cars. you like green cars. they like red apples."
	m, err := NewText(text, 2)
	require.NoError(t, err)

	known := map[string]bool{}
	for _, w := range strings.Fields(text) {
		known[w] = true
	}
	r := newRand()
	for i := 0; i < 50; i++ {
		s, ok := m.MakeSentence(r, SentenceOptions{SkipOverlapCheck: true})
		require.True(t, ok)
		for _, w := range strings.Fields(s) {
			assert.True(t, known[w], "unknown word %q in %q", w, s)
		}
	}
}

func TestMakeSentenceEmptyModel(t *testing.T) {
	_, ok := Empty().MakeSentence(newRand(), SentenceOptions{})
	assert.False(t, ok)

	var nilText *Text
	assert.True(t, nilText.IsEmpty())
	_, ok = nilText.MakeSentence(newRand(), SentenceOptions{})
	assert.False(t, ok)
}

func TestMakeSentenceDeterministicForSeed(t *testing.T) {
	m, err := NewText("a b c d. a b d c. b c a d. c a b d.", 2)
	require.NoError(t, err)
	s1, ok1 := m.MakeSentence(newRand(), SentenceOptions{SkipOverlapCheck: true})
	s2, ok2 := m.MakeSentence(newRand(), SentenceOptions{SkipOverlapCheck: true})
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, s1, s2)
}

func TestNovelRejectsLongVerbatimRuns(t *testing.T) {
	m, err := NewText("the quick brown fox jumps over the lazy dog", 2)
	require.NoError(t, err)
	opts := SentenceOptions{}.withDefaults()
	assert.False(t, m.novel(strings.Fields("the quick brown fox jumps"), opts))
	assert.True(t, m.novel(strings.Fields("the lazy fox jumps over brown dog"), opts))
}
