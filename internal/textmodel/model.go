package textmodel

import (
	"math/rand/v2"

	"github.com/amacrae2/parrot-bot/internal/markov"
)

// Model generates sentences for one user. It is safe for concurrent use;
// every call draws from its own random source.
type Model struct {
	text     *markov.Text
	sentence markov.SentenceOptions

	// Entries is how many corpus entries the model was built from.
	Entries int
	// Skipped counts entries left out because they could not be learned.
	Skipped int
	// Sanitized is set when the corpus text was sanitized before building.
	Sanitized bool
}

func emptyModel() *Model {
	return &Model{text: markov.Empty()}
}

// Empty reports whether the model can never produce a sentence.
func (m *Model) Empty() bool {
	return m == nil || m.text.IsEmpty()
}

// GenerateSentence returns one sentence, or false when none could be made.
func (m *Model) GenerateSentence() (string, bool) {
	return m.GenerateSentenceWith(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// GenerateSentenceWith is GenerateSentence with a caller-owned source.
func (m *Model) GenerateSentenceWith(r *rand.Rand) (string, bool) {
	if m.Empty() {
		return "", false
	}
	return m.text.MakeSentence(r, m.sentence)
}
