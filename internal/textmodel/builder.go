// Package textmodel turns a user's corpus into a sentence model, narrowing
// past entries the model cannot learn from.
package textmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amacrae2/parrot-bot/internal/corpus"
	"github.com/amacrae2/parrot-bot/internal/markov"
)

const (
	DefaultRetries = 2
	windowSize     = 3
)

// Notifier delivers progress notices to a channel.
type Notifier interface {
	SendMessage(ctx context.Context, channel, text string) error
}

type Options struct {
	StateSize int
	// Retries is how many extra sanitized builds follow a failed one. Zero
	// means DefaultRetries; a negative value disables retrying.
	Retries       int
	SanitizeChars string
	// HomeChannel receives the interim notice before each retry.
	HomeChannel string
	Sentence    markov.SentenceOptions
	Logger      *slog.Logger
}

type Builder struct {
	notifier Notifier
	opts     Options
	logger   *slog.Logger
}

func NewBuilder(notifier Notifier, opts Options) *Builder {
	if opts.StateSize <= 0 {
		opts.StateSize = markov.DefaultStateSize
	}
	switch {
	case opts.Retries == 0:
		opts.Retries = DefaultRetries
	case opts.Retries < 0:
		opts.Retries = 0
	}
	if opts.SanitizeChars == "" {
		opts.SanitizeChars = DefaultSanitizeChars
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{notifier: notifier, opts: opts, logger: logger}
}

type Request struct {
	User string
	// Channel is where the request came from; it receives the notice when
	// the corpus cannot be used at all.
	Channel string
	Corpus  corpus.Corpus
	// Sanitize strips the configured characters on the first attempt too.
	Sanitize bool
}

// Snag is the smallest fragment found to break model construction.
type Snag struct {
	Part    string
	Message string
}

// narrowing is the outcome of building entry by entry.
type narrowing struct {
	healthy []string
	failed  int
	snag    *Snag
}

// Build always returns a model; it is empty when nothing usable is left after
// the retry budget. The error is non-nil only for context cancellation or an
// unexpected model failure.
func (b *Builder) Build(ctx context.Context, req Request) (*Model, error) {
	for attempt := 0; attempt <= b.opts.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sanitized := req.Sanitize || attempt > 0
		texts := req.Corpus.Texts()
		if sanitized {
			texts = Sanitize(texts, b.opts.SanitizeChars)
		}
		b.logger.Info("textmodel_build", "user", req.User, "entries", len(texts), "attempt", attempt, "sanitized", sanitized)

		text, err := markov.NewText(strings.Join(texts, " "), b.opts.StateSize)
		if err == nil {
			return b.model(text, len(texts), 0, sanitized), nil
		}
		if !errors.Is(err, markov.ErrInsufficientData) {
			return nil, fmt.Errorf("build model for %s: %w", req.User, err)
		}

		n := b.narrow(texts)
		if len(n.healthy) > 0 {
			text, err := markov.NewText(strings.Join(n.healthy, " "), b.opts.StateSize)
			if err == nil {
				b.logger.Info("textmodel_narrowed", "user", req.User, "healthy", len(n.healthy), "skipped", n.failed)
				return b.model(text, len(n.healthy), n.failed, sanitized), nil
			}
			b.logger.Warn("textmodel_healthy_rebuild_failed", "user", req.User, "healthy", len(n.healthy), "error", err.Error())
		}
		if n.snag == nil {
			b.logger.Info("textmodel_no_usable_entries", "user", req.User, "entries", len(texts))
			return emptyModel(), nil
		}
		if attempt < b.opts.Retries {
			b.logger.Warn("textmodel_snag", "user", req.User, "part", n.snag.Part, "attempt", attempt)
			b.notify(ctx, b.opts.HomeChannel, fmt.Sprintf("hit a snag on `%s` from ```%s``` - trying again", n.snag.Part, n.snag.Message))
			continue
		}
	}
	b.logger.Warn("textmodel_gave_up", "user", req.User, "attempts", b.opts.Retries+1)
	b.notify(ctx, req.Channel, fmt.Sprintf("having trouble with messages from user %s", req.User))
	return emptyModel(), nil
}

func (b *Builder) model(text *markov.Text, entries, skipped int, sanitized bool) *Model {
	return &Model{
		text:      text,
		sentence:  b.opts.Sentence,
		Entries:   entries,
		Skipped:   skipped,
		Sanitized: sanitized,
	}
}

// narrow builds each entry on its own and, for entries that fail, walks
// overlapping windows to find a fragment that fails by itself.
func (b *Builder) narrow(texts []string) narrowing {
	var out narrowing
	for _, t := range texts {
		if _, err := markov.NewText(t, b.opts.StateSize); err == nil {
			out.healthy = append(out.healthy, t)
			continue
		}
		out.failed++
		b.logger.Debug("textmodel_entry_failed", "message", t)
		if out.snag != nil {
			continue
		}
		if part, ok := b.findSnag(t); ok {
			out.snag = &Snag{Part: part, Message: t}
		}
	}
	return out
}

func (b *Builder) findSnag(message string) (string, bool) {
	runes := []rune(message)
	for i := range runes {
		j := min(i+windowSize, len(runes))
		part := string(runes[i:j])
		if strings.TrimSpace(part) == "" {
			continue
		}
		if _, err := markov.NewText(part, b.opts.StateSize); err != nil {
			b.logger.Debug("textmodel_part_failed", "part", part)
			return part, true
		}
	}
	return "", false
}

func (b *Builder) notify(ctx context.Context, channel, text string) {
	if b.notifier == nil || strings.TrimSpace(channel) == "" {
		b.logger.Warn("textmodel_notice_dropped", "channel", channel, "text", text)
		return
	}
	if err := b.notifier.SendMessage(ctx, channel, text); err != nil {
		b.logger.Warn("textmodel_notice_failed", "channel", channel, "error", err.Error())
	}
}
