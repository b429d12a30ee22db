// Package parrot is the bot itself: it turns parsed commands into corpus
// harvesting, model building and replies.
package parrot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amacrae2/parrot-bot/internal/channelruntime/slack"
	"github.com/amacrae2/parrot-bot/internal/command"
	"github.com/amacrae2/parrot-bot/internal/corpus"
	"github.com/amacrae2/parrot-bot/internal/fsstore"
	"github.com/amacrae2/parrot-bot/internal/history"
	"github.com/amacrae2/parrot-bot/internal/textmodel"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	HelpMessage = "\nTry `parrot me` to see what a parrot version of you might say. \n\n" +
		">Other parameters - parrot [me/random/user_name(without the @)] [number 1-10]\n\n" +
		"Try `power up me` to give the parrot more slack message data to mimic you with. \n\n" +
		">Other parameters - power up [me/user_name(without the @)/all]\n" +
		"_An emoji response means I saw your command._\n"

	fallbackReaction       = "eyes"
	defaultNameCacheSize   = 512
	defaultMaxRandomMisses = 5
)

// Message is one chat message addressed to the bot.
type Message struct {
	Channel string
	User    string
	Text    string
	TS      string
}

type Fetcher interface {
	FetchAll(ctx context.Context, user string, channels []string, initial corpus.Corpus) (history.Result, error)
}

type ModelBuilder interface {
	Build(ctx context.Context, req textmodel.Request) (*textmodel.Model, error)
}

type Config struct {
	// StartAtUser skips users whose name sorts before it during a power up
	// of all users.
	StartAtUser string
	// MaxRandomMisses bounds how many random users may be tried in a row
	// without producing a sentence.
	MaxRandomMisses int
	Format          FormatOptions
	// JournalPath is the JSON lines file power ups are recorded in. Empty
	// disables the journal.
	JournalPath   string
	NameCacheSize int
}

type Dependencies struct {
	Chat    Chat
	Store   corpus.Store
	Fetcher Fetcher
	Builder ModelBuilder
	Parser  *command.Parser
	Logger  *slog.Logger
	// Rand picks reactions and random users. Nil seeds a new source.
	Rand *rand.Rand
	Now  func() time.Time
}

type Bot struct {
	chat      Chat
	store     corpus.Store
	fetcher   Fetcher
	builder   ModelBuilder
	parser    *command.Parser
	formatter *Formatter
	cfg       Config
	logger    *slog.Logger
	names     *lru.Cache[string, string]
	now       func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

func New(d Dependencies, cfg Config) (*Bot, error) {
	switch {
	case d.Chat == nil:
		return nil, fmt.Errorf("Chat dependency missing")
	case d.Store == nil:
		return nil, fmt.Errorf("Store dependency missing")
	case d.Fetcher == nil:
		return nil, fmt.Errorf("Fetcher dependency missing")
	case d.Builder == nil:
		return nil, fmt.Errorf("Builder dependency missing")
	}
	parser := d.Parser
	if parser == nil {
		parser = command.NewParser(command.Config{})
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := d.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	if cfg.MaxRandomMisses <= 0 {
		cfg.MaxRandomMisses = defaultMaxRandomMisses
	}
	if cfg.NameCacheSize <= 0 {
		cfg.NameCacheSize = defaultNameCacheSize
	}
	names, err := lru.New[string, string](cfg.NameCacheSize)
	if err != nil {
		return nil, err
	}
	return &Bot{
		chat:      d.Chat,
		store:     d.Store,
		fetcher:   d.Fetcher,
		builder:   d.Builder,
		parser:    parser,
		formatter: NewFormatter(cfg.Format),
		cfg:       cfg,
		logger:    logger,
		names:     names,
		now:       now,
		rand:      r,
	}, nil
}

// Handle runs the command in m to completion. Errors caused by bad data are
// marked recoverable; anything else is returned as is.
func (b *Bot) Handle(ctx context.Context, m Message) error {
	cmd := b.parser.Parse(m.Text)
	if cmd.Kind == command.KindIgnore {
		return nil
	}
	logger := b.logger.With("request_id", uuid.NewString(), "channel", m.Channel, "user", m.User, "command", cmd.Kind.String())
	logger.Info("parrot_command")

	if cmd.Kind == command.KindMalformed {
		return b.send(ctx, m.Channel, cmd.Reason)
	}
	b.acknowledge(ctx, logger, m)

	switch cmd.Kind {
	case command.KindShowHelp:
		return b.send(ctx, m.Channel, HelpMessage)
	case command.KindParrot:
		return b.handleParrot(ctx, logger, m, cmd)
	case command.KindPowerUp:
		return b.handlePowerUp(ctx, logger, m, cmd.Target)
	}
	return nil
}

func (b *Bot) acknowledge(ctx context.Context, logger *slog.Logger, m Message) {
	if strings.TrimSpace(m.TS) == "" {
		return
	}
	name := fallbackReaction
	emoji, err := b.chat.ListEmoji(ctx)
	if err != nil {
		logger.Warn("parrot_emoji_list_error", "error", err.Error())
	} else if len(emoji) > 0 {
		name = emoji[b.intN(len(emoji))]
	}
	if err := b.chat.AddReaction(ctx, m.Channel, name, m.TS); err != nil {
		logger.Warn("parrot_reaction_error", "emoji", name, "error", err.Error())
	}
}

func (b *Bot) handleParrot(ctx context.Context, logger *slog.Logger, m Message, cmd command.Command) error {
	random := cmd.Target.Kind == command.TargetRandom
	var users []User
	name := cmd.Target.Name
	switch cmd.Target.Kind {
	case command.TargetSelf:
		n, err := b.userName(ctx, m.User)
		if err != nil {
			return recoverable(err)
		}
		name = n
	case command.TargetRandom:
		var err error
		users, err = b.chat.ListUsers(ctx)
		if err != nil {
			return recoverable(err)
		}
		if len(users) == 0 {
			return b.send(ctx, m.Channel, "I don't know anybody to parrot yet")
		}
		name = b.pickUser(users)
	}
	logger.Info("parrot_request", "target", name, "count", cmd.Count, "random", random, "from", b.nameOrID(ctx, m.User), "in", b.channelNameOrID(ctx, m.Channel))

	model, err := b.buildModel(ctx, m.Channel, name)
	if err != nil {
		return err
	}
	misses := 0
	for sent := 0; sent < cmd.Count; {
		sentence, ok := model.GenerateSentence()
		if !ok {
			logger.Warn("parrot_not_enough_messages", "target", name)
			if random && misses < b.cfg.MaxRandomMisses {
				misses++
				name = b.pickUser(users)
				if model, err = b.buildModel(ctx, m.Channel, name); err != nil {
					return err
				}
				continue
			}
			return b.send(ctx, m.Channel, fmt.Sprintf("Not enough messages to form parrot response for %s", name))
		}
		if random {
			sentence = fmt.Sprintf("%s - %s", sentence, name)
		}
		if text := b.formatter.Format(sentence); text != "" {
			if err := b.send(ctx, m.Channel, text); err != nil {
				return err
			}
		} else {
			logger.Debug("parrot_sentence_blank", "target", name)
		}
		sent++
		if random && sent < cmd.Count {
			misses = 0
			name = b.pickUser(users)
			if model, err = b.buildModel(ctx, m.Channel, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Bot) buildModel(ctx context.Context, channel, name string) (*textmodel.Model, error) {
	c, err := b.store.Load(ctx, name)
	if err != nil {
		return nil, recoverable(fmt.Errorf("load corpus for %s: %w", name, err))
	}
	return b.builder.Build(ctx, textmodel.Request{User: name, Channel: channel, Corpus: c})
}

func (b *Bot) handlePowerUp(ctx context.Context, logger *slog.Logger, m Message, target command.Target) error {
	switch target.Kind {
	case command.TargetAll:
		return b.powerUpAll(ctx, logger, m)
	case command.TargetSelf:
		name, err := b.userName(ctx, m.User)
		if err != nil {
			return recoverable(err)
		}
		_, err = b.PowerUp(ctx, m, name)
		return err
	default:
		_, err := b.PowerUp(ctx, m, target.Name)
		return err
	}
}

func (b *Bot) powerUpAll(ctx context.Context, logger *slog.Logger, m Message) error {
	users, err := b.chat.ListUsers(ctx)
	if err != nil {
		return recoverable(err)
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		if u.Name != "" {
			names = append(names, u.Name)
		}
	}
	sort.Strings(names)
	logger.Info("parrot_power_up_all", "users", len(names), "start_at", b.cfg.StartAtUser)
	for _, name := range names {
		if name < b.cfg.StartAtUser {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := b.PowerUp(ctx, m, name); err != nil {
			return err
		}
	}
	return nil
}

// PowerUpRecord is one line of the power up journal.
type PowerUpRecord struct {
	ID             string    `json:"id"`
	At             time.Time `json:"at"`
	User           string    `json:"user"`
	RequestedBy    string    `json:"requested_by,omitempty"`
	Channel        string    `json:"channel,omitempty"`
	Start          int       `json:"start"`
	Final          int       `json:"final"`
	New            int       `json:"new"`
	FailedChannels []string  `json:"failed_channels,omitempty"`
}

// PowerUp harvests new messages for name, persists them when there are any
// and reports progress to the requesting channel. It returns the number of
// new messages.
func (b *Bot) PowerUp(ctx context.Context, m Message, name string) (int, error) {
	logger := b.logger.With("target", name, "channel", m.Channel)
	if err := b.send(ctx, m.Channel, fmt.Sprintf("Leveling up %s... this could take a few minutes", name)); err != nil {
		return 0, err
	}
	initial, err := b.store.Load(ctx, name)
	if err != nil {
		return 0, recoverable(fmt.Errorf("load corpus for %s: %w", name, err))
	}
	channels, err := b.chat.ListChannels(ctx)
	if err != nil {
		return 0, recoverable(err)
	}
	queries := make([]string, 0, len(channels))
	for _, ch := range channels {
		queries = append(queries, "#"+strings.TrimPrefix(ch, "#"))
	}
	res, err := b.fetcher.FetchAll(ctx, name, queries, initial)
	if err != nil {
		return 0, err
	}
	if failed := res.FailedChannels(); len(failed) > 0 {
		logger.Warn("parrot_power_up_partial", "failed_channels", failed)
	}

	if res.NewEntries > 0 {
		if err := b.store.Save(ctx, name, res.Corpus); err != nil {
			logger.Error("parrot_corpus_save_error", "error", err.Error())
			return 0, recoverable(fmt.Errorf("save corpus for %s: %w", name, err))
		}
		if err := b.send(ctx, m.Channel, fmt.Sprintf("I have been imbued with the power of %d new messages for %s!", res.NewEntries, name)); err != nil {
			return res.NewEntries, err
		}
	} else if err := b.send(ctx, m.Channel, fmt.Sprintf("No new messages found for %s :(", name)); err != nil {
		return 0, err
	}
	changes := fmt.Sprintf("Start: %d, Final: %d, New: %d", len(initial), len(res.Corpus), res.NewEntries)
	logger.Info("parrot_power_up_done", "start", len(initial), "final", len(res.Corpus), "new", res.NewEntries)
	if err := b.send(ctx, m.Channel, changes); err != nil {
		return res.NewEntries, err
	}
	b.journal(logger, PowerUpRecord{
		ID:             uuid.NewString(),
		At:             b.now().UTC(),
		User:           name,
		RequestedBy:    m.User,
		Channel:        m.Channel,
		Start:          len(initial),
		Final:          len(res.Corpus),
		New:            res.NewEntries,
		FailedChannels: res.FailedChannels(),
	})

	if res.NewEntries > 0 {
		model, err := b.builder.Build(ctx, textmodel.Request{User: name, Channel: m.Channel, Corpus: res.Corpus})
		if err != nil {
			return res.NewEntries, err
		}
		logger.Info("parrot_model_rebuilt", "entries", model.Entries, "skipped", model.Skipped, "empty", model.Empty())
	}
	return res.NewEntries, nil
}

func (b *Bot) journal(logger *slog.Logger, rec PowerUpRecord) {
	if strings.TrimSpace(b.cfg.JournalPath) == "" {
		return
	}
	if err := fsstore.AppendJSONLine(b.cfg.JournalPath, rec, fsstore.FileOptions{}); err != nil {
		logger.Warn("parrot_journal_error", "path", b.cfg.JournalPath, "error", err.Error())
	}
}

func (b *Bot) userName(ctx context.Context, userID string) (string, error) {
	key := "user:" + userID
	if name, ok := b.names.Get(key); ok {
		return name, nil
	}
	name, err := b.chat.UserName(ctx, userID)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("no user name for %s", userID)
	}
	b.names.Add(key, name)
	return name, nil
}

func (b *Bot) nameOrID(ctx context.Context, userID string) string {
	if name, err := b.userName(ctx, userID); err == nil {
		return name
	}
	return userID
}

func (b *Bot) channelNameOrID(ctx context.Context, channelID string) string {
	key := "channel:" + channelID
	if name, ok := b.names.Get(key); ok {
		return name
	}
	name, err := b.chat.ChannelName(ctx, channelID)
	if err != nil || strings.TrimSpace(name) == "" {
		return channelID
	}
	name = "#" + strings.TrimPrefix(strings.TrimSpace(name), "#")
	b.names.Add(key, name)
	return name
}

func (b *Bot) pickUser(users []User) string {
	if len(users) == 0 {
		return ""
	}
	return users[b.intN(len(users))].Name
}

func (b *Bot) intN(n int) int {
	b.randMu.Lock()
	defer b.randMu.Unlock()
	return b.rand.IntN(n)
}

func (b *Bot) send(ctx context.Context, channel, text string) error {
	return b.chat.SendMessage(ctx, channel, text)
}

// recoverable marks failures that come from bad or missing data rather than
// a broken bot.
func recoverable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return slack.Recoverable(err)
}
