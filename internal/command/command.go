// Package command parses the bot's chat command language.
package command

import (
	"strconv"
	"strings"
)

const (
	HelpText        = "parrot commands"
	DefaultMaxCount = 10
	PowerUpUsage    = "usage: `power up me`, `power up all` or `power up <user name>`"
)

type Kind int

const (
	KindIgnore Kind = iota
	KindShowHelp
	KindParrot
	KindPowerUp
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindShowHelp:
		return "show_help"
	case KindParrot:
		return "parrot"
	case KindPowerUp:
		return "power_up"
	case KindMalformed:
		return "malformed"
	default:
		return "ignore"
	}
}

type TargetKind int

const (
	TargetRandom TargetKind = iota
	TargetSelf
	TargetAll
	TargetNamed
)

func (k TargetKind) String() string {
	switch k {
	case TargetSelf:
		return "self"
	case TargetAll:
		return "all"
	case TargetNamed:
		return "named"
	default:
		return "random"
	}
}

// Target names whose messages a command is about. Name is set only for
// TargetNamed.
type Target struct {
	Kind TargetKind
	Name string
}

func Named(name string) Target {
	return Target{Kind: TargetNamed, Name: name}
}

type Command struct {
	Kind   Kind
	Target Target
	// Count is the number of sentences for KindParrot.
	Count int
	// Reason explains a KindMalformed result.
	Reason string
}

type Config struct {
	// Aliases maps a lower-case nickname to the canonical user name.
	Aliases  map[string]string
	MaxCount int
}

// Parser is immutable after construction.
type Parser struct {
	aliases  map[string]string
	maxCount int
}

func NewParser(cfg Config) *Parser {
	aliases := make(map[string]string, len(cfg.Aliases))
	for k, v := range cfg.Aliases {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		aliases[k] = v
	}
	maxCount := cfg.MaxCount
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	return &Parser{aliases: aliases, maxCount: maxCount}
}

// Tokens lower-cases text and splits it on whitespace.
func Tokens(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func (p *Parser) Parse(text string) Command {
	if strings.ToLower(strings.TrimSpace(text)) == HelpText {
		return Command{Kind: KindShowHelp}
	}
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return Command{Kind: KindIgnore}
	}
	if tokens[0] == "parrot" {
		return Command{
			Kind:   KindParrot,
			Target: p.ExtractTarget(tokens, 1),
			Count:  ExtractCount(tokens, 2, p.maxCount),
		}
	}
	if len(tokens) >= 2 && tokens[0] == "power" && tokens[1] == "up" {
		if len(tokens) < 3 {
			return Command{Kind: KindMalformed, Reason: PowerUpUsage}
		}
		return Command{Kind: KindPowerUp, Target: powerUpTarget(tokens[2])}
	}
	return Command{Kind: KindIgnore}
}

// ExtractTarget reads the parrot target at position. A missing token means
// a random user.
func (p *Parser) ExtractTarget(tokens []string, position int) Target {
	if position < 0 || position >= len(tokens) {
		return Target{Kind: TargetRandom}
	}
	name := tokens[position]
	if name == "random" {
		return Target{Kind: TargetRandom}
	}
	if canonical, ok := p.aliases[name]; ok {
		return Named(canonical)
	}
	if name == "me" {
		return Target{Kind: TargetSelf}
	}
	return Named(name)
}

// ExtractCount reads the sentence count at position, clamped to [1, limit].
// Anything that is not an integer counts as 1.
func ExtractCount(tokens []string, position, limit int) int {
	if limit < 1 {
		limit = 1
	}
	if position < 0 || position >= len(tokens) {
		return 1
	}
	n, err := strconv.Atoi(tokens[position])
	if err != nil {
		return 1
	}
	return min(max(n, 1), limit)
}

func powerUpTarget(token string) Target {
	switch token {
	case "me":
		return Target{Kind: TargetSelf}
	case "all":
		return Target{Kind: TargetAll}
	default:
		return Named(token)
	}
}
