package parrot

import (
	"regexp"
	"sort"
	"strings"
)

type FormatOptions struct {
	SuppressAtChannels bool
	SuppressAtPerson   bool
	SuppressUserNames  bool
	// UserNamesToSuppress maps a user name to the text that replaces it.
	UserNamesToSuppress map[string]string
}

var (
	linkPattern     = regexp.MustCompile(`<(https?://[^>|]*)(\|[^>]*)?>`)
	mentionPattern  = regexp.MustCompile(`<@[UW][A-Z0-9]+(\|[^>]*)?>:?`)
	atChannelTokens = []struct{ from, to string }{
		{"<!channel>", "*at-channel*"},
		{"<!everyone>", "*at-everyone*"},
		{"<!here|@here>", "*at-here*"},
		{"<!here>", "*at-here*"},
	}
)

// Formatter rewrites generated text before it is posted.
type Formatter struct {
	opts  FormatOptions
	names []string
}

func NewFormatter(opts FormatOptions) *Formatter {
	names := make([]string, 0, len(opts.UserNamesToSuppress))
	for name := range opts.UserNamesToSuppress {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return &Formatter{opts: opts, names: names}
}

func (f *Formatter) Format(text string) string {
	out := linkPattern.ReplaceAllString(text, "$1")
	if f.opts.SuppressAtChannels {
		for _, r := range atChannelTokens {
			out = strings.ReplaceAll(out, r.from, r.to)
		}
	}
	if f.opts.SuppressAtPerson {
		out = mentionPattern.ReplaceAllString(out, "")
	}
	if f.opts.SuppressUserNames {
		for _, name := range f.names {
			out = strings.ReplaceAll(out, name, f.opts.UserNamesToSuppress[name])
		}
	}
	return strings.TrimSpace(out)
}
