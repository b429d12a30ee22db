// Package history harvests a user's message history, channel by channel,
// through a paginated search capability and folds the matches into a corpus.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amacrae2/parrot-bot/internal/corpus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultPageSize    = 100
	DefaultMaxAttempts = 5
	DefaultQueryFormat = "from:@%s in:%s"
)

// ErrTransientDecode marks a search response that could not be decoded.
// Searchers wrap it; the fetcher retries the same page.
var ErrTransientDecode = errors.New("history: transient decode failure")

// Page is one page of search results. TotalPages is zero when the response
// carried no usable paging information.
type Page struct {
	Matches    []corpus.Entry
	TotalPages int
}

// Searcher runs one page of a message search.
type Searcher interface {
	SearchMessages(ctx context.Context, query string, page, count int) (Page, error)
}

type Options struct {
	PageSize    int
	MaxAttempts int
	// QueryFormat receives the user name and the channel, in that order.
	QueryFormat string
	// Parallelism bounds how many channels are queried at once. Values
	// below 2 fetch channels one after another.
	Parallelism int
	// Limiter, when set, paces every search call.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

type Fetcher struct {
	searcher Searcher
	opts     Options
	logger   *slog.Logger
}

func New(searcher Searcher, opts Options) *Fetcher {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if strings.TrimSpace(opts.QueryFormat) == "" {
		opts.QueryFormat = DefaultQueryFormat
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{searcher: searcher, opts: opts, logger: logger}
}

// ChannelResult describes what one channel contributed.
type ChannelResult struct {
	Channel string
	Pages   int
	Matches int
	Err     error
}

type Result struct {
	Corpus     corpus.Corpus
	NewEntries int
	Channels   []ChannelResult
}

// FailedChannels lists channels whose fetch did not complete.
func (r Result) FailedChannels() []string {
	var out []string
	for _, ch := range r.Channels {
		if ch.Err != nil {
			out = append(out, ch.Channel)
		}
	}
	return out
}

// FetchAll searches every channel for messages from user and merges the
// matches into a copy of initial. A channel that fails is logged and
// recorded in the result; it never discards what other channels (or earlier
// pages of the same channel) produced. Only context cancellation aborts the
// whole fetch.
func (f *Fetcher) FetchAll(ctx context.Context, user string, channels []string, initial corpus.Corpus) (Result, error) {
	if f == nil || f.searcher == nil {
		return Result{}, fmt.Errorf("history fetcher is not initialized")
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return Result{}, fmt.Errorf("history fetch: empty user")
	}

	type channelHarvest struct {
		entries []corpus.Entry
		result  ChannelResult
	}
	harvests := make([]channelHarvest, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Parallelism)
	for i, channel := range channels {
		g.Go(func() error {
			entries, res := f.fetchChannel(gctx, user, channel)
			harvests[i] = channelHarvest{entries: entries, result: res}
			if err := gctx.Err(); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Merge in channel input order so the outcome does not depend on which
	// goroutine finished first.
	out := Result{Corpus: initial.Clone()}
	if out.Corpus == nil {
		out.Corpus = corpus.Corpus{}
	}
	for _, h := range harvests {
		out.Corpus.Merge(h.entries...)
		out.Channels = append(out.Channels, h.result)
	}
	out.NewEntries = len(out.Corpus) - len(initial)
	return out, nil
}

func (f *Fetcher) fetchChannel(ctx context.Context, user, channel string) ([]corpus.Entry, ChannelResult) {
	res := ChannelResult{Channel: channel}
	query := fmt.Sprintf(f.opts.QueryFormat, user, channel)
	f.logger.Info("history_channel_start", "user", user, "channel", channel, "query", query)

	first, err := f.queryPage(ctx, query, 1)
	if err != nil {
		res.Err = err
		f.logger.Warn("history_channel_failed", "user", user, "channel", channel, "page", 1, "error", err.Error())
		return nil, res
	}
	entries := append([]corpus.Entry(nil), first.Matches...)
	res.Pages = 1

	total := first.TotalPages
	if total < 1 {
		f.logger.Debug("history_paging_missing", "user", user, "channel", channel)
		total = 1
	}
	for page := 2; page <= total; page++ {
		next, err := f.queryPage(ctx, query, page)
		if err != nil {
			res.Err = err
			f.logger.Warn("history_channel_failed", "user", user, "channel", channel, "page", page, "error", err.Error())
			break
		}
		entries = append(entries, next.Matches...)
		res.Pages++
	}
	res.Matches = len(entries)
	f.logger.Info("history_channel_done", "user", user, "channel", channel, "pages", res.Pages, "total_pages", total, "matches", res.Matches)
	return entries, res
}

// queryPage asks for one page, retrying transient decode failures until
// MaxAttempts calls have been made.
func (f *Fetcher) queryPage(ctx context.Context, query string, page int) (Page, error) {
	var lastErr error
	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		if f.opts.Limiter != nil {
			if err := f.opts.Limiter.Wait(ctx); err != nil {
				return Page{}, err
			}
		}
		f.logger.Debug("history_page_request", "query", query, "page", page, "attempt", attempt)
		out, err := f.searcher.SearchMessages(ctx, query, page, f.opts.PageSize)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrTransientDecode) {
			return Page{}, err
		}
		lastErr = err
	}
	return Page{}, fmt.Errorf("page %d after %d attempts: %w", page, f.opts.MaxAttempts, lastErr)
}
