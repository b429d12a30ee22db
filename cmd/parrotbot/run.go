package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amacrae2/parrot-bot/internal/channelruntime/slack"
	"github.com/amacrae2/parrot-bot/internal/command"
	"github.com/amacrae2/parrot-bot/internal/configutil"
	"github.com/amacrae2/parrot-bot/internal/corpus"
	"github.com/amacrae2/parrot-bot/internal/history"
	"github.com/amacrae2/parrot-bot/internal/logutil"
	"github.com/amacrae2/parrot-bot/internal/markov"
	"github.com/amacrae2/parrot-bot/internal/parrot"
	"github.com/amacrae2/parrot-bot/internal/slackclient"
	"github.com/amacrae2/parrot-bot/internal/statepaths"
	"github.com/amacrae2/parrot-bot/internal/textmodel"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Slack and answer parrot commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			botToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token"))
			if botToken == "" {
				return fmt.Errorf("missing slack.bot_token (set via --slack-bot-token or PARROT_BOT_SLACK_BOT_TOKEN)")
			}
			searchToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-search-token", "slack.search_token"))
			if searchToken == "" {
				return fmt.Errorf("missing slack.search_token (set via --slack-search-token or PARROT_BOT_SLACK_SEARCH_TOKEN)")
			}
			homeChannel := strings.TrimSpace(configutil.FlagOrViperString(cmd, "home-channel", "slack.home_channel"))
			if homeChannel == "" {
				return fmt.Errorf("missing slack.home_channel (set via --home-channel or PARROT_BOT_SLACK_HOME_CHANNEL)")
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			driver := configutil.FlagOrViperString(cmd, "store-driver", "store.driver")
			store, closeStore, err := storeFromViper(driver)
			if err != nil {
				return err
			}
			defer closeStore()
			logger.Info("parrot_starting", "state_dir", statepaths.FileStateDir(), "store", driver, "home_channel", homeChannel)

			httpClient := &http.Client{Timeout: 30 * time.Second}
			baseURL := viper.GetString("slack.base_url")
			botAPI := slackclient.New(httpClient, baseURL, botToken)
			searchAPI := slackclient.New(httpClient, baseURL, searchToken)
			chat := slackChat{api: botAPI}

			fetcher := history.New(slackSearcher{api: searchAPI}, history.Options{
				PageSize:    viper.GetInt("history.page_size"),
				MaxAttempts: viper.GetInt("history.max_attempts"),
				QueryFormat: viper.GetString("history.query_format"),
				Parallelism: viper.GetInt("history.parallelism"),
				Limiter:     searchLimiter(configutil.FlagOrViperFloat64(cmd, "search-rate-per-minute", "slack.search_rate_per_minute")),
				Logger:      logger,
			})
			retries := viper.GetInt("model.retries")
			if retries <= 0 {
				retries = -1
			}
			builder := textmodel.NewBuilder(chat, textmodel.Options{
				StateSize:     viper.GetInt("model.state_size"),
				Retries:       retries,
				SanitizeChars: viper.GetString("model.sanitize_chars"),
				HomeChannel:   homeChannel,
				Sentence:      markov.SentenceOptions{},
				Logger:        logger,
			})
			bot, err := parrot.New(parrot.Dependencies{
				Chat:    chat,
				Store:   store,
				Fetcher: fetcher,
				Builder: builder,
				Parser: command.NewParser(command.Config{
					Aliases:  configutil.StringMap("parrot.aliases", true),
					MaxCount: viper.GetInt("parrot.max_count"),
				}),
				Logger: logger,
			}, parrot.Config{
				StartAtUser:     configutil.FlagOrViperString(cmd, "start-at-user", "parrot.start_at_user"),
				MaxRandomMisses: viper.GetInt("parrot.max_random_misses"),
				Format: parrot.FormatOptions{
					SuppressAtChannels:  configutil.FlagOrViperBool(cmd, "suppress-at-channels", "parrot.suppress_at_channels"),
					SuppressAtPerson:    configutil.FlagOrViperBool(cmd, "suppress-at-person", "parrot.suppress_at_person"),
					SuppressUserNames:   configutil.FlagOrViperBool(cmd, "suppress-user-names", "parrot.suppress_user_names"),
					UserNamesToSuppress: configutil.StringMap("parrot.user_names_to_suppress", false),
				},
				JournalPath:   statepaths.JournalPath(),
				NameCacheSize: viper.GetInt("parrot.name_cache_size"),
			})
			if err != nil {
				return err
			}

			transport := slack.NewRTMTransport(botAPI, slack.RTMOptions{Logger: logger})
			defer transport.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return slack.Run(ctx, slack.Dependencies{
				Logger:    func() (*slog.Logger, error) { return logger, nil },
				Transport: transport,
				Handler: slack.HandlerFunc(func(ctx context.Context, m slack.MessageEvent) error {
					return bot.Handle(ctx, parrot.Message{Channel: m.Channel, User: m.User, Text: m.Text, TS: m.TS})
				}),
			}, slack.LoopOptions{
				HomeChannel:    homeChannel,
				StartupChannel: configutil.FlagOrViperString(cmd, "startup-channel", "slack.startup_channel"),
				PollInterval:   configutil.FlagOrViperDuration(cmd, "poll-interval", "slack.poll_interval"),
				RetryCycles:    configutil.FlagOrViperInt(cmd, "retry-cycles", "slack.retry_cycles"),
			})
		},
	}

	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")
	cmd.Flags().String("slack-search-token", "", "Slack user token used for search.messages (xoxp-...).")
	cmd.Flags().String("home-channel", "", "Channel id that receives diagnostics and the shutdown notice.")
	cmd.Flags().String("startup-channel", "", "Channel id that receives the startup notice.")
	cmd.Flags().Duration("poll-interval", slack.DefaultPollInterval, "How often the event stream is polled.")
	cmd.Flags().Int("retry-cycles", slack.DefaultRetryCycles, "How many caught errors the bot survives before going to sleep.")
	cmd.Flags().String("store-driver", "file", "Corpus store: file|sqlite.")
	cmd.Flags().String("start-at-user", "", "Skip users sorting before this name when powering up all users.")
	cmd.Flags().Float64("search-rate-per-minute", 20, "Upper bound on search.messages calls per minute; 0 disables pacing.")
	cmd.Flags().Bool("suppress-at-channels", true, "Rewrite @channel, @everyone and @here in replies.")
	cmd.Flags().Bool("suppress-at-person", true, "Drop user mentions from replies.")
	cmd.Flags().Bool("suppress-user-names", true, "Replace configured user names with their aliases in replies.")

	return cmd
}

func storeFromViper(driver string) (corpus.Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "file":
		return corpus.NewFileStore(statepaths.CorpusDir(), statepaths.LocksDir()), func() {}, nil
	case "sqlite":
		s, err := corpus.NewSQLiteStore(statepaths.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store.driver: %s", driver)
	}
}

// searchLimiter paces search.messages calls; perMinute <= 0 disables pacing.
func searchLimiter(perMinute float64) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perMinute/60), 1)
}
