package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Global
	viper.SetDefault("file_state_dir", "~/.parrotbot")

	// Slack
	viper.SetDefault("slack.bot_token", "")
	viper.SetDefault("slack.search_token", "")
	viper.SetDefault("slack.base_url", "https://slack.com/api")
	viper.SetDefault("slack.home_channel", "")
	viper.SetDefault("slack.startup_channel", "")
	viper.SetDefault("slack.poll_interval", 500*time.Millisecond)
	viper.SetDefault("slack.retry_cycles", 25)
	viper.SetDefault("slack.search_rate_per_minute", 20)

	// Parrot
	viper.SetDefault("parrot.aliases", map[string]string{})
	viper.SetDefault("parrot.max_count", 10)
	viper.SetDefault("parrot.start_at_user", "")
	viper.SetDefault("parrot.suppress_at_channels", true)
	viper.SetDefault("parrot.suppress_at_person", true)
	viper.SetDefault("parrot.suppress_user_names", true)
	viper.SetDefault("parrot.user_names_to_suppress", map[string]string{})
	viper.SetDefault("parrot.max_random_misses", 5)
	viper.SetDefault("parrot.name_cache_size", 512)

	// History
	viper.SetDefault("history.page_size", 100)
	viper.SetDefault("history.max_attempts", 5)
	viper.SetDefault("history.parallelism", 1)
	viper.SetDefault("history.query_format", "from:@%s in:%s")

	// Model
	viper.SetDefault("model.sanitize_chars", "[]'()\"")
	viper.SetDefault("model.retries", 2)
	viper.SetDefault("model.state_size", 2)

	// Store
	viper.SetDefault("store.driver", "file")
	viper.SetDefault("store.dir_name", "corpus")
	viper.SetDefault("store.sqlite_path", "")
}
