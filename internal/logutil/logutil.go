package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

type loggerConfig struct {
	Level     string
	Format    string
	AddSource bool
	// KeepTokens disables Slack token redaction.
	KeepTokens bool
}

// LoggerFromViper builds the process logger from the logging.* keys.
func LoggerFromViper() (*slog.Logger, error) {
	cfg := loggerConfig{
		Level:      viper.GetString("logging.level"),
		Format:     viper.GetString("logging.format"),
		AddSource:  viper.GetBool("logging.add_source"),
		KeepTokens: viper.GetBool("logging.keep_tokens"),
	}
	if strings.TrimSpace(cfg.Level) == "" && !viper.IsSet("logging.level") && viper.GetBool("trace") {
		cfg.Level = "debug"
	}
	return newLoggerFromConfig(os.Stderr, cfg)
}

func newLoggerFromConfig(out io.Writer, cfg loggerConfig) (*slog.Logger, error) {
	level, err := parseSlogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	if !cfg.KeepTokens {
		opts.ReplaceAttr = redactAttr
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		h = slog.NewTextHandler(out, opts)
	case "json":
		h = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown logging.format: %s", cfg.Format)
	}
	return slog.New(h), nil
}

func parseSlogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown logging.level: %s", s)
	}
}

var slackTokenRe = regexp.MustCompile(`\b(xox[abposr]|xapp)-[A-Za-z0-9-]+`)

// RedactTokens masks Slack bot, user and app tokens, keeping the prefix.
func RedactTokens(s string) string {
	return slackTokenRe.ReplaceAllString(s, "$1-***")
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); slackTokenRe.MatchString(s) {
			return slog.String(a.Key, RedactTokens(s))
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok && err != nil {
			if s := err.Error(); slackTokenRe.MatchString(s) {
				return slog.String(a.Key, RedactTokens(s))
			}
		}
	}
	return a
}
