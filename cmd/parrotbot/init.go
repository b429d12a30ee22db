package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/amacrae2/parrot-bot/internal/fsstore"
	"github.com/amacrae2/parrot-bot/internal/pathutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

type initSlackConfig struct {
	BotToken       string `yaml:"bot_token"`
	SearchToken    string `yaml:"search_token"`
	HomeChannel    string `yaml:"home_channel"`
	StartupChannel string `yaml:"startup_channel"`
	RetryCycles    int    `yaml:"retry_cycles"`
}

type initParrotConfig struct {
	Aliases             map[string]string `yaml:"aliases"`
	StartAtUser         string            `yaml:"start_at_user"`
	SuppressAtChannels  bool              `yaml:"suppress_at_channels"`
	SuppressAtPerson    bool              `yaml:"suppress_at_person"`
	SuppressUserNames   bool              `yaml:"suppress_user_names"`
	UserNamesToSuppress map[string]string `yaml:"user_names_to_suppress"`
}

type initStoreConfig struct {
	Driver  string `yaml:"driver"`
	DirName string `yaml:"dir_name"`
}

type initLoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type initConfigFile struct {
	FileStateDir string            `yaml:"file_state_dir"`
	Slack        initSlackConfig   `yaml:"slack"`
	Parrot       initParrotConfig  `yaml:"parrot"`
	Store        initStoreConfig   `yaml:"store"`
	Logging      initLoggingConfig `yaml:"logging"`
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			path = pathutil.ExpandHomePath(path)
			if strings.TrimSpace(path) == "" {
				return fmt.Errorf("--path is required")
			}
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := defaultInitConfig()
			cfg.Slack.HomeChannel, _ = cmd.Flags().GetString("home-channel")
			cfg.Slack.StartupChannel = cfg.Slack.HomeChannel

			if file, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
				var err error
				if cfg.Slack.BotToken, err = promptSecret(cmd.ErrOrStderr(), file, "Slack bot token (xoxb-...): "); err != nil {
					return err
				}
				if cfg.Slack.SearchToken, err = promptSecret(cmd.ErrOrStderr(), file, "Slack search token (xoxp-...): "); err != nil {
					return err
				}
			}

			data, err := renderInitConfig(cfg)
			if err != nil {
				return err
			}
			if err := fsstore.WriteFileAtomic(path, data, fsstore.FileOptions{FilePerm: 0o600}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Clean(path))
			return nil
		},
	}
	cmd.Flags().String("path", "config.yaml", "Where to write the config file.")
	cmd.Flags().String("home-channel", "", "Channel id for diagnostics and the startup notice.")
	cmd.Flags().Bool("force", false, "Overwrite an existing file.")
	return cmd
}

func defaultInitConfig() initConfigFile {
	return initConfigFile{
		FileStateDir: "~/.parrotbot",
		Slack:        initSlackConfig{RetryCycles: 25},
		Parrot: initParrotConfig{
			Aliases:             map[string]string{"alias": "first.last"},
			SuppressAtChannels:  true,
			SuppressAtPerson:    true,
			SuppressUserNames:   true,
			UserNamesToSuppress: map[string]string{"first.last": "alias"},
		},
		Store:   initStoreConfig{Driver: "file", DirName: "corpus"},
		Logging: initLoggingConfig{Level: "info", Format: "text"},
	}
}

func renderInitConfig(cfg initConfigFile) ([]byte, error) {
	var b strings.Builder
	b.WriteString("# parrotbot config. Every key can also be set as PARROT_BOT_<KEY>, e.g. PARROT_BOT_SLACK_BOT_TOKEN.\n")
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func promptSecret(w io.Writer, in *os.File, prompt string) (string, error) {
	_, _ = fmt.Fprint(w, prompt)
	raw, err := term.ReadPassword(int(in.Fd()))
	_, _ = fmt.Fprintln(w)
	if err != nil {
		// Fall back to a plain line read when echo cannot be turned off.
		line, rerr := bufio.NewReader(in).ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			return "", fmt.Errorf("read token: %w", rerr)
		}
		return strings.TrimSpace(line), nil
	}
	return strings.TrimSpace(string(raw)), nil
}
