package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/amacrae2/parrot-bot/internal/clifmt"
	"github.com/amacrae2/parrot-bot/internal/configutil"
	"github.com/amacrae2/parrot-bot/internal/slackclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// channelTypes maps the --channel-type values to conversations.list types.
var channelTypes = map[string]string{
	"channels": "public_channel",
	"im":       "im",
	"mpim":     "mpim",
}

type channelEntry struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

type conversationLister interface {
	ListConversations(ctx context.Context, types string) ([]slackclient.Conversation, error)
	UserInfo(ctx context.Context, userID string) (slackclient.User, error)
}

func newChannelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List channel names and ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := strings.ToLower(strings.TrimSpace(configutil.FlagOrViperString(cmd, "channel-type", "")))
			types, ok := channelTypes[kind]
			if !ok {
				return fmt.Errorf("unknown --channel-type %q (want channels|im|mpim)", kind)
			}
			format := strings.ToLower(strings.TrimSpace(configutil.FlagOrViperString(cmd, "format", "")))
			botToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token"))
			if botToken == "" {
				return fmt.Errorf("missing slack.bot_token (set via --slack-bot-token or PARROT_BOT_SLACK_BOT_TOKEN)")
			}
			api := slackclient.New(&http.Client{Timeout: 30 * time.Second}, viper.GetString("slack.base_url"), botToken)
			entries, err := listChannels(cmd.Context(), api, types)
			if err != nil {
				return err
			}
			return printChannels(cmd.OutOrStdout(), entries, format)
		},
	}
	cmd.Flags().String("channel-type", "channels", "Which conversations to list: channels|im|mpim.")
	cmd.Flags().String("format", "plain", "Output format: plain|table|yaml.")
	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")
	return cmd
}

// listChannels returns the conversations of one type sorted by name, then id. Direct
// messages are named after the other member.
func listChannels(ctx context.Context, api conversationLister, types string) ([]channelEntry, error) {
	convs, err := api.ListConversations(ctx, types)
	if err != nil {
		return nil, err
	}
	userNames := map[string]string{}
	out := make([]channelEntry, 0, len(convs))
	for _, conv := range convs {
		name := strings.TrimSpace(conv.Name)
		if conv.IsIM && conv.User != "" {
			if cached, ok := userNames[conv.User]; ok {
				name = cached
			} else if u, err := api.UserInfo(ctx, conv.User); err == nil && u.Name != "" {
				name = u.Name
				userNames[conv.User] = name
			} else {
				name = conv.User
			}
		}
		out = append(out, channelEntry{Name: name, ID: conv.ID})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func printChannels(w io.Writer, entries []channelEntry, format string) error {
	switch format {
	case "", "plain":
		for _, e := range entries {
			if _, err := fmt.Fprintf(w, "#%s -> %s\n", e.Name, e.ID); err != nil {
				return err
			}
		}
		return nil
	case "table":
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{"#" + e.Name, e.ID})
		}
		clifmt.PrintTable(w, clifmt.TableOptions{
			Title:     "Channels",
			Headers:   []string{"NAME", "ID"},
			Rows:      rows,
			EmptyText: "No channels.",
		})
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown --format %q (want plain|table|yaml)", format)
	}
}
