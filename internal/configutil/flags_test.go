package configutil

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("home", "flag-default", "")
	cmd.Flags().Int("cycles", 25, "")
	cmd.Flags().Duration("poll", time.Second, "")
	return cmd
}

func TestFlagOrViperPrecedence(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newCmd()
	if got := FlagOrViperString(cmd, "home", "slack.home_channel"); got != "flag-default" {
		t.Fatalf("unset everywhere: got %q", got)
	}

	viper.Set("slack.home_channel", "C_VIPER")
	viper.Set("slack.retry_cycles", 3)
	if got := FlagOrViperString(cmd, "home", "slack.home_channel"); got != "C_VIPER" {
		t.Fatalf("viper set: got %q", got)
	}
	if got := FlagOrViperInt(cmd, "cycles", "slack.retry_cycles"); got != 3 {
		t.Fatalf("viper int: got %d", got)
	}

	if err := cmd.Flags().Set("home", "C_FLAG"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := FlagOrViperString(cmd, "home", "slack.home_channel"); got != "C_FLAG" {
		t.Fatalf("flag changed: got %q", got)
	}
	if got := FlagOrViperDuration(cmd, "poll", "slack.poll_interval"); got != time.Second {
		t.Fatalf("duration default: got %v", got)
	}
}

func TestStringMap(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("parrot.aliases", map[string]any{"Boss": "jane.doe", " ": "x", "empty": ""})
	got := StringMap("parrot.aliases", true)
	if len(got) != 1 || got["boss"] != "jane.doe" {
		t.Fatalf("StringMap() = %v", got)
	}
}

func TestFlagOrViperBoolAndFloat(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Bool("suppress", true, "")
	cmd.Flags().Float64("rate", 20, "")

	if !FlagOrViperBool(cmd, "suppress", "parrot.suppress_at_person") {
		t.Fatalf("bool default should be used when viper is unset")
	}
	if got := FlagOrViperFloat64(cmd, "rate", "slack.search_rate_per_minute"); got != 20 {
		t.Fatalf("float default: got %v", got)
	}

	viper.Set("parrot.suppress_at_person", false)
	viper.Set("slack.search_rate_per_minute", 6.5)
	if FlagOrViperBool(cmd, "suppress", "parrot.suppress_at_person") {
		t.Fatalf("viper bool should win over the flag default")
	}
	if got := FlagOrViperFloat64(cmd, "rate", "slack.search_rate_per_minute"); got != 6.5 {
		t.Fatalf("viper float: got %v", got)
	}

	if err := cmd.Flags().Set("suppress", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cmd.Flags().Set("rate", "0"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !FlagOrViperBool(cmd, "suppress", "parrot.suppress_at_person") {
		t.Fatalf("changed bool flag should win")
	}
	if got := FlagOrViperFloat64(cmd, "rate", "slack.search_rate_per_minute"); got != 0 {
		t.Fatalf("changed float flag should win: got %v", got)
	}
}
