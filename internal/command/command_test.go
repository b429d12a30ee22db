package command

import "testing"

func TestExtractCount(t *testing.T) {
	cases := []struct {
		name   string
		tokens []string
		want   int
	}{
		{"zero clamps to one", []string{"parrot", "me", "0"}, 1},
		{"negative clamps to one", []string{"parrot", "me", "-4"}, 1},
		{"over limit", []string{"parrot", "me", "15"}, 10},
		{"in range", []string{"parrot", "me", "3"}, 3},
		{"not a number", []string{"parrot", "me", "abc"}, 1},
		{"missing", []string{"parrot", "me"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractCount(tc.tokens, 2, DefaultMaxCount); got != tc.want {
				t.Fatalf("ExtractCount(%v) = %d, want %d", tc.tokens, got, tc.want)
			}
		})
	}
}

func TestExtractTarget(t *testing.T) {
	p := NewParser(Config{Aliases: map[string]string{"boss": "jane.doe", " Chief ": "sam"}})
	cases := []struct {
		text string
		want Target
	}{
		{"parrot random", Target{Kind: TargetRandom}},
		{"parrot", Target{Kind: TargetRandom}},
		{"parrot boss", Named("jane.doe")},
		{"parrot chief", Named("sam")},
		{"parrot me", Target{Kind: TargetSelf}},
		{"parrot someone", Named("someone")},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			if got := p.ExtractTarget(Tokens(tc.text), 1); got != tc.want {
				t.Fatalf("ExtractTarget(%q) = %+v, want %+v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	p := NewParser(Config{Aliases: map[string]string{"boss": "jane.doe"}})
	cases := []struct {
		text string
		want Command
	}{
		{"parrot commands", Command{Kind: KindShowHelp}},
		{" Parrot Commands\n", Command{Kind: KindShowHelp}},
		// Help is matched on the whole text, so inner spacing makes it an
		// ordinary parrot request for a user called "commands".
		{"parrot   commands", Command{Kind: KindParrot, Target: Named("commands"), Count: 1}},
		{"parrot", Command{Kind: KindParrot, Target: Target{Kind: TargetRandom}, Count: 1}},
		{"Parrot Me 5", Command{Kind: KindParrot, Target: Target{Kind: TargetSelf}, Count: 5}},
		{"parrot boss 40", Command{Kind: KindParrot, Target: Named("jane.doe"), Count: 10}},
		{"power up me", Command{Kind: KindPowerUp, Target: Target{Kind: TargetSelf}}},
		{"power up all", Command{Kind: KindPowerUp, Target: Target{Kind: TargetAll}}},
		{"power up boss", Command{Kind: KindPowerUp, Target: Named("boss")}},
		{"power up", Command{Kind: KindMalformed, Reason: PowerUpUsage}},
		{"power", Command{Kind: KindIgnore}},
		{"powerup me", Command{Kind: KindIgnore}},
		{"hello parrot", Command{Kind: KindIgnore}},
		{"", Command{Kind: KindIgnore}},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			if got := p.Parse(tc.text); got != tc.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParserMaxCount(t *testing.T) {
	p := NewParser(Config{MaxCount: 3})
	if got := p.Parse("parrot me 9").Count; got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
}

func TestKindStrings(t *testing.T) {
	if got := KindPowerUp.String(); got != "power_up" {
		t.Fatalf("KindPowerUp.String() = %q", got)
	}
	if got := Kind(99).String(); got != "ignore" {
		t.Fatalf("Kind(99).String() = %q", got)
	}
	if got := TargetNamed.String(); got != "named" {
		t.Fatalf("TargetNamed.String() = %q", got)
	}
}
