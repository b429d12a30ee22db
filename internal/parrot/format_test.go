package parrot

import "testing"

func TestFormatterFormat(t *testing.T) {
	all := FormatOptions{
		SuppressAtChannels:  true,
		SuppressAtPerson:    true,
		SuppressUserNames:   true,
		UserNamesToSuppress: map[string]string{"jane.doe": "jd", "bob": "robert"},
	}
	cases := []struct {
		name string
		opts FormatOptions
		in   string
		want string
	}{
		{"plain", all, "nothing to change", "nothing to change"},
		{"url brackets", FormatOptions{}, "read <https://go.dev/doc>", "read https://go.dev/doc"},
		{"url with label", FormatOptions{}, "<http://a.b/c|a.b>", "http://a.b/c"},
		{"channel", all, "<!channel> lunch", "*at-channel* lunch"},
		{"everyone", all, "<!everyone> hi", "*at-everyone* hi"},
		{"here with label", all, "<!here|@here> now", "*at-here* now"},
		{"here", all, "<!here> now", "*at-here* now"},
		{"channel kept", FormatOptions{}, "<!channel> lunch", "<!channel> lunch"},
		{"mention with colon", all, "<@U12345>: ping", "ping"},
		{"mention with label", all, "hey <@W999|sam> there", "hey  there"},
		{"mention kept", FormatOptions{}, "hey <@U1>", "hey <@U1>"},
		{"names", all, "jane.doe told bob", "jd told robert"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewFormatter(tc.opts).Format(tc.in); got != tc.want {
				t.Fatalf("Format(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
