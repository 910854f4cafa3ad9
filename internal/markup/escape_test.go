// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package markup

import (
	"strings"
	"testing"
	"time"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "punctuation", in: "Hello. World!", want: `Hello\. World\!`},
		{
			name: "all_reserved",
			in:   "*Total:* $ 12.50 (incl. tax) #1 + {x} = y - z > w",
			want: `*Total:* $ 12\.50 \(incl\. tax\) \#1 \+ \{x\} \= y \- z \> w`,
		},
		{name: "lone_pipe", in: "a|b", want: `a\|b`},
		{name: "spoiler_pair", in: "code ||123456||", want: "code ||123456||"},
		{name: "triple_pipe", in: "|||", want: `||\|`},
		{name: "already_escaped", in: `a\.b\!`, want: `a\.b\!`},
		{name: "formatting_untouched", in: "_it_ ~s~ `m`", want: "_it_ ~s~ `m`"},
		{name: "brackets_without_link", in: "[draft] (v2)", want: `\[draft\] \(v2\)`},
		{
			name: "link_span",
			in:   "See [the-docs.](https://ex.com/a-b.c?x=1) now.",
			want: `See [the-docs.](https://ex.com/a-b.c?x=1) now\.`,
		},
		{
			name: "bare_short_links",
			in:   "Track: https://s.io/ups-com_ab12 or https://s.io/fedex-com_cd34.",
			want: `Track: https://s\.io/ups\-com\_ab12 or https://s\.io/fedex\-com\_cd34\.`,
		},
		{
			name: "bare_url_inside_italic",
			in:   "_see https://s.io/a_b_",
			want: `_see https://s\.io/a\_b_`,
		},
		{
			name: "bare_url_already_escaped",
			in:   `https://s\.io/ups\-com\_ab12`,
			want: `https://s\.io/ups\-com\_ab12`,
		},
		{
			name: "two_links",
			in:   "[a](http://a.io) - [b](http://b.io)",
			want: `[a](http://a.io) \- [b](http://b.io)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.in); got != tt.want {
				t.Errorf("Escape(%q)\n got %q\nwant %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscape_LinkSpanByteIdentical(t *testing.T) {
	spans := []string{
		"[Track package](https://tools.usps.com/go/TrackConfirmAction?tLabels=9400-1.2)",
		"[UA 123](https://flightaware.com/live/flight/UA123)",
		"[a+b=c!](http://x.y/{z})",
	}
	for _, span := range spans {
		in := "Prefix. " + span + " suffix!"
		got := Escape(in)
		if !strings.Contains(got, span) {
			t.Errorf("span %q not preserved in %q", span, got)
		}
	}
}

func TestEscape_Idempotent(t *testing.T) {
	inputs := []string{
		"Your order #123-456 has shipped! Total: $12.99 (tax incl.)",
		"*Bold* and _italic_ with [link](https://ex.com/p?a=b) and ||spoiler|| | pipe",
		"Short: https://s.io/ups-com_ab12 and https://s.io/x*y~z.",
		"{json: [1, 2]} => ok.",
		`already \. escaped \\ slash`,
		"ends with backslash \\",
	}
	for _, in := range inputs {
		once := Escape(in)
		twice := Escape(once)
		if once != twice {
			t.Errorf("not idempotent for %q:\n once %q\ntwice %q", in, once, twice)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short", in: "abc", max: 10, want: "abc"},
		{name: "exact", in: "abcd", max: 4, want: "abcd"},
		{name: "runes", in: "héllo wörld", max: 2, want: "hé"},
		{name: "dangling_escape", in: `abc\.`, max: 4, want: "abc"},
		{name: "escaped_backslash_kept", in: `ab\\x`, max: 4, want: `ab\\`},
		{name: "odd_run", in: `a\\\.`, max: 4, want: `a\\`},
		{name: "zero", in: "abc", max: 0, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncate_AfterEscapeNeverEndsInOddBackslash(t *testing.T) {
	src := strings.Repeat("a.b!c-", 50)
	esc := Escape(src)
	for max := 1; max < len(esc); max++ {
		out := Truncate(esc, max)
		trailing := len(out) - len(strings.TrimRight(out, `\`))
		if trailing%2 != 0 {
			t.Fatalf("max=%d produced dangling escape: %q", max, out)
		}
	}
}

func TestStrip(t *testing.T) {
	in := "*Bold* [docs](http://u.io/x) a\\.b ||123|| `mono` _keep_"
	want := "Bold docs (http://u.io/x) a.b 123 mono _keep_"
	if got := Strip(in); got != want {
		t.Errorf("Strip()\n got %q\nwant %q", got, want)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := List([]string{"a", " ", "b"}, ""); got != "• a\n• b" {
		t.Errorf("List = %q", got)
	}
	if got := Blockquote("one\ntwo"); got != ">one\n>two" {
		t.Errorf("Blockquote = %q", got)
	}
	if CurrencySymbol("usd") != "$" || CurrencySymbol("JPY") != "JPY" {
		t.Error("CurrencySymbol mismatch")
	}
	if got := FormatDuration(2*time.Hour + 35*time.Minute + 10*time.Second); got != "2h 35m" {
		t.Errorf("FormatDuration = %q", got)
	}
	if got := FormatDuration(-time.Minute); got != "0h 0m" {
		t.Errorf("negative FormatDuration = %q", got)
	}
	ts := time.Date(2026, 3, 4, 15, 5, 0, 0, time.UTC)
	if got := FormatDateTime(ts, ""); got != "2026/03/04 3:05 PM" {
		t.Errorf("FormatDateTime = %q", got)
	}
}

func TestLiteral(t *testing.T) {
	in := `Order *42* (v1.2) a_b \ ok`
	want := `Order \*42\* \(v1\.2\) a\_b \\ ok`
	if got := Literal(in); got != want {
		t.Errorf("Literal(%q)\n got %q\nwant %q", in, got, want)
	}
}
