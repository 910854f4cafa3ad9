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

// Package markup produces text that is safe to send with Telegram's
// MarkdownV2 parse mode.
//
// Formatters write "markup source": plain text plus the inline formatting
// runs *bold*, _italic_, `monospace`, ~strike~, ||spoiler|| and
// [label](url) links. Escape turns that source into wire text by escaping
// every other reserved character. Strip turns the same source into plain
// text for the no-markup retry.
package markup

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// linkRe matches a well-formed [label](url) span.
var linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// bareURLRe matches a URL written as plain text outside any link span.
var bareURLRe = regexp.MustCompile(`https?://[^\s<>\[\]()]+`)

// escapable are reserved characters that are never formatter syntax in
// markup source and must always be backslash-escaped outside link spans.
const escapable = `[]()>#+-=|{}.!`

// Escape converts markup source into MarkdownV2 wire text.
//
// Link spans are located first and copied through untouched. Outside them,
// every reserved character that is not already escaped gets a backslash,
// except that a "||" pair is kept intact as spoiler syntax. Formatting
// characters (* _ ~ `) are left alone, but not inside bare URLs, where
// they are always literal. Escape is idempotent.
func Escape(s string) string {
	if s == "" {
		return ""
	}
	spans := linkRe.FindAllStringIndex(s, -1)

	var b strings.Builder
	b.Grow(len(s) + len(s)/8)

	prev := 0
	for _, span := range spans {
		escapeRun(&b, s[prev:span[0]])
		b.WriteString(s[span[0]:span[1]])
		prev = span[1]
	}
	escapeRun(&b, s[prev:])
	return b.String()
}

// escapeRun escapes a segment known to contain no link spans.
func escapeRun(b *strings.Builder, s string) {
	prev := 0
	for _, m := range bareURLRe.FindAllStringIndex(s, -1) {
		end := urlEnd(s, m[0], m[1])
		escapeText(b, s[prev:m[0]])
		escapeURL(b, s[m[0]:end])
		prev = end
	}
	escapeText(b, s[prev:])
}

// urlEnd drops unescaped trailing formatter characters from a URL match:
// they close a run that wraps the URL.
func urlEnd(s string, start, end int) int {
	for end > start && strings.IndexByte("*_~`", s[end-1]) >= 0 {
		if end-2 >= start && s[end-2] == '\\' {
			break
		}
		end--
	}
	return end
}

// escapeURL escapes every reserved character of a bare URL.
func escapeURL(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			b.WriteByte(c)
			i++
			b.WriteByte(s[i])
		case strings.IndexByte(reservedAll, c) >= 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
}

// escapeText escapes plain text between URLs.
func escapeText(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			// Existing escape pair: keep both bytes as a unit.
			b.WriteByte(c)
			i++
			b.WriteByte(s[i])
		case c == '|' && i+1 < len(s) && s[i+1] == '|':
			b.WriteString("||")
			i++
		case strings.IndexByte(escapable, c) >= 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
}

// reservedAll is every MarkdownV2 reserved character plus the backslash.
const reservedAll = "\\_*[]()~`>#+-=|{}.!"

// Literal escapes every reserved character in s so it renders verbatim.
// Use it for text that must never be read as markup, such as titles.
// Unlike Escape it is not idempotent.
func Literal(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(reservedAll, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Truncate limits escaped text to max runes. It must run after Escape: a cut
// that would leave a dangling escape backslash drops that backslash too.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	cut := len(s)
	for i := range s {
		if n == max {
			cut = i
			break
		}
		n++
	}
	out := s[:cut]

	trailing := len(out) - len(strings.TrimRight(out, `\`))
	if trailing%2 == 1 {
		out = out[:len(out)-1]
	}
	return out
}

// unescapeRe matches a backslash escape of any printable ASCII character.
var unescapeRe = regexp.MustCompile(`\\([!-~])`)

// Strip converts markup source (or escaped wire text) into plain text.
// Links become "label (url)" and formatting runs lose their delimiters.
func Strip(s string) string {
	if s == "" {
		return ""
	}
	out := linkRe.ReplaceAllString(s, "$1 ($2)")
	out = unescapeRe.ReplaceAllString(out, "$1")
	out = strings.ReplaceAll(out, "||", "")
	out = strings.ReplaceAll(out, "*", "")
	out = strings.ReplaceAll(out, "`", "")
	return out
}
