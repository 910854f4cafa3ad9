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
	"fmt"
	"strings"
	"time"
)

// Divider separates sections of a notification body.
const Divider = "—————————————————————"

func Bold(s string) string      { return "*" + s + "*" }
func Italic(s string) string    { return "_" + s + "_" }
func Monospace(s string) string { return "`" + s + "`" }
func Spoiler(s string) string   { return "||" + s + "||" }

// Link renders a [label](url) span. Escape leaves it untouched.
func Link(label, url string) string {
	return "[" + label + "](" + url + ")"
}

// Blockquote prefixes every line of already-escaped wire text with ">".
func Blockquote(escaped string) string {
	lines := strings.Split(escaped, "\n")
	for i, l := range lines {
		lines[i] = ">" + l
	}
	return strings.Join(lines, "\n")
}

// List renders items one per line behind a bullet.
func List(items []string, bullet string) string {
	if bullet == "" {
		bullet = "•"
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			continue
		}
		out = append(out, bullet+" "+it)
	}
	return strings.Join(out, "\n")
}

var currencySymbols = map[string]string{
	"USD": "$",
	"CNY": "¥",
	"EUR": "€",
	"GBP": "£",
}

// CurrencySymbol returns the symbol for an ISO code, or the code itself.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return s
	}
	return code
}

const dateTimeLayout = "2006/01/02 3:04 PM"

// FormatDateTime renders t in the named IANA zone, or as-is when the zone
// is empty or unknown.
func FormatDateTime(t time.Time, tz string) string {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			t = t.In(loc)
		}
	}
	return t.Format(dateTimeLayout)
}

// FormatDuration renders d as "Xh Ym". Negative durations render as zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
