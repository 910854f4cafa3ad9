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

// Package links rewrites long URLs in email bodies: each one is followed
// through its redirect chain and replaced by a short alias, or by a
// placeholder when an email carries too many of them.
package links

import (
	"net/url"
	"regexp"
	"strings"
)

var urlRe = regexp.MustCompile(`(?i)https?://(?:[^\s/?#<>\[\]]+\.)+[^\s/?#<>\[\]]+(?:/[^\s?#<>\[\]]*)*(?:\?[^\s#<>\[\]]*)?(?:#[^\s<>\[\]]*)?`)

// match is one URL occurrence in a body of text.
type match struct {
	start, end int
	url        string
}

// findMatches returns every usable URL occurrence in text, in order.
func findMatches(text string) []match {
	idx := urlRe.FindAllStringIndex(text, -1)
	out := make([]match, 0, len(idx))
	for _, loc := range idx {
		u := text[loc[0]:loc[1]]
		if !usable(u) {
			continue
		}
		out = append(out, match{start: loc[0], end: loc[1], url: u})
	}
	return out
}

// usable rejects unparseable URLs and local targets.
func usable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(u.Hostname()), "localhost")
}

// ExtractURLs returns the distinct http(s) URLs in text in first-seen order.
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range findMatches(text) {
		if seen[m.url] {
			continue
		}
		seen[m.url] = true
		out = append(out, m.url)
	}
	return out
}
