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

// Package allowlist decides which senders the butler processes.
package allowlist

import (
	"regexp"
	"strings"
)

// tagRe matches an optional "+tag" plus the first "@" of an address.
var tagRe = regexp.MustCompile(`(\+[^@]+)?@`)

// List is a compiled sender allowlist. Patterns are case-insensitive full
// address matches where "*" matches any run of characters. The zero value
// allows everyone.
type List struct {
	patterns []*regexp.Regexp
}

// Parse compiles a comma-separated pattern list such as
// "me@example.com,*@mybank.com". Blank entries are ignored.
func Parse(raw string) *List {
	l := &List{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		expr := strings.ReplaceAll(regexp.QuoteMeta(p), `\*`, `.*`)
		l.patterns = append(l.patterns, regexp.MustCompile("^"+expr+"$"))
	}
	return l
}

// Len reports the number of patterns.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.patterns)
}

// Normalize lowercases an address and removes its "+tag".
func Normalize(addr string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(strings.ToLower(addr), "@"))
}

// Allowed reports whether sender matches any pattern, either as given or
// with its "+tag" removed. An empty list allows every sender.
func (l *List) Allowed(sender string) bool {
	if l.Len() == 0 {
		return true
	}
	normalized := Normalize(sender)
	original := strings.ToLower(strings.TrimSpace(sender))
	for _, p := range l.patterns {
		if p.MatchString(normalized) || p.MatchString(original) {
			return true
		}
	}
	return false
}
