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

package errs

import (
	"regexp"
	"strings"
)

// maxSnippet bounds how much of a response body is kept in errors and logs.
const maxSnippet = 256

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)
	apiKeyKVRe    = regexp.MustCompile(`(?i)\b(api[_-]?key|token|user|access_token)\b("?)\s*[:=]\s*"?[^\s"'&,}]+`)

	// Telegram embeds the bot token in the request path.
	botTokenRe = regexp.MustCompile(`bot\d+:[A-Za-z0-9_-]+`)
)

// Redact removes obvious secret-bearing substrings from error and log strings.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	out := bearerTokenRe.ReplaceAllString(s, "Bearer <redacted>")
	out = botTokenRe.ReplaceAllString(out, "bot<redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "$1$2=<redacted>")
	return strings.TrimSpace(out)
}

// Snippet returns a redacted single-line prefix of body suitable for logs.
func Snippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	b := body
	if len(b) > maxSnippet {
		b = b[:maxSnippet]
	}
	s := Redact(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > maxSnippet {
		return s + "..."
	}
	return s
}
