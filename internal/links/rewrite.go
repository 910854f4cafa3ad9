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

package links

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMinLength   = 80
	DefaultMaxShortens = 10
	DefaultPlaceholder = "URL"
	defaultWorkers     = 4
)

// URLResolver follows a URL to its final destination.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) string
}

// Shortener returns a short alias for a URL.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// RewriterConfig tunes the rewrite pass. Zero values take the defaults.
type RewriterConfig struct {
	Enabled     bool
	MinLength   int
	MaxShortens int
	Placeholder string
	Workers     int
}

// Rewriter replaces long URLs in a body of text.
type Rewriter struct {
	cfg       RewriterConfig
	resolver  URLResolver
	shortener Shortener
}

// NewRewriter creates a Rewriter. shortener may be nil, in which case long
// URLs are replaced by their resolved form only.
func NewRewriter(cfg RewriterConfig, resolver URLResolver, shortener Shortener) *Rewriter {
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}
	if cfg.MaxShortens <= 0 {
		cfg.MaxShortens = DefaultMaxShortens
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Rewriter{cfg: cfg, resolver: resolver, shortener: shortener}
}

// Rewrite returns text with every long URL replaced by its final form:
// shortened, resolved-long when shortening fails, or the placeholder when
// the email carries more long URLs than the cap. All other bytes are kept.
func (r *Rewriter) Rewrite(ctx context.Context, text string) string {
	if r == nil || !r.cfg.Enabled {
		return text
	}

	matches := findMatches(text)
	var long []string
	seen := make(map[string]bool)
	for _, m := range matches {
		if len(m.url) <= r.cfg.MinLength || seen[m.url] {
			continue
		}
		seen[m.url] = true
		long = append(long, m.url)
	}
	if len(long) == 0 {
		return text
	}

	replacements := make(map[string]string, len(long))

	if len(long) > r.cfg.MaxShortens {
		slog.Warn("too many long urls, substituting placeholder",
			"count", len(long),
			"max", r.cfg.MaxShortens,
		)
		for _, u := range long {
			replacements[u] = r.cfg.Placeholder
		}
		return substitute(text, matches, replacements)
	}

	results := make([]string, len(long))
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, u := range long {
		g.Go(func() error {
			results[i] = r.rewriteOne(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	for i, u := range long {
		replacements[u] = results[i]
	}
	return substitute(text, matches, replacements)
}

// rewriteOne resolves and shortens a single URL, falling back to the
// resolved URL on any shortening failure.
func (r *Rewriter) rewriteOne(ctx context.Context, u string) string {
	final := u
	if r.resolver != nil {
		final = r.resolver.Resolve(ctx, u)
	}
	if r.shortener == nil {
		return final
	}
	short, err := r.shortener.Shorten(ctx, final)
	if err != nil {
		slog.Warn("url shortening failed, keeping resolved url",
			"url", final,
			"error", err,
		)
		return final
	}
	return short
}

// substitute rebuilds text in one pass over the original match positions.
func substitute(text string, matches []match, replacements map[string]string) string {
	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, m := range matches {
		rep, ok := replacements[m.url]
		if !ok {
			continue
		}
		b.WriteString(text[prev:m.start])
		b.WriteString(rep)
		prev = m.end
	}
	b.WriteString(text[prev:])
	return b.String()
}
