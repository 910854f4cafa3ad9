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
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultMaxHops bounds how many redirects are followed per URL.
	DefaultMaxHops = 5

	defaultProbeTimeout = 5 * time.Second
	userAgent           = "Mozilla/5.0 (compatible; URL-resolver/1.0)"
)

var refreshURLRe = regexp.MustCompile(`(?i)url=(.+)`)

// Resolver follows redirect chains with HEAD probes.
type Resolver struct {
	client  *http.Client
	maxHops int
}

// NewResolver creates a Resolver. A zero maxHops uses DefaultMaxHops and a
// zero timeout uses a 5s per-probe deadline.
func NewResolver(maxHops int, timeout time.Duration) *Resolver {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Resolver{
		client: &http.Client{
			Timeout: timeout,
			// Redirects are followed by hand so every hop is counted.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxHops: maxHops,
	}
}

// Resolve returns the final destination of rawURL. It never fails: a cycle,
// the hop limit, or a probe error all stop resolution at the last URL
// reached.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	current := rawURL
	visited := make(map[string]bool, r.maxHops)

	for hops := 0; hops < r.maxHops; hops++ {
		if visited[current] {
			slog.Warn("redirect loop detected", "url", rawURL, "at", current)
			return current
		}
		visited[current] = true

		next, done, err := r.probe(ctx, current)
		if err != nil {
			slog.Warn("redirect probe failed", "url", current, "error", err)
			return current
		}
		if done {
			return current
		}
		current = next
	}

	slog.Warn("redirect hop limit reached", "url", rawURL, "max_hops", r.maxHops)
	return current
}

// probe issues one HEAD request and reports the next hop, or done when the
// chain ends at u.
func (r *Resolver) probe(ctx context.Context, u string) (next string, done bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false, err
	}
	resp.Body.Close()

	hop := nextHop(resp.Header)
	if hop == "" || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return "", true, nil
	}

	base, err := url.Parse(u)
	if err != nil {
		return "", false, err
	}
	ref, err := url.Parse(hop)
	if err != nil {
		return "", false, err
	}
	return base.ResolveReference(ref).String(), false, nil
}

func nextHop(h http.Header) string {
	if v := strings.TrimSpace(h.Get("Location")); v != "" {
		return v
	}
	if v := strings.TrimSpace(h.Get("Content-Location")); v != "" {
		return v
	}
	if m := refreshURLRe.FindStringSubmatch(h.Get("Refresh")); m != nil {
		return strings.Trim(strings.TrimSpace(m[1]), `'"`)
	}
	return ""
}
