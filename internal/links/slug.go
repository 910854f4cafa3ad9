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
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/net/publicsuffix"
)

// SlugHashLength is the fixed width of the hash suffix in a slug.
const SlugHashLength = 4

var nonSlugRe = regexp.MustCompile(`[^a-z0-9-]`)

// Slug derives the short-link path for rawURL: the registrable domain with
// dots turned into dashes, an underscore, and a fixed-width base36 hash of
// the whole URL. The same URL always yields the same slug.
func Slug(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("slug: parse %q: %w", rawURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("slug: no host in %q", rawURL)
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// IPs and bare suffixes: keep the last two labels.
		labels := strings.Split(host, ".")
		if len(labels) > 2 {
			labels = labels[len(labels)-2:]
		}
		domain = strings.Join(labels, ".")
	}
	domain = nonSlugRe.ReplaceAllString(strings.ReplaceAll(domain, ".", "-"), "")

	return domain + "_" + hashSuffix(rawURL), nil
}

func hashSuffix(s string) string {
	h := strconv.FormatUint(xxhash.Sum64String(s), 36)
	if len(h) < SlugHashLength {
		h = strings.Repeat("0", SlugHashLength-len(h)) + h
	}
	return h[len(h)-SlugHashLength:]
}
