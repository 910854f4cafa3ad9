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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bcem/butler/internal/errs"
)

const shortIOEndpoint = "https://api.short.io/links"

// ShortIOConfig holds Short.io credentials.
type ShortIOConfig struct {
	APIKey   string
	Domain   string
	Endpoint string // overrides the API URL; used by tests
	Timeout  time.Duration
}

// ShortIO creates short aliases through the Short.io links API.
type ShortIO struct {
	apiKey   string
	domain   string
	endpoint string
	client   *http.Client
}

// NewShortIO validates cfg and returns a client.
func NewShortIO(cfg ShortIOConfig) (*ShortIO, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &errs.ConfigError{Key: "SHORTIO_API_KEY"}
	}
	if strings.TrimSpace(cfg.Domain) == "" {
		return nil, &errs.ConfigError{Key: "SHORTIO_DOMAIN"}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = shortIOEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShortIO{
		apiKey:   cfg.APIKey,
		domain:   cfg.Domain,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type shortenRequest struct {
	Domain          string `json:"domain"`
	OriginalURL     string `json:"originalURL"`
	Path            string `json:"path"`
	AllowDuplicates bool   `json:"allowDuplicates"`
}

type shortenResponse struct {
	ShortURL       string `json:"shortURL"`
	SecureShortURL string `json:"secureShortURL"`
}

// Shorten returns a short alias for longURL keyed by its deterministic slug.
func (s *ShortIO) Shorten(ctx context.Context, longURL string) (string, error) {
	slug, err := Slug(longURL)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(shortenRequest{
		Domain:          s.domain,
		OriginalURL:     longURL,
		Path:            slug,
		AllowDuplicates: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal shorten request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build shorten request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errs.Transport("shortio shorten", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errs.NewResponseError("shortio shorten", resp, body)
	}

	var out shortenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode shorten response: %w", err)
	}
	if out.SecureShortURL != "" {
		return out.SecureShortURL, nil
	}
	if out.ShortURL != "" {
		return out.ShortURL, nil
	}
	return "", &errs.ResponseError{
		Op:         "shortio shorten",
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Snippet:    "missing shortURL",
	}
}
