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

package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bcem/butler/internal/errs"
)

const (
	pushoverEndpoint = "https://api.pushover.net/1/messages.json"

	// Pushover's documented field limits.
	maxPushTitle   = 250
	maxPushMessage = 1024
)

// PushoverConfig holds Pushover application and user keys.
type PushoverConfig struct {
	APIToken string
	UserKey  string
	Endpoint string
	Timeout  time.Duration
}

// Pushover is the push-notification sink.
type Pushover struct {
	token    string
	user     string
	endpoint string
	client   *http.Client
}

// NewPushover validates cfg and returns a push sink.
func NewPushover(cfg PushoverConfig) (*Pushover, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, &errs.ConfigError{Key: "PUSHOVER_API_KEY"}
	}
	if strings.TrimSpace(cfg.UserKey) == "" {
		return nil, &errs.ConfigError{Key: "PUSHOVER_USER_KEY"}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = pushoverEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Pushover{
		token:    strings.TrimSpace(cfg.APIToken),
		user:     strings.TrimSpace(cfg.UserKey),
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Push sends one alert. A non-2xx status is a *errs.ResponseError.
func (p *Pushover) Push(ctx context.Context, title, message string) error {
	form := url.Values{
		"token":   {p.token},
		"user":    {p.user},
		"title":   {truncateRunes(title, maxPushTitle)},
		"message": {truncateRunes(message, maxPushMessage)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("pushover: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return errs.Transport("pushover send", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := errs.NewResponseError("pushover send", resp, body)
		slog.Error("pushover api error",
			"status", resp.StatusCode,
			"body", rerr.Snippet,
		)
		return rerr
	}

	slog.Info("push notification sent", "title", title)
	return nil
}
