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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/bcem/butler/internal/errs"
	"github.com/bcem/butler/internal/models"
)

const (
	calendarEndpoint = "https://www.googleapis.com/calendar/v3"
	calendarScope    = "https://www.googleapis.com/auth/calendar"
)

// CalendarConfig holds the service account key and target calendar.
type CalendarConfig struct {
	// CredentialsJSON is the service account key file contents.
	CredentialsJSON []byte

	// CalendarID defaults to "primary".
	CalendarID string

	Endpoint string
	Timeout  time.Duration
}

// Calendar is the calendar-event sink.
type Calendar struct {
	client     *http.Client
	endpoint   string
	calendarID string
}

// NewCalendar builds a sink authenticated by a service-account JWT
// exchange. Tokens are fetched and refreshed by the oauth2 transport.
func NewCalendar(ctx context.Context, cfg CalendarConfig) (*Calendar, error) {
	if len(bytes.TrimSpace(cfg.CredentialsJSON)) == 0 {
		return nil, &errs.ConfigError{Key: "GOOGLE_SERVICE_ACCOUNT_JSON_KEY"}
	}
	jwtCfg, err := google.JWTConfigFromJSON(cfg.CredentialsJSON, calendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	client := jwtCfg.Client(ctx)
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	} else {
		client.Timeout = 15 * time.Second
	}
	return NewCalendarWithClient(client, cfg), nil
}

// NewCalendarWithClient builds a sink around an already-authenticated client.
func NewCalendarWithClient(client *http.Client, cfg CalendarConfig) *Calendar {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = calendarEndpoint
	}
	calID := cfg.CalendarID
	if calID == "" {
		calID = "primary"
	}
	return &Calendar{client: client, endpoint: endpoint, calendarID: calID}
}

type createEventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

// CreateEvent inserts ev and returns the new event's identifier.
func (c *Calendar) CreateEvent(ctx context.Context, ev models.CalendarEvent) (string, error) {
	const op = "calendar insert"

	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("%s: marshal: %w", op, err)
	}

	u := fmt.Sprintf("%s/calendars/%s/events", c.endpoint, url.PathEscape(c.calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errs.Transport(op, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := errs.NewResponseError(op, resp, body)
		slog.Error("calendar api error",
			"status", resp.StatusCode,
			"summary", ev.Summary,
			"body", rerr.Snippet,
		)
		return "", rerr
	}

	var out createEventResponse
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", &errs.ResponseError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status, Snippet: "missing event id"}
	}

	slog.Info("calendar event created",
		"event_id", out.ID,
		"summary", ev.Summary,
	)
	return out.ID, nil
}
