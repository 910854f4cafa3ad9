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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/butler/internal/errs"
	"github.com/bcem/butler/internal/models"
)

// --- Fake Telegram Bot API ---

type botCall struct {
	Path string
	Body map[string]any
}

type fakeBot struct {
	mu       sync.Mutex
	calls    []botCall
	statuses []int // per call; missing entries mean 200
}

func (f *fakeBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	idx := len(f.calls)
	f.calls = append(f.calls, botCall{Path: r.URL.Path, Body: body})

	status := http.StatusOK
	if idx < len(f.statuses) {
		status = f.statuses[idx]
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusOK {
		w.Write([]byte(`{"ok":true,"result":{}}`))
		return
	}
	w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
}

func (f *fakeBot) snapshot() []botCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]botCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func newTestTelegram(t *testing.T, bot *fakeBot) *Telegram {
	t.Helper()
	srv := httptest.NewServer(bot)
	t.Cleanup(srv.Close)
	tg, err := NewTelegram(TelegramConfig{BotToken: "123:abc", ChatID: "42", BaseURL: srv.URL})
	require.NoError(t, err)
	return tg
}

func TestTelegram_SendMarkup(t *testing.T) {
	bot := &fakeBot{}
	tg := newTestTelegram(t, bot)

	err := tg.Send(context.Background(), Message{
		Sender: "no-reply@accounts.google.com",
		Title:  "Your code (Google)",
		Body:   "Code: *123456*. See [help](https://support.google.com/a-b)",
		Footer: "model: gemini-2.5-flash",
		Buttons: []Button{
			{Text: "Add to Calendar", CallbackData: "add_to_calendar:abc"},
		},
	})
	require.NoError(t, err)

	calls := bot.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", calls[0].Path)
	assert.Equal(t, "MarkdownV2", calls[0].Body["parse_mode"])
	assert.Equal(t, "42", calls[0].Body["chat_id"])

	text := calls[0].Body["text"].(string)
	assert.True(t, strings.HasPrefix(text, `>*Your code \(Google\)*`), text)
	assert.Contains(t, text, ">from: `no\\-reply@accounts\\.google\\.com`")
	assert.Contains(t, text, `Code: *123456*\. See [help](https://support.google.com/a-b)`)
	assert.Contains(t, text, `_model: gemini\-2\.5\-flash_`)

	kb := calls[0].Body["reply_markup"].(map[string]any)["inline_keyboard"].([]any)
	btn := kb[0].([]any)[0].(map[string]any)
	assert.Equal(t, "add_to_calendar:abc", btn["callback_data"])
}

func TestTelegram_FallsBackToPlainText(t *testing.T) {
	bot := &fakeBot{statuses: []int{http.StatusBadRequest}}
	tg := newTestTelegram(t, bot)

	err := tg.Send(context.Background(), Message{
		Sender: "shop@example.com",
		Title:  "Order shipped",
		Body:   "*Bold* with unbalanced _italic and [link](https://ex.com)",
		Footer: "category: tracking",
	})
	require.NoError(t, err, "successful plain retry must not surface an error")

	calls := bot.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "MarkdownV2", calls[0].Body["parse_mode"])
	_, hasMode := calls[1].Body["parse_mode"]
	assert.False(t, hasMode, "plain retry must not set parse_mode")

	plain := calls[1].Body["text"].(string)
	assert.Equal(t,
		"Order shipped\nfrom: shop@example.com\n\nBold with unbalanced _italic and link (https://ex.com)\n\ncategory: tracking",
		plain)
}

func TestTelegram_BothAttemptsFail(t *testing.T) {
	bot := &fakeBot{statuses: []int{http.StatusBadRequest, http.StatusBadRequest}}
	tg := newTestTelegram(t, bot)

	err := tg.Send(context.Background(), Message{Title: "t", Body: "b"})

	var de *errs.DeliveryError
	require.ErrorAs(t, err, &de)
	var re *errs.ResponseError
	assert.True(t, errors.As(de.Markup, &re))
	assert.Equal(t, http.StatusBadRequest, re.StatusCode)
	assert.Len(t, bot.snapshot(), 2)
}

func TestTelegram_TruncatesAfterEscaping(t *testing.T) {
	bot := &fakeBot{}
	tg := newTestTelegram(t, bot)

	err := tg.Send(context.Background(), Message{
		Title:  "Long",
		Sender: "a@b.c",
		Body:   strings.Repeat("a.", 5000),
		Footer: "id: x",
	})
	require.NoError(t, err)

	text := bot.snapshot()[0].Body["text"].(string)
	assert.LessOrEqual(t, utf8.RuneCountInString(text), MaxMessageLength)
	assert.True(t, strings.HasSuffix(text, "_id: x_"), "footer must survive truncation")

	body := strings.TrimSuffix(text, "\n\n_id: x_")
	trailing := len(body) - len(strings.TrimRight(body, `\`))
	assert.Zero(t, trailing%2, "escaped body ends in a dangling backslash")
}

func TestTelegram_BriefOmitsHeader(t *testing.T) {
	bot := &fakeBot{}
	tg := newTestTelegram(t, bot)

	require.NoError(t, tg.Send(context.Background(), Message{Title: "T", Sender: "s@x.io", Body: "Payment received", Brief: true}))
	text := bot.snapshot()[0].Body["text"].(string)
	assert.Equal(t, "Payment received", text)
}

func TestTelegram_AnswerCallback(t *testing.T) {
	bot := &fakeBot{}
	tg := newTestTelegram(t, bot)

	require.NoError(t, tg.AnswerCallback(context.Background(), "cb-1", "Added"))
	calls := bot.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "/bot123:abc/answerCallbackQuery", calls[0].Path)
	assert.Equal(t, "cb-1", calls[0].Body["callback_query_id"])
}

func TestNewTelegram_RequiresConfig(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{ChatID: "1"})
	var ce *errs.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "TELEGRAM_BOT_TOKEN", ce.Key)
}

// --- Pushover ---

func TestPushover_Push(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		got = map[string]string{
			"token":   r.PostForm.Get("token"),
			"user":    r.PostForm.Get("user"),
			"title":   r.PostForm.Get("title"),
			"message": r.PostForm.Get("message"),
		}
		w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	p, err := NewPushover(PushoverConfig{APIToken: "tok", UserKey: "usr", Endpoint: srv.URL})
	require.NoError(t, err)
	require.NoError(t, p.Push(context.Background(), "Google", "Code: 123456"))

	assert.Equal(t, map[string]string{"token": "tok", "user": "usr", "title": "Google", "message": "Code: 123456"}, got)
}

func TestPushover_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"user":"invalid","errors":["user identifier is invalid"],"status":0}`))
	}))
	defer srv.Close()

	p, err := NewPushover(PushoverConfig{APIToken: "tok", UserKey: "usr", Endpoint: srv.URL})
	require.NoError(t, err)

	err = p.Push(context.Background(), "t", "m")
	var re *errs.ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadRequest, re.StatusCode)
	assert.Contains(t, re.Snippet, "user identifier is invalid")
}

// --- Calendar ---

func TestCalendar_CreateEvent(t *testing.T) {
	var received models.CalendarEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"id":"evt-1","htmlLink":"https://calendar.google.com/e/evt-1"}`))
	}))
	defer srv.Close()

	cal := NewCalendarWithClient(srv.Client(), CalendarConfig{Endpoint: srv.URL})
	id, err := cal.CreateEvent(context.Background(), models.CalendarEvent{
		Summary:   "SFO ➔ JFK",
		Start:     models.EventTime{DateTime: "2026-05-01T08:00:00-07:00", TimeZone: "America/Los_Angeles"},
		End:       models.EventTime{DateTime: "2026-05-01T16:30:00-04:00", TimeZone: "America/New_York"},
		Reminders: models.PopupReminders(180, 120),
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", id)
	assert.Equal(t, "SFO ➔ JFK", received.Summary)
	require.NotNil(t, received.Reminders)
	assert.Len(t, received.Reminders.Overrides, 2)
}

func TestCalendar_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"Insufficient Permission"}}`))
	}))
	defer srv.Close()

	cal := NewCalendarWithClient(srv.Client(), CalendarConfig{Endpoint: srv.URL, CalendarID: "me@example.com"})
	_, err := cal.CreateEvent(context.Background(), models.CalendarEvent{Summary: "x"})

	var re *errs.ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusForbidden, re.StatusCode)
}

func TestNewCalendar_RequiresCredentials(t *testing.T) {
	_, err := NewCalendar(context.Background(), CalendarConfig{})
	var ce *errs.ConfigError
	require.ErrorAs(t, err, &ce)

	_, err = NewCalendar(context.Background(), CalendarConfig{CredentialsJSON: []byte(`{"type":"nope"}`)})
	assert.Error(t, err)
}
