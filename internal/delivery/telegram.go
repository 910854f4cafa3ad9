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

// Package delivery sends notifications to the operator: chat messages via
// the Telegram Bot API, push alerts via Pushover, and events via Google
// Calendar. None of the sinks retry; the chat sink alone degrades to plain
// text once when its markup is rejected.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bcem/butler/internal/errs"
	"github.com/bcem/butler/internal/markup"
)

const (
	// MaxMessageLength is Telegram's limit on message text.
	MaxMessageLength = 4096

	telegramAPIBase = "https://api.telegram.org"
)

// TelegramConfig holds bot credentials and the operator's chat.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string // overrides the Bot API host; used by tests
	Timeout  time.Duration
}

// Telegram is the chat sink.
type Telegram struct {
	apiURL string
	chatID string
	client *http.Client
}

// NewTelegram validates cfg and returns a chat sink.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, &errs.ConfigError{Key: "TELEGRAM_BOT_TOKEN"}
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		return nil, &errs.ConfigError{Key: "TELEGRAM_TO_CHAT_ID"}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = telegramAPIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Telegram{
		apiURL: fmt.Sprintf("%s/bot%s", base, strings.TrimSpace(cfg.BotToken)),
		chatID: strings.TrimSpace(cfg.ChatID),
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text         string
	CallbackData string
}

// Message is one chat notification. Body is markup source (see package
// markup); Title, Sender and Footer are literal text.
type Message struct {
	Sender  string
	Title   string
	Body    string
	Footer  string
	Buttons []Button

	// Brief sends the body alone, without the title/sender header.
	Brief bool
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID                string       `json:"chat_id"`
	Text                  string       `json:"text"`
	ParseMode             string       `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool         `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *replyMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send delivers msg with MarkdownV2. When Telegram rejects the payload or
// the call fails, it retries once as plain text. Only when both attempts
// fail does it return a *errs.DeliveryError.
func (t *Telegram) Send(ctx context.Context, msg Message) error {
	markupErr := t.sendMessage(ctx, sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  renderMarkup(msg),
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: true,
		ReplyMarkup:           keyboard(msg.Buttons),
	})
	if markupErr == nil {
		return nil
	}

	slog.Warn("telegram rejected markup message, retrying as plain text",
		"title", msg.Title,
		"error", markupErr,
	)

	plainErr := t.sendMessage(ctx, sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  renderPlain(msg),
		DisableWebPagePreview: true,
		ReplyMarkup:           keyboard(msg.Buttons),
	})
	if plainErr == nil {
		return nil
	}

	slog.Error("telegram plain-text retry failed",
		"title", msg.Title,
		"error", plainErr,
	)
	return &errs.DeliveryError{Op: "telegram send", Markup: markupErr, Plain: plainErr}
}

// AnswerCallback acknowledges an inline button press.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := map[string]string{"callback_query_id": callbackID, "text": text}
	return t.call(ctx, "answerCallbackQuery", payload)
}

func (t *Telegram) sendMessage(ctx context.Context, req sendMessageRequest) error {
	return t.call(ctx, "sendMessage", req)
}

func (t *Telegram) call(ctx context.Context, method string, payload any) error {
	op := "telegram " + method

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// The request URL embeds the bot token.
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = errs.Redact(ue.URL)
		}
		return errs.Transport(op, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	var ar apiResponse
	_ = json.Unmarshal(respBody, &ar)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !ar.OK {
		rerr := errs.NewResponseError(op, resp, respBody)
		slog.Error("telegram api error",
			"method", method,
			"status", resp.StatusCode,
			"description", ar.Description,
			"body", rerr.Snippet,
		)
		return rerr
	}
	return nil
}

func keyboard(buttons []Button) *replyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	row := make([]inlineButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, inlineButton{Text: b.Text, CallbackData: b.CallbackData})
	}
	return &replyMarkup{InlineKeyboard: [][]inlineButton{row}}
}

// renderMarkup builds the MarkdownV2 text. The body is escaped first and
// only then truncated, so no escape sequence is split at the cut.
func renderMarkup(msg Message) string {
	var header, footer string
	if !msg.Brief {
		quoted := markup.Bold(markup.Literal(msg.Title)) + "\n" +
			"from: " + markup.Monospace(markup.Literal(msg.Sender))
		header = markup.Blockquote(quoted) + "\n\n"
	}
	if msg.Footer != "" {
		footer = "\n\n" + markup.Italic(markup.Literal(msg.Footer))
	}

	budget := MaxMessageLength - runeLen(header) - runeLen(footer)
	body := markup.Truncate(markup.Escape(msg.Body), budget)
	return markup.Truncate(header+body+footer, MaxMessageLength)
}

// renderPlain builds the no-markup retry text.
func renderPlain(msg Message) string {
	var b strings.Builder
	if !msg.Brief {
		b.WriteString(msg.Title)
		b.WriteString("\nfrom: ")
		b.WriteString(msg.Sender)
		b.WriteString("\n\n")
	}
	b.WriteString(markup.Strip(msg.Body))
	if msg.Footer != "" {
		b.WriteString("\n\n")
		b.WriteString(msg.Footer)
	}
	return truncateRunes(b.String(), MaxMessageLength)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
