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

// Package webhook receives Telegram bot updates. When the operator taps
// "Add to Calendar" under an event message, Telegram POSTs a callback
// query; the handler takes the pending event out of the store and inserts
// it into the calendar.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bcem/butler/internal/handlers"
	"github.com/bcem/butler/internal/models"
)

// SecretHeader carries the secret_token registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Callback answers shown to the operator.
const (
	answerAdded   = "Added to your calendar ✅"
	answerMissing = "Already added or expired"
	answerFailed  = "Could not add the event ❌"
	answerUnknown = "Unknown action"
	answerNoCal   = "Calendar is not configured"
)

// Update is the subset of a Telegram update the butler reads.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// CallbackQuery is an inline keyboard button press.
type CallbackQuery struct {
	ID   string `json:"id"`
	Data string `json:"data"`
	From struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
}

// EventTaker removes and returns a pending event; nil means already used
// or expired. Put restores an event whose calendar insert failed.
type EventTaker interface {
	Take(ctx context.Context, id string) (*models.CalendarEvent, error)
	Put(ctx context.Context, id string, ev models.CalendarEvent) error
}

// CalendarCreator inserts calendar events.
type CalendarCreator interface {
	CreateEvent(ctx context.Context, ev models.CalendarEvent) (string, error)
}

// CallbackAnswerer acknowledges a callback query in the chat client.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Config wires a Handler.
type Config struct {
	Events   EventTaker
	Calendar CalendarCreator
	Answerer CallbackAnswerer

	// Secret, when set, must match the SecretHeader of every request.
	Secret string

	// Timeout bounds processing of one update.
	Timeout time.Duration
}

// Handler processes Telegram updates.
type Handler struct {
	events   EventTaker
	calendar CalendarCreator
	answerer CallbackAnswerer
	secret   string
	timeout  time.Duration
}

// NewHandler creates an update handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Handler{
		events:   cfg.Events,
		calendar: cfg.Calendar,
		answerer: cfg.Answerer,
		secret:   cfg.Secret,
		timeout:  cfg.Timeout,
	}
}

// ServeCallback handles POST /telegram/callback.
//
// Telegram redelivers any update that does not get a 2xx, so malformed or
// unsupported updates are acknowledged with 200 and ignored. Only a bad
// secret is refused.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		slog.Warn("telegram update with bad secret", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		slog.Error("failed to read update body", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		slog.Info("update body not valid JSON, ignoring", "body_len", len(body))
		w.WriteHeader(http.StatusOK)
		return
	}

	if update.CallbackQuery != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		h.processCallback(ctx, *update.CallbackQuery)
		cancel()
	} else {
		slog.Debug("skipping update without callback query", "update_id", update.UpdateID)
	}
	w.WriteHeader(http.StatusOK)
}

// processCallback handles one button press. Errors are logged and shown to
// the operator, never returned to Telegram.
func (h *Handler) processCallback(ctx context.Context, q CallbackQuery) {
	log := slog.With("callback_id", q.ID, "data", q.Data)

	id, ok := strings.CutPrefix(q.Data, handlers.CallbackAddToCalendar)
	if !ok || id == "" {
		log.Warn("unknown callback action")
		h.answer(ctx, q.ID, answerUnknown)
		return
	}
	log = log.With("event_id", id)

	if h.calendar == nil {
		log.Warn("calendar not configured, leaving event pending")
		h.answer(ctx, q.ID, answerNoCal)
		return
	}

	ev, err := h.events.Take(ctx, id)
	if err != nil {
		log.Error("pending event lookup failed", "error", err)
		h.answer(ctx, q.ID, answerFailed)
		return
	}
	if ev == nil {
		log.Info("pending event already used or expired")
		h.answer(ctx, q.ID, answerMissing)
		return
	}

	calID, err := h.calendar.CreateEvent(ctx, *ev)
	if err != nil {
		log.Error("calendar insert failed", "summary", ev.Summary, "error", err)
		if perr := h.events.Put(context.WithoutCancel(ctx), id, *ev); perr != nil {
			log.Error("failed to restore pending event", "error", perr)
		}
		h.answer(ctx, q.ID, answerFailed)
		return
	}

	log.Info("event added to calendar", "summary", ev.Summary, "calendar_event_id", calID)
	h.answer(ctx, q.ID, answerAdded)
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if h.answerer == nil || callbackID == "" {
		return
	}
	if err := h.answerer.AnswerCallback(ctx, callbackID, text); err != nil {
		slog.Warn("failed to answer callback", "callback_id", callbackID, "error", err)
	}
}

// Serve starts the webhook HTTP server on the given port. It binds the port
// immediately and signals readiness via the returned channel before
// starting to accept connections. health, when non-nil, backs GET /health.
func Serve(ctx context.Context, port int, handler *Handler, health func(context.Context) error) (<-chan struct{}, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/telegram/callback", handler.ServeCallback)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind webhook port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("webhook server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("webhook server error", "error", err)
		}
	}()

	return ready, nil
}
