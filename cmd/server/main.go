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

// Email Butler server
//
// Entry point for the butler service. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Connects to Redis (and PostgreSQL for the postgres event store)
//  3. Wires the classifier, dispatcher and delivery sinks
//  4. Accepts inbound mail over SMTP and queues it in Redis
//  5. Consumes the queue, triaging and dispatching each email
//  6. Serves the Telegram callback webhook and /health
//  7. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bcem/butler/internal/app"
	"github.com/bcem/butler/internal/config"
	"github.com/bcem/butler/internal/smtpd"
	"github.com/bcem/butler/internal/webhook"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting email butler",
		"model", cfg.GeminiModel,
		"reasoning_model", cfg.GeminiReasoningModel,
		"event_store", cfg.EventStoreBackend,
		"pushover", cfg.PushoverEnabled(),
		"calendar", cfg.CalendarEnabled(),
		"link_shortening", cfg.EnableLinkShortening,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise butler", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// --- Phase 1: Callback webhook ---
	handler := webhook.NewHandler(webhook.Config{
		Events:   a.Events,
		Calendar: calendarOrNil(a),
		Answerer: a.Telegram,
		Secret:   cfg.TelegramWebhookSecret,
	})
	ready, err := webhook.Serve(ctx, cfg.Port, handler, a.Health)
	if err != nil {
		slog.Error("failed to start webhook server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Phase 2: Queue consumer ---
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Consumer.Run(ctx, a.Processor.Process); err != nil {
			slog.Error("queue consumer error", "error", err)
		}
	}()

	// --- Phase 3: SMTP ingress ---
	addr, err := smtpd.Serve(ctx, smtpd.Config{
		Addr:            cfg.SMTPAddr,
		Domain:          cfg.SMTPDomain,
		MaxMessageBytes: cfg.MaxMessageBytes,
		Recipients:      cfg.SMTPRecipients,
	}, a.Publisher.Publish)
	if err != nil {
		slog.Error("failed to start smtp server", "error", err)
		cancel()
		wg.Wait()
		os.Exit(1)
	}
	slog.Info("email butler ready", "smtp_addr", addr.String(), "port", cfg.Port)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel()
	wg.Wait()

	slog.Info("email butler stopped")
}

// calendarOrNil keeps a disabled calendar an untyped nil so the webhook can
// tell it is missing.
func calendarOrNil(a *app.App) webhook.CalendarCreator {
	if a.Calendar == nil {
		return nil
	}
	return a.Calendar
}
