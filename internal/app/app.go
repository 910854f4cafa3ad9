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

// Package app assembles the butler from configuration. Both commands build
// the same component graph through Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/butler/internal/allowlist"
	"github.com/bcem/butler/internal/config"
	"github.com/bcem/butler/internal/dedup"
	"github.com/bcem/butler/internal/delivery"
	"github.com/bcem/butler/internal/dispatch"
	"github.com/bcem/butler/internal/eventstore"
	"github.com/bcem/butler/internal/handlers"
	"github.com/bcem/butler/internal/links"
	"github.com/bcem/butler/internal/llm"
	"github.com/bcem/butler/internal/pipeline"
	"github.com/bcem/butler/internal/queue"
	"github.com/bcem/butler/internal/triage"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Redis     *redis.Client
	Postgres  *pgxpool.Pool // nil unless the postgres event store is selected
	Telegram  *delivery.Telegram
	Calendar  *delivery.Calendar // nil when calendar is not configured
	Events    eventstore.Store
	Processor *pipeline.Processor
	Publisher *queue.Publisher
	Consumer  *queue.Consumer
}

// Build connects to Redis (and Postgres when selected) and wires every
// component. Optional integrations that are not configured are left out and
// logged.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	a.Redis = redis.NewClient(opt)
	a.Publisher = queue.NewPublisher(a.Redis, cfg.EmailsQueue)
	if err := a.Publisher.Ping(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}
	slog.Info("connected to Redis")

	a.Consumer = queue.NewConsumer(a.Redis, queue.ConsumerConfig{
		QueueName:   cfg.EmailsQueue,
		MaxAttempts: cfg.MaxAttempts,
	})

	// --- Pending event store ---
	switch cfg.EventStoreBackend {
	case config.BackendPostgres:
		a.Postgres, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create Postgres pool: %w", err)
		}
		if err := a.Postgres.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		slog.Info("connected to PostgreSQL")
		pg, err := eventstore.NewPostgres(ctx, a.Postgres)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initialise event store: %w", err)
		}
		a.Events = pg
	default:
		a.Events = eventstore.NewRedis(a.Redis, cfg.EventTTL)
	}

	// --- Language model ---
	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:         cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		ReasoningModel: cfg.GeminiReasoningModel,
		BaseURL:        cfg.GeminiBaseURL,
		RateLimit:      cfg.LLMRateLimit,
		Timeout:        cfg.LLMTimeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	// --- Sinks ---
	a.Telegram, err = delivery.NewTelegram(delivery.TelegramConfig{
		BotToken: cfg.TelegramBotToken,
		ChatID:   cfg.TelegramChatID,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := handlers.Deps{
		LLM:    gemini,
		Chat:   a.Telegram,
		Events: a.Events,
	}

	if cfg.PushoverEnabled() {
		push, err := delivery.NewPushover(delivery.PushoverConfig{
			APIToken: cfg.PushoverAPIKey,
			UserKey:  cfg.PushoverUserKey,
			Endpoint: cfg.PushoverAPIURL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Push = push
	} else {
		slog.Warn("pushover not configured, push notifications disabled")
	}

	if cfg.CalendarEnabled() {
		a.Calendar, err = delivery.NewCalendar(ctx, delivery.CalendarConfig{
			CredentialsJSON: []byte(cfg.GoogleServiceAccountJSON),
			CalendarID:      cfg.GoogleCalendarID,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Calendar = a.Calendar
	} else {
		slog.Warn("calendar not configured, calendar events disabled")
	}

	// --- Links ---
	var shortener links.Shortener
	if cfg.ShortIOEnabled() {
		sio, err := links.NewShortIO(links.ShortIOConfig{
			APIKey: cfg.ShortIOAPIKey,
			Domain: cfg.ShortIODomain,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		shortener = sio
	}
	rewriter := links.NewRewriter(
		links.RewriterConfig{Enabled: cfg.EnableLinkShortening},
		links.NewResolver(0, 0),
		shortener,
	)

	// --- Pipeline ---
	a.Processor = pipeline.NewProcessor(pipeline.Config{
		Classifier: triage.NewClassifier(gemini, rewriter),
		Dispatcher: dispatch.NewDispatcher(deps),
		Allowlist:  allowlist.Parse(cfg.EmailAllowlist),
		Dedup:      dedup.NewFilter(a.Redis, cfg.DedupTTL),
	})

	return a, nil
}

// Health checks the backing stores.
func (a *App) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return errors.New("redis unhealthy")
	}
	if a.Postgres != nil {
		if err := a.Postgres.Ping(ctx); err != nil {
			return errors.New("postgres unhealthy")
		}
	}
	return nil
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}
