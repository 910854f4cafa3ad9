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

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bcem/butler/internal/models"
)

// DefaultMaxAttempts bounds redelivery of a failing email.
const DefaultMaxAttempts = 3

// DefaultRedeliveryDelay is the wait before the first redelivery. Later
// attempts wait proportionally longer.
const DefaultRedeliveryDelay = 15 * time.Second

// ProcessFunc handles one dequeued email. A returned error re-enqueues the
// email until MaxAttempts is reached.
type ProcessFunc func(ctx context.Context, email models.Email) error

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	QueueName   string
	MaxAttempts int

	// PollTimeout is how long one BRPOP blocks before re-checking ctx.
	PollTimeout time.Duration

	// RetryDelay is the pause after a Redis error.
	RetryDelay time.Duration

	// RedeliveryDelay is the pause before a failed email is re-enqueued,
	// multiplied by the attempt that failed.
	RedeliveryDelay time.Duration
}

// Consumer pops envelopes and runs them through a ProcessFunc.
type Consumer struct {
	pub         *Publisher
	maxAttempts int
	pollTimeout time.Duration
	retryDelay  time.Duration
	redelivery  time.Duration
}

// NewConsumer creates a consumer reading from cfg.QueueName.
func NewConsumer(rdb *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RedeliveryDelay <= 0 {
		cfg.RedeliveryDelay = DefaultRedeliveryDelay
	}
	return &Consumer{
		pub:         NewPublisher(rdb, cfg.QueueName),
		maxAttempts: cfg.MaxAttempts,
		pollTimeout: cfg.PollTimeout,
		retryDelay:  cfg.RetryDelay,
		redelivery:  cfg.RedeliveryDelay,
	}
}

// Run consumes until ctx is cancelled. Emails are processed one at a time;
// handlers inside the pipeline provide the concurrency.
func (c *Consumer) Run(ctx context.Context, fn ProcessFunc) error {
	slog.Info("queue consumer started", "queue", c.pub.queueName, "max_attempts", c.maxAttempts)
	for {
		if ctx.Err() != nil {
			slog.Info("queue consumer stopped")
			return nil
		}

		env, err := c.pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.Error("queue pop failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.retryDelay):
			}
			continue
		}
		if env == nil {
			continue
		}
		c.handle(ctx, *env, fn)
	}
}

// RunOnce processes at most one envelope, waiting up to the poll timeout.
// It reports whether an envelope was handled.
func (c *Consumer) RunOnce(ctx context.Context, fn ProcessFunc) (bool, error) {
	env, err := c.pop(ctx)
	if err != nil || env == nil {
		return false, err
	}
	c.handle(ctx, *env, fn)
	return true, nil
}

// pop returns nil, nil when the poll timed out or the payload was corrupt.
func (c *Consumer) pop(ctx context.Context) (*Envelope, error) {
	res, err := c.pub.rdb.BRPop(ctx, c.pollTimeout, c.pub.queueName).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// res is [queueName, payload].
	var env Envelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		slog.Error("dropping corrupt queue payload", "error", err, "bytes", len(res[1]))
		return nil, nil
	}
	return &env, nil
}

func (c *Consumer) handle(ctx context.Context, env Envelope, fn ProcessFunc) {
	log := slog.With(
		"envelope_id", env.ID,
		"message_id", env.Email.MessageID,
		"attempt", env.Attempt,
	)

	err := fn(ctx, env.Email)
	if err == nil {
		return
	}

	if env.Attempt >= c.maxAttempts {
		log.Error("email failed after max attempts, dropping", "error", err)
		return
	}

	// The email is re-enqueued even when ctx ends mid-wait so a shutdown
	// never loses it.
	wait := c.backoff(env.Attempt)
	log.Warn("email processing failed, waiting before redelivery", "error", err, "wait", wait)
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}

	env.Attempt++
	if perr := c.pub.push(context.WithoutCancel(ctx), env); perr != nil {
		log.Error("failed to re-enqueue email", "error", perr, "cause", err)
		return
	}
	log.Info("email re-enqueued", "next_attempt", env.Attempt)
}

// backoff is the wait after the given attempt failed.
func (c *Consumer) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return c.redelivery * time.Duration(attempt)
}
