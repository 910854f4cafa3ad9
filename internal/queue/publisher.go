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

// Package queue buffers inbound email in a Redis list between the ingestion
// transports and the pipeline. Publishers LPUSH envelopes; the consumer
// BRPOPs them, so the list is FIFO.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/butler/internal/models"
)

// DefaultQueue is the Redis list name used when none is configured.
const DefaultQueue = "butler:emails"

// Envelope is the queued form of an email.
type Envelope struct {
	ID         string       `json:"id"`
	Attempt    int          `json:"attempt"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
	Email      models.Email `json:"email"`
}

// Publisher pushes emails onto the queue.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a new Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// Publish enqueues email as a first attempt.
func (p *Publisher) Publish(ctx context.Context, email models.Email) error {
	env := Envelope{
		ID:         uuid.NewString(),
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
		Email:      email,
	}
	if err := p.push(ctx, env); err != nil {
		return err
	}

	slog.Info("published email to queue",
		"envelope_id", env.ID,
		"message_id", email.MessageID,
		"queue", p.queueName,
	)
	return nil
}

func (p *Publisher) push(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := p.rdb.LPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}
	return nil
}

// Len reports the number of queued envelopes.
func (p *Publisher) Len(ctx context.Context) (int64, error) {
	return p.rdb.LLen(ctx, p.queueName).Result()
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
