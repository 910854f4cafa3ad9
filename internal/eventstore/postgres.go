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

package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bcem/butler/internal/models"
)

// Postgres stores pending events in the pending_events table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store and ensures its table exists.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	s := &Postgres{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure pending_events schema: %w", err)
	}
	slog.Info("event store initialised", "backend", "postgres")
	return s, nil
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pending_events (
			event_id   TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_pending_events_created ON pending_events(created_at);
	`)
	return err
}

func (s *Postgres) Put(ctx context.Context, id string, ev models.CalendarEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pending_events (event_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO UPDATE SET
			payload    = EXCLUDED.payload,
			created_at = NOW()
	`, id, data)
	return err
}

// Take deletes the row and returns its payload in one statement.
func (s *Postgres) Take(ctx context.Context, id string) (*models.CalendarEvent, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		DELETE FROM pending_events WHERE event_id = $1
		RETURNING payload
	`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ev models.CalendarEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal event %s: %w", id, err)
	}
	return &ev, nil
}
