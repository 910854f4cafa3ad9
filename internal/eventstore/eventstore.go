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

// Package eventstore holds tentative calendar events between the chat
// message that offers them and the operator's confirmation. Every stored
// event is single-use: Take reads and deletes it atomically, so a replayed
// or concurrent confirmation sees a miss rather than an error.
package eventstore

import (
	"context"

	"github.com/bcem/butler/internal/models"
)

// Store is the pending-event key/value store.
type Store interface {
	// Put stores ev under id, replacing any previous value.
	Put(ctx context.Context, id string, ev models.CalendarEvent) error

	// Take returns and removes the event stored under id. A missing or
	// already-taken id returns (nil, nil).
	Take(ctx context.Context, id string) (*models.CalendarEvent, error)
}
