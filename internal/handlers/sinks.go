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

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bcem/butler/internal/errs"
	"github.com/bcem/butler/internal/markup"
	"github.com/bcem/butler/internal/models"
)

// withPush sends a push alert and the chat message concurrently. Both are
// attempted; the returned error joins whichever failed.
func withPush(ctx context.Context, d Deps, in Input, out Output, title, message string) error {
	var pushErr, chatErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pushErr = push(ctx, d, title, message)
		if pushErr != nil {
			slog.Error("push notification failed",
				"subject", in.Email.SubjectOrDefault(),
				"error", pushErr,
			)
		}
	}()
	go func() {
		defer wg.Done()
		chatErr = sendChat(ctx, d, in, out)
	}()
	wg.Wait()
	return errors.Join(pushErr, chatErr)
}

func push(ctx context.Context, d Deps, title, message string) error {
	if d.Push == nil {
		return &errs.ConfigError{Key: "PUSHOVER_API_KEY"}
	}
	return d.Push.Push(ctx, title, message)
}

// createEvents inserts every event concurrently and reports how many were
// created. Failures are joined, not short-circuited.
func createEvents(ctx context.Context, d Deps, evs []models.CalendarEvent) (int, error) {
	if d.Calendar == nil {
		return 0, &errs.ConfigError{Key: "GOOGLE_SERVICE_ACCOUNT_JSON_KEY"}
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		created int
		errList []error
	)
	for _, ev := range evs {
		wg.Add(1)
		go func(ev models.CalendarEvent) {
			defer wg.Done()
			_, err := d.Calendar.CreateEvent(ctx, ev)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errList = append(errList, fmt.Errorf("calendar event %q: %w", ev.Summary, err))
				return
			}
			created++
		}(ev)
	}
	wg.Wait()
	return created, errors.Join(errList...)
}

// calendarNote renders the outcome of a calendar side effect for the chat
// body.
func calendarNote(created, total int, err error) string {
	if err == nil {
		if total == 1 {
			return markup.Italic("Added to the calendar.")
		}
		return markup.Italic(fmt.Sprintf("Added %d events to the calendar.", created))
	}
	return markup.Italic(markup.Literal(fmt.Sprintf("Calendar update failed (%d of %d added): %v", created, total, err)))
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func literalAll(items []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = markup.Literal(it)
	}
	return out
}

// notesSection renders the trailing "Additional Notes" block, or "".
func notesSection(notes []string) string {
	notes = nonEmpty(notes)
	if len(notes) == 0 {
		return ""
	}
	return markup.Divider + "\n" + markup.Bold("Additional Notes:") + "\n" + markup.List(literalAll(notes), "")
}
