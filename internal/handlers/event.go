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
	"strings"

	"github.com/google/uuid"

	"github.com/bcem/butler/internal/delivery"
	"github.com/bcem/butler/internal/errs"
	"github.com/bcem/butler/internal/markup"
	"github.com/bcem/butler/internal/models"
)

// CallbackAddToCalendar prefixes the callback data of the "Add to
// Calendar" button. The stored event id follows the colon.
const CallbackAddToCalendar = "add_to_calendar:"

const promptEvent = `You are my personal assistant. The email mentions an event I might
attend. Extract it.

- name: what the event is.
- start_time and end_time in RFC 3339 with offset. When the end is
  unknown, use the start.
- timezone: IANA name such as "America/New_York", or "".
- location, description, organizer: or "".

If a field is not present, return an empty string.`

type eventInfo struct {
	Name        string `json:"name"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Timezone    string `json:"timezone"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Organizer   string `json:"organizer"`
}

var eventSchema = object(fields{
	"name":        str(),
	"start_time":  str(),
	"end_time":    str(),
	"timezone":    str(),
	"location":    str(),
	"description": str(),
	"organizer":   str(),
}, "name", "start_time")

func newEvent(d Deps) *Lifecycle[eventInfo] {
	return &Lifecycle[eventInfo]{
		Spec: Spec{
			Name:         KindEvent.String(),
			SystemPrompt: promptEvent,
			Schema:       eventSchema,
			SchemaName:   "Event",
		},
		Format: formatEvent,
		Send:   sendEvent,
		deps:   d,
	}
}

func formatEvent(e eventInfo, _ Input) Output {
	lines := []string{markup.Bold(markup.Literal(e.Name))}
	if e.Location != "" {
		lines = append(lines, "📍 "+markup.Literal(e.Location))
	}
	when := displayTime(e.StartTime, e.Timezone)
	if e.EndTime != "" && e.EndTime != e.StartTime {
		when += " - " + displayTime(e.EndTime, e.Timezone)
	}
	lines = append(lines, "⏰ "+markup.Literal(when))
	if e.Organizer != "" {
		lines = append(lines, "Organizer: "+markup.Literal(e.Organizer))
	}
	if e.Description != "" {
		lines = append(lines, "", markup.Literal(e.Description))
	}
	return Output{
		Title: "🗓️ " + e.Name,
		Body:  strings.Join(lines, "\n"),
	}
}

// calendarEvent converts the extraction into the stored calendar payload.
func (e eventInfo) calendarEvent() models.CalendarEvent {
	end := e.EndTime
	if end == "" {
		end = e.StartTime
	}
	return models.CalendarEvent{
		Summary:     e.Name,
		Description: e.Description,
		Location:    e.Location,
		Start:       models.EventTime{DateTime: e.StartTime, TimeZone: e.Timezone},
		End:         models.EventTime{DateTime: end, TimeZone: e.Timezone},
	}
}

// sendEvent stores the event under a fresh id and offers it with an inline
// button. Without a stored event the button would be dead, so a store
// failure sends the message without it and fails the handler.
func sendEvent(ctx context.Context, d Deps, in Input, e eventInfo, out Output) error {
	var storeErr error
	if d.Events == nil {
		storeErr = &errs.ConfigError{Key: "EVENT_STORE_BACKEND"}
	} else {
		id := uuid.NewString()
		storeErr = d.Events.Put(ctx, id, e.calendarEvent())
		if storeErr == nil {
			out.Buttons = append(out.Buttons, delivery.Button{
				Text:         "Add to Calendar",
				CallbackData: CallbackAddToCalendar + id,
			})
		}
	}
	if storeErr != nil {
		out = withNote(out, markup.Italic("Could not save the event for one-tap adding."))
	}
	chatErr := sendChat(ctx, d, in, out)
	return errors.Join(storeErr, chatErr)
}
