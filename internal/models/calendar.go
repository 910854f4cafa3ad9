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

package models

// CalendarEvent is the subset of a Google Calendar v3 event resource the
// butler creates. Its JSON form is also what the pending-event store keeps.
type CalendarEvent struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Reminders   *Reminders `json:"reminders,omitempty"`
}

// EventTime is either an all-day Date (YYYY-MM-DD) or a DateTime (RFC 3339).
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Reminders overrides the calendar's default notifications.
type Reminders struct {
	UseDefault bool       `json:"useDefault"`
	Overrides  []Reminder `json:"overrides,omitempty"`
}

// Reminder is a single popup or email reminder.
type Reminder struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

// PopupReminders builds a Reminders block with one popup per offset.
func PopupReminders(minutes ...int) *Reminders {
	r := &Reminders{UseDefault: false}
	for _, m := range minutes {
		r.Overrides = append(r.Overrides, Reminder{Method: "popup", Minutes: m})
	}
	return r
}
