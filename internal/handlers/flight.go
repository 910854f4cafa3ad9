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
	"strings"
	"time"

	"github.com/bcem/butler/internal/markup"
	"github.com/bcem/butler/internal/models"
)

const promptFlight = `You are my personal assistant. Extract the flight itinerary from the
email.

- departure_time and arrival_time in RFC 3339 with offset, e.g.
  "2026-05-01T08:05:00-07:00".
- departure_timezone and arrival_timezone as IANA names such as
  "America/New_York".
- One trip per booking direction; one segment per flight leg.
- Put every important detail that has no field in additional_notes.

If a field is not present, return an empty string.`

type flightSegment struct {
	AirlineName       string `json:"airline_name"`
	FlightNumber      string `json:"flight_number"`
	SeatNumber        string `json:"seat_number"`
	DepartureTime     string `json:"departure_time"`
	DepartureTimezone string `json:"departure_timezone"`
	DepartureCity     string `json:"departure_city"`
	DepartureIATA     string `json:"departure_iata_code"`
	DepartureTerminal string `json:"departure_terminal"`
	DepartureGate     string `json:"departure_gate"`
	ArrivalTime       string `json:"arrival_time"`
	ArrivalTimezone   string `json:"arrival_timezone"`
	ArrivalCity       string `json:"arrival_city"`
	ArrivalIATA       string `json:"arrival_iata_code"`
	ArrivalTerminal   string `json:"arrival_terminal"`
	ArrivalGate       string `json:"arrival_gate"`
}

type flightTrip struct {
	ConfirmationCode string          `json:"confirmation_code"`
	FlightClass      string          `json:"flight_class"`
	Segments         []flightSegment `json:"segments"`
}

type flightItinerary struct {
	PassengerName   string       `json:"passenger_name"`
	Trips           []flightTrip `json:"trips"`
	AdditionalNotes []string     `json:"additional_notes"`
}

var flightSchema = object(fields{
	"passenger_name": str(),
	"trips": arrayOf(object(fields{
		"confirmation_code": str(),
		"flight_class":      str(),
		"segments": arrayOf(object(fields{
			"airline_name":        str(),
			"flight_number":       str(),
			"seat_number":         str(),
			"departure_time":      str(),
			"departure_timezone":  str(),
			"departure_city":      str(),
			"departure_iata_code": str(),
			"departure_terminal":  str(),
			"departure_gate":      str(),
			"arrival_time":        str(),
			"arrival_timezone":    str(),
			"arrival_city":        str(),
			"arrival_iata_code":   str(),
			"arrival_terminal":    str(),
			"arrival_gate":        str(),
		},
			"airline_name",
			"departure_time", "departure_timezone", "departure_city", "departure_iata_code",
			"arrival_time", "arrival_timezone", "arrival_city", "arrival_iata_code",
		)),
	}, "confirmation_code", "flight_class", "segments")),
	"additional_notes": stringList(),
}, "passenger_name", "trips")

// Popup reminders before each departure.
var flightReminders = []int{180, 120}

func newFlight(d Deps) *Lifecycle[flightItinerary] {
	return &Lifecycle[flightItinerary]{
		Spec: Spec{
			Name:         KindFlight.String(),
			SystemPrompt: promptFlight,
			Schema:       flightSchema,
			SchemaName:   "FlightItinerary",
		},
		Format: formatFlight,
		Send:   sendFlight,
		deps:   d,
	}
}

func flightAwareURL(flightNumber string) string {
	return "https://flightaware.com/live/flight/" + strings.ReplaceAll(flightNumber, " ", "")
}

func parseTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	return t, err == nil
}

func displayTime(s, tz string) string {
	if t, ok := parseTime(s); ok {
		return markup.FormatDateTime(t, tz)
	}
	return s
}

func formatPort(city, iata, terminal, gate string) string {
	loc := markup.Bold(markup.Literal(city)) + " (" + markup.Monospace(markup.Literal(iata)) + ")"
	var details []string
	if terminal != "" {
		details = append(details, "Terminal "+markup.Literal(terminal))
	}
	if gate != "" {
		details = append(details, "Gate "+markup.Literal(gate))
	}
	if len(details) == 0 {
		return loc
	}
	return loc + " | " + strings.Join(details, " ")
}

func formatTrip(tr flightTrip) string {
	if len(tr.Segments) == 0 {
		return ""
	}
	first, last := tr.Segments[0], tr.Segments[len(tr.Segments)-1]
	layovers := len(tr.Segments) - 1

	lines := []string{markup.Bold(markup.Literal(first.DepartureCity)) + " ➔ " + markup.Bold(markup.Literal(last.ArrivalCity))}
	dep, okDep := parseTime(first.DepartureTime)
	arr, okArr := parseTime(last.ArrivalTime)
	if okDep && okArr {
		lines = append(lines, markup.FormatDuration(arr.Sub(dep)))
	}
	plural := "s"
	if layovers == 1 {
		plural = ""
	}
	lines = append(lines, fmt.Sprintf("%d layover%s", layovers, plural), markup.Divider)

	for i, s := range tr.Segments {
		head := markup.Bold(markup.Literal(s.AirlineName))
		if s.FlightNumber != "" {
			head += " - " + markup.Link(markup.Literal(s.FlightNumber), flightAwareURL(s.FlightNumber))
		}
		lines = append(lines,
			head,
			formatPort(s.DepartureCity, s.DepartureIATA, s.DepartureTerminal, s.DepartureGate)+" ➔ "+
				formatPort(s.ArrivalCity, s.ArrivalIATA, s.ArrivalTerminal, s.ArrivalGate),
			markup.Literal(displayTime(s.DepartureTime, s.DepartureTimezone))+" - "+
				markup.Literal(displayTime(s.ArrivalTime, s.ArrivalTimezone)),
		)
		if i < len(tr.Segments)-1 {
			next := tr.Segments[i+1]
			layover := "Layover in " + markup.Literal(s.ArrivalCity)
			a, ok1 := parseTime(s.ArrivalTime)
			n, ok2 := parseTime(next.DepartureTime)
			if ok1 && ok2 {
				layover += ": " + markup.FormatDuration(n.Sub(a))
			}
			lines = append(lines, "", markup.Italic(layover), "")
		}
	}
	return strings.Join(lines, "\n")
}

func formatFlight(f flightItinerary, in Input) Output {
	lines := []string{"Passenger: " + markup.Bold(markup.Literal(f.PassengerName))}
	if len(f.Trips) > 0 {
		if c := f.Trips[0].FlightClass; c != "" {
			lines = append(lines, markup.Italic(markup.Literal(c)))
		}
		if code := f.Trips[0].ConfirmationCode; code != "" {
			lines = append(lines, "Confirmation Code: "+markup.Bold(markup.Monospace(markup.Literal(code))))
		}
	}
	lines = append(lines, "")
	for _, tr := range f.Trips {
		if t := formatTrip(tr); t != "" {
			lines = append(lines, t, "")
		}
	}
	if notes := notesSection(f.AdditionalNotes); notes != "" {
		lines = append(lines, notes)
	}

	title := "✈️ " + f.PassengerName
	if route := flightRoute(f); route != "" {
		title += ": " + route
	}
	if title == "✈️ " {
		title = "✈️ " + in.Email.SubjectOrDefault()
	}
	return Output{Title: title, Body: strings.TrimRight(strings.Join(lines, "\n"), "\n")}
}

func flightRoute(f flightItinerary) string {
	if len(f.Trips) == 0 || len(f.Trips[0].Segments) == 0 {
		return ""
	}
	segs := f.Trips[0].Segments
	return segs[0].DepartureCity + " ➔ " + segs[len(segs)-1].ArrivalCity
}

// segmentEvent builds the calendar entry for one flight leg.
func segmentEvent(s flightSegment, passenger string) models.CalendarEvent {
	desc := []string{"Passenger: " + passenger}
	if s.SeatNumber != "" {
		desc = append(desc, "Seat: "+s.SeatNumber)
	}
	desc = append(desc, "",
		"Departure",
		"• Time: "+displayTime(s.DepartureTime, s.DepartureTimezone),
		"• City: "+s.DepartureCity,
	)
	if s.DepartureTerminal != "" {
		desc = append(desc, "• Terminal: "+s.DepartureTerminal)
	}
	if s.DepartureGate != "" {
		desc = append(desc, "• Gate: "+s.DepartureGate)
	}
	desc = append(desc, "",
		"Arrival",
		"• Time: "+displayTime(s.ArrivalTime, s.ArrivalTimezone),
		"• City: "+s.ArrivalCity,
	)
	if s.ArrivalTerminal != "" {
		desc = append(desc, "• Terminal: "+s.ArrivalTerminal)
	}
	if s.ArrivalGate != "" {
		desc = append(desc, "• Gate: "+s.ArrivalGate)
	}
	if s.FlightNumber != "" {
		desc = append(desc, "", "Flight tracking: "+flightAwareURL(s.FlightNumber))
	}

	location := s.DepartureIATA + " Airport"
	if s.DepartureTerminal != "" {
		location += ", Terminal " + s.DepartureTerminal
	}

	return models.CalendarEvent{
		Summary:     fmt.Sprintf("%s (%s) ➔ %s (%s)", s.DepartureCity, s.DepartureIATA, s.ArrivalCity, s.ArrivalIATA),
		Description: strings.Join(desc, "\n"),
		Location:    location,
		Start:       models.EventTime{DateTime: s.DepartureTime, TimeZone: s.DepartureTimezone},
		End:         models.EventTime{DateTime: s.ArrivalTime, TimeZone: s.ArrivalTimezone},
		Reminders:   models.PopupReminders(flightReminders...),
	}
}

// sendFlight inserts one calendar event per segment, then sends the chat
// message with the calendar outcome appended. A calendar failure is the
// handler's failure even when the chat message goes out.
func sendFlight(ctx context.Context, d Deps, in Input, f flightItinerary, out Output) error {
	var evs []models.CalendarEvent
	for _, tr := range f.Trips {
		for _, s := range tr.Segments {
			evs = append(evs, segmentEvent(s, f.PassengerName))
		}
	}
	if len(evs) == 0 {
		return sendChat(ctx, d, in, out)
	}

	created, calErr := createEvents(ctx, d, evs)
	chatErr := sendChat(ctx, d, in, withNote(out, calendarNote(created, len(evs), calErr)))
	return errors.Join(calErr, chatErr)
}
