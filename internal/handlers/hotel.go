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
	"fmt"
	"net/url"
	"strings"

	"github.com/bcem/butler/internal/markup"
)

const promptHotel = `You are my personal assistant. Extract the lodging reservation from the
email.

- Dates in ISO format (YYYY-MM-DD), times in 24-hour format (HH:mm).
- timezone as an IANA name such as "America/New_York".
- currency as an ISO code such as "USD".
- Put special requests, amenities and important policies in
  additional_notes.

If a field is not present, return an empty string.`

type hotelStay struct {
	HotelName          string   `json:"hotel_name"`
	RoomType           string   `json:"room_type"`
	CheckInDate        string   `json:"check_in_date"`
	CheckInTime        string   `json:"check_in_time"`
	CheckOutDate       string   `json:"check_out_date"`
	CheckOutTime       string   `json:"check_out_time"`
	Timezone           string   `json:"timezone"`
	Address            string   `json:"address"`
	ConfirmationCode   string   `json:"confirmation_code"`
	GuestName          string   `json:"guest_name"`
	NumberOfGuests     int      `json:"number_of_guests"`
	TotalAmount        float64  `json:"total_amount"`
	Currency           string   `json:"currency"`
	CancellationPolicy string   `json:"cancellation_policy"`
	AdditionalNotes    []string `json:"additional_notes"`
}

var hotelSchema = object(fields{
	"hotel_name":          str(),
	"room_type":           str(),
	"check_in_date":       str(),
	"check_in_time":       str(),
	"check_out_date":      str(),
	"check_out_time":      str(),
	"timezone":            str(),
	"address":             str(),
	"confirmation_code":   str(),
	"guest_name":          str(),
	"number_of_guests":    integer(),
	"total_amount":        number(),
	"currency":            str(),
	"cancellation_policy": str(),
	"additional_notes":    stringList(),
}, "hotel_name", "check_in_date", "check_out_date", "guest_name")

func newHotel(d Deps) *Lifecycle[hotelStay] {
	return &Lifecycle[hotelStay]{
		Spec: Spec{
			Name:         KindHotel.String(),
			SystemPrompt: promptHotel,
			Schema:       hotelSchema,
			SchemaName:   "HotelStay",
		},
		Format: formatHotel,
		deps:   d,
	}
}

func formatHotel(h hotelStay, _ Input) Output {
	lines := []string{markup.Bold(markup.Literal(h.HotelName))}
	if h.ConfirmationCode != "" {
		lines = append(lines, "Confirmation: "+markup.Monospace(markup.Literal(h.ConfirmationCode)))
	}
	guest := "Guest: " + markup.Bold(markup.Literal(h.GuestName))
	if h.NumberOfGuests > 0 {
		guest += fmt.Sprintf(" (%d guests)", h.NumberOfGuests)
	}
	lines = append(lines, guest, "")

	if h.RoomType != "" {
		lines = append(lines, markup.Bold("Room:")+" "+markup.Literal(h.RoomType))
	}
	lines = append(lines,
		markup.Bold("Check-in:")+" "+markup.Literal(strings.TrimSpace(h.CheckInDate+" "+h.CheckInTime)),
		markup.Bold("Check-out:")+" "+markup.Literal(strings.TrimSpace(h.CheckOutDate+" "+h.CheckOutTime)),
		"",
	)
	if h.Address != "" {
		maps := "https://maps.google.com/?q=" + url.QueryEscape(h.Address)
		lines = append(lines, markup.Bold("Address:")+" "+markup.Link(markup.Literal(h.Address), maps))
	}
	if h.TotalAmount > 0 {
		lines = append(lines, fmt.Sprintf("%s %s%.2f", markup.Bold("Total:"), markup.CurrencySymbol(h.Currency), h.TotalAmount))
	}
	if h.CancellationPolicy != "" {
		lines = append(lines, "", markup.Bold("Cancellation Policy:"), markup.Literal(h.CancellationPolicy))
	}
	if notes := notesSection(h.AdditionalNotes); notes != "" {
		lines = append(lines, "", notes)
	}

	return Output{
		Title: fmt.Sprintf("🏨 %s: %s", h.GuestName, h.HotelName),
		Body:  strings.Join(lines, "\n"),
	}
}
