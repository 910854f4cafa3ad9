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
	"strconv"
	"strings"
	"time"

	"github.com/bcem/butler/internal/markup"
	"github.com/bcem/butler/internal/models"
)

const promptBill = `You are my personal assistant. The email is about a bill. Extract it.

- bill_status: one of pending, paid, failed, refunded, requested
  (requested is for Venmo, Zelle and similar requests).
- bill_account: the account the bill is for. With several identifiers,
  format it as "name (email, ID)".
- to_whom: the company or person being paid, e.g. "Citi Bank".
- what_for: what the bill is for, abbreviated.
- bill_date: the due date for pending bills, the payment date otherwise,
  as YYYY-MM-DD.
- bill_amount: for credit card statements, the statement balance. Put the
  minimum payment in additional_notes.
- bill_currency: ISO code such as "USD".
- reminder: only for upcoming bills, a short calendar title in the form
  "[to_whom|what for] amount currency" and the due date as YYYY-MM-DD.
  Omit it otherwise.

If a field is not present, return an empty string.`

type billReminder struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

type billInfo struct {
	ToWhom          string        `json:"to_whom"`
	BillAccount     string        `json:"bill_account"`
	BillStatus      string        `json:"bill_status"`
	BillDate        string        `json:"bill_date"`
	BillAmount      float64       `json:"bill_amount"`
	BillCurrency    string        `json:"bill_currency"`
	WhatFor         string        `json:"what_for"`
	CardLast4       string        `json:"card_last4"`
	AdditionalNotes []string      `json:"additional_notes"`
	Reminder        *billReminder `json:"reminder"`
}

var billSchema = object(fields{
	"to_whom":          str(),
	"bill_account":     str(),
	"bill_status":      strEnum("pending", "paid", "failed", "refunded", "requested"),
	"bill_date":        str(),
	"bill_amount":      number(),
	"bill_currency":    str(),
	"what_for":         str(),
	"card_last4":       str(),
	"additional_notes": stringList(),
	"reminder": nullable(object(fields{
		"title": str(),
		"date":  str(),
	}, "title", "date")),
}, "to_whom", "bill_status", "bill_date", "bill_amount", "bill_currency", "what_for")

// Minutes from midnight back to 8PM the day before.
const billReminderMinutes = 4 * 60

func newBill(d Deps) *Lifecycle[billInfo] {
	return &Lifecycle[billInfo]{
		Spec: Spec{
			Name:         KindBill.String(),
			SystemPrompt: promptBill,
			Schema:       billSchema,
			SchemaName:   "BillInfo",
		},
		Format: formatBill,
		Send:   sendBill,
		deps:   d,
	}
}

func formatAmount(amount float64, currency string) string {
	return markup.CurrencySymbol(currency) + strconv.FormatFloat(amount, 'f', 2, 64)
}

func formatBill(b billInfo, _ Input) Output {
	lines := []string{markup.Bold(markup.Literal(b.BillStatus))}
	if b.BillDate != "" {
		lines = append(lines, markup.Literal(b.BillDate))
	}
	if b.BillAccount != "" {
		lines = append(lines, markup.Monospace(markup.Literal(b.BillAccount)))
	}
	amount := markup.Literal(formatAmount(b.BillAmount, b.BillCurrency))
	if b.CardLast4 != "" {
		amount += " (card ending " + markup.Literal(b.CardLast4) + ")"
	}
	lines = append(lines, amount)
	if notes := notesSection(b.AdditionalNotes); notes != "" {
		lines = append(lines, notes)
	}
	return Output{
		Title: fmt.Sprintf("💸 %s: %s", b.ToWhom, b.WhatFor),
		Body:  strings.Join(lines, "\n"),
	}
}

// reminderEvent returns the all-day event for an upcoming bill, or false
// when the bill needs none.
func reminderEvent(b billInfo) (models.CalendarEvent, bool) {
	if b.Reminder == nil || (b.BillStatus != "pending" && b.BillStatus != "requested") {
		return models.CalendarEvent{}, false
	}
	due, err := time.Parse(time.DateOnly, strings.TrimSpace(b.Reminder.Date))
	if err != nil {
		return models.CalendarEvent{}, false
	}
	title := b.Reminder.Title
	if title == "" {
		title = fmt.Sprintf("[%s|%s] %.2f %s", b.ToWhom, b.WhatFor, b.BillAmount, b.BillCurrency)
	}
	return models.CalendarEvent{
		Summary:     "💸 " + title,
		Description: fmt.Sprintf("%s\nAccount: %s\nAmount: %s", b.WhatFor, b.BillAccount, formatAmount(b.BillAmount, b.BillCurrency)),
		Start:       models.EventTime{Date: due.Format(time.DateOnly)},
		End:         models.EventTime{Date: due.AddDate(0, 0, 1).Format(time.DateOnly)},
		Reminders:   models.PopupReminders(billReminderMinutes),
	}, true
}

// sendBill creates the reminder first so its outcome can be noted in the
// chat message.
func sendBill(ctx context.Context, d Deps, in Input, b billInfo, out Output) error {
	ev, ok := reminderEvent(b)
	if !ok {
		return sendChat(ctx, d, in, out)
	}
	created, calErr := createEvents(ctx, d, []models.CalendarEvent{ev})
	note := markup.Italic("Reminder added to the calendar.")
	if calErr != nil {
		note = calendarNote(created, 1, calErr)
	}
	chatErr := sendChat(ctx, d, in, withNote(out, note))
	return errors.Join(calErr, chatErr)
}
