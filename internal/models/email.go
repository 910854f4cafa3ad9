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

// Package models defines the data structures shared across the butler.
package models

import (
	"fmt"
	"strings"
	"time"
)

// EmailAddress represents a sender or recipient with an address and optional name.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// String renders the address the way mail clients display it.
func (a EmailAddress) String() string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

// Email is a parsed inbound message as handed over by the ingestion
// transport. Only Text is ever replaced, and only in memory.
type Email struct {
	MessageID  string            `json:"message_id"`
	ReceivedAt time.Time         `json:"received_at"`
	From       EmailAddress      `json:"from"`
	To         []EmailAddress    `json:"to"`
	Subject    string            `json:"subject"`
	Text       string            `json:"text"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// SubjectOrDefault returns the subject, or a placeholder for empty subjects.
func (e Email) SubjectOrDefault() string {
	if s := strings.TrimSpace(e.Subject); s != "" {
		return s
	}
	return "(No subject)"
}

// WithText returns a copy of the email carrying a different body.
func (e Email) WithText(text string) Email {
	e.Text = text
	return e
}

// Prompt renders the email as the user prompt sent to the language model.
func (e Email) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", e.SubjectOrDefault())
	fmt.Fprintf(&b, "From: %s\n", e.From)
	if len(e.To) > 0 {
		to := make([]string, 0, len(e.To))
		for _, a := range e.To {
			to = append(to, a.String())
		}
		fmt.Fprintf(&b, "To: %s\n", strings.Join(to, ", "))
	}
	b.WriteString("\n")
	b.WriteString(e.Text)
	return b.String()
}
