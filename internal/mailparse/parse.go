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

// Package mailparse turns raw RFC 5322 messages into models.Email.
package mailparse

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/bcem/butler/internal/models"
)

// keptHeaders are copied into Email.Headers when present.
var keptHeaders = []string{
	"Date",
	"Reply-To",
	"List-Id",
	"List-Unsubscribe",
	"Return-Path",
}

// Parse reads a MIME message. Encoded words in the subject and addresses
// are decoded. A message without a text part gets the plain-text rendering
// of its HTML part.
func Parse(r io.Reader) (models.Email, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return models.Email{}, fmt.Errorf("parse MIME message: %w", err)
	}

	email := models.Email{
		MessageID:  env.GetHeader("Message-ID"),
		ReceivedAt: time.Now().UTC(),
		Subject:    strings.TrimSpace(env.GetHeader("Subject")),
		Text:       env.Text,
		Headers:    make(map[string]string, len(keptHeaders)),
	}

	from, err := addressList(env, "From")
	if err != nil {
		return models.Email{}, err
	}
	if len(from) > 0 {
		email.From = from[0]
	}
	// A broken To header is not worth rejecting the message for.
	email.To, _ = addressList(env, "To")

	for _, h := range keptHeaders {
		if v := env.GetHeader(h); v != "" {
			email.Headers[h] = v
		}
	}

	if strings.TrimSpace(email.Text) == "" && env.HTML != "" {
		// enmime renders HTML-only messages to text itself; this only
		// triggers when that rendering came out empty.
		email.Text = env.HTML
	}
	return email, nil
}

func addressList(env *enmime.Envelope, header string) ([]models.EmailAddress, error) {
	list, err := env.AddressList(header)
	if err != nil {
		if errors.Is(err, mail.ErrHeaderNotPresent) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse %s header: %w", header, err)
	}
	out := make([]models.EmailAddress, 0, len(list))
	for _, a := range list {
		out = append(out, models.EmailAddress{Address: a.Address, Name: a.Name})
	}
	return out, nil
}
