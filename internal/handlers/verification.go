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
	"fmt"
	"strings"

	"github.com/bcem/butler/internal/markup"
)

const promptVerification = `You are my personal assistant. The email carries a verification code,
one-time password or sign-in link. Extract it.

- service: the brand asking for verification, e.g. "Google".
- code: the code exactly as written. For a sign-in link, the link.
- account_name: the account or address the code is for, or "".
- additional_notes: expiry and other useful details.

Do not hide the code. Extracting it is the whole job.`

type verificationCode struct {
	Service         string   `json:"service"`
	Code            string   `json:"code"`
	AccountName     string   `json:"account_name"`
	AdditionalNotes []string `json:"additional_notes"`
}

var verificationSchema = object(fields{
	"service":          str(),
	"code":             str(),
	"account_name":     str(),
	"additional_notes": stringList(),
}, "service", "code")

func newVerification(d Deps) *Lifecycle[verificationCode] {
	return &Lifecycle[verificationCode]{
		Spec: Spec{
			Name:         KindVerification.String(),
			SystemPrompt: promptVerification,
			Schema:       verificationSchema,
			SchemaName:   "VerificationCode",
		},
		Format: formatVerification,
		Send:   sendVerification,
		deps:   d,
	}
}

func formatVerification(v verificationCode, _ Input) Output {
	title := fmt.Sprintf("🔑 %s verification code", v.Service)
	if v.AccountName != "" {
		title += " for " + v.AccountName
	}
	lines := []string{
		markup.Literal(v.Service) + ": " + markup.Monospace(markup.Literal(v.Code)),
	}
	if notes := nonEmpty(v.AdditionalNotes); len(notes) > 0 {
		lines = append(lines, "", markup.List(literalAll(notes), ""))
	}
	return Output{Title: title, Body: strings.Join(lines, "\n")}
}

// sendVerification pushes the code and sends the chat message concurrently.
func sendVerification(ctx context.Context, d Deps, in Input, v verificationCode, out Output) error {
	msg := fmt.Sprintf("%s: %s", v.Service, v.Code)
	return withPush(ctx, d, in, out, v.Service, msg)
}
