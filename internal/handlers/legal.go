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
	"strings"

	"github.com/bcem/butler/internal/markup"
)

const promptLegal = `You are a lawyer and my legal advisor. The email announces a legal
document such as updated terms of service or a privacy policy.

- document_type: the kind of document.
- summary: its key points in two or three sentences.
- changes: each change from the previous version, one per item.
- impact: how the changes affect me as a user.
- recommendation: what, if anything, I should do.

Think like a lawyer and be precise. Plain text only.`

type legalDetails struct {
	DocumentType   string   `json:"document_type"`
	Summary        string   `json:"summary"`
	Changes        []string `json:"changes"`
	Impact         string   `json:"impact"`
	Recommendation string   `json:"recommendation"`
}

var legalSchema = object(fields{
	"document_type":  str(),
	"summary":        str(),
	"changes":        stringList(),
	"impact":         str(),
	"recommendation": str(),
}, "document_type", "summary", "changes", "impact", "recommendation")

func newLegal(d Deps) *Lifecycle[legalDetails] {
	return &Lifecycle[legalDetails]{
		Spec: Spec{
			Name:         KindLegal.String(),
			SystemPrompt: promptLegal,
			Schema:       legalSchema,
			SchemaName:   "LegalDetails",
			Reasoning:    true,
		},
		Format: formatLegal,
		Send:   sendLegal,
		deps:   d,
	}
}

func formatLegal(l legalDetails, _ Input) Output {
	parts := []string{
		markup.Bold("Document Type:") + " " + markup.Literal(l.DocumentType),
		markup.Bold("Summary:") + "\n" + markup.Literal(l.Summary),
	}
	if changes := nonEmpty(l.Changes); len(changes) > 0 {
		parts = append(parts, markup.Bold("Key Changes:")+"\n"+markup.List(literalAll(changes), "-"))
	}
	parts = append(parts,
		markup.Bold("Potential Impact:")+"\n"+markup.Literal(l.Impact),
		markup.Bold("Recommendation:")+"\n"+markup.Literal(l.Recommendation),
	)
	return Output{
		Title: "⚖️ Legal Update: " + l.DocumentType,
		Body:  strings.Join(parts, "\n\n"),
	}
}

func sendLegal(ctx context.Context, d Deps, in Input, l legalDetails, out Output) error {
	return withPush(ctx, d, in, out, out.Title, l.Summary+"\n\n"+l.Recommendation)
}
