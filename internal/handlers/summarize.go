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
	"strings"

	"github.com/bcem/butler/internal/markup"
)

const promptSummarize = `You are my personal assistant. Summarize the email so I never need to
open it. I am very busy: no greetings, no filler, every word must carry
information.

- summarized_title: an ultra-concise title of what the email is about.
- summary: bullet points of what I need to know. If I need to act, say
  when and how long it will take. For newsletters, list the key takeaways
  and link each story as [label](url).
- unsubscribe_url: the unsubscribe link if the email has one, else "".

Formatting for summary: you may use *bold*, _italic_, ` + "`code`" + ` and
[label](url) links. Do not escape any character. No emojis.`

type summary struct {
	Title          string `json:"summarized_title"`
	Summary        string `json:"summary"`
	UnsubscribeURL string `json:"unsubscribe_url"`
}

var summarySchema = object(fields{
	"summarized_title": str(),
	"summary":          str(),
	"unsubscribe_url":  str(),
}, "summarized_title", "summary")

// newSummarize is the generic handler for categories without a dedicated
// extraction contract.
func newSummarize(d Deps) *Lifecycle[summary] {
	return &Lifecycle[summary]{
		Spec: Spec{
			Name:         KindSummarize.String(),
			SystemPrompt: promptSummarize,
			Schema:       summarySchema,
			SchemaName:   "SummarizeResponse",
		},
		Format: formatSummary,
		deps:   d,
	}
}

func formatSummary(s summary, in Input) Output {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = in.Email.SubjectOrDefault()
	}
	body := strings.TrimSpace(s.Summary)
	if u := strings.TrimSpace(s.UnsubscribeURL); u != "" {
		body += "\n\n" + markup.Link("Unsubscribe", u)
	}
	return Output{Title: title, Body: body}
}
