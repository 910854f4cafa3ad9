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

// Promotion verdicts.
const (
	VerdictRecommended    = "RECOMMENDED"
	VerdictNeutral        = "NEUTRAL"
	VerdictNotRecommended = "NOT_RECOMMENDED"
	VerdictNotInformative = "NOT_INFORMATIVE"
)

const promptPromotion = `You are my personal financial advisor and shopping assistant. Analyze
the promotional email.

For each promoted item: what it is, the deal terms, pros and cons compared
with typical market prices, your thoughts, and a verdict:
- RECOMMENDED: a genuinely good deal for me.
- NEUTRAL: fair, nothing special.
- NOT_RECOMMENDED: a bad or misleading deal.
- NOT_INFORMATIVE: there is no concrete deal to judge.

Also list general terms and any other notes. Plain text only. Use empty
strings or empty arrays when something does not apply.`

type promotionItem struct {
	PromotedItem    string   `json:"promoted_item"`
	ItemDescription string   `json:"item_description"`
	Deal            []string `json:"deal"`
	Pros            []string `json:"pros"`
	Cons            []string `json:"cons"`
	Thoughts        []string `json:"thoughts"`
	Verdict         string   `json:"verdict"`
}

type promotionDetails struct {
	Vendor          string          `json:"vendor"`
	Items           []promotionItem `json:"items"`
	GeneralTerms    []string        `json:"general_terms"`
	AdditionalNotes []string        `json:"additional_notes"`
}

var promotionSchema = object(fields{
	"vendor": str(),
	"items": arrayOf(object(fields{
		"promoted_item":    str(),
		"item_description": str(),
		"deal":             stringList(),
		"pros":             stringList(),
		"cons":             stringList(),
		"thoughts":         stringList(),
		"verdict":          strEnum(VerdictRecommended, VerdictNeutral, VerdictNotRecommended, VerdictNotInformative),
	}, "promoted_item", "deal", "pros", "cons", "verdict")),
	"general_terms":    stringList(),
	"additional_notes": stringList(),
}, "vendor", "items")

func newPromotion(d Deps) *Lifecycle[promotionDetails] {
	return &Lifecycle[promotionDetails]{
		Spec: Spec{
			Name:         KindPromotion.String(),
			SystemPrompt: promptPromotion,
			Schema:       promotionSchema,
			SchemaName:   "PromotionDetails",
		},
		Format: formatPromotion,
		Send:   sendPromotion,
		deps:   d,
	}
}

func verdictMark(v string) string {
	switch v {
	case VerdictRecommended:
		return "✅"
	case VerdictNotRecommended:
		return "❌"
	case VerdictNotInformative:
		return "➖"
	default:
		return "⚖️"
	}
}

// worthless reports whether no item is worth a chat message. A promotion
// with no items at all is worthless too.
func worthless(p promotionDetails) bool {
	for _, it := range p.Items {
		if it.Verdict != VerdictNotRecommended && it.Verdict != VerdictNotInformative {
			return false
		}
	}
	return true
}

func formatPromotion(p promotionDetails, _ Input) Output {
	var sections []string
	for _, it := range p.Items {
		lines := []string{markup.Bold(markup.Literal(it.PromotedItem))}
		if it.ItemDescription != "" {
			lines = append(lines, markup.Italic(markup.Literal(it.ItemDescription)))
		}
		if deal := nonEmpty(it.Deal); len(deal) > 0 {
			lines = append(lines, markup.List(literalAll(deal), ""))
		}
		if pros := nonEmpty(it.Pros); len(pros) > 0 {
			lines = append(lines, "Pros:", markup.List(literalAll(pros), "✓"))
		}
		if cons := nonEmpty(it.Cons); len(cons) > 0 {
			lines = append(lines, "Cons:", markup.List(literalAll(cons), "✗"))
		}
		if th := nonEmpty(it.Thoughts); len(th) > 0 {
			lines = append(lines, markup.Italic(markup.Literal(strings.Join(th, " "))))
		}
		lines = append(lines, markup.Bold("Verdict:")+" "+verdictMark(it.Verdict)+" "+markup.Literal(it.Verdict))
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if terms := nonEmpty(p.GeneralTerms); len(terms) > 0 {
		sections = append(sections, markup.Bold("General Terms:")+"\n"+markup.List(literalAll(terms), ""))
	}
	if notes := notesSection(p.AdditionalNotes); notes != "" {
		sections = append(sections, notes)
	}

	return Output{
		Title:        "💰 " + p.Vendor,
		Body:         strings.Join(sections, "\n\n"),
		SuppressChat: worthless(p),
	}
}

func pushSummary(p promotionDetails) string {
	lines := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		lines = append(lines, fmt.Sprintf("%s %s: %s", verdictMark(it.Verdict), it.PromotedItem, strings.Join(nonEmpty(it.Deal), "; ")))
	}
	if len(lines) == 0 {
		return "No concrete deal."
	}
	return strings.Join(lines, "\n")
}

// sendPromotion always pushes; the chat message goes out unless every item
// was judged not worth it.
func sendPromotion(ctx context.Context, d Deps, in Input, p promotionDetails, out Output) error {
	return withPush(ctx, d, in, out, out.Title, pushSummary(p))
}
