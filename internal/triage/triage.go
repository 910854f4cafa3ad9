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

// Package triage assigns every inbound email a category and a keep/drop
// decision before any category-specific work runs. A response that cannot
// be parsed is fatal for that email: there is no default category.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/bcem/butler/internal/llm"
	"github.com/bcem/butler/internal/models"
)

const schemaName = "triage"

// Error reports a failed classification. Raw holds the model's response
// when one was received.
type Error struct {
	Raw string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("triage: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// LinkRewriter rewrites URLs in a body before classification.
type LinkRewriter interface {
	Rewrite(ctx context.Context, text string) string
}

// Classifier runs the triage query.
type Classifier struct {
	llm    llm.Querier
	links  LinkRewriter
	prompt string
	schema *genai.Schema
}

// NewClassifier creates a classifier. links may be nil to leave bodies
// untouched.
func NewClassifier(q llm.Querier, links LinkRewriter) *Classifier {
	return &Classifier{
		llm:    q,
		links:  links,
		prompt: systemPrompt(),
		schema: Schema(),
	}
}

type response struct {
	Category        string   `json:"category"`
	DomainKnowledge []string `json:"domain_knowledge"`
	CleanedBody     string   `json:"cleaned_body"`
	ShouldDrop      bool     `json:"should_drop"`
}

// Classify returns the triage result and the identifier of the model that
// produced it. Every failure is a *Error.
func (c *Classifier) Classify(ctx context.Context, email models.Email) (models.TriageResult, string, error) {
	if c.links != nil {
		email = email.WithText(c.links.Rewrite(ctx, email.Text))
	}

	resp, err := c.llm.Query(ctx, llm.Request{
		System:     c.prompt,
		User:       email.Prompt(),
		Schema:     c.schema,
		SchemaName: schemaName,
	})
	if err != nil {
		return models.TriageResult{}, "", &Error{Err: err}
	}

	var r response
	if err := llm.Decode(resp.Text, c.schema, schemaName, &r); err != nil {
		return models.TriageResult{}, resp.Model, &Error{Raw: resp.Text, Err: err}
	}
	cat, err := models.ParseCategory(r.Category)
	if err != nil {
		return models.TriageResult{}, resp.Model, &Error{Raw: resp.Text, Err: err}
	}

	result := models.TriageResult{
		Category:        cat,
		DomainKnowledge: compact(r.DomainKnowledge),
		CleanedBody:     strings.TrimSpace(r.CleanedBody),
		ShouldDrop:      r.ShouldDrop,
	}
	if result.CleanedBody == "" {
		result.CleanedBody = email.Text
	}

	slog.Info("email triaged",
		"message_id", email.MessageID,
		"subject", email.SubjectOrDefault(),
		"category", cat.String(),
		"should_drop", result.ShouldDrop,
		"model", resp.Model,
	)
	return result, resp.Model, nil
}

// Schema is the structured-output contract for the triage response.
func Schema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category": {
				Type: genai.TypeString,
				Enum: models.CategoryNames(),
			},
			"domain_knowledge": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"cleaned_body": {Type: genai.TypeString},
			"should_drop":  {Type: genai.TypeBoolean},
		},
		Required:         []string{"category", "domain_knowledge", "cleaned_body", "should_drop"},
		PropertyOrdering: []string{"category", "domain_knowledge", "cleaned_body", "should_drop"},
	}
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
