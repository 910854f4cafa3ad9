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

// Package handlers implements the category-specific work done for a
// triaged email. Every handler runs the same lifecycle:
//
//	pending -> extracting -> (extract-failed | extracted) -> formatting ->
//	formatted -> sending -> (send-failed | sent)
//
// Extraction is one structured LLM query, formatting is a pure function of
// the extracted result, and sending defaults to one chat message. Variants
// that need a push alert, a calendar entry or a stored event override the
// send step only.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bcem/butler/internal/delivery"
	"github.com/bcem/butler/internal/llm"
	"github.com/bcem/butler/internal/models"
)

// Stage is a lifecycle state.
type Stage string

const (
	StagePending       Stage = "pending"
	StageExtracting    Stage = "extracting"
	StageExtractFailed Stage = "extract-failed"
	StageExtracted     Stage = "extracted"
	StageFormatting    Stage = "formatting"
	StageFormatted     Stage = "formatted"
	StageSending       Stage = "sending"
	StageSendFailed    Stage = "send-failed"
	StageSent          Stage = "sent"
)

// StageError is returned by Handle when the lifecycle ends in a failed
// state.
type StageError struct {
	Handler string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s handler: %s: %v", e.Handler, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Input is what every handler receives for one email.
type Input struct {
	Email           models.Email
	DomainKnowledge []string
	Debug           models.DebugInfo
}

// Handler is one category-specific lifecycle.
type Handler interface {
	Name() string
	Handle(ctx context.Context, in Input) error
}

// ChatSender delivers chat messages.
type ChatSender interface {
	Send(ctx context.Context, msg delivery.Message) error
}

// PushSender delivers push alerts.
type PushSender interface {
	Push(ctx context.Context, title, message string) error
}

// CalendarCreator inserts calendar events.
type CalendarCreator interface {
	CreateEvent(ctx context.Context, ev models.CalendarEvent) (string, error)
}

// EventStore keeps tentative events until the operator confirms them.
type EventStore interface {
	Put(ctx context.Context, id string, ev models.CalendarEvent) error
}

// Deps are the collaborators shared by all handlers. They are read-only
// after construction. Push, Calendar and Events may be nil when the
// corresponding sink is not configured.
type Deps struct {
	LLM      llm.Querier
	Chat     ChatSender
	Push     PushSender
	Calendar CalendarCreator
	Events   EventStore

	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Spec is the immutable extraction contract of one handler.
type Spec struct {
	Name         string
	SystemPrompt string
	Schema       *genai.Schema
	SchemaName   string
	Reasoning    bool
}

// Output is the formatted notification. Body is markup source.
type Output struct {
	Title   string
	Body    string
	Buttons []delivery.Button

	// Brief sends the body without the title/sender header.
	Brief bool

	// SuppressChat skips the chat message; side effects still run.
	SuppressChat bool
}

// SendFunc replaces the default chat-only send step.
type SendFunc[T any] func(ctx context.Context, d Deps, in Input, res T, out Output) error

// Lifecycle runs extract, format and send for a result type T.
type Lifecycle[T any] struct {
	Spec   Spec
	Format func(res T, in Input) Output
	Send   SendFunc[T]

	deps Deps
}

func (l *Lifecycle[T]) Name() string { return l.Spec.Name }

// Handle runs the lifecycle. Failures are logged here and returned as a
// *StageError; the caller decides whether to propagate them.
func (l *Lifecycle[T]) Handle(ctx context.Context, in Input) error {
	log := slog.With(
		"handler", l.Spec.Name,
		"subject", in.Email.SubjectOrDefault(),
		"message_id", in.Email.MessageID,
	)
	log.Debug("handler stage", "stage", StagePending)

	log.Debug("handler stage", "stage", StageExtracting)
	res, model, err := l.extract(ctx, in)
	if err != nil {
		log.Error("handler extraction failed", "stage", StageExtractFailed, "error", err)
		return &StageError{Handler: l.Spec.Name, Stage: StageExtractFailed, Err: err}
	}
	in.Debug = in.Debug.WithModel(model)
	log.Debug("handler stage", "stage", StageExtracted, "model", model)

	log.Debug("handler stage", "stage", StageFormatting)
	out := l.Format(res, in)
	log.Debug("handler stage", "stage", StageFormatted, "title", out.Title)

	log.Debug("handler stage", "stage", StageSending)
	send := l.Send
	if send == nil {
		send = chatOnly[T]
	}
	if err := send(ctx, l.deps, in, res, out); err != nil {
		log.Error("handler send failed", "stage", StageSendFailed, "error", err)
		return &StageError{Handler: l.Spec.Name, Stage: StageSendFailed, Err: err}
	}

	log.Info("email handled", "stage", StageSent)
	return nil
}

func (l *Lifecycle[T]) extract(ctx context.Context, in Input) (T, string, error) {
	var res T
	resp, err := l.deps.LLM.Query(ctx, llm.Request{
		System:     withDomainKnowledge(l.Spec.SystemPrompt, in.DomainKnowledge),
		User:       in.Email.Prompt(),
		Schema:     l.Spec.Schema,
		SchemaName: l.Spec.SchemaName,
		Reasoning:  l.Spec.Reasoning,
	})
	if err != nil {
		return res, "", err
	}
	if err := llm.Decode(resp.Text, l.Spec.Schema, l.Spec.SchemaName, &res); err != nil {
		return res, resp.Model, err
	}
	return res, resp.Model, nil
}

func withDomainKnowledge(prompt string, topics []string) string {
	if len(topics) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	b.WriteString("\n\nYou have expertise in the following areas:\n")
	for _, t := range topics {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	return b.String()
}

func chatOnly[T any](ctx context.Context, d Deps, in Input, _ T, out Output) error {
	return sendChat(ctx, d, in, out)
}

// sendChat delivers out through the chat sink with the debug footer.
func sendChat(ctx context.Context, d Deps, in Input, out Output) error {
	if out.SuppressChat {
		slog.Info("chat message suppressed",
			"subject", in.Email.SubjectOrDefault(),
			"title", out.Title,
		)
		return nil
	}
	return d.Chat.Send(ctx, delivery.Message{
		Sender:  in.Email.From.String(),
		Title:   out.Title,
		Body:    out.Body,
		Footer:  in.Debug.Footer(d.now()),
		Buttons: out.Buttons,
		Brief:   out.Brief,
	})
}

// withNote appends a side-effect outcome to the body.
func withNote(out Output, note string) Output {
	if note == "" {
		return out
	}
	out.Body = strings.TrimRight(out.Body, "\n") + "\n\n" + note
	return out
}
