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

// Package pipeline is the ingestion boundary: every parsed email, whatever
// transport delivered it, enters through Processor.Process.
//
//	allowlist -> dedup -> collapse blank lines -> triage -> drop? -> dispatch
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/bcem/butler/internal/allowlist"
	"github.com/bcem/butler/internal/dispatch"
	"github.com/bcem/butler/internal/models"
	"github.com/bcem/butler/internal/triage"
)

// Classifier triages an email.
type Classifier interface {
	Classify(ctx context.Context, email models.Email) (models.TriageResult, string, error)
}

// Dispatcher runs the handlers for a category.
type Dispatcher interface {
	Dispatch(ctx context.Context, email models.Email, category models.Category, domainKnowledge []string, dbg models.DebugInfo) []dispatch.Outcome
}

// Deduper remembers processed Message-IDs.
type Deduper interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}

// Config wires a Processor.
type Config struct {
	Classifier Classifier
	Dispatcher Dispatcher

	// Optional.
	Allowlist *allowlist.List
	Dedup     Deduper

	// Now defaults to time.Now.
	Now func() time.Time
}

// Processor triages inbound email and hands it to the dispatcher.
type Processor struct {
	classifier Classifier
	dispatcher Dispatcher
	allow      *allowlist.List
	dedup      Deduper
	now        func() time.Time
}

// NewProcessor creates a processor.
func NewProcessor(cfg Config) *Processor {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		classifier: cfg.Classifier,
		dispatcher: cfg.Dispatcher,
		allow:      cfg.Allowlist,
		dedup:      cfg.Dedup,
		now:        now,
	}
}

var blankLinesRe = regexp.MustCompile(`(\n\s*){3,}`)

// CollapseBlankLines reduces every run of blank lines to a single one.
func CollapseBlankLines(s string) string {
	return blankLinesRe.ReplaceAllString(s, "\n\n")
}

// Process runs one email through the pipeline. Blocked senders, duplicates
// and emails triage marks for dropping return nil without any handler
// running. A triage failure is returned so the transport can retry; handler
// failures are never returned.
func (p *Processor) Process(ctx context.Context, email models.Email) error {
	start := p.now()
	log := slog.With("message_id", email.MessageID, "subject", email.SubjectOrDefault())

	if !p.allow.Allowed(email.From.Address) {
		log.Info("blocked email from sender not on allowlist",
			"sender", allowlist.Normalize(email.From.Address),
		)
		return nil
	}

	if p.dedup != nil && email.MessageID != "" {
		isNew, err := p.dedup.IsNew(ctx, email.MessageID)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if !isNew {
			log.Info("skipping duplicate message")
			return nil
		}
	}

	email = email.WithText(CollapseBlankLines(email.Text))

	result, model, err := p.classifier.Classify(ctx, email)
	if err != nil {
		var te *triage.Error
		if errors.As(err, &te) && te.Raw != "" {
			log.Error("triage failed", "error", err, "raw_response", te.Raw)
		} else {
			log.Error("triage failed", "error", err)
		}
		p.release(ctx, email.MessageID)
		return fmt.Errorf("triage %s: %w", email.MessageID, err)
	}

	if result.ShouldDrop {
		log.Info("dropping email", "category", result.Category.String())
		return nil
	}

	dbg := models.DebugInfo{Start: start, MessageID: email.MessageID}.WithModel(model)
	p.dispatcher.Dispatch(ctx, email.WithText(result.CleanedBody), result.Category, result.DomainKnowledge, dbg)
	return nil
}

// release clears the dedup mark so a redelivery is processed again.
func (p *Processor) release(ctx context.Context, messageID string) {
	if p.dedup == nil || messageID == "" {
		return
	}
	if err := p.dedup.Forget(ctx, messageID); err != nil {
		slog.Warn("failed to release dedup mark", "message_id", messageID, "error", err)
	}
}
