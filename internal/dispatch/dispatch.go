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

// Package dispatch fans a triaged email out to the handlers its category
// routes to. Handlers run concurrently and a failing or panicking handler
// never affects its siblings or the caller.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/bcem/butler/internal/handlers"
	"github.com/bcem/butler/internal/models"
)

// Outcome is the result of one handler run.
type Outcome struct {
	Handler string
	Err     error
}

// Factory builds a handler for a kind. handlers.New is the production
// factory; tests substitute their own.
type Factory func(k handlers.Kind, d handlers.Deps) (handlers.Handler, error)

// Router maps a category to the handler kinds it runs. Route is the
// production router.
type Router func(c models.Category) []handlers.Kind

// Dispatcher routes emails to handlers.
type Dispatcher struct {
	deps    handlers.Deps
	factory Factory
	route   Router
}

// NewDispatcher creates a dispatcher whose handlers share deps.
func NewDispatcher(deps handlers.Deps) *Dispatcher {
	return &Dispatcher{deps: deps, factory: handlers.New, route: Route}
}

// WithFactory returns a copy of the dispatcher that builds handlers with f.
func (d *Dispatcher) WithFactory(f Factory) *Dispatcher {
	cp := *d
	cp.factory = f
	return &cp
}

// WithRouter returns a copy of the dispatcher that routes with r.
func (d *Dispatcher) WithRouter(r Router) *Dispatcher {
	cp := *d
	cp.route = r
	return &cp
}

// Dispatch runs every handler routed from category and waits for all of
// them. Failures are logged and reported in the returned outcomes, one per
// routed handler in route order; they are never returned as an error.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	email models.Email,
	category models.Category,
	domainKnowledge []string,
	dbg models.DebugInfo,
) []Outcome {
	kinds := d.route(category)
	if len(kinds) == 0 {
		slog.Error("no route for category",
			"category", category.String(),
			"subject", email.SubjectOrDefault(),
		)
		return nil
	}

	in := handlers.Input{
		Email:           email,
		DomainKnowledge: domainKnowledge,
		Debug:           dbg.WithCategory(category.String()),
	}

	outcomes := make([]Outcome, len(kinds))
	var wg sync.WaitGroup
	for i, k := range kinds {
		outcomes[i].Handler = k.String()
		wg.Add(1)
		go func(i int, k handlers.Kind) {
			defer wg.Done()
			outcomes[i].Err = d.run(ctx, k, in)
		}(i, k)
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		failed++
		slog.Error("handler failed",
			"handler", o.Handler,
			"category", category.String(),
			"subject", email.SubjectOrDefault(),
			"error", o.Err,
		)
	}
	slog.Info("email dispatched",
		"category", category.String(),
		"subject", email.SubjectOrDefault(),
		"handlers", len(outcomes),
		"failed", failed,
	)
	return outcomes
}

// run executes one handler, converting a panic into an error.
func (d *Dispatcher) run(ctx context.Context, k handlers.Kind, in handlers.Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s handler panicked: %v", k, r)
			slog.Error("handler panic",
				"handler", k.String(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	h, err := d.factory(k, d.deps)
	if err != nil {
		return fmt.Errorf("build %s handler: %w", k, err)
	}
	return h.Handle(ctx, in)
}
