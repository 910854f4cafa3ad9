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

// Package llm is the language-model facade: a system prompt, a user prompt
// and a response schema go in; schema-shaped JSON text and the identifier of
// the model that produced it come out.
package llm

import (
	"context"

	"google.golang.org/genai"
)

// Request is one structured-output query.
type Request struct {
	System     string
	User       string
	Schema     *genai.Schema
	SchemaName string

	// Reasoning routes the query to the slower reasoning model when one is
	// configured.
	Reasoning bool
}

// Response carries the raw JSON text and the model that produced it.
type Response struct {
	Text  string
	Model string
}

// Querier runs structured-output queries. Implementations fail with the
// typed errors of package errs instead of returning malformed data.
type Querier interface {
	Query(ctx context.Context, req Request) (Response, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, req Request) (Response, error)

func (f QuerierFunc) Query(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
