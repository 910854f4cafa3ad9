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

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/bcem/butler/internal/errs"
)

// GeminiConfig configures the Gemini querier.
type GeminiConfig struct {
	APIKey string
	Model  string

	// ReasoningModel serves Request.Reasoning queries. Empty means Model.
	ReasoningModel string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// Temperature is applied when non-zero.
	Temperature float32

	// RateLimit caps queries per second across the process. Zero disables it.
	RateLimit float64

	Timeout time.Duration
}

// Gemini queries Google's Gemini models with JSON-schema constrained output.
type Gemini struct {
	client         *genai.Client
	model          string
	reasoningModel string
	temperature    float32
	limiter        *rate.Limiter
	timeout        time.Duration
}

// NewGemini validates cfg and builds a client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &errs.ConfigError{Key: "GEMINI_API_KEY"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &errs.ConfigError{Key: "GEMINI_MODEL"}
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	g := &Gemini{
		client:         client,
		model:          strings.TrimSpace(cfg.Model),
		reasoningModel: strings.TrimSpace(cfg.ReasoningModel),
		temperature:    cfg.Temperature,
		timeout:        cfg.Timeout,
	}
	if g.reasoningModel == "" {
		g.reasoningModel = g.model
	}
	if g.timeout <= 0 {
		g.timeout = 60 * time.Second
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return g, nil
}

// Query sends one structured-output request.
func (g *Gemini) Query(ctx context.Context, req Request) (Response, error) {
	model := g.model
	if req.Reasoning {
		model = g.reasoningModel
	}
	op := "gemini " + req.SchemaName

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Response{}, errs.Transport(op, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.System}}},
		CandidateCount:    1,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    req.Schema,
	}
	if g.temperature != 0 {
		t := g.temperature
		cfg.Temperature = &t
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.User), cfg)
	if err != nil {
		return Response{}, classifyErr(op, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Response{}, &errs.ResponseError{Op: op, Snippet: "empty response text"}
	}

	modelID := resp.ModelVersion
	if modelID == "" {
		modelID = model
	}

	slog.Debug("llm query complete",
		"schema", req.SchemaName,
		"model", modelID,
		"elapsed", time.Since(start),
	)
	return Response{Text: text, Model: modelID}, nil
}

// classifyErr maps client errors onto the errs taxonomy.
func classifyErr(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &errs.ResponseError{
			Op:         op,
			StatusCode: apiErr.Code,
			Status:     apiErr.Status,
			Snippet:    errs.Snippet([]byte(apiErr.Message)),
		}
	}
	return errs.Transport(op, err)
}
