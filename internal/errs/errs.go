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

// Package errs defines the typed failures raised by calls to external
// collaborators (LLM, chat, push, calendar, shortener). Callers match them
// with errors.As instead of inspecting log strings.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ConfigError reports a missing credential, model name or endpoint.
// It is never retryable.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Key)
}

// TimeoutError reports a network call that exceeded its deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ResponseError is a sanitized summary of a non-success response, or of a
// success response missing an expected field.
//
// Snippet holds a redacted, truncated copy of the body. Never put the raw
// body here.
type ResponseError struct {
	Op         string
	StatusCode int
	Status     string
	Snippet    string
}

func (e *ResponseError) Error() string {
	parts := []string{fmt.Sprintf("%s: bad response", e.Op)}
	if e.Status != "" {
		parts = append(parts, "status="+e.Status)
	} else if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.Snippet != "" {
		parts = append(parts, "body="+e.Snippet)
	}
	return strings.Join(parts, " ")
}

// NewResponseError builds a ResponseError from an HTTP response and the body
// already read from it.
func NewResponseError(op string, resp *http.Response, body []byte) *ResponseError {
	e := &ResponseError{Op: op, Snippet: Snippet(body)}
	if resp != nil {
		e.StatusCode = resp.StatusCode
		e.Status = resp.Status
	}
	return e
}

// ParseError reports LLM output that did not match the expected schema.
// Raw keeps the offending text for postmortem logging.
type ParseError struct {
	Op  string
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse structured output: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DeliveryError reports that both the markup and the plain-text attempts of
// a chat send failed.
type DeliveryError struct {
	Op     string
	Markup error
	Plain  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: markup attempt: %v; plain attempt: %v", e.Op, e.Markup, e.Plain)
}

func (e *DeliveryError) Unwrap() []error { return []error{e.Markup, e.Plain} }

// Transport classifies an error returned by an HTTP round trip. Deadline and
// net timeouts become a TimeoutError; everything else is wrapped with op.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
