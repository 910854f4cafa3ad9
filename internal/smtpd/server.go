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

// Package smtpd receives forwarded mail over SMTP and hands each parsed
// message to a sink: the ingestion queue or the pipeline directly.
package smtpd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/bcem/butler/internal/mailparse"
	"github.com/bcem/butler/internal/models"
)

// Sink accepts a parsed email. An error makes the sending MTA retry later.
type Sink func(ctx context.Context, email models.Email) error

// Config configures the SMTP listener.
type Config struct {
	Addr            string
	Domain          string
	MaxMessageBytes int64
	SinkTimeout     time.Duration

	// Recipients restricts RCPT TO addresses (case-insensitive). Empty
	// accepts any recipient.
	Recipients []string
}

func (c Config) withDefaults() Config {
	if c.Domain == "" {
		c.Domain = "localhost"
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 10 << 20
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = 30 * time.Second
	}
	return c
}

// Backend implements smtp.Backend.
type Backend struct {
	sink       Sink
	timeout    time.Duration
	recipients map[string]bool
}

// NewBackend creates a backend delivering to sink.
func NewBackend(cfg Config, sink Sink) *Backend {
	cfg = cfg.withDefaults()
	b := &Backend{sink: sink, timeout: cfg.SinkTimeout}
	if len(cfg.Recipients) > 0 {
		b.recipients = make(map[string]bool, len(cfg.Recipients))
		for _, r := range cfg.Recipients {
			b.recipients[strings.ToLower(strings.TrimSpace(r))] = true
		}
	}
	return b
}

// NewSession implements smtp.Backend.
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &session{backend: b, remote: c.Conn().RemoteAddr().String()}, nil
}

type session struct {
	backend *Backend
	remote  string
	from    string
	to      []string
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.backend.recipients != nil && !s.backend.recipients[strings.ToLower(to)] {
		slog.Warn("rejected recipient", "rcpt", to, "remote", s.remote)
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "No such recipient",
		}
	}
	s.to = append(s.to, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	email, err := mailparse.Parse(bytes.NewReader(raw))
	if err != nil {
		slog.Warn("rejected unparseable message", "from", s.from, "remote", s.remote, "error", err)
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Message could not be parsed",
		}
	}
	if email.From.Address == "" {
		email.From.Address = s.from
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.backend.timeout)
	defer cancel()
	if err := s.backend.sink(ctx, email); err != nil {
		slog.Error("failed to accept message",
			"message_id", email.MessageID,
			"from", s.from,
			"error", err,
		)
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary failure, try again later",
		}
	}

	slog.Info("message received",
		"message_id", email.MessageID,
		"from", s.from,
		"rcpt", len(s.to),
		"bytes", len(raw),
	)
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *session) Logout() error { return nil }

// NewServer builds the SMTP server for backend.
func NewServer(cfg Config, backend *Backend) *smtp.Server {
	cfg = cfg.withDefaults()
	srv := smtp.NewServer(backend)
	srv.Addr = cfg.Addr
	srv.Domain = cfg.Domain
	srv.MaxMessageBytes = cfg.MaxMessageBytes
	srv.MaxRecipients = 50
	srv.ReadTimeout = time.Minute
	srv.WriteTimeout = time.Minute
	return srv
}

// Serve binds cfg.Addr and serves until ctx is cancelled. Like the webhook
// server, it returns once the port is bound.
func Serve(ctx context.Context, cfg Config, sink Sink) (net.Addr, error) {
	srv := NewServer(cfg, NewBackend(cfg, sink))

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("bind smtp %s: %w", srv.Addr, err)
	}

	go func() {
		<-ctx.Done()
		slog.Info("smtp server shutting down")
		srv.Close()
	}()

	go func() {
		slog.Info("smtp server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && err != smtp.ErrServerClosed {
			slog.Error("smtp server error", "error", err)
		}
	}()

	return ln.Addr(), nil
}
