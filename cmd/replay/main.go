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

// Email Butler replay command
//
// Standalone CLI tool that feeds saved .eml files through the butler. By
// default each message is triaged and dispatched inline; with --publish the
// messages are pushed onto the ingest queue for a running server instead.
// Useful for trying prompt changes against real mail.
//
// Usage:
//
//	go run ./cmd/replay/ [--publish] [--delay 2s] <file-or-dir>...
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bcem/butler/internal/app"
	"github.com/bcem/butler/internal/config"
	"github.com/bcem/butler/internal/replay"
)

func main() {
	// --- CLI Flags ---
	publishFlag := flag.Bool("publish", false, "Push messages onto the ingest queue instead of processing inline")
	delayFlag := flag.Duration("delay", 0, "Pause between messages (e.g. 2s)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: at least one .eml file or directory is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	files, err := replay.Collect(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no .eml files found\n")
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise butler", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	sink := replay.Sink(a.Processor.Process)
	if *publishFlag {
		sink = a.Publisher.Publish
	}

	// --- Run Replay ---
	runner := replay.NewRunner(replay.RunnerConfig{Sink: sink, Delay: *delayFlag})
	result, err := runner.Run(ctx, files)
	if err != nil {
		slog.Warn("replay interrupted", "error", err)
	}

	// --- Summary ---
	for _, fr := range result.Files {
		if fr.Err != nil {
			slog.Info("file result", "path", fr.Path, "message_id", fr.MessageID, "error", fr.Err)
			continue
		}
		slog.Info("file result", "path", fr.Path, "message_id", fr.MessageID)
	}
	slog.Info("replay finished",
		"mode", mode(*publishFlag),
		"sent", result.Sent,
		"failed", result.Failed,
	)

	if result.Failed > 0 {
		os.Exit(1)
	}
}

func mode(publish bool) string {
	if publish {
		return "publish"
	}
	return "inline"
}
