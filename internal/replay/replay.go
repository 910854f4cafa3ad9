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

// Package replay feeds saved RFC 5322 messages (.eml files) back through the
// butler, either onto the ingest queue or straight into the pipeline.
package replay

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bcem/butler/internal/mailparse"
	"github.com/bcem/butler/internal/models"
)

// Sink receives each parsed email.
type Sink func(ctx context.Context, email models.Email) error

// Result summarises a completed replay run.
type Result struct {
	Files   []FileResult
	Sent    int
	Failed  int
	Elapsed time.Duration
}

// FileResult tracks one replayed file.
type FileResult struct {
	Path      string
	MessageID string
	Err       error
}

// Runner replays messages into a sink.
type Runner struct {
	sink  Sink
	delay time.Duration // pause between messages to stay under LLM quotas
}

// RunnerConfig holds dependencies for the replay runner.
type RunnerConfig struct {
	Sink  Sink
	Delay time.Duration
}

// NewRunner creates a replay runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{sink: cfg.Sink, delay: cfg.Delay}
}

// Collect expands paths into the .eml files they name. Directories are
// walked recursively; files are returned in lexical order.
func Collect(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".eml") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Run replays every file in order. A file that fails to parse or deliver
// is recorded and the run continues; only cancellation stops it early.
func (r *Runner) Run(ctx context.Context, files []string) (*Result, error) {
	start := time.Now()
	slog.Info("starting replay", "files", len(files))

	result := &Result{}
	for i, path := range files {
		if i > 0 && r.delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(r.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fr := r.replayFile(ctx, path)
		if fr.Err != nil {
			slog.Warn("replay failed for file", "path", path, "error", fr.Err)
			result.Failed++
		} else {
			result.Sent++
		}
		result.Files = append(result.Files, fr)
	}

	result.Elapsed = time.Since(start)
	slog.Info("replay complete",
		"sent", result.Sent,
		"failed", result.Failed,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

func (r *Runner) replayFile(ctx context.Context, path string) FileResult {
	fr := FileResult{Path: path}

	f, err := os.Open(path)
	if err != nil {
		fr.Err = err
		return fr
	}
	defer f.Close()

	email, err := mailparse.Parse(f)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.MessageID = email.MessageID

	if err := r.sink(ctx, email); err != nil {
		fr.Err = fmt.Errorf("deliver: %w", err)
	}
	return fr
}
