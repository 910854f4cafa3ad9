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

package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/butler/internal/models"
)

func writeEML(t *testing.T, dir, name, messageID string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	msg := "From: Shop <deals@shop.example>\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Order " + messageID + "\r\n" +
		"Message-ID: " + messageID + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Your order has shipped.\r\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(msg), 0o644))
	return path
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	b := writeEML(t, dir, "b.eml", "<b@x>")
	a := writeEML(t, dir, "a.EML", "<a@x>")
	nested := writeEML(t, dir, "sub/c.eml", "<c@x>")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	files, err := Collect([]string{dir, b})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, nested}, files)
}

func TestCollect_MissingPath(t *testing.T) {
	_, err := Collect([]string{filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestRun_DeliversInOrder(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeEML(t, dir, "1.eml", "<one@x>"),
		writeEML(t, dir, "2.eml", "<two@x>"),
	}

	var got []models.Email
	r := NewRunner(RunnerConfig{Sink: func(_ context.Context, e models.Email) error {
		got = append(got, e)
		return nil
	}})

	res, err := r.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Zero(t, res.Failed)
	require.Len(t, got, 2)
	assert.Equal(t, "<one@x>", got[0].MessageID)
	assert.Equal(t, "Order <two@x>", got[1].Subject)
	assert.Equal(t, "deals@shop.example", got[0].From.Address)
}

func TestRun_ContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeEML(t, dir, "1.eml", "<one@x>"),
		filepath.Join(dir, "missing.eml"),
		writeEML(t, dir, "3.eml", "<three@x>"),
	}

	r := NewRunner(RunnerConfig{Sink: func(_ context.Context, e models.Email) error {
		if e.MessageID == "<three@x>" {
			return errors.New("queue full")
		}
		return nil
	}})

	res, err := r.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Files, 3)
	assert.Error(t, res.Files[1].Err)
	assert.ErrorContains(t, res.Files[2].Err, "deliver: queue full")
	assert.Equal(t, "<three@x>", res.Files[2].MessageID)
}

func TestRun_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeEML(t, dir, "1.eml", "<one@x>")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	r := NewRunner(RunnerConfig{Sink: func(context.Context, models.Email) error {
		called = true
		return nil
	}})
	_, err := r.Run(ctx, files)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
