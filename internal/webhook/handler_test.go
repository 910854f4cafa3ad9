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

package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/butler/internal/models"
)

type memStore struct {
	mu     sync.Mutex
	events map[string]models.CalendarEvent
	err    error
}

func (m *memStore) Take(_ context.Context, id string) (*models.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ev, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	delete(m.events, id)
	return &ev, nil
}

func (m *memStore) Put(_ context.Context, id string, ev models.CalendarEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id] = ev
	return nil
}

type fakeCalendar struct {
	mu      sync.Mutex
	created []models.CalendarEvent
	err     error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, ev models.CalendarEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, ev)
	return "gcal-1", nil
}

type fakeAnswerer struct {
	mu      sync.Mutex
	answers map[string]string
}

func (f *fakeAnswerer) AnswerCallback(_ context.Context, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.answers == nil {
		f.answers = map[string]string{}
	}
	f.answers[id] = text
	return nil
}

type rig struct {
	store    *memStore
	calendar *fakeCalendar
	answerer *fakeAnswerer
	handler  *Handler
}

func newRig(secret string) *rig {
	r := &rig{
		store: &memStore{events: map[string]models.CalendarEvent{
			"evt-1": {Summary: "Jazz night", Start: models.EventTime{DateTime: "2026-05-15T20:00:00-04:00"}},
		}},
		calendar: &fakeCalendar{},
		answerer: &fakeAnswerer{},
	}
	r.handler = NewHandler(Config{
		Events:   r.store,
		Calendar: r.calendar,
		Answerer: r.answerer,
		Secret:   secret,
	})
	return r
}

func post(h *Handler, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telegram/callback", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeCallback(rec, req)
	return rec
}

func callback(id, data string) string {
	return `{"update_id":1,"callback_query":{"id":"` + id + `","data":"` + data + `","from":{"id":42}}}`
}

func TestServeCallback_AddsEventOnce(t *testing.T) {
	r := newRig("")

	rec := post(r.handler, callback("cb-1", "add_to_calendar:evt-1"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, r.calendar.created, 1)
	assert.Equal(t, "Jazz night", r.calendar.created[0].Summary)
	assert.Equal(t, answerAdded, r.answerer.answers["cb-1"])

	// A second tap finds nothing and inserts nothing.
	rec = post(r.handler, callback("cb-2", "add_to_calendar:evt-1"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, r.calendar.created, 1)
	assert.Equal(t, answerMissing, r.answerer.answers["cb-2"])
}

func TestServeCallback_ConcurrentTapsInsertOnce(t *testing.T) {
	r := newRig("")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			post(r.handler, callback("cb-"+string(rune('a'+i)), "add_to_calendar:evt-1"), "")
		}()
	}
	wg.Wait()
	assert.Len(t, r.calendar.created, 1)
}

func TestServeCallback_Failures(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		storeErr   error
		calErr     error
		wantAnswer string
	}{
		{"unknown action", "delete:evt-1", nil, nil, answerUnknown},
		{"empty id", "add_to_calendar:", nil, nil, answerUnknown},
		{"store error", "add_to_calendar:evt-1", errors.New("redis down"), nil, answerFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig("")
			r.store.err = tt.storeErr
			r.calendar.err = tt.calErr

			rec := post(r.handler, callback("cb", tt.data), "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantAnswer, r.answerer.answers["cb"])
			assert.Empty(t, r.calendar.created)
		})
	}
}

func TestServeCallback_CalendarErrorKeepsEventForRetry(t *testing.T) {
	r := newRig("")
	r.calendar.err = errors.New("calendar returned HTTP 503")

	post(r.handler, callback("cb-1", "add_to_calendar:evt-1"), "")
	assert.Equal(t, answerFailed, r.answerer.answers["cb-1"])
	assert.Empty(t, r.calendar.created)
	assert.Contains(t, r.store.events, "evt-1")

	r.calendar.err = nil
	post(r.handler, callback("cb-2", "add_to_calendar:evt-1"), "")
	assert.Equal(t, answerAdded, r.answerer.answers["cb-2"])
	require.Len(t, r.calendar.created, 1)
	assert.Equal(t, "Jazz night", r.calendar.created[0].Summary)
	assert.NotContains(t, r.store.events, "evt-1")
}

func TestServeCallback_IgnoresMalformed(t *testing.T) {
	r := newRig("")
	for _, body := range []string{"not json", `{"update_id":2,"message":{"text":"hi"}}`, ""} {
		rec := post(r.handler, body, "")
		assert.Equal(t, http.StatusOK, rec.Code, "body %q", body)
	}
	assert.Empty(t, r.calendar.created)
	assert.Empty(t, r.answerer.answers)
}

func TestServeCallback_Secret(t *testing.T) {
	r := newRig("s3cret")

	rec := post(r.handler, callback("cb", "add_to_calendar:evt-1"), "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, r.calendar.created)

	rec = post(r.handler, callback("cb", "add_to_calendar:evt-1"), "s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, r.calendar.created, 1)
}

func TestServeCallback_MethodNotAllowed(t *testing.T) {
	r := newRig("")
	req := httptest.NewRequest(http.MethodGet, "/telegram/callback", nil)
	rec := httptest.NewRecorder()
	r.handler.ServeCallback(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeCallback_CalendarDisabledKeepsEvent(t *testing.T) {
	r := newRig("")
	h := NewHandler(Config{Events: r.store, Answerer: r.answerer})

	rec := post(h, callback("cb", "add_to_calendar:evt-1"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, answerNoCal, r.answerer.answers["cb"])
	assert.Contains(t, r.store.events, "evt-1")
}
