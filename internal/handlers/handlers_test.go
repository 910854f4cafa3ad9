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

package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/butler/internal/delivery"
	"github.com/bcem/butler/internal/errs"
	"github.com/bcem/butler/internal/llm"
	"github.com/bcem/butler/internal/models"
)

// --- fakes ---

type fakeChat struct {
	mu   sync.Mutex
	msgs []delivery.Message
	err  error
}

func (f *fakeChat) Send(_ context.Context, msg delivery.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

type pushed struct{ title, message string }

type fakePush struct {
	mu   sync.Mutex
	sent []pushed
	err  error
}

func (f *fakePush) Push(_ context.Context, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pushed{title, message})
	return f.err
}

type fakeCalendar struct {
	mu     sync.Mutex
	events []models.CalendarEvent
	failOn string
}

func (f *fakeCalendar) CreateEvent(_ context.Context, ev models.CalendarEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.Contains(ev.Summary, f.failOn) {
		return "", errors.New("calendar unavailable")
	}
	f.events = append(f.events, ev)
	return "evt", nil
}

type fakeEvents struct {
	stored map[string]models.CalendarEvent
	err    error
}

func (f *fakeEvents) Put(_ context.Context, id string, ev models.CalendarEvent) error {
	if f.err != nil {
		return f.err
	}
	if f.stored == nil {
		f.stored = map[string]models.CalendarEvent{}
	}
	f.stored[id] = ev
	return nil
}

type recordingLLM struct {
	text string
	err  error
	reqs []llm.Request
}

func (r *recordingLLM) Query(_ context.Context, req llm.Request) (llm.Response, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return llm.Response{}, r.err
	}
	return llm.Response{Text: r.text, Model: "gemini-2.5-flash"}, nil
}

type rig struct {
	llm      *recordingLLM
	chat     *fakeChat
	push     *fakePush
	calendar *fakeCalendar
	events   *fakeEvents
}

func newRig(text string) *rig {
	return &rig{
		llm:      &recordingLLM{text: text},
		chat:     &fakeChat{},
		push:     &fakePush{},
		calendar: &fakeCalendar{},
		events:   &fakeEvents{},
	}
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func (r *rig) deps() Deps {
	return Deps{
		LLM:      r.llm,
		Chat:     r.chat,
		Push:     r.push,
		Calendar: r.calendar,
		Events:   r.events,
		Now:      func() time.Time { return fixedNow },
	}
}

func (r *rig) handler(t *testing.T, k Kind) Handler {
	t.Helper()
	h, err := New(k, r.deps())
	require.NoError(t, err)
	return h
}

func testInput() Input {
	return Input{
		Email: models.Email{
			MessageID: "<m1@example.com>",
			From:      models.EmailAddress{Address: "no-reply@example.com", Name: "Example"},
			Subject:   "Test subject",
			Text:      "body",
		},
		Debug: models.DebugInfo{
			Category:  "other",
			Start:     fixedNow.Add(-1500 * time.Millisecond),
			MessageID: "<m1@example.com>",
		},
	}
}

// --- lifecycle ---

func TestNew_EveryKind(t *testing.T) {
	r := newRig("")
	seen := map[string]bool{}
	for k := Kind(0); k < NumKinds; k++ {
		h, err := New(k, r.deps())
		require.NoError(t, err, "kind %d", k)
		assert.Equal(t, k.String(), h.Name())
		assert.False(t, seen[h.Name()], "duplicate handler name %s", h.Name())
		seen[h.Name()] = true
	}

	_, err := New(NumKinds, r.deps())
	assert.Error(t, err)
}

func TestHandle_ExtractFailureSendsNothing(t *testing.T) {
	r := newRig(`{"service":"Google"}`) // code missing
	err := r.handler(t, KindVerification).Handle(context.Background(), testInput())

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtractFailed, se.Stage)
	assert.Equal(t, "verification", se.Handler)

	var pe *errs.ParseError
	assert.ErrorAs(t, err, &pe)

	assert.Empty(t, r.chat.msgs)
	assert.Empty(t, r.push.sent)
}

func TestHandle_QueryFailure(t *testing.T) {
	r := newRig("")
	r.llm.err = &errs.TimeoutError{Op: "gemini", Err: context.DeadlineExceeded}

	err := r.handler(t, KindSummarize).Handle(context.Background(), testInput())

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtractFailed, se.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, r.chat.msgs)
}

func TestHandle_DomainKnowledgeAndFooter(t *testing.T) {
	r := newRig(`{"summarized_title":"Weekly digest","summary":"*Rates* are up","unsubscribe_url":"https://example.com/unsub"}`)
	in := testInput()
	in.DomainKnowledge = []string{"personal finance", "mortgages"}

	require.NoError(t, r.handler(t, KindSummarize).Handle(context.Background(), in))

	require.Len(t, r.llm.reqs, 1)
	req := r.llm.reqs[0]
	assert.Contains(t, req.System, "You have expertise in the following areas:\n- personal finance\n- mortgages")
	assert.Contains(t, req.User, "Subject: Test subject")
	assert.Equal(t, "SummarizeResponse", req.SchemaName)

	require.Len(t, r.chat.msgs, 1)
	msg := r.chat.msgs[0]
	assert.Equal(t, "Weekly digest", msg.Title)
	assert.Equal(t, "Example <no-reply@example.com>", msg.Sender)
	assert.Contains(t, msg.Body, "*Rates* are up")
	assert.Contains(t, msg.Body, "[Unsubscribe](https://example.com/unsub)")
	assert.Equal(t, "model: gemini-2.5-flash | category: other | took: 1.5s | id: <m1@example.com>", msg.Footer)
}

func TestHandle_FooterKeepsTriageModel(t *testing.T) {
	r := newRig(`{"summarized_title":"Weekly digest","summary":"ok","unsubscribe_url":""}`)
	in := testInput()
	in.Debug = in.Debug.WithModel("gemini-2.5-flash-lite")

	require.NoError(t, r.handler(t, KindSummarize).Handle(context.Background(), in))
	require.Len(t, r.chat.msgs, 1)
	assert.Contains(t, r.chat.msgs[0].Footer, "model: gemini-2.5-flash-lite, gemini-2.5-flash | ")
}

func TestHandle_SummaryTitleFallsBackToSubject(t *testing.T) {
	r := newRig(`{"summarized_title":" ","summary":"x","unsubscribe_url":""}`)
	require.NoError(t, r.handler(t, KindSummarize).Handle(context.Background(), testInput()))
	require.Len(t, r.chat.msgs, 1)
	assert.Equal(t, "Test subject", r.chat.msgs[0].Title)
	assert.NotContains(t, r.chat.msgs[0].Body, "Unsubscribe")
}

func TestHandle_ChatFailureIsSendFailed(t *testing.T) {
	r := newRig(`{"summary":"Your order shipped."}`)
	r.chat.err = errors.New("telegram down")

	err := r.handler(t, KindNotification).Handle(context.Background(), testInput())

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageSendFailed, se.Stage)
}

// --- variants ---

func TestVerification_PushesAndChats(t *testing.T) {
	r := newRig(`{"service":"Google","code":"123456","account_name":"me@example.com","additional_notes":["Expires in 10 minutes."]}`)
	require.NoError(t, r.handler(t, KindVerification).Handle(context.Background(), testInput()))

	require.Len(t, r.push.sent, 1)
	assert.Equal(t, "Google", r.push.sent[0].title)
	assert.Equal(t, "Google: 123456", r.push.sent[0].message)

	require.Len(t, r.chat.msgs, 1)
	msg := r.chat.msgs[0]
	assert.Equal(t, "🔑 Google verification code for me@example.com", msg.Title)
	assert.Contains(t, msg.Body, "Google: `123456`")
	assert.Contains(t, msg.Body, "• Expires in 10 minutes\\.")
}

func TestVerification_MissingPushSinkStillChats(t *testing.T) {
	r := newRig(`{"service":"Google","code":"123456","account_name":"","additional_notes":[]}`)
	d := r.deps()
	d.Push = nil

	err := newVerification(d).Handle(context.Background(), testInput())

	var ce *errs.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "PUSHOVER_API_KEY", ce.Key)
	assert.Len(t, r.chat.msgs, 1)
}

func TestNotification_IsBrief(t *testing.T) {
	r := newRig(`{"summary":"Your password was changed."}`)
	require.NoError(t, r.handler(t, KindNotification).Handle(context.Background(), testInput()))
	require.Len(t, r.chat.msgs, 1)
	assert.True(t, r.chat.msgs[0].Brief)
	assert.Equal(t, "Your password was changed\\.", r.chat.msgs[0].Body)
}

func TestPromotion(t *testing.T) {
	item := func(verdict string) string {
		return `{"promoted_item":"Laptop","item_description":"","deal":["20% off"],"pros":[],"cons":[],"thoughts":[],"verdict":"` + verdict + `"}`
	}
	tests := []struct {
		name     string
		items    []string
		wantChat bool
	}{
		{"one recommended", []string{item(VerdictNotRecommended), item(VerdictRecommended)}, true},
		{"neutral", []string{item(VerdictNeutral)}, true},
		{"all bad", []string{item(VerdictNotRecommended), item(VerdictNotInformative)}, false},
		{"no items", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(`{"vendor":"Acme","items":[` + strings.Join(tt.items, ",") + `],"general_terms":[],"additional_notes":[]}`)
			require.NoError(t, r.handler(t, KindPromotion).Handle(context.Background(), testInput()))

			require.Len(t, r.push.sent, 1, "promotions always push")
			assert.Equal(t, "💰 Acme", r.push.sent[0].title)
			if tt.wantChat {
				assert.Len(t, r.chat.msgs, 1)
			} else {
				assert.Empty(t, r.chat.msgs)
			}
		})
	}
}

func TestLegal_UsesReasoningModel(t *testing.T) {
	r := newRig(`{"document_type":"Terms of Service","summary":"New arbitration clause.","changes":["Arbitration"],"impact":"You waive class actions.","recommendation":"Opt out by June 1."}`)
	require.NoError(t, r.handler(t, KindLegal).Handle(context.Background(), testInput()))

	require.Len(t, r.llm.reqs, 1)
	assert.True(t, r.llm.reqs[0].Reasoning)
	require.Len(t, r.chat.msgs, 1)
	assert.Equal(t, "⚖️ Legal Update: Terms of Service", r.chat.msgs[0].Title)
	assert.Len(t, r.push.sent, 1)
}

const flightJSON = `{
  "passenger_name": "Ada Lovelace",
  "trips": [{
    "confirmation_code": "ABC123",
    "flight_class": "Economy",
    "segments": [
      {"airline_name":"United","flight_number":"UA 100","seat_number":"12A",
       "departure_time":"2026-05-10T08:00:00-07:00","departure_timezone":"America/Los_Angeles",
       "departure_city":"San Francisco","departure_iata_code":"SFO","departure_terminal":"3","departure_gate":"",
       "arrival_time":"2026-05-10T16:30:00-04:00","arrival_timezone":"America/New_York",
       "arrival_city":"Newark","arrival_iata_code":"EWR","arrival_terminal":"C","arrival_gate":""},
      {"airline_name":"United","flight_number":"UA 200","seat_number":"",
       "departure_time":"2026-05-10T18:00:00-04:00","departure_timezone":"America/New_York",
       "departure_city":"Newark","departure_iata_code":"EWR","departure_terminal":"C","departure_gate":"",
       "arrival_time":"2026-05-10T19:30:00-04:00","arrival_timezone":"America/New_York",
       "arrival_city":"Boston","arrival_iata_code":"BOS","arrival_terminal":"","arrival_gate":""}
    ]
  }],
  "additional_notes": []
}`

func TestFlight_CreatesEventPerSegment(t *testing.T) {
	r := newRig(flightJSON)
	require.NoError(t, r.handler(t, KindFlight).Handle(context.Background(), testInput()))

	require.Len(t, r.calendar.events, 2)
	for _, ev := range r.calendar.events {
		require.NotNil(t, ev.Reminders)
		assert.Len(t, ev.Reminders.Overrides, 2)
	}

	require.Len(t, r.chat.msgs, 1)
	msg := r.chat.msgs[0]
	assert.Equal(t, "✈️ Ada Lovelace: San Francisco ➔ Boston", msg.Title)
	assert.Contains(t, msg.Body, "Layover in Newark: 1h 30m")
	assert.Contains(t, msg.Body, "1 layover\n")
	assert.Contains(t, msg.Body, "Added 2 events to the calendar.")
}

func TestFlight_CalendarFailureNotedAndReturned(t *testing.T) {
	r := newRig(flightJSON)
	r.calendar.failOn = "Boston"

	err := r.handler(t, KindFlight).Handle(context.Background(), testInput())

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageSendFailed, se.Stage)

	assert.Len(t, r.calendar.events, 1)
	require.Len(t, r.chat.msgs, 1, "chat still goes out")
	assert.Contains(t, r.chat.msgs[0].Body, `Calendar update failed \(1 of 2 added\)`)
}

func TestBill(t *testing.T) {
	base := `"to_whom":"Citi Bank","bill_account":"Ada (ada@example.com)","bill_date":"2026-05-20","bill_amount":1234.5,"bill_currency":"USD","what_for":"Credit card","card_last4":"","additional_notes":["Minimum payment $35"]`

	t.Run("pending with reminder", func(t *testing.T) {
		r := newRig(`{"bill_status":"pending",` + base + `,"reminder":{"title":"[Citi Bank] 1234.50 USD","date":"2026-05-20"}}`)
		require.NoError(t, r.handler(t, KindBill).Handle(context.Background(), testInput()))

		require.Len(t, r.calendar.events, 1)
		ev := r.calendar.events[0]
		assert.Equal(t, "💸 [Citi Bank] 1234.50 USD", ev.Summary)
		assert.Equal(t, "2026-05-20", ev.Start.Date)
		assert.Equal(t, "2026-05-21", ev.End.Date)
		assert.Equal(t, billReminderMinutes, ev.Reminders.Overrides[0].Minutes)

		require.Len(t, r.chat.msgs, 1)
		msg := r.chat.msgs[0]
		assert.Equal(t, "💸 Citi Bank: Credit card", msg.Title)
		assert.Contains(t, msg.Body, `$1234\.50`)
		assert.Contains(t, msg.Body, "Reminder added to the calendar.")
	})

	t.Run("paid has no reminder", func(t *testing.T) {
		r := newRig(`{"bill_status":"paid",` + base + `,"reminder":null}`)
		require.NoError(t, r.handler(t, KindBill).Handle(context.Background(), testInput()))
		assert.Empty(t, r.calendar.events)
		require.Len(t, r.chat.msgs, 1)
		assert.NotContains(t, r.chat.msgs[0].Body, "Reminder")
	})

	t.Run("no calendar configured", func(t *testing.T) {
		r := newRig(`{"bill_status":"requested",` + base + `,"reminder":{"title":"","date":"2026-05-20"}}`)
		d := r.deps()
		d.Calendar = nil

		err := newBill(d).Handle(context.Background(), testInput())

		var ce *errs.ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "GOOGLE_SERVICE_ACCOUNT_JSON_KEY", ce.Key)
		assert.Len(t, r.chat.msgs, 1)
	})
}

func TestTracking(t *testing.T) {
	r := newRig(`{"store_name":"Acme","item_name":"Headphones","order_id":"112-1","order_url":"","tracking_number":"1Z999","status":"Shipped","total_amount":0,"currency":"","recipient_name":"","destination_city":"Brooklyn","destination_state":"NY"}`)
	require.NoError(t, r.handler(t, KindTracking).Handle(context.Background(), testInput()))
	require.Len(t, r.chat.msgs, 1)
	msg := r.chat.msgs[0]
	assert.Equal(t, "[Acme] Headphones: Shipped", msg.Title)
	assert.Contains(t, msg.Body, "(https://www.17track.net/en/track?nums=1Z999)")
	assert.Contains(t, msg.Body, "query=Brooklyn%2C+NY")
	assert.NotContains(t, msg.Body, "Total")
}

func TestHotel(t *testing.T) {
	r := newRig(`{"hotel_name":"Grand Hotel","room_type":"King","check_in_date":"2026-06-01","check_in_time":"15:00","check_out_date":"2026-06-03","check_out_time":"11:00","timezone":"Europe/Paris","address":"1 Rue de Rivoli, Paris","confirmation_code":"H-1","guest_name":"Ada","number_of_guests":2,"total_amount":500,"currency":"EUR","cancellation_policy":"","additional_notes":[]}`)
	require.NoError(t, r.handler(t, KindHotel).Handle(context.Background(), testInput()))
	require.Len(t, r.chat.msgs, 1)
	msg := r.chat.msgs[0]
	assert.Equal(t, "🏨 Ada: Grand Hotel", msg.Title)
	assert.Contains(t, msg.Body, "https://maps.google.com/?q=1+Rue+de+Rivoli%2C+Paris")
	assert.Contains(t, msg.Body, "(2 guests)")
	assert.Empty(t, r.calendar.events)
}

const eventJSON = `{"name":"Jazz night","start_time":"2026-05-15T20:00:00-04:00","end_time":"","timezone":"America/New_York","location":"Blue Note","description":"Live trio","organizer":""}`

func TestEvent_StoresAndOffersButton(t *testing.T) {
	r := newRig(eventJSON)
	require.NoError(t, r.handler(t, KindEvent).Handle(context.Background(), testInput()))

	require.Len(t, r.events.stored, 1)
	var id string
	var ev models.CalendarEvent
	for k, v := range r.events.stored {
		id, ev = k, v
	}
	assert.Equal(t, "Jazz night", ev.Summary)
	assert.Equal(t, ev.Start.DateTime, ev.End.DateTime, "end defaults to start")

	require.Len(t, r.chat.msgs, 1)
	msg := r.chat.msgs[0]
	assert.Equal(t, "🗓️ Jazz night", msg.Title)
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, "Add to Calendar", msg.Buttons[0].Text)
	assert.Equal(t, CallbackAddToCalendar+id, msg.Buttons[0].CallbackData)
	assert.Empty(t, r.calendar.events, "nothing is inserted until the button is pressed")
}

func TestEvent_StoreFailureDropsButton(t *testing.T) {
	r := newRig(eventJSON)
	r.events.err = errors.New("redis down")

	err := r.handler(t, KindEvent).Handle(context.Background(), testInput())
	require.Error(t, err)

	require.Len(t, r.chat.msgs, 1)
	assert.Empty(t, r.chat.msgs[0].Buttons)
	assert.Contains(t, r.chat.msgs[0].Body, "Could not save the event")
}

func TestWithDomainKnowledge(t *testing.T) {
	assert.Equal(t, "prompt", withDomainKnowledge("prompt", nil))
	assert.Equal(t, "prompt\n\nYou have expertise in the following areas:\n- tax\n",
		withDomainKnowledge("prompt\n", []string{"tax"}))
}
