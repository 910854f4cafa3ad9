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
	"strings"

	"github.com/bcem/butler/internal/markup"
)

const promptNotification = `You are my personal assistant. The email is a notification. Write one
summary sentence so tight that one word more is too much and one word less
is too little. It must be useful without opening the email.

Examples:
- "OXO peeler has been delivered."
- "Amazon: new login from iPhone in Seattle."
- "Chase: $50.25 charge at STARBUCKS."
- "Venmo: you received $500 from Dee Dong."

Always name the service or product. Include key numbers. Plain text only.`

type notificationInfo struct {
	Summary string `json:"summary"`
}

var notificationSchema = object(fields{
	"summary": str(),
}, "summary")

func newNotification(d Deps) *Lifecycle[notificationInfo] {
	return &Lifecycle[notificationInfo]{
		Spec: Spec{
			Name:         KindNotification.String(),
			SystemPrompt: promptNotification,
			Schema:       notificationSchema,
			SchemaName:   "NotificationInfo",
		},
		Format: formatNotification,
		deps:   d,
	}
}

func formatNotification(n notificationInfo, in Input) Output {
	return Output{
		Title: in.Email.SubjectOrDefault(),
		Body:  markup.Literal(strings.TrimSpace(n.Summary)),
		Brief: true,
	}
}
