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

package triage

import (
	"fmt"
	"strings"

	"github.com/bcem/butler/internal/models"
)

var categoryHints = map[models.Category]string{
	models.CategoryFlight:         "flight booking, itinerary or change",
	models.CategoryStay:           "hotel, rental or other lodging reservation",
	models.CategoryTrain:          "train ticket or schedule change",
	models.CategoryTransportation: "ride share, bus, ferry, car rental",
	models.CategoryExperience:     "tour, restaurant booking, activity",
	models.CategoryEvent:          "concert, show, meetup, appointment with a date",
	models.CategoryBill:           "upcoming payment, statement, receipt, invoice",
	models.CategoryPromotion:      "discount, sale, marketing offer",
	models.CategoryLegal:          "terms of service, privacy policy, legal notice",
	models.CategoryVerification:   "one-time code, sign-in link, email confirmation",
	models.CategoryNewsletter:     "news digest, blog or newsletter",
	models.CategoryTracking:       "shipment, delivery or order status",
	models.CategoryNotification:   "account change confirmation, alert, status update",
	models.CategoryScam:           "phishing or fraudulent message",
	models.CategoryOffer:          "job or business offer",
	models.CategoryActionable:     "something I must do, such as a security setup or a reply",
	models.CategoryOther:          "anything else",
}

const promptHeader = `You triage my inbox. You receive one email at a time and answer with a
single JSON object, without Markdown fences, containing:

- category: exactly one of
%s
- domain_knowledge: short topics an expert would need to understand this
  email well (for example "US airline fare classes", "credit card rewards").
- cleaned_body: the email body proofread as plain text. Remove tracking
  boilerplate, footers and repeated whitespace. Keep every fact, date,
  amount, code and link. No Markdown.
- should_drop: true only when the email is worthless to me (obvious spam,
  scams, duplicate marketing). Verification codes, bills, travel and legal
  notices are never dropped.`

func systemPrompt() string {
	var lines []string
	for c := models.Category(0); c < models.NumCategories; c++ {
		lines = append(lines, fmt.Sprintf("  - %q (%s)", c.String(), categoryHints[c]))
	}
	return fmt.Sprintf(promptHeader, strings.Join(lines, "\n"))
}
