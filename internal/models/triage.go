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

package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Category is the closed set of triage outcomes.
type Category int

const (
	CategoryFlight Category = iota
	CategoryStay
	CategoryTrain
	CategoryTransportation
	CategoryExperience
	CategoryEvent
	CategoryBill
	CategoryPromotion
	CategoryLegal
	CategoryVerification
	CategoryNewsletter
	CategoryTracking
	CategoryNotification
	CategoryScam
	CategoryOffer
	CategoryActionable
	CategoryOther

	// NumCategories must stay last.
	NumCategories
)

var categoryNames = [NumCategories]string{
	CategoryFlight:         "flight",
	CategoryStay:           "stay",
	CategoryTrain:          "train",
	CategoryTransportation: "transportation",
	CategoryExperience:     "experience",
	CategoryEvent:          "event",
	CategoryBill:           "bill",
	CategoryPromotion:      "promotion",
	CategoryLegal:          "legal",
	CategoryVerification:   "verification",
	CategoryNewsletter:     "newsletter",
	CategoryTracking:       "tracking",
	CategoryNotification:   "notification",
	CategoryScam:           "scam",
	CategoryOffer:          "offer",
	CategoryActionable:     "actionable",
	CategoryOther:          "other",
}

func (c Category) String() string {
	if c < 0 || c >= NumCategories {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// CategoryNames lists every category name in enum order.
func CategoryNames() []string {
	out := make([]string, NumCategories)
	copy(out, categoryNames[:])
	return out
}

// ParseCategory maps a triage label to its Category. Unknown labels are an
// error; there is no default category.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// TriageResult is the single classification produced for one email.
type TriageResult struct {
	Category        Category
	DomainKnowledge []string
	CleanedBody     string
	ShouldDrop      bool
}

// DebugInfo travels with an email through the pipeline and is rendered as a
// footer on outbound messages. It is a value type; the With methods return
// modified copies so concurrent handlers never share state.
type DebugInfo struct {
	ModelID   string
	Category  string
	Start     time.Time
	MessageID string
}

// WithModel returns a copy with modelID appended to the models already
// recorded, so the footer names every model that touched the email.
func (d DebugInfo) WithModel(modelID string) DebugInfo {
	switch {
	case modelID == "":
	case d.ModelID == "":
		d.ModelID = modelID
	case !slices.Contains(strings.Split(d.ModelID, ", "), modelID):
		d.ModelID += ", " + modelID
	}
	return d
}

// WithCategory returns a copy with the category set.
func (d DebugInfo) WithCategory(category string) DebugInfo {
	d.Category = category
	return d
}

// Footer renders the debug line appended to outbound messages.
func (d DebugInfo) Footer(now time.Time) string {
	parts := make([]string, 0, 4)
	if d.ModelID != "" {
		parts = append(parts, "model: "+d.ModelID)
	}
	if d.Category != "" {
		parts = append(parts, "category: "+d.Category)
	}
	if !d.Start.IsZero() {
		parts = append(parts, fmt.Sprintf("took: %.1fs", now.Sub(d.Start).Seconds()))
	}
	if d.MessageID != "" {
		parts = append(parts, "id: "+d.MessageID)
	}
	return strings.Join(parts, " | ")
}
