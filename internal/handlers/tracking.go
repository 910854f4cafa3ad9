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
	"fmt"
	"net/url"
	"strings"

	"github.com/bcem/butler/internal/markup"
)

const promptTracking = `You extract key information from shipping and order-status emails.

- store_name: where the item was bought, e.g. "Amazon".
- item_name: the item. Shorten names stuffed with SEO keywords.
- order_id: the order number.
- order_url: the order page URL, or "".
- tracking_number: the carrier tracking number, or "".
- status: e.g. "Shipped", "Delivered", "In Transit".
- total_amount: the order total as a number.
- currency: ISO code such as "USD".
- recipient_name, destination_city, destination_state.

If a field is not present, return an empty string.`

type trackingInfo struct {
	StoreName        string  `json:"store_name"`
	ItemName         string  `json:"item_name"`
	OrderID          string  `json:"order_id"`
	OrderURL         string  `json:"order_url"`
	TrackingNumber   string  `json:"tracking_number"`
	Status           string  `json:"status"`
	TotalAmount      float64 `json:"total_amount"`
	Currency         string  `json:"currency"`
	RecipientName    string  `json:"recipient_name"`
	DestinationCity  string  `json:"destination_city"`
	DestinationState string  `json:"destination_state"`
}

var trackingSchema = object(fields{
	"store_name":        str(),
	"item_name":         str(),
	"order_id":          str(),
	"order_url":         str(),
	"tracking_number":   str(),
	"status":            str(),
	"total_amount":      number(),
	"currency":          str(),
	"recipient_name":    str(),
	"destination_city":  str(),
	"destination_state": str(),
}, "store_name", "item_name", "order_id", "status")

func newTracking(d Deps) *Lifecycle[trackingInfo] {
	return &Lifecycle[trackingInfo]{
		Spec: Spec{
			Name:         KindTracking.String(),
			SystemPrompt: promptTracking,
			Schema:       trackingSchema,
			SchemaName:   "TrackingInfo",
		},
		Format: formatTracking,
		deps:   d,
	}
}

func formatTracking(t trackingInfo, _ Input) Output {
	lines := []string{"- Item: " + markup.Literal(t.ItemName)}

	order := markup.Monospace(markup.Literal(t.OrderID))
	if t.OrderURL != "" {
		order = markup.Link(order, t.OrderURL)
	}
	lines = append(lines, "- Order: "+order)

	if t.TrackingNumber != "" {
		u := "https://www.17track.net/en/track?nums=" + url.QueryEscape(t.TrackingNumber)
		lines = append(lines, "- Tracking: "+markup.Link(markup.Monospace(markup.Literal(t.TrackingNumber)), u))
	}
	lines = append(lines, "- Status: "+markup.Bold(markup.Literal(t.Status)))
	if t.TotalAmount > 0 {
		lines = append(lines, fmt.Sprintf("- Total: %s%.2f", markup.CurrencySymbol(t.Currency), t.TotalAmount))
	}
	if t.RecipientName != "" {
		lines = append(lines, "- To: "+markup.Literal(t.RecipientName))
	}

	dest := strings.Trim(strings.Join([]string{t.DestinationCity, t.DestinationState}, ", "), ", ")
	if dest != "" {
		u := "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(dest)
		lines = append(lines, "- Destination: "+markup.Link(markup.Literal(dest), u))
	}

	return Output{
		Title: fmt.Sprintf("[%s] %s: %s", t.StoreName, t.ItemName, t.Status),
		Body:  strings.Join(lines, "\n"),
	}
}
