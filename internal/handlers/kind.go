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

	"google.golang.org/genai"
)

// Kind is the closed set of handler variants.
type Kind int

const (
	KindSummarize Kind = iota
	KindFlight
	KindHotel
	KindBill
	KindTracking
	KindLegal
	KindPromotion
	KindNotification
	KindVerification
	KindEvent

	// NumKinds must stay last.
	NumKinds
)

var kindNames = [NumKinds]string{
	KindSummarize:    "summarize",
	KindFlight:       "flight",
	KindHotel:        "hotel",
	KindBill:         "bill",
	KindTracking:     "tracking",
	KindLegal:        "legal",
	KindPromotion:    "promotion",
	KindNotification: "notification",
	KindVerification: "verification",
	KindEvent:        "event",
}

func (k Kind) String() string {
	if k < 0 || k >= NumKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// New builds the handler for kind k.
func New(k Kind, d Deps) (Handler, error) {
	switch k {
	case KindSummarize:
		return newSummarize(d), nil
	case KindFlight:
		return newFlight(d), nil
	case KindHotel:
		return newHotel(d), nil
	case KindBill:
		return newBill(d), nil
	case KindTracking:
		return newTracking(d), nil
	case KindLegal:
		return newLegal(d), nil
	case KindPromotion:
		return newPromotion(d), nil
	case KindNotification:
		return newNotification(d), nil
	case KindVerification:
		return newVerification(d), nil
	case KindEvent:
		return newEvent(d), nil
	}
	return nil, fmt.Errorf("unknown handler kind %d", int(k))
}

// Schema builders.

type fields = map[string]*genai.Schema

func object(props fields, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func strEnum(values ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: values}
}

func number() *genai.Schema  { return &genai.Schema{Type: genai.TypeNumber} }
func integer() *genai.Schema { return &genai.Schema{Type: genai.TypeInteger} }

func arrayOf(items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: items}
}

func stringList() *genai.Schema { return arrayOf(str()) }

func nullable(s *genai.Schema) *genai.Schema {
	t := true
	s.Nullable = &t
	return s
}
