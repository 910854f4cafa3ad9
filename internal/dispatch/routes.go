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

package dispatch

import (
	"github.com/bcem/butler/internal/handlers"
	"github.com/bcem/butler/internal/models"
)

// routes maps each category to the handlers it runs, in order. The table is
// positional: entry i belongs to models.Category(i).
var routes = [...][]handlers.Kind{
	models.CategoryFlight:         {handlers.KindFlight},
	models.CategoryStay:           {handlers.KindHotel},
	models.CategoryTrain:          {handlers.KindSummarize},
	models.CategoryTransportation: {handlers.KindSummarize},
	models.CategoryExperience:     {handlers.KindSummarize},
	models.CategoryEvent:          {handlers.KindEvent},
	models.CategoryBill:           {handlers.KindBill},
	models.CategoryPromotion:      {handlers.KindPromotion},
	models.CategoryLegal:          {handlers.KindLegal},
	models.CategoryVerification:   {handlers.KindVerification},
	models.CategoryNewsletter:     {handlers.KindSummarize},
	models.CategoryTracking:       {handlers.KindTracking},
	models.CategoryNotification:   {handlers.KindNotification},
	models.CategoryScam:           {handlers.KindNotification},
	models.CategoryOffer:          {handlers.KindSummarize},
	models.CategoryActionable:     {handlers.KindSummarize},
	models.CategoryOther:          {handlers.KindSummarize},
}

// A category appended to the enum without a route fails to compile here.
// Gaps elsewhere in the table are caught by TestRoutes_EveryCategoryHasHandlers.
var _ = [1]struct{}{}[len(routes)-int(models.NumCategories)]

// Route returns the handler kinds for a category, or nil for a value outside
// the enumeration.
func Route(c models.Category) []handlers.Kind {
	if c < 0 || int(c) >= len(routes) {
		return nil
	}
	return routes[c]
}
