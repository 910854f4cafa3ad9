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

package allowlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "me@example.com", Normalize(" Me+Receipts@Example.com "))
	assert.Equal(t, "me@example.com", Normalize("me@example.com"))
}

func TestAllowed(t *testing.T) {
	l := Parse(" me@example.com , *@mybank.com,, alerts+*@shop.com")
	assert.Equal(t, 3, l.Len())

	tests := []struct {
		sender string
		want   bool
	}{
		{"me@example.com", true},
		{"ME@Example.COM", true},
		{"me+newsletters@example.com", true},
		{"you@example.com", false},
		{"statements@mybank.com", true},
		{"statements@mybank.com.evil.io", false},
		{"alerts+orders@shop.com", true},
		{"meexample.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Allowed(tt.sender))
		})
	}
}

func TestAllowed_EmptyListAllowsAll(t *testing.T) {
	assert.True(t, Parse("").Allowed("anyone@anywhere.com"))
	assert.True(t, Parse(" , ").Allowed("anyone@anywhere.com"))

	var l *List
	assert.True(t, l.Allowed("anyone@anywhere.com"))
}

func TestAllowed_DotIsLiteral(t *testing.T) {
	l := Parse("me@example.com")
	assert.False(t, l.Allowed("me@examplexcom"))
}
