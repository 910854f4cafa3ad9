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

package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/butler/internal/testutil"
)

func TestFilter(t *testing.T) {
	rdb := testutil.NewTestRedis(t)
	f := NewFilter(rdb, 0)
	ctx := context.Background()

	first, err := f.IsNew(ctx, "<abc@mail.example.com>")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := f.IsNew(ctx, "<abc@mail.example.com>")
	require.NoError(t, err)
	assert.False(t, second, "repeat delivery must be reported as seen")

	require.NoError(t, f.Forget(ctx, "<abc@mail.example.com>"))

	third, err := f.IsNew(ctx, "<abc@mail.example.com>")
	require.NoError(t, err)
	assert.True(t, third, "forgotten id must be processed again")
}
