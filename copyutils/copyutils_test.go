// Copyright (c) 2021 - The Event Horizon authors.
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

package copyutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	At    time.Time
	Items []string
}

type value struct {
	Name   string
	At     time.Time
	Nested nested
	Ptr    *nested
	Map    map[string]nested
}

func TestDeepCopy(t *testing.T) {
	at := time.Date(2024, time.May, 10, 23, 0, 0, 0, time.UTC)
	from := &value{
		Name:   "v",
		At:     at,
		Nested: nested{At: at, Items: []string{"a"}},
		Ptr:    &nested{At: at, Items: []string{"b"}},
		Map:    map[string]nested{"k": {At: at, Items: []string{"c"}}},
	}

	to := &value{}
	require.NoError(t, DeepCopy(to, from))
	assert.Equal(t, from, to)

	// Nothing is shared.
	from.Nested.Items[0] = "changed"
	from.Ptr.Items[0] = "changed"
	from.Map["k"].Items[0] = "changed"

	assert.Equal(t, "a", to.Nested.Items[0])
	assert.Equal(t, "b", to.Ptr.Items[0])
	assert.Equal(t, "c", to.Map["k"].Items[0])
	assert.True(t, to.Nested.At.Equal(at))
}
