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

package version

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mocks"
	"github.com/looplab/recall/viewstore"
	"github.com/looplab/recall/viewstore/memory"
)

func TestViewStore(t *testing.T) {
	store := NewViewStore(memory.NewViewStore())

	viewstore.AcceptanceTest(t, store, context.Background())
}

func TestViewStore_NoWaitWithoutDeadline(t *testing.T) {
	inner := memory.NewViewStore()
	store := NewViewStore(inner)

	vc := recall.NewViewContext("id", 0)
	vc.Fold()
	require.NoError(t, inner.UpdateView(context.Background(), &mocks.View{ID: "id"}, vc))

	ctx := NewContextWithMinVersion(context.Background(), 2)

	_, err := store.Load(ctx, "id")
	assert.True(t, errors.Is(err, recall.ErrIncorrectViewVersion), "there should be a version error: %v", err)

	ctx = NewContextWithMinVersion(context.Background(), 1)

	v, err := store.Load(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "id", v.(*mocks.View).ID)
}

func TestViewStore_WaitForVersion(t *testing.T) {
	inner := memory.NewViewStore()
	store := NewViewStore(inner)

	go func() {
		time.Sleep(50 * time.Millisecond)

		vc := recall.NewViewContext("id", 0)
		vc.Fold()
		vc.Fold()

		if err := inner.UpdateView(context.Background(), &mocks.View{ID: "id", Content: "v2"}, vc); err != nil {
			t.Error("there should be no error:", err)
		}
	}()

	ctx, cancel := NewContextWithMinVersionWait(context.Background(), 2)
	defer cancel()

	v, vc, err := store.LoadWithContext(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, 2, vc.Version)
	assert.Equal(t, "v2", v.(*mocks.View).Content)
}

func TestViewStore_WaitDeadline(t *testing.T) {
	store := NewViewStore(memory.NewViewStore())

	ctx, cancel := context.WithTimeout(NewContextWithMinVersion(context.Background(), 1), 50*time.Millisecond)
	defer cancel()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
