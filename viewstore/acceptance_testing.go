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

package viewstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mocks"
)

// AcceptanceTest is the acceptance test that all implementations of ViewStore
// should pass. It should manually be called from a test case in each
// implementation:
//
//	func TestViewStore(t *testing.T) {
//	    store := NewViewStore()
//	    viewstore.AcceptanceTest(t, store, context.Background())
//	}
//
// The store must be able to load views of type *mocks.View.
func AcceptanceTest(t *testing.T, store recall.ViewStore, ctx context.Context) {
	storeErr := &recall.ViewStoreError{}

	// Load a missing view.
	id := uuid.NewString()

	_, err := store.Load(ctx, id)
	if !errors.As(err, &storeErr) || !errors.Is(err, recall.ErrViewNotFound) {
		t.Error("there should be a not found error:", err)
	}

	// Update without ID.
	vc := recall.NewViewContext("", 0)
	vc.Fold()

	err = store.UpdateView(ctx, &mocks.View{Content: "view"}, vc)
	if !errors.As(err, &storeErr) || !errors.Is(err, recall.ErrMissingViewID) {
		t.Error("there should be a missing ID error:", err)
	}

	// Update without view.
	vc = recall.NewViewContext(id, 0)
	vc.Fold()

	err = store.UpdateView(ctx, nil, vc)
	if !errors.As(err, &storeErr) || !errors.Is(err, recall.ErrMissingView) {
		t.Error("there should be a missing view error:", err)
	}

	// Create at version 1.
	view1 := &mocks.View{ID: id, Content: "view1", Items: []string{"a"}}

	err = store.UpdateView(ctx, view1, vc)
	require.NoError(t, err, "there should be no error")

	loaded, loadedVC, err := store.LoadWithContext(ctx, id)
	require.NoError(t, err, "there should be no error")
	assert.Equal(t, view1, loaded)
	assert.Equal(t, id, loadedVC.ViewID)
	assert.Equal(t, 1, loadedVC.Version)

	// Changing a loaded or saved view should not change the stored one.
	loaded.(*mocks.View).Items[0] = "changed"
	view1.Content = "changed"

	loaded, err = store.Load(ctx, id)
	require.NoError(t, err, "there should be no error")
	assert.Equal(t, &mocks.View{ID: id, Content: "view1", Items: []string{"a"}}, loaded)

	// A stale update is rejected.
	stale := recall.NewViewContext(id, 0)
	stale.Fold()

	err = store.UpdateView(ctx, &mocks.View{ID: id, Content: "stale"}, stale)
	if !errors.As(err, &storeErr) || !errors.Is(err, recall.ErrIncorrectViewVersion) ||
		!errors.Is(err, recall.ErrConcurrencyConflict) {
		t.Error("there should be a incorrect version error:", err)
	}

	// Fold two more events.
	loadedVC.Fold()
	loadedVC.Fold()

	err = store.UpdateView(ctx, &mocks.View{ID: id, Content: "view3", Items: []string{"a", "b", "c"}}, loadedVC)
	require.NoError(t, err, "there should be no error")

	loaded, loadedVC, err = store.LoadWithContext(ctx, id)
	require.NoError(t, err, "there should be no error")
	assert.Equal(t, "view3", loaded.(*mocks.View).Content)
	assert.Equal(t, 3, loadedVC.Version)

	// A second view.
	id2 := uuid.NewString()
	vc2 := recall.NewViewContext(id2, 0)
	vc2.Fold()

	err = store.UpdateView(ctx, &mocks.View{ID: id2, Content: "other"}, vc2)
	require.NoError(t, err, "there should be no error")

	all, err := store.FindAll(ctx)
	require.NoError(t, err, "there should be no error")

	var contents []string
	for _, v := range all {
		if mv, ok := v.(*mocks.View); ok && (mv.ID == id || mv.ID == id2) {
			contents = append(contents, mv.Content)
		}
	}

	assert.ElementsMatch(t, []string{"view3", "other"}, contents)

	concurrentUpdates(t, store, ctx)
}

// concurrentUpdates updates one view from several goroutines based on the same
// version, exactly one of them must win.
func concurrentUpdates(t *testing.T, store recall.ViewStore, ctx context.Context) {
	const writers = 8

	id := uuid.NewString()

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			vc := recall.NewViewContext(id, 0)
			vc.Fold()

			<-start

			err := store.UpdateView(ctx, &mocks.View{ID: id, Content: fmt.Sprint("writer", i)}, vc)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				successes++
			case errors.Is(err, recall.ErrIncorrectViewVersion):
				conflicts++
			default:
				t.Error("there should be no other error:", err)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one update should succeed")
	assert.Equal(t, writers-1, conflicts, "all other updates should conflict")

	_, vc, err := store.LoadWithContext(ctx, id)
	if assert.NoError(t, err) {
		assert.Equal(t, 1, vc.Version)
	}
}
