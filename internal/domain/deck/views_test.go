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

package deck

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplab/recall"
	"github.com/looplab/recall/eventhandler/projector"
	"github.com/looplab/recall/viewstore/memory"
)

func TestViewProjector(t *testing.T) {
	ctx := context.Background()
	store := memory.NewViewStore()

	h, err := projector.NewEventHandler[*View](&ViewProjector{}, store,
		projector.WithIdempotentVersions())
	require.NoError(t, err)

	ts := time.Date(2024, time.May, 10, 23, 0, 0, 0, time.UTC)
	hond := Content{Dutch: "hond", English: "dog"}
	kat := Content{Dutch: "kat", English: "cat"}

	batch := []recall.Event{
		recall.NewEvent(DeckCreated, &DeckCreatedData{Name: "D1"}, ts,
			recall.ForAggregate(AggregateType, "deck-1", 1)),
		recall.NewEvent(FlashcardAdded, &FlashcardAddedData{ID: "card-1", Content: hond}, ts,
			recall.ForAggregate(AggregateType, "deck-1", 2)),
		recall.NewEvent(FlashcardAdded, &FlashcardAddedData{ID: "card-2", Content: hond}, ts,
			recall.ForAggregate(AggregateType, "deck-1", 3)),
	}
	require.NoError(t, h.HandleEvents(ctx, "deck-1", batch))

	// Redelivery of the same batch is ignored.
	require.NoError(t, h.HandleEvents(ctx, "deck-1", batch))

	later := ts.Add(time.Hour)
	require.NoError(t, h.HandleEvents(ctx, "deck-1", []recall.Event{
		recall.NewEvent(FlashcardContentUpdated, &FlashcardContentUpdatedData{ID: "card-2", Content: kat}, later,
			recall.ForAggregate(AggregateType, "deck-1", 4)),
		recall.NewEvent(FlashcardRemoved, &FlashcardRemovedData{ID: "card-1"}, later,
			recall.ForAggregate(AggregateType, "deck-1", 5)),
	}))

	v, vc, err := store.LoadWithContext(ctx, "deck-1")
	require.NoError(t, err)
	assert.Equal(t, 5, vc.Version)
	assert.Equal(t, &View{
		ID:         "deck-1",
		Name:       "D1",
		Flashcards: []Flashcard{{ID: "card-2", Content: kat}},
		CreatedAt:  ts,
		UpdatedAt:  later,
	}, v)

	card, ok := v.(*View).Flashcard("card-2")
	assert.True(t, ok)
	assert.Equal(t, kat, card.Content)

	require.NoError(t, h.HandleEvents(ctx, "deck-1", []recall.Event{
		recall.NewEvent(DeckDeleted, &DeckDeletedData{FlashcardIDs: []string{"card-2"}}, later,
			recall.ForAggregate(AggregateType, "deck-1", 6)),
	}))

	v, err = store.Load(ctx, "deck-1")
	require.NoError(t, err)
	assert.True(t, v.(*View).Deleted)
	assert.Empty(t, v.(*View).Flashcards)
}

func TestListProjector(t *testing.T) {
	ctx := context.Background()
	store := memory.NewViewStore()

	h, err := projector.NewEventHandler[*ListView](&ListProjector{}, store,
		projector.WithViewIDStrategy(projector.Collection("")))
	require.NoError(t, err)

	ts := time.Date(2024, time.May, 10, 23, 0, 0, 0, time.UTC)

	require.NoError(t, h.HandleEvents(ctx, "deck-1", []recall.Event{
		recall.NewEvent(DeckCreated, &DeckCreatedData{Name: "D1"}, ts,
			recall.ForAggregate(AggregateType, "deck-1", 1)),
		recall.NewEvent(FlashcardAdded, &FlashcardAddedData{ID: "card-1"}, ts,
			recall.ForAggregate(AggregateType, "deck-1", 2)),
		recall.NewEvent(FlashcardAdded, &FlashcardAddedData{ID: "card-2"}, ts,
			recall.ForAggregate(AggregateType, "deck-1", 3)),
		recall.NewEvent(FlashcardRemoved, &FlashcardRemovedData{ID: "card-2"}, ts,
			recall.ForAggregate(AggregateType, "deck-1", 4)),
	}))
	require.NoError(t, h.HandleEvents(ctx, "deck-2", []recall.Event{
		recall.NewEvent(DeckCreated, &DeckCreatedData{Name: "D2"}, ts,
			recall.ForAggregate(AggregateType, "deck-2", 1)),
		recall.NewEvent(DeckRenamed, &DeckRenamedData{Name: "D3"}, ts,
			recall.ForAggregate(AggregateType, "deck-2", 2)),
	}))

	v, err := store.Load(ctx, ListViewID)
	require.NoError(t, err)
	assert.Equal(t, map[string]ListEntry{
		"deck-1": {Name: "D1", Cards: 1},
		"deck-2": {Name: "D3"},
	}, v.(*ListView).Decks)

	require.NoError(t, h.HandleEvents(ctx, "deck-1", []recall.Event{
		recall.NewEvent(DeckDeleted, &DeckDeletedData{FlashcardIDs: []string{"card-1"}}, ts,
			recall.ForAggregate(AggregateType, "deck-1", 5)),
	}))

	v, err = store.Load(ctx, ListViewID)
	require.NoError(t, err)
	assert.NotContains(t, v.(*ListView).Decks, "deck-1")
}
