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

package eventstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mocks"
)

// AcceptanceTest is the acceptance test that all implementations of EventStore
// should pass. It should manually be called from a test case in each
// implementation:
//
//	func TestEventStore(t *testing.T) {
//	    store := NewEventStore()
//	    eventstore.AcceptanceTest(t, store, context.Background())
//	}
func AcceptanceTest(t *testing.T, store recall.EventStore, ctx context.Context) []recall.Event {
	savedEvents := []recall.Event{}

	// Save no events.
	eventStoreErr := &recall.EventStoreError{}

	err := store.Save(ctx, []recall.Event{}, 0)
	if !errors.As(err, &eventStoreErr) || !errors.Is(err, recall.ErrMissingEvents) {
		t.Error("there should be a event store error:", err)
	}

	// Save event, version 1.
	id := uuid.NewString()
	timestamp := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)
	data1 := &mocks.EventData{Content: "event1"}
	event1 := recall.NewEvent(mocks.EventType, data1, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 1))

	err = store.Save(ctx, []recall.Event{event1}, 0)
	if err != nil {
		t.Error("there should be no error:", err)
	}

	savedEvents = append(savedEvents, event1)

	// Try to save same event twice.
	err = store.Save(ctx, []recall.Event{event1}, 1)
	if !errors.As(err, &eventStoreErr) || !errors.Is(err, recall.ErrIncorrectEventVersion) {
		t.Error("there should be a event store error:", err)
	}

	// Try to save a new event based on a stale version.
	stale := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "stale"}, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 1))

	err = store.Save(ctx, []recall.Event{stale}, 0)
	if !errors.As(err, &eventStoreErr) || !errors.Is(err, recall.ErrConcurrencyConflict) {
		t.Error("there should be a concurrency conflict:", err)
	}

	// Save event, version 2, with metadata.
	event2 := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event2"}, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 2),
		recall.WithMetadata(map[string]interface{}{"meta": "data", "num": 42.0}),
	)

	err = store.Save(ctx, []recall.Event{event2}, 1)
	if err != nil {
		t.Error("there should be no error:", err)
	}

	savedEvents = append(savedEvents, event2)

	// Save event without data, version 3.
	event3 := recall.NewEvent(mocks.EventOtherType, nil, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 3))

	err = store.Save(ctx, []recall.Event{event3}, 2)
	if err != nil {
		t.Error("there should be no error:", err)
	}

	savedEvents = append(savedEvents, event3)

	// Save multiple events, version 4,5 and 6.
	event4 := recall.NewEvent(mocks.EventOtherType, nil, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 4))
	event5 := recall.NewEvent(mocks.EventOtherType, nil, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 5))
	event6 := recall.NewEvent(mocks.EventOtherType, nil, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 6), recall.WithSchemaVersion("2"))

	err = store.Save(ctx, []recall.Event{event4, event5, event6}, 3)
	if err != nil {
		t.Error("there should be no error:", err)
	}

	savedEvents = append(savedEvents, event4, event5, event6)

	// Save event for different aggregate IDs.
	eventSameAggID := recall.NewEvent(mocks.EventOtherType, nil, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 7))
	eventOtherAggID := recall.NewEvent(mocks.EventOtherType, nil, timestamp,
		recall.ForAggregate(mocks.AggregateType, uuid.NewString(), 8))

	err = store.Save(ctx, []recall.Event{eventSameAggID, eventOtherAggID}, 6)
	if !errors.As(err, &eventStoreErr) || !errors.Is(err, recall.ErrMismatchedEventAggregateIDs) {
		t.Error("there should be a event store error:", err)
	}

	// Save event of different aggregate types.
	eventSameAggType := recall.NewEvent(mocks.EventOtherType, nil, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 7))
	eventOtherAggType := recall.NewEvent(mocks.EventOtherType, nil, timestamp,
		recall.ForAggregate(mocks.OtherAggregateType, id, 8))

	err = store.Save(ctx, []recall.Event{eventSameAggType, eventOtherAggType}, 6)
	if !errors.As(err, &eventStoreErr) || !errors.Is(err, recall.ErrMismatchedEventAggregateTypes) {
		t.Error("there should be a event store error:", err)
	}

	// Save event for another aggregate.
	id2 := uuid.NewString()
	event7 := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event7"}, timestamp,
		recall.ForAggregate(mocks.AggregateType, id2, 1))

	err = store.Save(ctx, []recall.Event{event7}, 0)
	if err != nil {
		t.Error("there should be no error:", err)
	}

	savedEvents = append(savedEvents, event7)

	// Changing the data after saving must not change the stored event.
	data1.Content = "changed"
	defer func() { data1.Content = "event1" }()

	// Load events for non-existing aggregate.
	events, err := store.Load(ctx, uuid.NewString())
	if !errors.As(err, &eventStoreErr) || !errors.Is(err, recall.ErrAggregateNotFound) {
		t.Error("there should be a not found error:", err)
	}

	if len(events) != 0 {
		t.Error("there should be no loaded events:", eventsToString(events))
	}

	// Load events.
	events, err = store.Load(ctx, id)
	if err != nil {
		t.Error("there should be no error:", err)
	}

	expectedEvents := []recall.Event{
		recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event1"}, timestamp,
			recall.ForAggregate(mocks.AggregateType, id, 1)), // Version 1
		event2,                 // Version 2
		event3,                 // Version 3
		event4, event5, event6, // Version 4, 5 and 6
	}

	if len(events) != len(expectedEvents) {
		t.Errorf("incorrect number of loaded events: %d", len(events))
	}

	for i, event := range events {
		if i >= len(expectedEvents) {
			break
		}

		if err := recall.CompareEvents(event, expectedEvents[i],
			recall.IgnorePositionMetadata(),
		); err != nil {
			t.Error("the event was incorrect:", err)
		}

		if event.Version() != i+1 {
			t.Error("the event version should be correct:", event, event.Version())
		}
	}

	// Load events for another aggregate.
	events, err = store.Load(ctx, id2)
	if err != nil {
		t.Error("there should be no error:", err)
	}

	if assert.Len(t, events, 1) {
		assert.NoError(t, recall.CompareEvents(events[0], event7, recall.IgnorePositionMetadata()))
	}

	return savedEvents
}

// ConcurrencyAcceptanceTest saves events from several goroutines that all use
// the same expected version. Exactly one of them must succeed, all others must
// fail with a concurrency conflict.
func ConcurrencyAcceptanceTest(t *testing.T, store recall.EventStore, ctx context.Context) {
	const writers = 8

	id := uuid.NewString()
	timestamp := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)

	first := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "first"}, timestamp,
		recall.ForAggregate(mocks.AggregateType, id, 1))
	if err := store.Save(ctx, []recall.Event{first}, 0); err != nil {
		t.Fatal("there should be no error:", err)
	}

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			event := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: fmt.Sprint("writer", i)}, timestamp,
				recall.ForAggregate(mocks.AggregateType, id, 2))

			<-start

			err := store.Save(ctx, []recall.Event{event}, 1)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				successes++
			case errors.Is(err, recall.ErrConcurrencyConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one writer should succeed")
	assert.Equal(t, writers-1, conflicts, "all other writers should conflict")
	assert.Empty(t, others)

	events, err := store.Load(ctx, id)
	if assert.NoError(t, err) {
		assert.Len(t, events, 2)
	}
}

func eventsToString(events []recall.Event) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = fmt.Sprintf("%s:%s (%s@%d)",
			e.AggregateType(), e.EventType(),
			e.AggregateID(), e.Version())
	}

	return strings.Join(parts, ", ")
}
