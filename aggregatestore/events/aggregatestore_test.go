// Copyright (c) 2014 - Max Ekman <max@looplab.se>
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

package events

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kr/pretty"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mocks"
)

func TestNewAggregateStore(t *testing.T) {
	store, err := NewAggregateStore(nil)
	if !errors.Is(err, ErrInvalidEventStore) {
		t.Error("there should be a ErrInvalidEventStore error:", err)
	}

	if store != nil {
		t.Error("there should be no aggregate store:", store)
	}

	store, err = NewAggregateStore(&mocks.EventStore{}, WithEventHandler(nil))
	if err == nil {
		t.Error("there should be an error for a nil handler")
	}

	if store != nil {
		t.Error("there should be no aggregate store:", store)
	}

	store, err = NewAggregateStore(&mocks.EventStore{})
	if err != nil {
		t.Error("there should be no error:", err)
	}

	if store == nil {
		t.Error("there should be a aggregate store")
	}
}

func TestAggregateStore_LoadNoEvents(t *testing.T) {
	store, eventStore, _ := createStore(t)
	eventStore.Err = &recall.EventStoreError{Err: recall.ErrAggregateNotFound}

	agg, err := store.Load(context.Background(), mocks.AggregateType, "id")
	if err != nil {
		t.Fatal("there should be no error:", err)
	}

	a, ok := agg.(VersionedAggregate)
	if !ok {
		t.Fatal("the aggregate should be versioned")
	}

	if a.EntityID() != "id" {
		t.Error("the aggregate ID should be correct: ", a.EntityID())
	}

	if a.AggregateVersion() != 0 {
		t.Error("the version should be 0:", a.AggregateVersion())
	}
}

func TestAggregateStore_LoadEvents(t *testing.T) {
	store, eventStore, _ := createStore(t)

	ctx := context.Background()
	timestamp := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)
	event1 := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event1"}, timestamp,
		recall.ForAggregate(mocks.AggregateType, "id", 1))
	event2 := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event2"}, timestamp,
		recall.ForAggregate(mocks.AggregateType, "id", 2))
	eventStore.Events = []recall.Event{event1, event2}

	loaded, err := store.Load(ctx, mocks.AggregateType, "id")
	if err != nil {
		t.Fatal("there should be no error:", err)
	}

	agg, ok := loaded.(*mocks.Aggregate)
	if !ok {
		t.Fatal("the aggregate should be a mock")
	}

	if agg.AggregateVersion() != 2 {
		t.Error("the version should be 2:", agg.AggregateVersion())
	}

	if !reflect.DeepEqual(agg.Events, []recall.Event{event1, event2}) {
		t.Error("the events should be correct:")
		t.Log(pretty.Sprint(agg.Events))
	}

	// Store error.
	eventStore.Err = errors.New("error")

	_, err = store.Load(ctx, mocks.AggregateType, "id")

	var storeErr *recall.AggregateStoreError
	if !errors.As(err, &storeErr) || storeErr.Err.Error() != "error" {
		t.Error("there should be an error named 'error':", err)
	}
}

func TestAggregateStore_LoadEvents_MismatchedEventType(t *testing.T) {
	store, eventStore, _ := createStore(t)

	eventStore.Events = []recall.Event{
		recall.NewEvent(mocks.EventOtherType, nil, time.Now(),
			recall.ForAggregate(mocks.OtherAggregateType, "id", 1)),
	}

	agg, err := store.Load(context.Background(), mocks.AggregateType, "id")
	if !errors.Is(err, ErrMismatchedEventType) {
		t.Fatal("there should be a ErrMismatchedEventType error:", err)
	}

	if agg != nil {
		t.Error("the aggregate should be nil")
	}
}

func TestAggregateStore_LoadEvents_Gap(t *testing.T) {
	store, eventStore, _ := createStore(t)

	eventStore.Events = []recall.Event{
		recall.NewEvent(mocks.EventType, nil, time.Now(),
			recall.ForAggregate(mocks.AggregateType, "id", 2)),
	}

	if _, err := store.Load(context.Background(), mocks.AggregateType, "id"); !errors.Is(err, recall.ErrIncorrectEventVersion) {
		t.Error("there should be an incorrect event version error:", err)
	}
}

func TestAggregateStore_SaveEvents(t *testing.T) {
	store, eventStore, handler := createStore(t)

	ctx := context.Background()
	agg := mocks.NewAggregate("id")

	if err := agg.HandleCommand(ctx, mocks.Command{Content: "a"}); err != nil {
		t.Fatal("there should be no error:", err)
	}

	if err := agg.HandleCommand(ctx, mocks.Command{Content: "b"}); err != nil {
		t.Fatal("there should be no error:", err)
	}

	uncommitted := agg.UncommittedEvents()

	if err := store.Save(ctx, agg); err != nil {
		t.Fatal("there should be no error:", err)
	}

	if !reflect.DeepEqual(eventStore.Events, uncommitted) {
		t.Error("the stored events should be correct:", eventStore.Events)
	}

	if len(agg.UncommittedEvents()) != 0 {
		t.Error("there should be no uncommitted events:", agg.UncommittedEvents())
	}

	if agg.AggregateVersion() != 2 {
		t.Error("the version should be 2:", agg.AggregateVersion())
	}

	if len(handler.Batches) != 1 || !reflect.DeepEqual(handler.Batches[0], uncommitted) {
		t.Error("the handler should get exactly the committed batch:", handler.Batches)
	}

	// Nothing to save.
	if err := store.Save(ctx, agg); err != nil {
		t.Error("there should be no error:", err)
	}

	if len(handler.Batches) != 1 {
		t.Error("an empty save should not dispatch:", handler.Batches)
	}
}

func TestAggregateStore_SaveConflict(t *testing.T) {
	store, eventStore, handler := createStore(t)
	eventStore.Err = &recall.EventStoreError{
		Err: recall.ErrEventConflictFromOtherSave,
		Op:  recall.EventStoreOpSave,
	}

	ctx := context.Background()
	agg := mocks.NewAggregate("id")

	if err := agg.HandleCommand(ctx, mocks.Command{Content: "a"}); err != nil {
		t.Fatal("there should be no error:", err)
	}

	if err := store.Save(ctx, agg); !errors.Is(err, recall.ErrConcurrencyConflict) {
		t.Error("there should be a concurrency conflict:", err)
	}

	if agg.AggregateVersion() != 0 {
		t.Error("the version should not change:", agg.AggregateVersion())
	}

	if len(handler.Batches) != 0 {
		t.Error("nothing should be dispatched:", handler.Batches)
	}
}

func TestAggregateStore_HandlerErrorNotReturned(t *testing.T) {
	store, _, handler := createStore(t)
	handler.Err = errors.New("handler error")

	ctx := context.Background()
	agg := mocks.NewAggregate("id")

	if err := agg.HandleCommand(ctx, mocks.Command{Content: "a"}); err != nil {
		t.Fatal("there should be no error:", err)
	}

	if err := store.Save(ctx, agg); err != nil {
		t.Error("a handler error should not fail the save:", err)
	}
}

func createStore(t *testing.T) (*AggregateStore, *mocks.EventStore, *mocks.EventHandler) {
	t.Helper()

	eventStore := &mocks.EventStore{}
	handler := mocks.NewEventHandler("dispatcher")

	store, err := NewAggregateStore(eventStore, WithEventHandler(handler))
	if err != nil {
		t.Fatal("there should be no error:", err)
	}

	if store == nil {
		t.Fatal("there should be a aggregate store")
	}

	return store, eventStore, handler
}
