// Copyright (c) 2014 - The Event Horizon authors.
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

package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mocks"
)

func TestDispatcher_OrderAndCopies(t *testing.T) {
	d := NewDispatcher()

	var order []string

	mutating := recall.EventHandlerFunc(func(ctx context.Context, id string, events []recall.Event) error {
		order = append(order, "first")
		events[0].Data().(*mocks.EventData).Content = "changed"

		return nil
	})
	second := mocks.NewEventHandler("second")
	third := recall.EventHandlerFunc(func(ctx context.Context, id string, events []recall.Event) error {
		order = append(order, "third")

		return nil
	})

	require.NoError(t, d.AddHandler(mutating))
	require.NoError(t, d.AddHandler(second))
	require.NoError(t, d.AddHandler(third))

	assert.ErrorIs(t, d.AddHandler(second), ErrHandlerAlreadyAdded)
	assert.ErrorIs(t, d.AddHandler(nil), ErrMissingHandler)

	timestamp := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)
	batch := []recall.Event{
		recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event1"}, timestamp,
			recall.ForAggregate(mocks.AggregateType, "id", 1)),
		recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event2"}, timestamp,
			recall.ForAggregate(mocks.AggregateType, "id", 2)),
	}

	require.NoError(t, d.HandleEvents(context.Background(), "id", batch))

	assert.Equal(t, []string{"first", "third"}, order)

	if assert.Len(t, second.Batches, 1) && assert.Len(t, second.Batches[0], 2) {
		assert.Equal(t, "event1", second.Batches[0][0].Data().(*mocks.EventData).Content,
			"a handler should not see another handler's changes")
		assert.Equal(t, 2, second.Batches[0][1].Version())
	}

	assert.Equal(t, "event1", batch[0].Data().(*mocks.EventData).Content,
		"the committed events should not change")
}

func TestDispatcher_HandlerError(t *testing.T) {
	d := NewDispatcher()

	failing := mocks.NewEventHandler("failing")
	failing.Err = errors.New("handler error")
	next := mocks.NewEventHandler("next")

	require.NoError(t, d.AddHandler(failing))
	require.NoError(t, d.AddHandler(next))

	batch := []recall.Event{
		recall.NewEvent(mocks.EventOtherType, nil, time.Now(),
			recall.ForAggregate(mocks.AggregateType, "id", 1)),
	}

	assert.NoError(t, d.HandleEvents(context.Background(), "id", batch),
		"handler errors should not be returned")
	assert.Len(t, next.Batches, 1, "the next handler should still be called")

	select {
	case err := <-d.Errors():
		assert.Equal(t, recall.EventHandlerType("failing"), err.HandlerType)
		assert.EqualError(t, err.Err, "handler error")
	case <-time.After(time.Second):
		t.Error("there should be an error on the channel")
	}
}

func TestDispatcher_Matcher(t *testing.T) {
	d := NewDispatcher()

	h := mocks.NewEventHandler("matched")
	require.NoError(t, d.AddMatchedHandler(recall.MatchEvents(mocks.EventOtherType), h))

	batch := []recall.Event{
		recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event1"}, time.Now(),
			recall.ForAggregate(mocks.AggregateType, "id", 1)),
		recall.NewEvent(mocks.EventOtherType, nil, time.Now(),
			recall.ForAggregate(mocks.AggregateType, "id", 2)),
	}

	require.NoError(t, d.HandleEvents(context.Background(), "id", batch[:1]))
	assert.Empty(t, h.Batches, "a batch without matches should not be delivered")

	require.NoError(t, d.HandleEvents(context.Background(), "id", batch))

	if assert.Len(t, h.Batches, 1) && assert.Len(t, h.Batches[0], 1) {
		assert.Equal(t, mocks.EventOtherType, h.Batches[0][0].EventType())
	}
}

func TestDispatcher_Close(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.AddHandler(mocks.NewEventHandler("h")))
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, ok := <-d.Errors()
	assert.False(t, ok, "the error channel should be closed")

	err := d.HandleEvents(context.Background(), "id", nil)
	assert.ErrorIs(t, err, ErrDispatcherClosed)
	assert.ErrorIs(t, d.AddHandler(mocks.NewEventHandler("other")), ErrDispatcherClosed)
}

func TestDispatcher_CloseDuringNestedDispatch(t *testing.T) {
	d := NewDispatcher()

	var (
		nested error
		calls  int
	)

	closed := make(chan struct{})

	// Commits from a handler are dispatched while the outer batch is still
	// being handled, as with the translated commands of the ACL.
	committing := recall.EventHandlerFunc(func(ctx context.Context, id string, events []recall.Event) error {
		calls++
		if calls > 1 {
			return nil
		}

		go func() {
			d.Close()
			close(closed)
		}()

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if nested = d.HandleEvents(ctx, "other", events); nested != nil {
				break
			}

			time.Sleep(time.Millisecond)
		}

		return nil
	})
	require.NoError(t, d.AddHandler(committing))

	event := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event1"}, time.Now(),
		recall.ForAggregate(mocks.AggregateType, "id", 1))

	done := make(chan error, 1)
	go func() { done <- d.HandleEvents(context.Background(), "id", []recall.Event{event}) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not return")
	}

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not return")
	}

	assert.ErrorIs(t, nested, ErrDispatcherClosed)
}
