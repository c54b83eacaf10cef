// Copyright (c) 2020 - The Event Horizon authors.
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

package tracing

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/looplab/recall"
)

// EventStore is an event store that adds tracing.
type EventStore struct {
	recall.EventStore
}

var _ = recall.EventStore(&EventStore{})

// NewEventStore creates a new EventStore.
func NewEventStore(store recall.EventStore) *EventStore {
	return &EventStore{EventStore: store}
}

// Save implements the Save method of the recall.EventStore interface.
func (s *EventStore) Save(ctx context.Context, events []recall.Event, originalVersion int) error {
	sp, ctx := opentracing.StartSpanFromContext(ctx, "EventStore.Save")

	err := s.EventStore.Save(ctx, events, originalVersion)

	// Conflicts are expected under concurrent writes.
	if err != nil && !errors.Is(err, recall.ErrConcurrencyConflict) {
		ext.LogError(sp, err)
	}

	if len(events) > 0 {
		sp.SetTag("recall.aggregate_type", events[0].AggregateType())
		sp.SetTag("recall.aggregate_id", events[0].AggregateID())
	}

	sp.SetTag("recall.version", originalVersion)
	sp.SetTag("recall.events", len(events))
	sp.SetTag("recall.conflict", errors.Is(err, recall.ErrConcurrencyConflict))

	sp.Finish()

	return err
}

// Load implements the Load method of the recall.EventStore interface.
func (s *EventStore) Load(ctx context.Context, id string) ([]recall.Event, error) {
	sp, ctx := opentracing.StartSpanFromContext(ctx, "EventStore.Load")

	events, err := s.EventStore.Load(ctx, id)
	if err != nil && !errors.Is(err, recall.ErrAggregateNotFound) {
		ext.LogError(sp, err)
	}

	sp.SetTag("recall.aggregate_id", id)
	sp.SetTag("recall.events", len(events))

	sp.Finish()

	return events, err
}
