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

package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/recall"
	"github.com/looplab/recall/copyutils"
)

// EventStore implements recall.EventStore as an in memory structure. Appends
// to one aggregate are serialized by a lock per stream, appends to different
// aggregates do not wait on each other.
type EventStore struct {
	streams   map[string]*stream
	streamsMu sync.RWMutex
}

var _ = recall.EventStore(&EventStore{})

type stream struct {
	sync.Mutex

	aggregateType recall.AggregateType
	events        []recall.Event
}

// NewEventStore creates a new EventStore using memory as storage.
func NewEventStore() *EventStore {
	s := &EventStore{
		streams: map[string]*stream{},
	}

	return s
}

// Save implements the Save method of the recall.EventStore interface.
func (s *EventStore) Save(ctx context.Context, events []recall.Event, originalVersion int) error {
	if len(events) == 0 {
		return &recall.EventStoreError{
			Err: recall.ErrMissingEvents,
			Op:  recall.EventStoreOpSave,
		}
	}

	id := events[0].AggregateID()
	at := events[0].AggregateType()

	// Build all event records, with incrementing versions starting from the
	// original aggregate version.
	copies := make([]recall.Event, len(events))

	for i, event := range events {
		// Only accept events belonging to the same aggregate.
		if event.AggregateID() != id {
			return &recall.EventStoreError{
				Err:              recall.ErrMismatchedEventAggregateIDs,
				Op:               recall.EventStoreOpSave,
				AggregateType:    at,
				AggregateID:      id,
				AggregateVersion: originalVersion,
				Events:           events,
			}
		}

		if event.AggregateType() != at {
			return &recall.EventStoreError{
				Err:              recall.ErrMismatchedEventAggregateTypes,
				Op:               recall.EventStoreOpSave,
				AggregateType:    at,
				AggregateID:      id,
				AggregateVersion: originalVersion,
				Events:           events,
			}
		}

		// Only accept events that apply to the correct aggregate version.
		if event.Version() != originalVersion+i+1 {
			return &recall.EventStoreError{
				Err:              recall.ErrIncorrectEventVersion,
				Op:               recall.EventStoreOpSave,
				AggregateType:    at,
				AggregateID:      id,
				AggregateVersion: originalVersion,
				Events:           events,
			}
		}

		e, err := copyEvent(event)
		if err != nil {
			return &recall.EventStoreError{
				Err:              recall.ErrPersistence,
				BaseErr:          err,
				Op:               recall.EventStoreOpSave,
				AggregateType:    at,
				AggregateID:      id,
				AggregateVersion: originalVersion,
				Events:           events,
			}
		}

		copies[i] = e
	}

	st := s.stream(id)

	st.Lock()
	defer st.Unlock()

	if len(st.events) > 0 && st.aggregateType != at {
		return &recall.EventStoreError{
			Err:              recall.ErrMismatchedEventAggregateTypes,
			Op:               recall.EventStoreOpSave,
			AggregateType:    at,
			AggregateID:      id,
			AggregateVersion: originalVersion,
			Events:           events,
		}
	}

	if len(st.events) != originalVersion {
		return &recall.EventStoreError{
			Err:              recall.ErrEventConflictFromOtherSave,
			Op:               recall.EventStoreOpSave,
			AggregateType:    at,
			AggregateID:      id,
			AggregateVersion: originalVersion,
			Events:           events,
		}
	}

	st.aggregateType = at
	st.events = append(st.events, copies...)

	return nil
}

// Load implements the Load method of the recall.EventStore interface.
func (s *EventStore) Load(ctx context.Context, id string) ([]recall.Event, error) {
	s.streamsMu.RLock()
	st, ok := s.streams[id]
	s.streamsMu.RUnlock()

	if !ok {
		return nil, &recall.EventStoreError{
			Err:         recall.ErrAggregateNotFound,
			Op:          recall.EventStoreOpLoad,
			AggregateID: id,
		}
	}

	st.Lock()
	defer st.Unlock()

	if len(st.events) == 0 {
		return nil, &recall.EventStoreError{
			Err:         recall.ErrAggregateNotFound,
			Op:          recall.EventStoreOpLoad,
			AggregateID: id,
		}
	}

	events := make([]recall.Event, len(st.events))

	for i, event := range st.events {
		e, err := copyEvent(event)
		if err != nil {
			return nil, &recall.EventStoreError{
				Err:              recall.ErrPersistence,
				BaseErr:          err,
				Op:               recall.EventStoreOpLoad,
				AggregateType:    st.aggregateType,
				AggregateID:      id,
				AggregateVersion: event.Version(),
			}
		}

		events[i] = e
	}

	return events, nil
}

// Close implements the Close method of the recall.EventStore interface.
func (s *EventStore) Close() error {
	return nil
}

// stream returns the stream for an ID, creating it if needed.
func (s *EventStore) stream(id string) *stream {
	s.streamsMu.RLock()
	st, ok := s.streams[id]
	s.streamsMu.RUnlock()

	if ok {
		return st
	}

	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()

	if st, ok := s.streams[id]; ok {
		return st
	}

	st = &stream{}
	s.streams[id] = st

	return st
}

// copyEvent duplicates the event data so that stored events can not be changed
// by the caller after saving, or by a later reader.
func copyEvent(event recall.Event) (recall.Event, error) {
	var data recall.EventData

	if event.Data() != nil {
		var err error
		if data, err = recall.CreateEventData(event.EventType()); err != nil {
			return nil, fmt.Errorf("could not create event data: %w", err)
		}

		if err := copyutils.DeepCopy(data, event.Data()); err != nil {
			return nil, fmt.Errorf("could not copy event data: %w", err)
		}
	}

	metadata := make(map[string]interface{}, len(event.Metadata()))
	for k, v := range event.Metadata() {
		metadata[k] = v
	}

	return recall.NewEvent(
		event.EventType(),
		data,
		event.Timestamp(),
		recall.ForAggregate(
			event.AggregateType(),
			event.AggregateID(),
			event.Version(),
		),
		recall.WithMetadata(metadata),
		recall.WithSchemaVersion(event.SchemaVersion()),
	), nil
}
