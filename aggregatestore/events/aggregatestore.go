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
	"fmt"
	"log/slog"

	"github.com/looplab/recall"
)

var (
	// ErrInvalidEventStore is when a store is created with a nil event store.
	ErrInvalidEventStore = errors.New("invalid event store")
	// ErrInvalidAggregate is when an aggregate does not implement VersionedAggregate.
	ErrInvalidAggregate = errors.New("invalid aggregate")
	// ErrMismatchedEventType occurs when loaded events from ID does not match aggregate type.
	ErrMismatchedEventType = errors.New("mismatched event type and aggregate type")
)

// AggregateStore is an aggregate store using event sourcing. It uses an event
// store for loading and saving events used to build the aggregate, and an
// optional event handler to dispatch each committed batch to.
type AggregateStore struct {
	store   recall.EventStore
	handler recall.EventHandler
	logger  *slog.Logger
}

var _ = recall.AggregateStore(&AggregateStore{})

// NewAggregateStore creates an aggregate store with an event store.
func NewAggregateStore(store recall.EventStore, options ...Option) (*AggregateStore, error) {
	if store == nil {
		return nil, ErrInvalidEventStore
	}

	d := &AggregateStore{
		store:  store,
		logger: slog.Default().With("component", "aggregatestore"),
	}

	for _, option := range options {
		if option == nil {
			continue
		}

		if err := option(d); err != nil {
			return nil, fmt.Errorf("error while applying option: %w", err)
		}
	}

	return d, nil
}

// Option is an option setter used to configure creation.
type Option func(*AggregateStore) error

// WithEventHandler adds an event handler that receives the newly committed
// events after each successful save, typically a dispatcher.
func WithEventHandler(h recall.EventHandler) Option {
	return func(s *AggregateStore) error {
		if h == nil {
			return errors.New("missing event handler")
		}

		s.handler = h

		return nil
	}
}

// WithLogger sets the logger used for dispatch errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *AggregateStore) error {
		s.logger = l

		return nil
	}
}

// Load implements the Load method of the recall.AggregateStore interface.
// It loads an aggregate from the event store by creating a new aggregate of the
// type with the ID and then applies all events to it, thus making it the most
// current version of the aggregate. An ID without events gives a new aggregate.
func (r *AggregateStore) Load(ctx context.Context, aggregateType recall.AggregateType, id string) (recall.Aggregate, error) {
	agg, err := recall.CreateAggregate(aggregateType, id)
	if err != nil {
		return nil, &recall.AggregateStoreError{
			Err:           err,
			Op:            recall.AggregateStoreOpLoad,
			AggregateType: aggregateType,
			AggregateID:   id,
		}
	}

	a, ok := agg.(VersionedAggregate)
	if !ok {
		return nil, &recall.AggregateStoreError{
			Err:           ErrInvalidAggregate,
			Op:            recall.AggregateStoreOpLoad,
			AggregateType: aggregateType,
			AggregateID:   id,
		}
	}

	events, err := r.store.Load(ctx, a.EntityID())
	if err != nil && !errors.Is(err, recall.ErrAggregateNotFound) {
		return nil, &recall.AggregateStoreError{
			Err:           err,
			Op:            recall.AggregateStoreOpLoad,
			AggregateType: aggregateType,
			AggregateID:   id,
		}
	}

	if err := r.applyEvents(ctx, a, events); err != nil {
		return nil, &recall.AggregateStoreError{
			Err:           err,
			Op:            recall.AggregateStoreOpLoad,
			AggregateType: aggregateType,
			AggregateID:   id,
		}
	}

	return a, nil
}

// Save implements the Save method of the recall.AggregateStore interface.
// It saves all uncommitted events from an aggregate to the event store, using
// the loaded version as the expected version.
func (r *AggregateStore) Save(ctx context.Context, agg recall.Aggregate) error {
	a, ok := agg.(VersionedAggregate)
	if !ok {
		return &recall.AggregateStoreError{
			Err:           ErrInvalidAggregate,
			Op:            recall.AggregateStoreOpSave,
			AggregateType: agg.AggregateType(),
			AggregateID:   agg.EntityID(),
		}
	}

	events := a.UncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	if err := r.store.Save(ctx, events, a.AggregateVersion()); err != nil {
		return &recall.AggregateStoreError{
			Err:           err,
			Op:            recall.AggregateStoreOpSave,
			AggregateType: a.AggregateType(),
			AggregateID:   a.EntityID(),
		}
	}

	a.ClearUncommittedEvents()

	// Apply the events in case the aggregate needs to be further used
	// after this save.
	if err := r.applyEvents(ctx, a, events); err != nil {
		return &recall.AggregateStoreError{
			Err:           err,
			Op:            recall.AggregateStoreOpSave,
			AggregateType: a.AggregateType(),
			AggregateID:   a.EntityID(),
		}
	}

	// The events are committed at this point, handler errors are not returned.
	if r.handler != nil {
		if err := r.handler.HandleEvents(ctx, a.EntityID(), events); err != nil {
			r.logger.Error("could not dispatch events",
				"handler", r.handler.HandlerType().String(),
				"aggregate_id", a.EntityID(),
				"error", err,
			)
		}
	}

	return nil
}

func (r *AggregateStore) applyEvents(ctx context.Context, a VersionedAggregate, events []recall.Event) error {
	for _, event := range events {
		if event.AggregateType() != a.AggregateType() {
			return ErrMismatchedEventType
		}

		if event.Version() != a.AggregateVersion()+1 {
			return fmt.Errorf("%w: %s at version %d", recall.ErrIncorrectEventVersion, event, a.AggregateVersion())
		}

		a.ApplyEvent(ctx, event)
		a.SetAggregateVersion(event.Version())
	}

	return nil
}
