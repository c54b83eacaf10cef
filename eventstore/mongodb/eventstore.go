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

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mongoutils"
)

// EventStore is a recall.EventStore for MongoDB, using one collection for all
// events and another to keep track of all aggregates/streams. It also keeps
// track of the global position of events, stored as metadata.
//
// Appends run in a transaction, so the server must be a replica set.
type EventStore struct {
	client          *mongo.Client
	clientOwnership clientOwnership
	events          *mongo.Collection
	streams         *mongo.Collection
}

var _ = recall.EventStore(&EventStore{})

type clientOwnership int

const (
	internalClient clientOwnership = iota
	externalClient
)

// NewEventStore creates a new EventStore with a MongoDB URI: `mongodb://hostname`.
func NewEventStore(ctx context.Context, uri, dbName string, opts ...Option) (*EventStore, error) {
	client, err := mongoutils.Connect(ctx, uri)
	if err != nil {
		return nil, err
	}

	s, err := newEventStoreWithClient(ctx, client, internalClient, dbName, opts...)
	if err != nil {
		_ = client.Disconnect(context.Background())

		return nil, err
	}

	return s, nil
}

// NewEventStoreWithClient creates a new EventStore with a client.
func NewEventStoreWithClient(ctx context.Context, client *mongo.Client, dbName string, opts ...Option) (*EventStore, error) {
	return newEventStoreWithClient(ctx, client, externalClient, dbName, opts...)
}

func newEventStoreWithClient(ctx context.Context, client *mongo.Client, clientOwnership clientOwnership, dbName string, opts ...Option) (*EventStore, error) {
	if client == nil {
		return nil, fmt.Errorf("missing DB client")
	}

	db := client.Database(dbName)
	s := &EventStore{
		client:          client,
		clientOwnership: clientOwnership,
		events:          db.Collection("events"),
		streams:         db.Collection("streams"),
	}

	for _, option := range opts {
		if err := option(s); err != nil {
			return nil, fmt.Errorf("error while applying option: %w", err)
		}
	}

	if _, err := s.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "aggregate_id", Value: 1}, {Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("could not ensure events index: %w", err)
	}

	// Make sure the $all stream exists.
	if err := s.streams.FindOne(ctx, bson.M{
		"_id": "$all",
	}).Err(); errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := s.streams.InsertOne(ctx, bson.M{
			"_id":      "$all",
			"position": 0,
		}); err != nil && !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("could not create the $all stream document: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("could not find the $all stream document: %w", err)
	}

	return s, nil
}

// Option is an option setter used to configure creation.
type Option func(*EventStore) error

// WithCollectionNames uses different collections from the default "events" and "streams" collections.
// Will return an error if provided parameters are equal.
func WithCollectionNames(eventsColl, streamsColl string) Option {
	return func(s *EventStore) error {
		if err := mongoutils.CheckCollectionName(eventsColl); err != nil {
			return fmt.Errorf("events collection: %w", err)
		} else if err := mongoutils.CheckCollectionName(streamsColl); err != nil {
			return fmt.Errorf("streams collection: %w", err)
		} else if eventsColl == streamsColl {
			return fmt.Errorf("custom collection names are equal")
		}

		db := s.events.Database()
		s.events = db.Collection(eventsColl)
		s.streams = db.Collection(streamsColl)

		return nil
	}
}

// Save implements the Save method of the recall.EventStore interface.
func (s *EventStore) Save(ctx context.Context, events []recall.Event, originalVersion int) error {
	if len(events) == 0 {
		return &recall.EventStoreError{
			Err: recall.ErrMissingEvents,
			Op:  recall.EventStoreOpSave,
		}
	}

	dbEvents := make([]*evt, len(events))
	id := events[0].AggregateID()
	at := events[0].AggregateType()

	// Build all event records, with incrementing versions starting from the
	// original aggregate version.
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

		// Create the event record for the DB.
		e, err := newEvt(event)
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

		dbEvents[i] = e
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return &recall.EventStoreError{
			Err:              recall.ErrPersistence,
			BaseErr:          fmt.Errorf("could not start transaction: %w", err),
			Op:               recall.EventStoreOpSave,
			AggregateType:    at,
			AggregateID:      id,
			AggregateVersion: originalVersion,
			Events:           events,
		}
	}

	defer sess.EndSession(ctx)

	if _, err := sess.WithTransaction(ctx, func(txCtx context.Context) (interface{}, error) {
		// Fetch and increment global version in the all-stream.
		r := s.streams.FindOneAndUpdate(txCtx,
			bson.M{"_id": "$all"},
			bson.M{"$inc": bson.M{"position": len(dbEvents)}},
		)
		if r.Err() != nil {
			return nil, fmt.Errorf("could not increment global position: %w", r.Err())
		}

		allStream := struct {
			Position int `bson:"position"`
		}{}
		if err := r.Decode(&allStream); err != nil {
			return nil, fmt.Errorf("could not decode global position: %w", err)
		}

		// Use the global position as ID for the stored events.
		docs := make([]interface{}, len(dbEvents))
		for i, e := range dbEvents {
			e.Position = allStream.Position + i + 1
			e.Metadata["position"] = e.Position
			docs[i] = e
		}

		last := dbEvents[len(dbEvents)-1]

		// Move the stream from the original version, or create it.
		if originalVersion == 0 {
			if _, err := s.streams.InsertOne(txCtx, &stream{
				ID:            id,
				AggregateType: at,
				Position:      last.Position,
				Version:       last.Version,
				UpdatedAt:     last.Timestamp,
			}); mongo.IsDuplicateKeyError(err) {
				return nil, recall.ErrEventConflictFromOtherSave
			} else if err != nil {
				return nil, fmt.Errorf("could not insert stream: %w", err)
			}
		} else {
			r, err := s.streams.UpdateOne(txCtx,
				bson.M{
					"_id":     id,
					"version": originalVersion,
				},
				bson.M{
					"$set": bson.M{
						"position":   last.Position,
						"updated_at": last.Timestamp,
					},
					"$inc": bson.M{"version": len(dbEvents)},
				},
			)
			if err != nil {
				return nil, fmt.Errorf("could not update stream: %w", err)
			} else if r.MatchedCount == 0 {
				return nil, recall.ErrEventConflictFromOtherSave
			}
		}

		if _, err := s.events.InsertMany(txCtx, docs); err != nil {
			return nil, fmt.Errorf("could not insert events: %w", err)
		}

		return nil, nil
	}); err != nil {
		storeErr := &recall.EventStoreError{
			Err:              err,
			Op:               recall.EventStoreOpSave,
			AggregateType:    at,
			AggregateID:      id,
			AggregateVersion: originalVersion,
			Events:           events,
		}

		if !errors.Is(err, recall.ErrConcurrencyConflict) {
			storeErr.Err = recall.ErrPersistence
			storeErr.BaseErr = err
		}

		return storeErr
	}

	return nil
}

// Load implements the Load method of the recall.EventStore interface.
func (s *EventStore) Load(ctx context.Context, id string) ([]recall.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: 1}})

	cursor, err := s.events.Find(ctx, bson.M{"aggregate_id": id}, opts)
	if err != nil {
		return nil, &recall.EventStoreError{
			Err:         recall.ErrPersistence,
			BaseErr:     fmt.Errorf("could not find event: %w", err),
			Op:          recall.EventStoreOpLoad,
			AggregateID: id,
		}
	}
	defer cursor.Close(ctx)

	var events []recall.Event

	for cursor.Next(ctx) {
		var e evt
		if err := cursor.Decode(&e); err != nil {
			return nil, &recall.EventStoreError{
				Err:         recall.ErrPersistence,
				BaseErr:     fmt.Errorf("could not decode event: %w", err),
				Op:          recall.EventStoreOpLoad,
				AggregateID: id,
				Events:      events,
			}
		}

		event, err := e.event()
		if err != nil {
			return nil, &recall.EventStoreError{
				Err:              recall.ErrPersistence,
				BaseErr:          err,
				Op:               recall.EventStoreOpLoad,
				AggregateType:    e.AggregateType,
				AggregateID:      id,
				AggregateVersion: e.Version,
				Events:           events,
			}
		}

		events = append(events, event)
	}

	if err := cursor.Err(); err != nil {
		return nil, &recall.EventStoreError{
			Err:         recall.ErrPersistence,
			BaseErr:     fmt.Errorf("could not read events: %w", err),
			Op:          recall.EventStoreOpLoad,
			AggregateID: id,
		}
	}

	if len(events) == 0 {
		return nil, &recall.EventStoreError{
			Err:         recall.ErrAggregateNotFound,
			Op:          recall.EventStoreOpLoad,
			AggregateID: id,
		}
	}

	return events, nil
}

// Close implements the Close method of the recall.EventStore interface.
func (s *EventStore) Close() error {
	if s.clientOwnership == externalClient {
		// Don't close a client we don't own.
		return nil
	}

	return s.client.Disconnect(context.Background())
}

// stream is a stream of events, often containing the events for an aggregate.
type stream struct {
	ID            string               `bson:"_id"`
	Position      int                  `bson:"position"`
	AggregateType recall.AggregateType `bson:"aggregate_type"`
	Version       int                  `bson:"version"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

// evt is the internal event record for the MongoDB event store used
// to save and load events from the DB.
type evt struct {
	Position      int                    `bson:"_id"`
	EventType     recall.EventType       `bson:"event_type"`
	RawData       bson.Raw               `bson:"data,omitempty"`
	Timestamp     time.Time              `bson:"timestamp"`
	AggregateType recall.AggregateType   `bson:"aggregate_type"`
	AggregateID   string                 `bson:"aggregate_id"`
	Version       int                    `bson:"version"`
	SchemaVersion string                 `bson:"schema_version"`
	Metadata      map[string]interface{} `bson:"metadata"`
}

// newEvt returns a new evt for an event.
func newEvt(event recall.Event) (*evt, error) {
	e := &evt{
		EventType:     event.EventType(),
		Timestamp:     event.Timestamp(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		Version:       event.Version(),
		SchemaVersion: event.SchemaVersion(),
		Metadata:      map[string]interface{}{},
	}

	for k, v := range event.Metadata() {
		e.Metadata[k] = v
	}

	// Marshal event data if there is any.
	if event.Data() != nil {
		var err error

		e.RawData, err = bson.Marshal(event.Data())
		if err != nil {
			return nil, fmt.Errorf("could not marshal event data: %w", err)
		}
	}

	return e, nil
}

// event creates an event of the correct type and decodes the data from raw BSON.
func (e *evt) event() (recall.Event, error) {
	var data recall.EventData

	if len(e.RawData) > 0 {
		var err error
		if data, err = recall.CreateEventData(e.EventType); err != nil {
			return nil, fmt.Errorf("could not create event data: %w", err)
		}

		if err := bson.Unmarshal(e.RawData, data); err != nil {
			return nil, fmt.Errorf("could not unmarshal event data: %w", err)
		}
	}

	return recall.NewEvent(
		e.EventType,
		data,
		e.Timestamp,
		recall.ForAggregate(
			e.AggregateType,
			e.AggregateID,
			e.Version,
		),
		recall.WithMetadata(e.Metadata),
		recall.WithSchemaVersion(e.SchemaVersion),
	), nil
}
