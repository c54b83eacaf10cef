// Copyright (c) 2015 - Max Ekman <max@looplab.se>
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

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mongoutils"
)

const defaultCollectionName = "views"

// ErrViewFactoryNotSet is when a view factory is not set on the ViewStore.
var ErrViewFactoryNotSet = errors.New("view factory not set")

// ViewStore implements a MongoDB store of views. Every view is kept in a
// document together with its version, which is used for optimistic
// concurrency control of updates.
type ViewStore struct {
	client          *mongo.Client
	clientOwnership clientOwnership
	collection      *mongo.Collection
	newView         func() recall.View
}

var _ = recall.ViewStore(&ViewStore{})

type clientOwnership int

const (
	internalClient clientOwnership = iota
	externalClient
)

// NewViewStore creates a new ViewStore with a MongoDB URI: `mongodb://hostname`.
func NewViewStore(ctx context.Context, uri, dbName string, opts ...Option) (*ViewStore, error) {
	client, err := mongoutils.Connect(ctx, uri)
	if err != nil {
		return nil, err
	}

	s, err := newViewStoreWithClient(client, internalClient, dbName, opts...)
	if err != nil {
		_ = client.Disconnect(context.Background())

		return nil, err
	}

	return s, nil
}

// NewViewStoreWithClient creates a new ViewStore with a client.
func NewViewStoreWithClient(client *mongo.Client, dbName string, opts ...Option) (*ViewStore, error) {
	return newViewStoreWithClient(client, externalClient, dbName, opts...)
}

func newViewStoreWithClient(client *mongo.Client, clientOwnership clientOwnership, dbName string, opts ...Option) (*ViewStore, error) {
	if client == nil {
		return nil, fmt.Errorf("missing DB client")
	}

	s := &ViewStore{
		client:          client,
		clientOwnership: clientOwnership,
		collection:      client.Database(dbName).Collection(defaultCollectionName),
	}

	for _, option := range opts {
		if err := option(s); err != nil {
			return nil, fmt.Errorf("error while applying option: %w", err)
		}
	}

	return s, nil
}

// Option is an option setter used to configure creation.
type Option func(*ViewStore) error

// WithCollectionName uses a different collection from the default "views" collection.
func WithCollectionName(collection string) Option {
	return func(s *ViewStore) error {
		if err := mongoutils.CheckCollectionName(collection); err != nil {
			return fmt.Errorf("views collection: %w", err)
		}

		s.collection = s.collection.Database().Collection(collection)

		return nil
	}
}

// WithViewFactory sets the factory used to create views when decoding, it
// must return a pointer to a struct.
func WithViewFactory(f func() recall.View) Option {
	return func(s *ViewStore) error {
		s.newView = f

		return nil
	}
}

// Load implements the Load method of the recall.ViewStore interface.
func (s *ViewStore) Load(ctx context.Context, id string) (recall.View, error) {
	v, _, err := s.LoadWithContext(ctx, id)

	return v, err
}

// LoadWithContext implements the LoadWithContext method of the recall.ViewStore interface.
func (s *ViewStore) LoadWithContext(ctx context.Context, id string) (recall.View, recall.ViewContext, error) {
	if s.newView == nil {
		return nil, recall.ViewContext{}, &recall.ViewStoreError{
			Err:    ErrViewFactoryNotSet,
			Op:     recall.ViewStoreOpLoad,
			ViewID: id,
		}
	}

	var d doc
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&d); errors.Is(err, mongo.ErrNoDocuments) {
		return nil, recall.ViewContext{}, &recall.ViewStoreError{
			Err:    recall.ErrViewNotFound,
			Op:     recall.ViewStoreOpLoad,
			ViewID: id,
		}
	} else if err != nil {
		return nil, recall.ViewContext{}, &recall.ViewStoreError{
			Err:     recall.ErrPersistence,
			BaseErr: fmt.Errorf("could not find view: %w", err),
			Op:      recall.ViewStoreOpLoad,
			ViewID:  id,
		}
	}

	view, err := s.decode(d.View)
	if err != nil {
		return nil, recall.ViewContext{}, &recall.ViewStoreError{
			Err:     recall.ErrPersistence,
			BaseErr: err,
			Op:      recall.ViewStoreOpLoad,
			ViewID:  id,
		}
	}

	return view, recall.NewViewContext(id, d.Version), nil
}

// UpdateView implements the UpdateView method of the recall.ViewStore interface.
func (s *ViewStore) UpdateView(ctx context.Context, view recall.View, vc recall.ViewContext) error {
	if vc.ViewID == "" {
		return &recall.ViewStoreError{
			Err: recall.ErrMissingViewID,
			Op:  recall.ViewStoreOpUpdate,
		}
	}

	if view == nil {
		return &recall.ViewStoreError{
			Err:    recall.ErrMissingView,
			Op:     recall.ViewStoreOpUpdate,
			ViewID: vc.ViewID,
		}
	}

	raw, err := bson.Marshal(view)
	if err != nil {
		return &recall.ViewStoreError{
			Err:     recall.ErrPersistence,
			BaseErr: fmt.Errorf("could not marshal view: %w", err),
			Op:      recall.ViewStoreOpUpdate,
			ViewID:  vc.ViewID,
		}
	}

	// A new view is inserted by the upsert, an existing view only matches at
	// the loaded version. A stale update ends up as a duplicate upsert.
	if _, err := s.collection.UpdateOne(ctx,
		bson.M{
			"_id":     vc.ViewID,
			"version": vc.Version,
		},
		bson.M{
			"$set": bson.M{
				"version": vc.NextVersion(),
				"view":    bson.Raw(raw),
			},
		},
		options.UpdateOne().SetUpsert(true),
	); mongo.IsDuplicateKeyError(err) {
		return &recall.ViewStoreError{
			Err:     recall.ErrIncorrectViewVersion,
			BaseErr: fmt.Errorf("stored version is not %d", vc.Version),
			Op:      recall.ViewStoreOpUpdate,
			ViewID:  vc.ViewID,
		}
	} else if err != nil {
		return &recall.ViewStoreError{
			Err:     recall.ErrPersistence,
			BaseErr: fmt.Errorf("could not update view: %w", err),
			Op:      recall.ViewStoreOpUpdate,
			ViewID:  vc.ViewID,
		}
	}

	return nil
}

// FindAll implements the FindAll method of the recall.ViewStore interface.
func (s *ViewStore) FindAll(ctx context.Context) ([]recall.View, error) {
	if s.newView == nil {
		return nil, &recall.ViewStoreError{
			Err: ErrViewFactoryNotSet,
			Op:  recall.ViewStoreOpFindAll,
		}
	}

	cursor, err := s.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, &recall.ViewStoreError{
			Err:     recall.ErrPersistence,
			BaseErr: fmt.Errorf("could not find: %w", err),
			Op:      recall.ViewStoreOpFindAll,
		}
	}
	defer cursor.Close(ctx)

	result := []recall.View{}

	for cursor.Next(ctx) {
		var d doc
		if err := cursor.Decode(&d); err != nil {
			return nil, &recall.ViewStoreError{
				Err:     recall.ErrPersistence,
				BaseErr: fmt.Errorf("could not unmarshal: %w", err),
				Op:      recall.ViewStoreOpFindAll,
			}
		}

		view, err := s.decode(d.View)
		if err != nil {
			return nil, &recall.ViewStoreError{
				Err:     recall.ErrPersistence,
				BaseErr: err,
				Op:      recall.ViewStoreOpFindAll,
				ViewID:  d.ID,
			}
		}

		result = append(result, view)
	}

	if err := cursor.Err(); err != nil {
		return nil, &recall.ViewStoreError{
			Err:     recall.ErrPersistence,
			BaseErr: fmt.Errorf("could not read views: %w", err),
			Op:      recall.ViewStoreOpFindAll,
		}
	}

	return result, nil
}

// Clear clears the view storage.
func (s *ViewStore) Clear(ctx context.Context) error {
	if err := s.collection.Drop(ctx); err != nil {
		return &recall.ViewStoreError{
			Err:     recall.ErrPersistence,
			BaseErr: fmt.Errorf("could not drop collection: %w", err),
			Op:      recall.ViewStoreOpUpdate,
		}
	}

	return nil
}

// Close implements the Close method of the recall.ViewStore interface.
func (s *ViewStore) Close() error {
	if s.clientOwnership == externalClient {
		// Don't close a client we don't own.
		return nil
	}

	return s.client.Disconnect(context.Background())
}

func (s *ViewStore) decode(raw bson.Raw) (recall.View, error) {
	view := s.newView()
	if err := bson.Unmarshal(raw, view); err != nil {
		return nil, fmt.Errorf("could not unmarshal view: %w", err)
	}

	return view, nil
}

type doc struct {
	ID      string   `bson:"_id"`
	Version int      `bson:"version"`
	View    bson.Raw `bson:"view"`
}
