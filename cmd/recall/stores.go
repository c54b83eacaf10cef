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

package main

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/looplab/recall"
	mongoEventStore "github.com/looplab/recall/eventstore/mongodb"
	"github.com/looplab/recall/eventstore/postgres"
	"github.com/looplab/recall/internal/app"
	"github.com/looplab/recall/internal/config"
	"github.com/looplab/recall/internal/domain/deck"
	"github.com/looplab/recall/internal/domain/learning"
	"github.com/looplab/recall/mongoutils"
	mongoViewStore "github.com/looplab/recall/viewstore/mongodb"
)

// newStores opens the stores of the configured driver. The returned func
// releases what the stores share.
func newStores(ctx context.Context, cfg config.StoreConfig) (app.Stores, func(), error) {
	switch cfg.Driver {
	case "mongodb":
		client, err := mongoutils.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return app.Stores{}, nil, err
		}

		disconnect := func() { _ = client.Disconnect(context.Background()) }

		events, err := mongoEventStore.NewEventStoreWithClient(ctx, client, cfg.Database)
		if err != nil {
			disconnect()

			return app.Stores{}, nil, fmt.Errorf("could not create event store: %w", err)
		}

		stores, err := newMongoViewStores(client, cfg.Database)
		if err != nil {
			disconnect()

			return app.Stores{}, nil, err
		}

		stores.Events = events

		return stores, disconnect, nil
	case "postgres":
		events, err := postgres.NewEventStore(ctx, cfg.PostgresURI)
		if err != nil {
			return app.Stores{}, nil, fmt.Errorf("could not create event store: %w", err)
		}

		if cfg.MongoURI == "" {
			stores := app.NewMemoryStores()
			stores.Events = events

			return stores, func() {}, nil
		}

		client, err := mongoutils.Connect(ctx, cfg.MongoURI)
		if err != nil {
			events.Close()

			return app.Stores{}, nil, err
		}

		stores, err := newMongoViewStores(client, cfg.Database)
		if err != nil {
			events.Close()
			_ = client.Disconnect(context.Background())

			return app.Stores{}, nil, err
		}

		stores.Events = events

		return stores, func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		return app.NewMemoryStores(), func() {}, nil
	}
}

func newMongoViewStores(client *mongo.Client, db string) (app.Stores, error) {
	var stores app.Stores

	views := []struct {
		collection string
		factory    func() recall.View
		store      *recall.ViewStore
	}{
		{"decks", func() recall.View { return &deck.View{} }, &stores.Decks},
		{"deck_list", func() recall.View { return &deck.ListView{} }, &stores.DeckList},
		{"reviewable_cards", func() recall.View { return &learning.ReviewableCard{} }, &stores.Cards},
		{"sessions", func() recall.View { return &learning.SessionView{} }, &stores.Sessions},
	}

	for _, v := range views {
		s, err := mongoViewStore.NewViewStoreWithClient(client, db,
			mongoViewStore.WithCollectionName(v.collection),
			mongoViewStore.WithViewFactory(v.factory),
		)
		if err != nil {
			return app.Stores{}, fmt.Errorf("could not create %s view store: %w", v.collection, err)
		}

		*v.store = s
	}

	return stores, nil
}
