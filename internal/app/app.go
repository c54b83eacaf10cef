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

// Package app wires the event log, the aggregates, the projections and the
// learning service into one runnable application.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/looplab/recall"
	"github.com/looplab/recall/aggregatestore/events"
	"github.com/looplab/recall/commandhandler/aggregate"
	"github.com/looplab/recall/eventbus/local"
	"github.com/looplab/recall/eventhandler/acl"
	"github.com/looplab/recall/eventhandler/projector"
	eventstore "github.com/looplab/recall/eventstore/memory"
	"github.com/looplab/recall/internal/domain/deck"
	"github.com/looplab/recall/internal/domain/learning"
	"github.com/looplab/recall/middleware/commandhandler/lock"
	"github.com/looplab/recall/middleware/commandhandler/retry"
	"github.com/looplab/recall/middleware/commandhandler/validate"
	"github.com/looplab/recall/tracing"
	viewstore "github.com/looplab/recall/viewstore/memory"
	"github.com/looplab/recall/viewstore/version"
)

// Stores are the event store and the view stores of the application.
type Stores struct {
	Events   recall.EventStore
	Decks    recall.ViewStore
	DeckList recall.ViewStore
	Cards    recall.ViewStore
	Sessions recall.ViewStore
}

// NewMemoryStores creates stores that only live in memory.
func NewMemoryStores() Stores {
	return Stores{
		Events:   eventstore.NewEventStore(),
		Decks:    viewstore.NewViewStore(),
		DeckList: viewstore.NewViewStore(),
		Cards:    viewstore.NewViewStore(),
		Sessions: viewstore.NewViewStore(),
	}
}

func (s Stores) validate() error {
	if s.Events == nil {
		return errors.New("missing event store")
	}

	if s.Decks == nil || s.DeckList == nil || s.Cards == nil || s.Sessions == nil {
		return errors.New("missing view store")
	}

	return nil
}

// Close closes all stores.
func (s Stores) Close() error {
	var errs []error

	for _, c := range []interface{ Close() error }{s.Events, s.Decks, s.DeckList, s.Cards, s.Sessions} {
		if c == nil {
			continue
		}

		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

type options struct {
	adapters []recall.OutboundAdapter
	tracing  bool
	locking  bool
	attempts int
	dueOnly  bool
	logger   *slog.Logger
}

// Option is an option setter used to configure the App.
type Option func(*options)

// WithOutboundAdapters sets adapters that get every updated view.
func WithOutboundAdapters(adapters ...recall.OutboundAdapter) Option {
	return func(o *options) {
		o.adapters = append(o.adapters, adapters...)
	}
}

// WithTracing traces commands, stores and event handlers with the global
// opentracing tracer.
func WithTracing() Option {
	return func(o *options) {
		o.tracing = true
	}
}

// WithLocking sets if commands for the same aggregate are serialized in
// process, enabled by default. Concurrent commands that are not serialized
// are resolved by retrying on conflicts.
func WithLocking(locking bool) Option {
	return func(o *options) {
		o.locking = locking
	}
}

// WithAttempts sets the number of attempts for conflicting commands.
func WithAttempts(n int) Option {
	return func(o *options) {
		o.attempts = n
	}
}

// WithDueOnly sets if only due cards are used for new sessions.
func WithDueOnly(dueOnly bool) Option {
	return func(o *options) {
		o.dueOnly = dueOnly
	}
}

// WithLogger sets the logger of the application and all of its parts.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// App is the wired application.
type App struct {
	// Commands handles all commands of the deck and learning aggregates.
	Commands recall.CommandHandler
	// Learning runs learning sessions.
	Learning *learning.Service

	stores     Stores
	dispatcher *local.Dispatcher
	acl        *acl.EventHandler
	errCh      chan recall.EventHandlerError
	logger     *slog.Logger
}

// New wires an App on top of the stores.
func New(stores Stores, opts ...Option) (*App, error) {
	if err := stores.validate(); err != nil {
		return nil, err
	}

	o := options{
		locking:  true,
		attempts: retry.DefaultAttempts,
		dueOnly:  true,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.tracing {
		stores = Stores{
			Events:   tracing.NewEventStore(stores.Events),
			Decks:    tracing.NewViewStore(stores.Decks),
			DeckList: tracing.NewViewStore(stores.DeckList),
			Cards:    tracing.NewViewStore(stores.Cards),
			Sessions: tracing.NewViewStore(stores.Sessions),
		}
	}

	dispatcher := local.NewDispatcher(
		local.WithLogger(o.logger.With("component", "dispatcher")),
	)

	aggregateStore, err := events.NewAggregateStore(stores.Events,
		events.WithEventHandler(dispatcher),
		events.WithLogger(o.logger.With("component", "aggregatestore")),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create aggregate store: %w", err)
	}

	aggregateHandler, err := aggregate.NewCommandHandler(aggregateStore)
	if err != nil {
		return nil, fmt.Errorf("could not create command handler: %w", err)
	}

	var middleware []recall.CommandHandlerMiddleware
	if o.tracing {
		middleware = append(middleware, tracing.NewCommandHandlerMiddleware())
	}

	middleware = append(middleware,
		validate.NewMiddleware(),
		retry.NewMiddleware(
			retry.WithAttempts(o.attempts),
			retry.WithLogger(o.logger.With("component", "retry")),
		),
	)

	if o.locking {
		middleware = append(middleware, lock.NewMiddleware(lock.NewLocalLock(),
			lock.WithBlocking(100*time.Millisecond),
			lock.WithLogger(o.logger.With("component", "lock")),
		))
	}

	commands := recall.UseCommandHandlerMiddleware(aggregateHandler, middleware...)

	a := &App{
		Commands:   commands,
		stores:     stores,
		dispatcher: dispatcher,
		logger:     o.logger,
	}

	if err := a.addProjectors(o); err != nil {
		return nil, err
	}

	if a.acl, err = acl.NewEventHandler(&learning.DeckTranslator{}, commands,
		acl.WithLogger(o.logger.With("component", "acl")),
	); err != nil {
		return nil, fmt.Errorf("could not create deck translator: %w", err)
	}

	if err := dispatcher.AddMatchedHandler(learning.DeckEvents, a.handler(o, a.acl)); err != nil {
		return nil, fmt.Errorf("could not add deck translator: %w", err)
	}

	// Session reads wait for a min version when the context asks for one.
	if a.Learning, err = learning.NewService(commands, stores.Decks, stores.Cards, version.NewViewStore(stores.Sessions),
		learning.WithDueOnly(o.dueOnly),
		learning.WithServiceLogger(o.logger.With("component", "learning")),
	); err != nil {
		return nil, fmt.Errorf("could not create learning service: %w", err)
	}

	a.errCh = make(chan recall.EventHandlerError, local.DefaultErrorQueueSize)
	go a.forwardErrors()

	return a, nil
}

func (a *App) addProjectors(o options) error {
	projectorOptions := func(extra ...projector.Option) []projector.Option {
		return append([]projector.Option{
			projector.WithOutboundAdapters(o.adapters...),
			projector.WithLogger(o.logger.With("component", "projector")),
		}, extra...)
	}

	deckView, err := projector.NewEventHandler[*deck.View](&deck.ViewProjector{}, a.stores.Decks,
		projectorOptions(projector.WithIdempotentVersions())...)
	if err != nil {
		return fmt.Errorf("could not create deck projector: %w", err)
	}

	deckList, err := projector.NewEventHandler[*deck.ListView](&deck.ListProjector{}, a.stores.DeckList,
		projectorOptions(projector.WithViewIDStrategy(projector.Collection(deck.ListViewID)))...)
	if err != nil {
		return fmt.Errorf("could not create deck list projector: %w", err)
	}

	reviews, err := projector.NewEventHandler[*learning.ReviewableCard](&learning.ReviewProjector{}, a.stores.Cards,
		projectorOptions()...)
	if err != nil {
		return fmt.Errorf("could not create review projector: %w", err)
	}

	answers, err := projector.NewEventHandler[*learning.ReviewableCard](&learning.AnswerProjector{}, a.stores.Cards,
		projectorOptions(projector.WithViewIDStrategy(learning.AnsweredCardID()))...)
	if err != nil {
		return fmt.Errorf("could not create answer projector: %w", err)
	}

	sessions, err := projector.NewEventHandler[*learning.SessionView](&learning.SessionProjector{}, a.stores.Sessions,
		projectorOptions(projector.WithIdempotentVersions())...)
	if err != nil {
		return fmt.Errorf("could not create session projector: %w", err)
	}

	handlers := []struct {
		matcher recall.EventMatcher
		handler recall.EventHandler
	}{
		{recall.MatchAggregates(deck.AggregateType), deckView},
		{recall.MatchAggregates(deck.AggregateType), deckList},
		{recall.MatchAggregates(learning.ScheduledReviewAggregateType), reviews},
		{recall.MatchEvents(learning.CardAnswered), answers},
		{recall.MatchAggregates(learning.SessionAggregateType), sessions},
	}

	for _, h := range handlers {
		if err := a.dispatcher.AddMatchedHandler(h.matcher, a.handler(o, h.handler)); err != nil {
			return fmt.Errorf("could not add projector: %w", err)
		}
	}

	return nil
}

func (a *App) handler(o options, h recall.EventHandler) recall.EventHandler {
	if o.tracing {
		return tracing.NewEventHandler(h)
	}

	return h
}

// Stores returns the stores used by the App.
func (a *App) Stores() Stores {
	return a.stores
}

// HandlerErrors returns the errors of the projections and of the commands
// translated from deck events. The channel is closed by Close.
func (a *App) HandlerErrors() <-chan recall.EventHandlerError {
	return a.errCh
}

// forwardErrors merges the dispatcher and ACL errors until the dispatcher is
// closed. Errors are dropped when the channel is full.
func (a *App) forwardErrors() {
	defer close(a.errCh)

	dispatched := a.dispatcher.Errors()
	translated := a.acl.Errors()

	for {
		var err recall.EventHandlerError

		select {
		case e, ok := <-dispatched:
			if !ok {
				return
			}

			err = e
		case e := <-translated:
			err = recall.EventHandlerError{
				Err:         e,
				HandlerType: a.acl.HandlerType(),
			}
			if e.Event != nil {
				err.Events = []recall.Event{e.Event}
			}
		}

		select {
		case a.errCh <- err:
		default:
		}
	}
}

// Close stops the dispatching of events and closes the stores.
func (a *App) Close() error {
	if err := a.dispatcher.Close(); err != nil {
		return err
	}

	return a.stores.Close()
}
