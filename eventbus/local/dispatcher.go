// Copyright (c) 2018 - The Event Horizon authors.
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
	"fmt"
	"log/slog"
	"sync"

	"github.com/looplab/recall"
	"github.com/looplab/recall/copyutils"
)

var (
	// ErrMissingHandler is returned when adding a nil handler.
	ErrMissingHandler = errors.New("missing handler")
	// ErrHandlerAlreadyAdded is returned when adding a handler type twice.
	ErrHandlerAlreadyAdded = errors.New("handler already added")
	// ErrDispatcherClosed is returned when dispatching after Close.
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// DefaultErrorQueueSize is the size of the error channel. Errors are dropped
// when nobody reads the channel and it is full.
var DefaultErrorQueueSize = 100

// Dispatcher delivers each committed batch of events to all registered
// handlers, in order of registration. Every handler gets its own copy of the
// events so that one handler can not change what another one sees.
//
// A failing handler does not stop the others and its error is never returned
// to the committer, it is logged and sent on the Errors channel.
//
// Handlers may commit new events, which are dispatched re-entrantly. No lock
// is held while handlers run.
type Dispatcher struct {
	handlers   []registration
	handlersMu sync.Mutex
	inflight   sync.WaitGroup

	errCh  chan recall.EventHandlerError
	closed bool
	logger *slog.Logger
}

type registration struct {
	matcher recall.EventMatcher
	handler recall.EventHandler
}

var _ = recall.EventHandler(&Dispatcher{})

// Option is an option setter used to configure creation.
type Option func(*Dispatcher)

// WithLogger sets the logger used for handler errors.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates a Dispatcher without handlers.
func NewDispatcher(options ...Option) *Dispatcher {
	d := &Dispatcher{
		errCh:  make(chan recall.EventHandlerError, DefaultErrorQueueSize),
		logger: slog.Default().With("component", "dispatcher"),
	}

	for _, option := range options {
		if option != nil {
			option(d)
		}
	}

	return d
}

// HandlerType implements the HandlerType method of the recall.EventHandler interface.
func (d *Dispatcher) HandlerType() recall.EventHandlerType {
	return "dispatcher"
}

// AddHandler registers a handler for all events.
func (d *Dispatcher) AddHandler(h recall.EventHandler) error {
	return d.AddMatchedHandler(nil, h)
}

// AddMatchedHandler registers a handler that only gets the events of each
// batch that the matcher accepts. Batches without matching events are not
// delivered. A nil matcher accepts all events.
func (d *Dispatcher) AddMatchedHandler(m recall.EventMatcher, h recall.EventHandler) error {
	if h == nil {
		return ErrMissingHandler
	}

	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	for _, r := range d.handlers {
		if r.handler.HandlerType() == h.HandlerType() {
			return fmt.Errorf("%w: %s", ErrHandlerAlreadyAdded, h.HandlerType())
		}
	}

	d.handlers = append(d.handlers, registration{matcher: m, handler: h})

	return nil
}

// HandleEvents implements the HandleEvents method of the recall.EventHandler
// interface. It is called once per commit with the newly committed events.
func (d *Dispatcher) HandleEvents(ctx context.Context, id string, events []recall.Event) error {
	d.handlersMu.Lock()
	if d.closed {
		d.handlersMu.Unlock()

		return ErrDispatcherClosed
	}

	handlers := append([]registration(nil), d.handlers...)
	d.inflight.Add(1)
	d.handlersMu.Unlock()

	defer d.inflight.Done()

	for _, r := range handlers {
		matched := r.matcher.Filter(events)
		if len(matched) == 0 {
			continue
		}

		copies, err := copyEvents(matched)
		if err == nil {
			err = r.handler.HandleEvents(ctx, id, copies)
		}

		if err != nil {
			d.logger.Error("could not handle events",
				"handler", r.handler.HandlerType().String(),
				"aggregate_id", id,
				"events", len(matched),
				"error", err,
			)

			select {
			case d.errCh <- recall.EventHandlerError{
				Err:         err,
				HandlerType: r.handler.HandlerType(),
				Events:      matched,
			}:
			default:
			}
		}
	}

	return nil
}

// Errors returns a channel with the errors from the handlers. The channel is
// closed by Close.
func (d *Dispatcher) Errors() <-chan recall.EventHandlerError {
	return d.errCh
}

// Close stops all further dispatching and waits for ongoing dispatches.
// Dispatches that start during Close fail with ErrDispatcherClosed. It must
// not be called synchronously from a handler.
func (d *Dispatcher) Close() error {
	d.handlersMu.Lock()
	if d.closed {
		d.handlersMu.Unlock()

		return nil
	}

	d.closed = true
	d.handlersMu.Unlock()

	d.inflight.Wait()
	close(d.errCh)

	return nil
}

func copyEvents(events []recall.Event) ([]recall.Event, error) {
	copies := make([]recall.Event, len(events))

	for i, event := range events {
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

		copies[i] = recall.NewEvent(
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
		)
	}

	return copies, nil
}
