// Copyright (c) 2017 - The Event Horizon authors.
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

package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"

	"github.com/looplab/recall"
)

// DefaultRetries is the number of extra load-fold-update cycles after a view
// version conflict.
var DefaultRetries = 3

// EventHandler runs a Projector for each batch of committed events. The
// events of a batch are grouped by view ID and each group is folded into its
// view in one load-fold-update cycle, holding a lock for the view ID.
type EventHandler[V any] struct {
	projector Projector[V]
	store     recall.ViewStore
	config
}

type config struct {
	strategy   ViewIDStrategy
	adapters   []recall.OutboundAdapter
	retries    int
	backoff    backoff.Backoff
	idempotent bool
	locks      *keyLocks
	logger     *slog.Logger
}

// Option is an option setter used to configure creation.
type Option func(*config)

// WithViewIDStrategy sets how view IDs are picked, Individual by default.
func WithViewIDStrategy(s ViewIDStrategy) Option {
	return func(c *config) {
		c.strategy = s
	}
}

// WithOutboundAdapters adds adapters that are notified after each update.
func WithOutboundAdapters(adapters ...recall.OutboundAdapter) Option {
	return func(c *config) {
		c.adapters = append(c.adapters, adapters...)
	}
}

// WithRetries sets the number of retries after a view version conflict.
func WithRetries(n int) Option {
	return func(c *config) {
		c.retries = n
	}
}

// WithBackoff sets the wait between retries.
func WithBackoff(min, max time.Duration) Option {
	return func(c *config) {
		c.backoff.Min = min
		c.backoff.Max = max
	}
}

// WithIdempotentVersions skips events with a version at or below the stored
// view version. It only holds for individual views that get every event of
// their aggregate, where the view version follows the aggregate version.
func WithIdempotentVersions() Option {
	return func(c *config) {
		c.idempotent = true
	}
}

// WithLogger sets the logger used for adapter errors.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler[V any](projector Projector[V], store recall.ViewStore, options ...Option) (*EventHandler[V], error) {
	if projector == nil {
		return nil, ErrMissingProjector
	}

	if store == nil {
		return nil, ErrMissingViewStore
	}

	h := &EventHandler[V]{
		projector: projector,
		store:     store,
		config: config{
			strategy: Individual(),
			retries:  DefaultRetries,
			backoff: backoff.Backoff{
				Min:    10 * time.Millisecond,
				Max:    time.Second,
				Factor: 2,
				Jitter: true,
			},
			locks: newKeyLocks(),
		},
	}

	for _, option := range options {
		if option != nil {
			option(&h.config)
		}
	}

	if h.logger == nil {
		h.logger = slog.Default().With("component", "projector", "projector", projector.ProjectorType().String())
	}

	return h, nil
}

// HandlerType implements the HandlerType method of the recall.EventHandler interface.
func (h *EventHandler[V]) HandlerType() recall.EventHandlerType {
	return recall.EventHandlerType("projector_" + h.projector.ProjectorType())
}

// HandleEvents implements the HandleEvents method of the recall.EventHandler interface.
func (h *EventHandler[V]) HandleEvents(ctx context.Context, id string, events []recall.Event) error {
	var (
		order  []string
		groups = map[string][]recall.Event{}
	)

	for _, event := range events {
		viewID := h.strategy(event)
		if viewID == "" {
			continue
		}

		if _, ok := groups[viewID]; !ok {
			order = append(order, viewID)
		}

		groups[viewID] = append(groups[viewID], event)
	}

	var errs []error

	for _, viewID := range order {
		if err := h.project(ctx, viewID, groups[viewID]); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *EventHandler[V]) project(ctx context.Context, viewID string, events []recall.Event) error {
	unlock := h.locks.lock(viewID)
	defer unlock()

	b := h.backoff

	for attempt := 0; ; attempt++ {
		view, folded, err := h.update(ctx, viewID, events)
		if err == nil {
			if len(folded) > 0 {
				h.notify(ctx, view, viewID, folded)
			}

			return nil
		}

		if !errors.Is(err, recall.ErrIncorrectViewVersion) || attempt >= h.retries {
			return &Error{
				Err:       err,
				Projector: h.projector.ProjectorType().String(),
				ViewID:    viewID,
				Events:    events,
			}
		}

		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return &Error{
				Err:       ctx.Err(),
				Projector: h.projector.ProjectorType().String(),
				ViewID:    viewID,
				Events:    events,
			}
		}
	}
}

// update runs one load-fold-update cycle and returns the stored view with
// the events that were folded into it.
func (h *EventHandler[V]) update(ctx context.Context, viewID string, events []recall.Event) (V, []recall.Event, error) {
	var view V

	v, vc, err := h.store.LoadWithContext(ctx, viewID)
	if errors.Is(err, recall.ErrViewNotFound) {
		view = h.projector.NewView(viewID)
		vc = recall.NewViewContext(viewID, 0)
	} else if err != nil {
		return view, nil, fmt.Errorf("could not load view: %w", err)
	} else {
		var ok bool
		if view, ok = v.(V); !ok {
			return view, nil, fmt.Errorf("%w: %T", recall.ErrIncorrectViewType, v)
		}
	}

	var folded []recall.Event

	for _, event := range events {
		if h.idempotent && event.Version() <= vc.Version {
			continue
		}

		if view, err = h.projector.Project(ctx, event, view); err != nil {
			return view, nil, fmt.Errorf("could not project %s: %w", event, err)
		}

		vc.Fold()
		folded = append(folded, event)
	}

	if len(folded) == 0 {
		return view, nil, nil
	}

	if err := h.store.UpdateView(ctx, view, vc); err != nil {
		return view, nil, fmt.Errorf("could not update view: %w", err)
	}

	return view, folded, nil
}

func (h *EventHandler[V]) notify(ctx context.Context, view V, viewID string, events []recall.Event) {
	for _, a := range h.adapters {
		if err := a.OnUpdate(ctx, view, viewID, events); err != nil {
			h.logger.Warn("could not notify outbound adapter",
				"view_id", viewID,
				"adapter", fmt.Sprintf("%T", a),
				"error", err,
			)
		}
	}
}
