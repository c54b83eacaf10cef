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

package recall

import (
	"context"
	"fmt"
)

// EventHandlerType is the type of an event handler, used as its unique identifier.
type EventHandlerType string

// String returns the string representation of an event handler type.
func (ht EventHandlerType) String() string {
	return string(ht)
}

// EventHandler is a handler of committed events. It receives the events of
// one successful save at a time, in commit order.
type EventHandler interface {
	// HandlerType is the type of the handler.
	HandlerType() EventHandlerType

	// HandleEvents handles a batch of newly committed events for an aggregate.
	HandleEvents(ctx context.Context, aggregateID string, events []Event) error
}

// EventHandlerFunc is a function that can be used as a event handler.
type EventHandlerFunc func(context.Context, string, []Event) error

// HandleEvents implements the HandleEvents method of the EventHandler.
func (h EventHandlerFunc) HandleEvents(ctx context.Context, id string, events []Event) error {
	return h(ctx, id, events)
}

// HandlerType implements the HandlerType method of the EventHandler.
func (h EventHandlerFunc) HandlerType() EventHandlerType {
	return EventHandlerType(fmt.Sprintf("handler-func-%v", h))
}

// EventHandlerError is an error returned by a handler, with the events that
// were handled.
type EventHandlerError struct {
	// Err is the error.
	Err error
	// HandlerType is the handler that failed.
	HandlerType EventHandlerType
	// Events are the events being handled.
	Events []Event
}

// Error implements the Error method of the errors.Error interface.
func (e *EventHandlerError) Error() string {
	str := "event handler"

	if e.HandlerType != "" {
		str += " '" + e.HandlerType.String() + "'"
	}

	str += ": "

	if e.Err != nil {
		str += e.Err.Error()
	} else {
		str += "unknown error"
	}

	if len(e.Events) > 0 {
		str += fmt.Sprintf(", %s", e.Events[0])
		if len(e.Events) > 1 {
			str += fmt.Sprintf(" (+%d)", len(e.Events)-1)
		}
	}

	return str
}

// Unwrap implements the errors.Unwrap method.
func (e *EventHandlerError) Unwrap() error {
	return e.Err
}

// OutboundAdapter is notified after a projector has persisted a view. It is
// a fire and forget notification, errors are logged by the caller only.
type OutboundAdapter interface {
	// OnUpdate is called with the persisted view, its id and the events that
	// were folded into it.
	OnUpdate(ctx context.Context, view View, viewID string, events []Event) error
}

// OutboundAdapterFunc is a function that can be used as an outbound adapter.
type OutboundAdapterFunc func(context.Context, View, string, []Event) error

// OnUpdate implements the OnUpdate method of the OutboundAdapter interface.
func (f OutboundAdapterFunc) OnUpdate(ctx context.Context, view View, viewID string, events []Event) error {
	return f(ctx, view, viewID, events)
}
