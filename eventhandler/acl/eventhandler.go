// Copyright (c) 2016 - The Event Horizon authors.
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

package acl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/looplab/recall"
)

// Translator turns an event of one domain into commands for another domain.
// Translations must not do any I/O, the commands are executed by the
// EventHandler.
type Translator interface {
	// TranslatorType returns the type of the translator.
	TranslatorType() Type

	// Translate returns the commands to execute for an event, if any.
	Translate(context.Context, recall.Event) ([]Target, error)
}

// Type is the type of a translator, used as its unique identifier.
type Type string

// String returns the string representation of a translator type.
func (t Type) String() string {
	return string(t)
}

// Target is a command addressed to an aggregate.
type Target struct {
	AggregateID string
	Command     recall.Command
	// Idempotent targets treat an already existing aggregate as success.
	Idempotent bool
}

// Error is an error in the anti-corruption layer.
type Error struct {
	// Err is the error that happened when translating or executing.
	Err error
	// Translator is the translator where the error happened.
	Translator string
	// Event is the event being translated.
	Event recall.Event
	// Target is the failed command, if the translation succeeded.
	Target *Target
}

// Error implements the Error method of the errors.Error interface.
func (e *Error) Error() string {
	str := "acl '" + e.Translator + "': "

	if e.Err != nil {
		str += e.Err.Error()
	} else {
		str += "unknown error"
	}

	if e.Target != nil && e.Target.Command != nil {
		str += fmt.Sprintf(", %s(%s)", e.Target.Command.CommandType(), e.Target.AggregateID)
	}

	if e.Event != nil {
		str += ", " + e.Event.String()
	}

	return str
}

// Unwrap implements the errors.Unwrap method.
func (e *Error) Unwrap() error {
	return e.Err
}

// DefaultErrorQueueSize is the size of the error channel. Errors are dropped
// when nobody reads the channel and it is full.
var DefaultErrorQueueSize = 100

// EventHandler issues the commands of a Translator for each handled event.
// Consistency between the domains is eventual and best effort: failures are
// logged and sent on the Errors channel, but are never returned to the
// committer of the events.
type EventHandler struct {
	translator     Translator
	commandHandler recall.CommandHandler
	errCh          chan *Error
	logger         *slog.Logger
}

var _ = recall.EventHandler(&EventHandler{})

// Option is an option setter used to configure creation.
type Option func(*EventHandler)

// WithLogger sets the logger used for failures.
func WithLogger(l *slog.Logger) Option {
	return func(h *EventHandler) {
		h.logger = l
	}
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(translator Translator, commandHandler recall.CommandHandler, options ...Option) (*EventHandler, error) {
	if translator == nil {
		return nil, errors.New("missing translator")
	}

	if commandHandler == nil {
		return nil, errors.New("missing command handler")
	}

	h := &EventHandler{
		translator:     translator,
		commandHandler: commandHandler,
		errCh:          make(chan *Error, DefaultErrorQueueSize),
		logger:         slog.Default().With("component", "acl"),
	}

	for _, option := range options {
		option(h)
	}

	return h, nil
}

// HandlerType implements the HandlerType method of the recall.EventHandler interface.
func (h *EventHandler) HandlerType() recall.EventHandlerType {
	return recall.EventHandlerType("acl_" + h.translator.TranslatorType())
}

// HandleEvents implements the HandleEvents method of the recall.EventHandler
// interface. It always returns nil.
func (h *EventHandler) HandleEvents(ctx context.Context, id string, events []recall.Event) error {
	for _, event := range events {
		targets, err := h.translator.Translate(ctx, event)
		if err != nil {
			h.fail(&Error{
				Err:        err,
				Translator: h.translator.TranslatorType().String(),
				Event:      event,
			})

			continue
		}

		for i := range targets {
			t := targets[i]

			err := h.commandHandler.HandleCommand(ctx, t.AggregateID, t.Command)
			if err == nil || (t.Idempotent && errors.Is(err, recall.ErrAggregateAlreadyExists)) {
				continue
			}

			h.fail(&Error{
				Err:        err,
				Translator: h.translator.TranslatorType().String(),
				Event:      event,
				Target:     &t,
			})
		}
	}

	return nil
}

// Errors returns an error channel where translation and command errors are
// sent.
func (h *EventHandler) Errors() <-chan *Error {
	return h.errCh
}

func (h *EventHandler) fail(err *Error) {
	h.logger.Error("could not translate event", "error", err)

	select {
	case h.errCh <- err:
	default:
	}
}
