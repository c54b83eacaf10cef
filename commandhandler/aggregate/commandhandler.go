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

package aggregate

import (
	"context"
	"errors"

	"github.com/looplab/recall"
)

var (
	// ErrNilAggregateStore is when a handler is created with a nil aggregate store.
	ErrNilAggregateStore = errors.New("aggregate store is nil")
	// ErrMissingAggregateID is when a command is handled without an aggregate ID.
	ErrMissingAggregateID = errors.New("missing aggregate ID")
	// ErrNilCommand is when a nil command is handled.
	ErrNilCommand = errors.New("nil command")
)

// CommandHandler executes commands against event sourced aggregates.
//
// The process is as follows:
// 1. The handler receives a command and the aggregate ID.
// 2. The aggregate is rebuilt by replaying its events with the aggregate store.
// 3. The aggregate's command handler is called.
// 4. The aggregate records events in response to the command.
// 5. The new events are appended with the loaded version as expected version.
// 6. The events are applied and dispatched after a successful append.
//
// Conflicting appends are returned as errors wrapping ErrConcurrencyConflict,
// the handler never retries by itself. See the retry middleware.
type CommandHandler struct {
	store recall.AggregateStore
}

var _ = recall.CommandHandler(&CommandHandler{})

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(store recall.AggregateStore) (*CommandHandler, error) {
	if store == nil {
		return nil, ErrNilAggregateStore
	}

	h := &CommandHandler{
		store: store,
	}

	return h, nil
}

// HandleCommand implements the HandleCommand method of the recall.CommandHandler
// interface, executing the command against the aggregate with the ID.
func (h *CommandHandler) HandleCommand(ctx context.Context, id string, cmd recall.Command) error {
	if cmd == nil {
		return ErrNilCommand
	}

	if id == "" {
		return ErrMissingAggregateID
	}

	a, err := h.store.Load(ctx, cmd.AggregateType(), id)
	if err != nil {
		return err
	} else if a == nil {
		return recall.ErrAggregateNotFound
	}

	if err = a.HandleCommand(ctx, cmd); err != nil {
		return err
	}

	return h.store.Save(ctx, a)
}
