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
	"errors"
	"fmt"
	"sync"
)

// Aggregate is an interface representing a versioned data entity created from
// events. It receives commands and generates events that are stored.
//
// The aggregate is created/loaded and saved by the AggregateStore inside the
// aggregate command handler. A domain specific aggregate can either implement
// the full interface, or more commonly embed *events.AggregateBase to take care
// of the common methods.
type Aggregate interface {
	// Entity provides the ID of the aggregate.
	Entity

	// AggregateType returns the type name of the aggregate.
	AggregateType() AggregateType

	// HandleCommand validates a command against the current state and records
	// the resulting events as uncommitted. It must not do any I/O.
	HandleCommand(context.Context, Command) error
}

// AggregateType is the type of an aggregate.
type AggregateType string

// String returns the string representation of an aggregate type.
func (at AggregateType) String() string {
	return string(at)
}

// AggregateStore is responsible for loading and saving aggregates.
type AggregateStore interface {
	// Load loads the most recent version of an aggregate with a type and id.
	// An id without events gives a new aggregate at version 0.
	Load(context.Context, AggregateType, string) (Aggregate, error)

	// Save saves the uncommitted events for an aggregate.
	Save(context.Context, Aggregate) error
}

// AggregateStoreOperation is the operation done when an error happened.
type AggregateStoreOperation string

const (
	// Errors during loading of aggregates.
	AggregateStoreOpLoad = "load"
	// Errors during saving of aggregates.
	AggregateStoreOpSave = "save"
)

// AggregateStoreError contains related info about errors in the store.
type AggregateStoreError struct {
	// Err is the error.
	Err error
	// Op is the operation for the error.
	Op AggregateStoreOperation
	// AggregateType of related operation.
	AggregateType AggregateType
	// AggregateID of related operation.
	AggregateID string
}

// Error implements the Error method of the errors.Error interface.
func (e *AggregateStoreError) Error() string {
	str := "aggregate store: "

	if e.Op != "" {
		str += string(e.Op) + ": "
	}

	if e.Err != nil {
		str += e.Err.Error()
	} else {
		str += "unknown error"
	}

	if e.AggregateID != "" {
		str += " " + e.AggregateType.String() + "(" + e.AggregateID + ")"
	}

	return str
}

// Unwrap implements the errors.Unwrap method.
func (e *AggregateStoreError) Unwrap() error {
	return e.Err
}

// ErrAggregateNotRegistered is when no aggregate factory was registered.
var ErrAggregateNotRegistered = errors.New("aggregate not registered")

// RegisterAggregate registers an aggregate factory for a type. The factory is
// used to create concrete aggregate types when loading from the database.
//
// An example would be:
//     RegisterAggregate(func(id string) Aggregate { return NewDeck(id) })
func RegisterAggregate(factory func(string) Aggregate) {
	// Check that the created aggregate matches the registered type.
	aggregate := factory("")
	if aggregate == nil {
		panic("recall: created aggregate is nil")
	}

	aggregateType := aggregate.AggregateType()
	if aggregateType == AggregateType("") {
		panic("recall: attempt to register empty aggregate type")
	}

	aggregatesMu.Lock()
	defer aggregatesMu.Unlock()

	if _, ok := aggregates[aggregateType]; ok {
		panic(fmt.Sprintf("recall: registering duplicate types for %q", aggregateType))
	}

	aggregates[aggregateType] = factory
}

// CreateAggregate creates an aggregate of a type with an ID using the factory
// registered with RegisterAggregate.
func CreateAggregate(aggregateType AggregateType, id string) (Aggregate, error) {
	aggregatesMu.RLock()
	defer aggregatesMu.RUnlock()

	if factory, ok := aggregates[aggregateType]; ok {
		return factory(id), nil
	}

	return nil, ErrAggregateNotRegistered
}

var aggregates = make(map[AggregateType]func(string) Aggregate)
var aggregatesMu sync.RWMutex
