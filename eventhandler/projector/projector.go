// Copyright (c) 2017 - Max Ekman <max@looplab.se>
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

	"github.com/looplab/recall"
)

// Projector folds events into a view of type V.
type Projector[V any] interface {
	// ProjectorType returns the type of the projector.
	ProjectorType() Type

	// NewView creates the default view for an id that has no stored view.
	NewView(id string) V

	// Project folds one event into the view and returns the updated view.
	Project(ctx context.Context, event recall.Event, view V) (V, error)
}

// Type is the type of a projector, used as its unique identifier.
type Type string

// String returns the string representation of a projector type.
func (t Type) String() string {
	return string(t)
}

var (
	// ErrMissingProjector is when a handler is created without projector.
	ErrMissingProjector = errors.New("missing projector")
	// ErrMissingViewStore is when a handler is created without view store.
	ErrMissingViewStore = errors.New("missing view store")
)

// Error is an error in the projector.
type Error struct {
	// Err is the error that happened when projecting the events.
	Err error
	// Projector is the projector where the error happened.
	Projector string
	// ViewID is the view being updated.
	ViewID string
	// Events are the events being projected.
	Events []recall.Event
}

// Error implements the Error method of the errors.Error interface.
func (e *Error) Error() string {
	str := "projector '" + e.Projector + "': "

	if e.Err != nil {
		str += e.Err.Error()
	} else {
		str += "unknown error"
	}

	if e.ViewID != "" {
		str += ", View(" + e.ViewID + ")"
	}

	if len(e.Events) > 0 {
		str += ", " + e.Events[0].String()
		if len(e.Events) > 1 {
			str += fmt.Sprintf(" (+%d)", len(e.Events)-1)
		}
	}

	return str
}

// Unwrap implements the errors.Unwrap method.
func (e *Error) Unwrap() error {
	return e.Err
}

// ViewIDStrategy picks the view that an event is folded into. An empty ID
// means that the event is not projected.
type ViewIDStrategy func(recall.Event) string

// Individual keeps one view per aggregate, with the aggregate ID as view ID.
func Individual() ViewIDStrategy {
	return func(e recall.Event) string {
		return e.AggregateID()
	}
}

// Collection folds the events of all aggregates into a single view. An empty
// key gives "<aggregate-type>-collection".
func Collection(key string) ViewIDStrategy {
	return func(e recall.Event) string {
		if key != "" {
			return key
		}

		return e.AggregateType().String() + "-collection"
	}
}

// ByEventData reads the view ID from the event data. Events with data of
// another type are not projected.
func ByEventData[D recall.EventData](f func(D) string) ViewIDStrategy {
	return func(e recall.Event) string {
		d, ok := e.Data().(D)
		if !ok {
			return ""
		}

		return f(d)
	}
}
