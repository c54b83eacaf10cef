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

package events

import (
	"time"

	"github.com/looplab/recall"
)

// AggregateBase is a event sourced aggregate base to embed in a domain aggregate.
//
// A typical example:
//   type Deck struct {
//       *events.AggregateBase
//
//       name string
//   }
//
// Using a new function to create aggregates and setting up the
// aggregate base is recommended:
//   func NewDeck(id string) *Deck {
//       return &Deck{
//           AggregateBase: events.NewAggregateBase(DeckAggregateType, id),
//       }
//   }
//
// The aggregate must also be registered, in this case:
//   func init() {
//       recall.RegisterAggregate(func(id string) recall.Aggregate {
//           return NewDeck(id)
//       })
//   }
//
// HandleCommand records new events with AppendEvent, ApplyEvent folds them
// into the state once they are saved:
//   func (d *Deck) ApplyEvent(ctx context.Context, event recall.Event) {
//       switch event.EventType() {
//       case DeckCreatedEvent:
//           // Apply the event data to the aggregate.
//       }
//   }
type AggregateBase struct {
	id     string
	t      recall.AggregateType
	v      int
	events []recall.Event
}

// NewAggregateBase creates an aggregate.
func NewAggregateBase(t recall.AggregateType, id string) *AggregateBase {
	return &AggregateBase{
		id: id,
		t:  t,
	}
}

// EntityID implements the EntityID method of the recall.Entity and recall.Aggregate interface.
func (a *AggregateBase) EntityID() string {
	return a.id
}

// AggregateType implements the AggregateType method of the recall.Aggregate interface.
func (a *AggregateBase) AggregateType() recall.AggregateType {
	return a.t
}

// AggregateVersion implements the AggregateVersion method of the VersionedAggregate interface.
func (a *AggregateBase) AggregateVersion() int {
	return a.v
}

// SetAggregateVersion implements the SetAggregateVersion method of the VersionedAggregate interface.
func (a *AggregateBase) SetAggregateVersion(v int) {
	a.v = v
}

// UncommittedEvents implements the UncommittedEvents method of the VersionedAggregate interface.
func (a *AggregateBase) UncommittedEvents() []recall.Event {
	return a.events
}

// ClearUncommittedEvents implements the ClearUncommittedEvents method of the VersionedAggregate interface.
func (a *AggregateBase) ClearUncommittedEvents() {
	a.events = nil
}

// AppendEvent appends an event for later retrieval by UncommittedEvents().
// The event version continues from the aggregate version and the events
// already appended.
func (a *AggregateBase) AppendEvent(t recall.EventType, data recall.EventData, timestamp time.Time, options ...recall.EventOption) recall.Event {
	options = append(options, recall.ForAggregate(
		a.AggregateType(),
		a.EntityID(),
		a.AggregateVersion()+len(a.events)+1),
	)
	e := recall.NewEvent(t, data, timestamp, options...)
	a.events = append(a.events, e)

	return e
}
