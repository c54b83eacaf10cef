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
	"context"

	"github.com/looplab/recall"
)

// VersionedAggregate is an interface representing a versioned aggregate created
// from events. It receives commands and generates events that are stored.
//
// The aggregate is created/loaded and saved by the AggregateStore inside the
// aggregate command handler. A domain specific aggregate can either implement
// the full interface, or more commonly embed *AggregateBase to take care of the
// common methods.
type VersionedAggregate interface {
	// Provides all the basic aggregate data.
	recall.Aggregate

	// AggregateVersion returns the version of the aggregate.
	AggregateVersion() int
	// SetAggregateVersion sets the version of the aggregate. It is only called
	// by the store, after an event has been applied.
	SetAggregateVersion(int)

	// UncommittedEvents returns the events recorded by HandleCommand that are
	// not yet saved.
	UncommittedEvents() []recall.Event
	// ClearUncommittedEvents clears the uncommitted events after saving.
	ClearUncommittedEvents()

	// ApplyEvent applies an event on the aggregate by setting its values.
	// It must be total and deterministic, replaying the same events always
	// gives the same state.
	ApplyEvent(context.Context, recall.Event)
}
