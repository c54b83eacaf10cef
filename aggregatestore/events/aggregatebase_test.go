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

package events

import (
	"reflect"
	"testing"
	"time"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mocks"
)

func TestAggregateBase(t *testing.T) {
	agg := NewAggregateBase(mocks.AggregateType, "id")

	if agg.EntityID() != "id" {
		t.Error("the entity ID should be correct:", agg.EntityID())
	}

	if agg.AggregateType() != mocks.AggregateType {
		t.Error("the aggregate type should be correct:", agg.AggregateType())
	}

	if agg.AggregateVersion() != 0 {
		t.Error("the version should be 0:", agg.AggregateVersion())
	}

	agg.SetAggregateVersion(3)

	if agg.AggregateVersion() != 3 {
		t.Error("the version should be 3:", agg.AggregateVersion())
	}
}

func TestAggregateBase_AppendEvent(t *testing.T) {
	agg := NewAggregateBase(mocks.AggregateType, "id")
	agg.SetAggregateVersion(1)

	timestamp := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)
	event1 := agg.AppendEvent(mocks.EventType, &mocks.EventData{Content: "event1"}, timestamp)
	event2 := agg.AppendEvent(mocks.EventType, &mocks.EventData{Content: "event2"}, timestamp)

	expected := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event1"}, timestamp,
		recall.ForAggregate(mocks.AggregateType, "id", 2))
	if err := recall.CompareEvents(event1, expected); err != nil {
		t.Error("the event should be correct:", err)
	}

	if event2.Version() != 3 {
		t.Error("the second event should have the next version:", event2.Version())
	}

	if !reflect.DeepEqual(agg.UncommittedEvents(), []recall.Event{event1, event2}) {
		t.Error("there should be two uncommitted events:", agg.UncommittedEvents())
	}

	agg.ClearUncommittedEvents()

	if len(agg.UncommittedEvents()) != 0 {
		t.Error("there should be no uncommitted events:", agg.UncommittedEvents())
	}
}
