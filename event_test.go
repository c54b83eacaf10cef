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
	"errors"
	"reflect"
	"testing"
	"time"
)

const (
	testAggregateType     = AggregateType("TestAggregate")
	testEventType         = EventType("TestEvent")
	testEventRegisterType = EventType("TestEventRegister")
)

type testEventData struct {
	Content string
}

type testEventRegisterData struct{}

func TestNewEvent(t *testing.T) {
	timestamp := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)
	event := NewEvent(testEventType, &testEventData{"event1"}, timestamp)

	if event.EventType() != testEventType {
		t.Error("the event type should be correct:", event.EventType())
	}

	if !reflect.DeepEqual(event.Data(), &testEventData{"event1"}) {
		t.Error("the data should be correct:", event.Data())
	}

	if !event.Timestamp().Equal(timestamp) {
		t.Error("the timestamp should not be zero:", event.Timestamp())
	}

	if event.Version() != 0 {
		t.Error("the version should be zero:", event.Version())
	}

	if event.SchemaVersion() != DefaultSchemaVersion {
		t.Error("the schema version should be the default:", event.SchemaVersion())
	}

	if event.String() != "TestEvent" {
		t.Error("the string representation should be correct:", event.String())
	}

	event = NewEvent(testEventType, &testEventData{"event1"}, timestamp,
		ForAggregate(testAggregateType, "deck-1", 3),
		WithMetadata(map[string]interface{}{"meta": "data", "num": 42}),
		WithSchemaVersion("2"),
	)

	if event.AggregateType() != testAggregateType {
		t.Error("the aggregate type should be correct:", event.AggregateType())
	}

	if event.AggregateID() != "deck-1" {
		t.Error("the aggregate ID should be correct:", event.AggregateID())
	}

	if event.Version() != 3 {
		t.Error("the version should be correct:", event.Version())
	}

	if event.SchemaVersion() != "2" {
		t.Error("the schema version should be correct:", event.SchemaVersion())
	}

	if !reflect.DeepEqual(event.Metadata(), map[string]interface{}{
		"meta": "data",
		"num":  42,
	}) {
		t.Error("the metadata should be correct:", event.Metadata())
	}

	if event.String() != "TestEvent(deck-1, v3)" {
		t.Error("the string representation should be correct:", event.String())
	}
}

func TestCreateEventData(t *testing.T) {
	data, err := CreateEventData(testEventRegisterType)
	if !errors.Is(err, ErrEventDataNotRegistered) {
		t.Error("there should be a event not registered error:", err)
	}

	if data != nil {
		t.Error("the data should be nil")
	}

	RegisterEventData(testEventRegisterType, func() EventData {
		return &testEventRegisterData{}
	})

	defer UnregisterEventData(testEventRegisterType)

	data, err = CreateEventData(testEventRegisterType)
	if err != nil {
		t.Error("there should be no error:", err)
	}

	if _, ok := data.(*testEventRegisterData); !ok {
		t.Errorf("the event type should be correct: %T", data)
	}
}

func TestRegisterEventDataDuplicate(t *testing.T) {
	defer func() {
		if r := recover(); r == nil || r != "recall: registering duplicate types for \"TestEventDuplicate\"" {
			t.Error("there should have been a panic:", r)
		}
	}()

	RegisterEventData("TestEventDuplicate", func() EventData { return nil })
	RegisterEventData("TestEventDuplicate", func() EventData { return nil })
}

func TestCompareEvents(t *testing.T) {
	timestamp := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)
	e1 := NewEvent(testEventType, &testEventData{"a"}, timestamp,
		ForAggregate(testAggregateType, "id", 1),
		WithMetadata(map[string]interface{}{"position": 4}),
	)
	e2 := NewEvent(testEventType, &testEventData{"a"}, timestamp.Add(time.Second),
		ForAggregate(testAggregateType, "id", 2),
	)

	if err := CompareEvents(e1, e2); err == nil {
		t.Error("the events should differ")
	}

	if err := CompareEvents(e1, e2,
		IgnoreTimestamp(),
		IgnoreVersion(),
		IgnorePositionMetadata(),
	); err != nil {
		t.Error("there should be no error:", err)
	}

	if CompareEventSlices([]Event{e1}, []Event{e1, e2}) {
		t.Error("slices of different length should differ")
	}
}
