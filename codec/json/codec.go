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

// Package json encodes events and view updates for outbound adapters.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/looplab/recall"
	"github.com/looplab/recall/tracing"
)

// EventCodec is a codec for marshaling and unmarshaling events
// to and from bytes in JSON format.
type EventCodec struct{}

// MarshalEvent marshals an event into bytes in JSON format.
func (c *EventCodec) MarshalEvent(ctx context.Context, event recall.Event) ([]byte, error) {
	e, err := newEvt(event)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("could not marshal event: %w", err)
	}

	return b, nil
}

// UnmarshalEvent unmarshals an event from bytes in JSON format.
func (c *EventCodec) UnmarshalEvent(ctx context.Context, b []byte) (recall.Event, error) {
	var e evt
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("could not unmarshal event: %w", err)
	}

	return e.event()
}

// Update is a changed view together with the events that changed it.
type Update struct {
	ViewID string
	// View is the raw JSON of the view, its type depends on the view ID.
	View   json.RawMessage
	Events []recall.Event
	// Trace is the tracing span of the sender, if any.
	Trace map[string]string
}

// UpdateCodec is a codec for view updates sent by outbound adapters.
type UpdateCodec struct{}

// MarshalUpdate marshals a view update, with the tracing span of the
// context, into bytes in JSON format.
func (c *UpdateCodec) MarshalUpdate(ctx context.Context, view recall.View, viewID string, events []recall.Event) ([]byte, error) {
	u := update{
		ViewID: viewID,
		Events: make([]evt, len(events)),
		Trace:  tracing.Inject(ctx),
	}

	var err error
	if u.View, err = json.Marshal(view); err != nil {
		return nil, fmt.Errorf("could not marshal view: %w", err)
	}

	for i, event := range events {
		e, err := newEvt(event)
		if err != nil {
			return nil, err
		}

		u.Events[i] = *e
	}

	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("could not marshal update: %w", err)
	}

	return b, nil
}

// UnmarshalUpdate unmarshals a view update from bytes in JSON format.
func (c *UpdateCodec) UnmarshalUpdate(ctx context.Context, b []byte) (*Update, error) {
	var u update
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("could not unmarshal update: %w", err)
	}

	out := &Update{
		ViewID: u.ViewID,
		View:   u.View,
		Events: make([]recall.Event, len(u.Events)),
		Trace:  u.Trace,
	}

	for i, e := range u.Events {
		event, err := e.event()
		if err != nil {
			return nil, err
		}

		out.Events[i] = event
	}

	return out, nil
}

// update is the internal view update used on the wire only.
type update struct {
	ViewID string            `json:"view_id"`
	View   json.RawMessage   `json:"view"`
	Events []evt             `json:"events"`
	Trace  map[string]string `json:"trace,omitempty"`
}

// evt is the internal event used on the wire only.
type evt struct {
	EventType     recall.EventType       `json:"event_type"`
	RawData       json.RawMessage        `json:"data,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	AggregateType recall.AggregateType   `json:"aggregate_type"`
	AggregateID   string                 `json:"aggregate_id"`
	Version       int                    `json:"version"`
	SchemaVersion string                 `json:"schema_version,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
}

func newEvt(event recall.Event) (*evt, error) {
	e := &evt{
		EventType:     event.EventType(),
		Timestamp:     event.Timestamp(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		Version:       event.Version(),
		SchemaVersion: event.SchemaVersion(),
		Metadata:      event.Metadata(),
	}

	// Marshal event data if there is any.
	if event.Data() != nil {
		var err error
		if e.RawData, err = json.Marshal(event.Data()); err != nil {
			return nil, fmt.Errorf("could not marshal event data: %w", err)
		}
	}

	return e, nil
}

func (e *evt) event() (recall.Event, error) {
	var data recall.EventData

	// Create an event of the correct type and decode from raw JSON.
	if len(e.RawData) > 0 && string(e.RawData) != "null" {
		var err error
		if data, err = recall.CreateEventData(e.EventType); err != nil {
			return nil, fmt.Errorf("could not create event data: %w", err)
		}

		if err := json.Unmarshal(e.RawData, data); err != nil {
			return nil, fmt.Errorf("could not unmarshal event data: %w", err)
		}
	}

	return recall.NewEvent(
		e.EventType,
		data,
		e.Timestamp,
		recall.ForAggregate(
			e.AggregateType,
			e.AggregateID,
			e.Version,
		),
		recall.WithMetadata(e.Metadata),
		recall.WithSchemaVersion(e.SchemaVersion),
	), nil
}
