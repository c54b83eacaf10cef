// Copyright (c) 2020 - The Event Horizon authors.
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

package tracing

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/looplab/recall"
)

// EventHandler is an event handler that adds a tracing span per batch.
type EventHandler struct {
	recall.EventHandler
}

// NewEventHandler wraps an event handler with tracing.
func NewEventHandler(h recall.EventHandler) *EventHandler {
	return &EventHandler{EventHandler: h}
}

// HandleEvents implements the HandleEvents method of the recall.EventHandler interface.
func (h *EventHandler) HandleEvents(ctx context.Context, id string, events []recall.Event) error {
	opName := fmt.Sprintf("%s.Events", h.HandlerType())
	sp, ctx := opentracing.StartSpanFromContext(ctx, opName)

	err := h.EventHandler.HandleEvents(ctx, id, events)
	if err != nil {
		ext.LogError(sp, err)
	}

	sp.SetTag("recall.aggregate_id", id)
	sp.SetTag("recall.events", len(events))

	if len(events) > 0 {
		sp.SetTag("recall.aggregate_type", events[0].AggregateType())
		sp.SetTag("recall.event_type", events[0].EventType())
		sp.SetTag("recall.version", events[len(events)-1].Version())
	}

	sp.Finish()

	return err
}
