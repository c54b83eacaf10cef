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

// Package outbound holds what the outbound adapters share. The adapters in
// the sub packages publish persisted views to external systems.
package outbound

import (
	"context"

	"github.com/looplab/recall"
	"github.com/looplab/recall/codec/json"
)

// Codec encodes a view update for the wire.
type Codec interface {
	MarshalUpdate(ctx context.Context, view recall.View, viewID string, events []recall.Event) ([]byte, error)
}

var _ = Codec(&json.UpdateCodec{})

// DefaultCodec is the codec used by adapters without a WithCodec option.
func DefaultCodec() Codec {
	return &json.UpdateCodec{}
}

// Headers are the routing attributes sent next to an encoded update, for
// transports that support them.
func Headers(viewID string, events []recall.Event) map[string]string {
	h := map[string]string{
		"view_id": viewID,
	}

	if len(events) > 0 {
		last := events[len(events)-1]
		h["aggregate_type"] = string(last.AggregateType())
		h["event_type"] = string(last.EventType())
	}

	return h
}
