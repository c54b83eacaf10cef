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
	"testing"

	"github.com/looplab/recall/eventstore"
	"github.com/looplab/recall/eventstore/memory"
	"github.com/looplab/recall/viewstore"
	viewmemory "github.com/looplab/recall/viewstore/memory"
)

// NOTE: Not named "Integration" to enable running with the unit tests.
func TestEventStore(t *testing.T) {
	store := NewEventStore(memory.NewEventStore())
	if store == nil {
		t.Fatal("there should be a store")
	}

	eventstore.AcceptanceTest(t, store, context.Background())
	eventstore.ConcurrencyAcceptanceTest(t, store, context.Background())

	if err := store.Close(); err != nil {
		t.Error("there should be no error:", err)
	}
}

// NOTE: Not named "Integration" to enable running with the unit tests.
func TestViewStore(t *testing.T) {
	store := NewViewStore(viewmemory.NewViewStore())
	if store == nil {
		t.Fatal("there should be a store")
	}

	viewstore.AcceptanceTest(t, store, context.Background())
}
