// Copyright (c) 2014 - The Event Horizon authors.
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

package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplab/recall"
	"github.com/looplab/recall/codec/json"
	"github.com/looplab/recall/mocks"
)

func TestAdapterIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}

	a, err := NewAdapter(url, WithSubject("test.updates"))
	if err != nil {
		t.Skip("no NATS server:", err)
	}
	defer a.Close()

	conn, err := nats.Connect(url)
	require.NoError(t, err)
	defer conn.Close()

	sub, err := conn.SubscribeSync("test.updates.*")
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	ctx := context.Background()
	view := &mocks.View{ID: "view-1", Content: "content"}
	event := recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "event1"}, time.Now(),
		recall.ForAggregate(mocks.AggregateType, "view-1", 1))

	require.NoError(t, a.OnUpdate(ctx, view, "view-1", []recall.Event{event}))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "test.updates.view-1", msg.Subject)
	assert.Equal(t, "view-1", msg.Header.Get("view_id"))

	u, err := (&json.UpdateCodec{}).UnmarshalUpdate(ctx, msg.Data)
	require.NoError(t, err)
	assert.Equal(t, "view-1", u.ViewID)
}

func TestSubject(t *testing.T) {
	a := &Adapter{subject: DefaultSubject}
	assert.Equal(t, "recall.updates.deck-1", a.Subject("deck-1"))
	assert.Error(t, WithSubject("")(a))
}
