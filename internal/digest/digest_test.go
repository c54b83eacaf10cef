// Copyright (c) 2017 - The Event Horizon authors.
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

package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplab/recall"
	"github.com/looplab/recall/internal/domain/learning"
	"github.com/looplab/recall/mocks"
	"github.com/looplab/recall/srs"
	"github.com/looplab/recall/viewstore/memory"
)

var timestamp = time.Date(2024, time.May, 10, 7, 0, 0, 0, time.UTC)

func newCards(t *testing.T) recall.ViewStore {
	store := memory.NewViewStore()

	cards := []*learning.ReviewableCard{
		{ID: "due", State: srs.NewCardState(timestamp.Add(-time.Hour))},
		{ID: "now", State: srs.NewCardState(timestamp)},
		{ID: "later", State: srs.NewCardState(timestamp.Add(time.Hour))},
		{ID: "retired", State: srs.NewCardState(timestamp.Add(-time.Hour)), Retired: true},
	}

	for _, c := range cards {
		require.NoError(t, store.UpdateView(context.Background(), c, recall.NewViewContext(c.ID, 0)))
	}

	return store
}

func TestPublish(t *testing.T) {
	adapter := &mocks.OutboundAdapter{}

	d, err := New("0 7 * * *", newCards(t), WithOutboundAdapters(adapter))
	require.NoError(t, err)

	v, err := d.Publish(context.Background(), timestamp)
	require.NoError(t, err)

	expected := &View{ID: ViewID, Due: 2, Cards: 3, At: timestamp}
	assert.Equal(t, expected, v)

	assert.Equal(t, []string{ViewID}, adapter.ViewIDs)
	assert.Equal(t, []recall.View{expected}, adapter.Views)

	adapter.Err = errors.New("adapter error")

	_, err = d.Publish(context.Background(), timestamp)
	assert.ErrorContains(t, err, "adapter error")
}

func TestNewErrors(t *testing.T) {
	_, err := New("not a schedule", memory.NewViewStore())
	assert.Error(t, err)

	_, err = New("* * * * *", nil)
	assert.EqualError(t, err, "missing view store")
}

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timed test")
	}

	adapter := &mocks.OutboundAdapter{}

	d, err := New("* * * * * * *", newCards(t), WithOutboundAdapters(adapter))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool {
		adapter.Lock()
		defer adapter.Unlock()

		return len(adapter.Views) > 0
	}, 3*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Error("the runner should stop")
	}
}
