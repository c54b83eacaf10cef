// Copyright (c) 2016 - The Event Horizon authors.
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

package acl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mocks"
)

type testTranslator struct {
	idempotent bool
	err        error
}

func (t *testTranslator) TranslatorType() Type {
	return "test"
}

func (t *testTranslator) Translate(ctx context.Context, event recall.Event) ([]Target, error) {
	if t.err != nil {
		return nil, t.err
	}

	if event.EventType() != mocks.EventType {
		return nil, nil
	}

	data, ok := event.Data().(*mocks.EventData)
	if !ok {
		return nil, errors.New("invalid event data")
	}

	return []Target{
		{AggregateID: data.Content, Command: &mocks.Command{Content: "first"}, Idempotent: t.idempotent},
		{AggregateID: data.Content, Command: &mocks.Command{Content: "second"}, Idempotent: t.idempotent},
	}, nil
}

func testEvents() []recall.Event {
	ts := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)

	return []recall.Event{
		recall.NewEvent(mocks.EventType, &mocks.EventData{Content: "target"}, ts,
			recall.ForAggregate(mocks.AggregateType, "id", 1)),
		recall.NewEvent(mocks.EventOtherType, nil, ts,
			recall.ForAggregate(mocks.AggregateType, "id", 2)),
	}
}

func TestNewEventHandler(t *testing.T) {
	_, err := NewEventHandler(nil, &mocks.CommandHandler{})
	assert.Error(t, err)

	_, err = NewEventHandler(&testTranslator{}, nil)
	assert.Error(t, err)

	h, err := NewEventHandler(&testTranslator{}, &mocks.CommandHandler{})
	require.NoError(t, err)
	assert.Equal(t, recall.EventHandlerType("acl_test"), h.HandlerType())
}

func TestEventHandler_HandleEvents(t *testing.T) {
	commands := &mocks.CommandHandler{}
	h, err := NewEventHandler(&testTranslator{}, commands)
	require.NoError(t, err)

	require.NoError(t, h.HandleEvents(context.Background(), "id", testEvents()))

	assert.Equal(t, []string{"target", "target"}, commands.IDs)
	assert.Equal(t, []recall.Command{
		&mocks.Command{Content: "first"},
		&mocks.Command{Content: "second"},
	}, commands.Commands)
	assert.Empty(t, h.Errors())
}

func TestEventHandler_CommandErrorIsSwallowed(t *testing.T) {
	commandErr := errors.New("command error")
	commands := &mocks.CommandHandler{Err: commandErr}
	h, err := NewEventHandler(&testTranslator{}, commands)
	require.NoError(t, err)

	// The error is not returned and the second command is still executed.
	assert.NoError(t, h.HandleEvents(context.Background(), "id", testEvents()))
	assert.Len(t, commands.Commands, 2)

	for i := 0; i < 2; i++ {
		select {
		case err := <-h.Errors():
			assert.ErrorIs(t, err, commandErr)
			require.NotNil(t, err.Target)
			assert.Equal(t, "target", err.Target.AggregateID)
			assert.Equal(t, mocks.EventType, err.Event.EventType())
		case <-time.After(time.Second):
			t.Fatal("there should be an error")
		}
	}
}

func TestEventHandler_Idempotent(t *testing.T) {
	commands := &mocks.CommandHandler{Err: recall.ErrAggregateAlreadyExists}
	h, err := NewEventHandler(&testTranslator{idempotent: true}, commands)
	require.NoError(t, err)

	assert.NoError(t, h.HandleEvents(context.Background(), "id", testEvents()))
	assert.Len(t, commands.Commands, 2)
	assert.Empty(t, h.Errors(), "already existing aggregates should not be errors")

	// Without idempotency the same error is reported.
	h, err = NewEventHandler(&testTranslator{}, commands)
	require.NoError(t, err)

	assert.NoError(t, h.HandleEvents(context.Background(), "id", testEvents()))
	assert.Len(t, h.Errors(), 2)
}

func TestEventHandler_TranslateError(t *testing.T) {
	translateErr := errors.New("translate error")
	commands := &mocks.CommandHandler{}
	h, err := NewEventHandler(&testTranslator{err: translateErr}, commands)
	require.NoError(t, err)

	assert.NoError(t, h.HandleEvents(context.Background(), "id", testEvents()))
	assert.Empty(t, commands.Commands)

	err = <-h.Errors()
	assert.ErrorIs(t, err, translateErr)
	assert.Nil(t, err.(*Error).Target)
}
