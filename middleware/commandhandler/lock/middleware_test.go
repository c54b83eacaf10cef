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

package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mocks"
)

func TestMiddleware(t *testing.T) {
	cmd := &mocks.Command{Content: "content"}

	inner := newBlockingCommandHandler()
	lock := NewLocalLock()
	h := recall.UseCommandHandlerMiddleware(inner, NewMiddleware(lock))

	var wg sync.WaitGroup

	wg.Add(1)

	// Start a "long running" command.
	go func() {
		defer wg.Done()

		if err := h.HandleCommand(context.Background(), "id", cmd); err != nil {
			t.Error("there should not be an error:", err)
		}
	}()

	<-inner.started

	// Try another command with the same ID.
	if err := h.HandleCommand(context.Background(), "id", cmd); !errors.Is(err, ErrLockExists) {
		t.Error("there should be a lock exists error:", err)
	}

	// Other aggregates are not locked.
	if err := h.HandleCommand(context.Background(), "other", cmd); err != nil {
		t.Error("there should not be an error:", err)
	}

	close(inner.release)
	wg.Wait()

	// After the initial command is done, it should be possible to issue another.
	if err := h.HandleCommand(context.Background(), "id", cmd); err != nil {
		t.Error("there should not be an error:", err)
	}

	assert.Equal(t, 0, lock.Len())
}

func TestMiddlewareWait(t *testing.T) {
	cmd := &mocks.Command{Content: "content"}

	inner := newBlockingCommandHandler()
	h := recall.UseCommandHandlerMiddleware(inner, NewMiddleware(NewLocalLock(), WithBlocking(5*time.Millisecond)))

	first := make(chan error, 1)
	go func() {
		first <- h.HandleCommand(context.Background(), "id", cmd)
	}()

	<-inner.started

	second := make(chan error, 1)
	go func() {
		second <- h.HandleCommand(context.Background(), "id", cmd)
	}()

	// Gives up when the context is done.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, h.HandleCommand(ctx, "id", cmd), context.DeadlineExceeded)

	// The waiting command runs after the first one.
	close(inner.release)
	assert.NoError(t, <-first)
	assert.NoError(t, <-second)
}

func TestLocalLock(t *testing.T) {
	l := NewLocalLock()

	assert.NoError(t, l.Lock("id"))
	assert.ErrorIs(t, l.Lock("id"), ErrLockExists)
	assert.NoError(t, l.Unlock("id"))
	assert.ErrorIs(t, l.Unlock("id"), ErrNoLockExists)
}

// blockingCommandHandler holds commands for "id" until released.
type blockingCommandHandler struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingCommandHandler() *blockingCommandHandler {
	return &blockingCommandHandler{
		started: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
}

func (h *blockingCommandHandler) HandleCommand(ctx context.Context, id string, cmd recall.Command) error {
	if id != "id" {
		return nil
	}

	h.started <- struct{}{}
	<-h.release

	return nil
}
