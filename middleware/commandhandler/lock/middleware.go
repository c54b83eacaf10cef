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
	"log/slog"
	"time"

	"github.com/jpillora/backoff"

	"github.com/looplab/recall"
)

// Option is an option setter used to configure the middleware.
type Option func(*middleware)

// WithBlocking makes commands wait for a taken lock instead of failing with
// ErrLockExists, polling with a backoff up to the max delay. The wait is
// bounded by the context of the command.
func WithBlocking(max time.Duration) Option {
	return func(m *middleware) {
		m.wait = true
		m.maxDelay = max
	}
}

// WithLogger sets the logger used when a lock can not be released.
func WithLogger(l *slog.Logger) Option {
	return func(m *middleware) {
		m.logger = l
	}
}

type middleware struct {
	lock     Lock
	wait     bool
	maxDelay time.Duration
	logger   *slog.Logger
}

// NewMiddleware returns a new lock middleware using a provided lock
// implementation. Only one command per aggregate ID is handled at a time.
func NewMiddleware(l Lock, options ...Option) recall.CommandHandlerMiddleware {
	m := &middleware{
		lock:     l,
		maxDelay: 100 * time.Millisecond,
		logger:   slog.Default(),
	}

	for _, option := range options {
		option(m)
	}

	return recall.CommandHandlerMiddleware(func(h recall.CommandHandler) recall.CommandHandler {
		return recall.CommandHandlerFunc(func(ctx context.Context, id string, cmd recall.Command) error {
			if err := m.acquire(ctx, id); err != nil {
				return err
			}

			defer func() {
				if err := m.lock.Unlock(id); err != nil {
					m.logger.Error("could not unlock aggregate",
						"aggregate_id", id,
						"command_type", cmd.CommandType(),
						"error", err,
					)
				}
			}()

			return h.HandleCommand(ctx, id, cmd)
		})
	})
}

func (m *middleware) acquire(ctx context.Context, id string) error {
	err := m.lock.Lock(id)
	if err == nil || !m.wait || !errors.Is(err, ErrLockExists) {
		return err
	}

	delay := &backoff.Backoff{
		Min: time.Millisecond,
		Max: m.maxDelay,
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay.Duration()):
		}

		if err := m.lock.Lock(id); !errors.Is(err, ErrLockExists) {
			return err
		}
	}
}
