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

// Package retry re-runs commands that lost an optimistic concurrency race.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"

	"github.com/looplab/recall"
)

// DefaultAttempts is the number of attempts made by default.
const DefaultAttempts = 5

// Option is an option setter used to configure the middleware.
type Option func(*middleware)

// WithAttempts sets the total number of attempts for a command.
func WithAttempts(n int) Option {
	return func(m *middleware) {
		if n > 0 {
			m.attempts = n
		}
	}
}

// WithBackoff sets the delay between attempts.
func WithBackoff(min, max time.Duration) Option {
	return func(m *middleware) {
		m.min, m.max = min, max
	}
}

// WithLogger sets the logger for retried commands.
func WithLogger(l *slog.Logger) Option {
	return func(m *middleware) {
		m.logger = l
	}
}

type middleware struct {
	attempts int
	min, max time.Duration
	logger   *slog.Logger
}

// NewMiddleware returns a middleware that retries commands failing with
// recall.ErrConcurrencyConflict. The aggregate is loaded again on every
// attempt, so the command is decided on the latest state. Other errors are
// returned at once.
func NewMiddleware(options ...Option) recall.CommandHandlerMiddleware {
	m := &middleware{
		attempts: DefaultAttempts,
		min:      5 * time.Millisecond,
		max:      200 * time.Millisecond,
		logger:   slog.Default(),
	}

	for _, option := range options {
		option(m)
	}

	return recall.CommandHandlerMiddleware(func(h recall.CommandHandler) recall.CommandHandler {
		return recall.CommandHandlerFunc(func(ctx context.Context, id string, cmd recall.Command) error {
			delay := &backoff.Backoff{
				Min:    m.min,
				Max:    m.max,
				Jitter: true,
			}

			var err error

			for attempt := 1; ; attempt++ {
				if err = h.HandleCommand(ctx, id, cmd); !errors.Is(err, recall.ErrConcurrencyConflict) {
					return err
				}

				if attempt >= m.attempts {
					return err
				}

				m.logger.Debug("retrying command after conflict",
					"aggregate_id", id,
					"command_type", cmd.CommandType(),
					"attempt", attempt,
				)

				select {
				case <-ctx.Done():
					return err
				case <-time.After(delay.Duration()):
				}
			}
		})
	})
}
