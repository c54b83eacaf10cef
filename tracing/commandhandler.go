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
	"errors"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/looplab/recall"
)

// NewCommandHandlerMiddleware returns a new command handler middleware that
// adds a span per command. Commands that lost a concurrent append are tagged
// as conflicts, other failures are logged on the span.
func NewCommandHandlerMiddleware() recall.CommandHandlerMiddleware {
	return func(h recall.CommandHandler) recall.CommandHandler {
		return recall.CommandHandlerFunc(func(ctx context.Context, id string, cmd recall.Command) error {
			sp, ctx := opentracing.StartSpanFromContext(ctx, fmt.Sprintf("Command(%s)", cmd.CommandType()))
			defer sp.Finish()

			sp.SetTag("recall.command_type", cmd.CommandType())
			sp.SetTag("recall.aggregate_type", cmd.AggregateType())
			sp.SetTag("recall.aggregate_id", id)

			err := h.HandleCommand(ctx, id, cmd)

			switch {
			case errors.Is(err, recall.ErrConcurrencyConflict):
				sp.SetTag("recall.conflict", true)
			case err != nil:
				ext.LogError(sp, err)
			}

			return err
		})
	}
}
