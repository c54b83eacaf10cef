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
	"log/slog"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// Inject returns the tracing span of the context as a text map, to be sent
// along with outbound messages. It is nil when there is no span.
func Inject(ctx context.Context) map[string]string {
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return nil
	}

	carrier := opentracing.TextMapCarrier{}
	if err := opentracing.GlobalTracer().Inject(span.Context(), opentracing.TextMap, carrier); err != nil {
		slog.Warn("could not inject tracing span", "error", err)

		return nil
	}

	return carrier
}

// Extract starts a span that follows the span of a received text map. The
// context is returned unchanged when the text map holds no span.
func Extract(ctx context.Context, opName string, vals map[string]string) (context.Context, opentracing.Span) {
	if len(vals) == 0 {
		return ctx, nil
	}

	tracer := opentracing.GlobalTracer()

	parent, err := tracer.Extract(opentracing.TextMap, opentracing.TextMapCarrier(vals))
	if errors.Is(err, opentracing.ErrSpanContextNotFound) {
		return ctx, nil
	} else if err != nil {
		slog.Warn("could not extract tracing span", "error", err)

		return ctx, nil
	}

	span := tracer.StartSpan(opName, ext.RPCServerOption(parent))

	return opentracing.ContextWithSpan(ctx, span), span
}
