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

package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/looplab/recall"
	"github.com/looplab/recall/outbound"
)

// DefaultStream is the stream that updates are added to by default.
const DefaultStream = "recall_updates"

// Adapter adds every updated view to a Redis stream.
type Adapter struct {
	stream     string
	maxLen     int64
	client     *redis.Client
	clientOpts *redis.Options
	codec      outbound.Codec
}

var _ = recall.OutboundAdapter(&Adapter{})

// NewAdapter creates an Adapter, with optional settings.
func NewAdapter(ctx context.Context, addr string, options ...Option) (*Adapter, error) {
	a := &Adapter{
		stream: DefaultStream,
		codec:  outbound.DefaultCodec(),
	}

	// Apply configuration options.
	for _, option := range options {
		if option == nil {
			continue
		}

		if err := option(a); err != nil {
			return nil, fmt.Errorf("error while applying option: %w", err)
		}
	}

	// Default client options.
	if a.clientOpts == nil {
		a.clientOpts = &redis.Options{
			Addr: addr,
		}
	}

	// Create client and check connection.
	a.client = redis.NewClient(a.clientOpts)
	if res, err := a.client.Ping(ctx).Result(); err != nil || res != "PONG" {
		return nil, fmt.Errorf("could not check Redis server: %w", err)
	}

	return a, nil
}

// Option is an option setter used to configure creation.
type Option func(*Adapter) error

// WithCodec uses the specified codec for encoding updates.
func WithCodec(codec outbound.Codec) Option {
	return func(a *Adapter) error {
		a.codec = codec

		return nil
	}
}

// WithStream sets the name of the stream.
func WithStream(stream string) Option {
	return func(a *Adapter) error {
		if stream == "" {
			return fmt.Errorf("missing stream name")
		}

		a.stream = stream

		return nil
	}
}

// WithMaxLen caps the stream at about n entries.
func WithMaxLen(n int64) Option {
	return func(a *Adapter) error {
		a.maxLen = n

		return nil
	}
}

// WithRedisOptions uses the Redis options for the underlying client, instead of the defaults.
func WithRedisOptions(opts *redis.Options) Option {
	return func(a *Adapter) error {
		a.clientOpts = opts

		return nil
	}
}

const (
	viewIDKey = "view_id"
	dataKey   = "data"
)

// OnUpdate implements the OnUpdate method of the recall.OutboundAdapter interface.
func (a *Adapter) OnUpdate(ctx context.Context, view recall.View, viewID string, events []recall.Event) error {
	data, err := a.codec.MarshalUpdate(ctx, view, viewID, events)
	if err != nil {
		return fmt.Errorf("could not marshal update: %w", err)
	}

	values := map[string]interface{}{}
	for k, v := range outbound.Headers(viewID, events) {
		values[k] = v
	}

	values[dataKey] = data

	args := &redis.XAddArgs{
		Stream: a.stream,
		MaxLen: a.maxLen,
		Approx: a.maxLen > 0,
		Values: values,
	}
	if _, err := a.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("could not publish update: %w", err)
	}

	return nil
}

// Close closes the Redis client.
func (a *Adapter) Close() error {
	return a.client.Close()
}
