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

package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/looplab/recall"
	"github.com/looplab/recall/outbound"
)

// DefaultTopic is the topic that updates are published to by default.
const DefaultTopic = "recall_updates"

// Adapter publishes every updated view to a Google Cloud Pub/Sub topic.
type Adapter struct {
	topicID       string
	clientOptions []option.ClientOption
	client        *pubsub.Client
	topic         *pubsub.Topic
	codec         outbound.Codec
}

var _ = recall.OutboundAdapter(&Adapter{})

// NewAdapter creates an Adapter, creating the topic if needed.
func NewAdapter(ctx context.Context, projectID string, options ...Option) (*Adapter, error) {
	a := &Adapter{
		topicID: DefaultTopic,
		codec:   outbound.DefaultCodec(),
	}

	// Apply configuration options.
	for _, opt := range options {
		if opt == nil {
			continue
		}

		if err := opt(a); err != nil {
			return nil, fmt.Errorf("error while applying option: %w", err)
		}
	}

	var err error

	a.client, err = pubsub.NewClient(ctx, projectID, a.clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("could not create Pub/Sub client: %w", err)
	}

	// Get or create the topic.
	a.topic = a.client.Topic(a.topicID)

	ok, err := a.topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not check Pub/Sub topic: %w", err)
	} else if !ok {
		if a.topic, err = a.client.CreateTopic(ctx, a.topicID); err != nil {
			return nil, fmt.Errorf("could not create Pub/Sub topic: %w", err)
		}
	}

	// Keep the updates of a view in order.
	a.topic.EnableMessageOrdering = true

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

// WithTopic sets the topic ID.
func WithTopic(topicID string) Option {
	return func(a *Adapter) error {
		if topicID == "" {
			return errors.New("missing topic")
		}

		a.topicID = topicID

		return nil
	}
}

// WithClientOptions adds options to the Pub/Sub client, for example an
// endpoint for the emulator.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(a *Adapter) error {
		a.clientOptions = append(a.clientOptions, opts...)

		return nil
	}
}

// OnUpdate implements the OnUpdate method of the recall.OutboundAdapter interface.
func (a *Adapter) OnUpdate(ctx context.Context, view recall.View, viewID string, events []recall.Event) error {
	data, err := a.codec.MarshalUpdate(ctx, view, viewID, events)
	if err != nil {
		return fmt.Errorf("could not marshal update: %w", err)
	}

	res := a.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		Attributes:  outbound.Headers(viewID, events),
		OrderingKey: viewID,
	})

	if _, err := res.Get(ctx); err != nil {
		a.topic.ResumePublish(viewID)

		return fmt.Errorf("could not publish update: %w", err)
	}

	return nil
}

// Close stops the topic and closes the client.
func (a *Adapter) Close() error {
	a.topic.Stop()

	return a.client.Close()
}
