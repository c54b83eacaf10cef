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

package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/looplab/recall"
	"github.com/looplab/recall/outbound"
)

// DefaultTopic is the topic that updates are written to by default.
const DefaultTopic = "recall_updates"

// Adapter writes every updated view to a Kafka topic, keyed by the view ID
// so that updates of a view stay in order within a partition.
type Adapter struct {
	addr   string
	topic  string
	writer *kafka.Writer
	codec  outbound.Codec
}

var _ = recall.OutboundAdapter(&Adapter{})

// NewAdapter creates an Adapter and makes sure that the topic exists.
func NewAdapter(ctx context.Context, addr string, options ...Option) (*Adapter, error) {
	a := &Adapter{
		addr:  addr,
		topic: DefaultTopic,
		codec: outbound.DefaultCodec(),
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

	if err := a.createTopic(ctx); err != nil {
		return nil, err
	}

	a.writer = &kafka.Writer{
		Addr:         kafka.TCP(addr),
		Topic:        a.topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,                // Write every update without delay.
		RequiredAcks: kafka.RequireOne, // Stronger consistency.
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

// WithTopic sets the topic.
func WithTopic(topic string) Option {
	return func(a *Adapter) error {
		if topic == "" {
			return errors.New("missing topic")
		}

		a.topic = topic

		return nil
	}
}

// Get or create the topic, the broker may still be starting.
func (a *Adapter) createTopic(ctx context.Context) error {
	client := &kafka.Client{
		Addr: kafka.TCP(a.addr),
	}

	var (
		resp *kafka.CreateTopicsResponse
		err  error
	)

	for i := 0; i < 10; i++ {
		resp, err = client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
			Topics: []kafka.TopicConfig{{
				Topic:             a.topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			}},
		})
		if errors.Is(err, kafka.BrokerNotAvailable) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}

			continue
		} else if err != nil {
			return fmt.Errorf("error creating Kafka topic: %w", err)
		}

		break
	}

	if resp == nil {
		return fmt.Errorf("could not get/create Kafka topic in time: %w", err)
	}

	if topicErr, ok := resp.Errors[a.topic]; ok && topicErr != nil {
		if !errors.Is(topicErr, kafka.TopicAlreadyExists) {
			return fmt.Errorf("invalid Kafka topic: %w", topicErr)
		}
	}

	return nil
}

// OnUpdate implements the OnUpdate method of the recall.OutboundAdapter interface.
func (a *Adapter) OnUpdate(ctx context.Context, view recall.View, viewID string, events []recall.Event) error {
	data, err := a.codec.MarshalUpdate(ctx, view, viewID, events)
	if err != nil {
		return fmt.Errorf("could not marshal update: %w", err)
	}

	if err := a.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(viewID),
		Value:   data,
		Headers: headers(viewID, events),
	}); err != nil {
		return fmt.Errorf("could not publish update: %w", err)
	}

	return nil
}

func headers(viewID string, events []recall.Event) []kafka.Header {
	h := outbound.Headers(viewID, events)

	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]kafka.Header, len(keys))
	for i, k := range keys {
		out[i] = kafka.Header{Key: k, Value: []byte(h[k])}
	}

	return out
}

// Close closes the writer.
func (a *Adapter) Close() error {
	return a.writer.Close()
}
