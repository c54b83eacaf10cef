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

package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/looplab/recall"
	"github.com/looplab/recall/outbound"
)

// DefaultSubject is the subject that updates are published on by default.
const DefaultSubject = "recall.updates"

// Adapter publishes every updated view on a NATS subject. The view ID is
// appended to the subject, so subscribers can pick views with wildcards.
type Adapter struct {
	subject  string
	conn     *nats.Conn
	connOpts []nats.Option
	codec    outbound.Codec
}

var _ = recall.OutboundAdapter(&Adapter{})

// NewAdapter creates an Adapter, with optional settings.
func NewAdapter(url string, options ...Option) (*Adapter, error) {
	a := &Adapter{
		subject: DefaultSubject,
		codec:   outbound.DefaultCodec(),
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

	var err error

	a.conn, err = nats.Connect(url, a.connOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to NATS: %w", err)
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

// WithSubject sets the subject prefix.
func WithSubject(subject string) Option {
	return func(a *Adapter) error {
		if subject == "" {
			return errors.New("missing subject")
		}

		a.subject = subject

		return nil
	}
}

// WithNATSOptions adds the NATS options to the underlying client.
func WithNATSOptions(opts ...nats.Option) Option {
	return func(a *Adapter) error {
		a.connOpts = opts

		return nil
	}
}

// Subject returns the subject that updates of a view are published on.
func (a *Adapter) Subject(viewID string) string {
	return a.subject + "." + viewID
}

// OnUpdate implements the OnUpdate method of the recall.OutboundAdapter interface.
func (a *Adapter) OnUpdate(ctx context.Context, view recall.View, viewID string, events []recall.Event) error {
	data, err := a.codec.MarshalUpdate(ctx, view, viewID, events)
	if err != nil {
		return fmt.Errorf("could not marshal update: %w", err)
	}

	msg := nats.NewMsg(a.Subject(viewID))
	msg.Data = data

	for k, v := range outbound.Headers(viewID, events) {
		msg.Header.Set(k, v)
	}

	if err := a.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("could not publish update: %w", err)
	}

	return nil
}

// Close drains and closes the connection.
func (a *Adapter) Close() error {
	return a.conn.Drain()
}
