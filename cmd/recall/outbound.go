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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/looplab/recall"
	"github.com/looplab/recall/internal/config"
	"github.com/looplab/recall/outbound/gcp"
	"github.com/looplab/recall/outbound/kafka"
	"github.com/looplab/recall/outbound/nats"
	"github.com/looplab/recall/outbound/redis"
	"github.com/looplab/recall/outbound/websocket"
)

type adapters struct {
	all     []recall.OutboundAdapter
	closers []io.Closer
	hub     *websocket.Hub
}

func (a *adapters) add(adapter recall.OutboundAdapter, closer io.Closer) {
	a.all = append(a.all, adapter)
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
}

func (a *adapters) Close() error {
	var errs []error

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// newAdapters connects the configured outbound adapters. The websocket hub is
// only created when serving.
func newAdapters(ctx context.Context, cfg config.OutboundConfig, serve bool, logger *slog.Logger) (*adapters, error) {
	a := &adapters{}

	if cfg.RedisAddr != "" {
		r, err := redis.NewAdapter(ctx, cfg.RedisAddr, redis.WithStream(cfg.RedisStream))
		if err != nil {
			return nil, fmt.Errorf("could not create redis adapter: %w", err)
		}

		a.add(r, r)
	}

	if cfg.NATSURL != "" {
		n, err := nats.NewAdapter(cfg.NATSURL, nats.WithSubject(cfg.NATSSubject))
		if err != nil {
			a.Close()

			return nil, fmt.Errorf("could not create nats adapter: %w", err)
		}

		a.add(n, n)
	}

	if cfg.KafkaAddr != "" {
		k, err := kafka.NewAdapter(ctx, cfg.KafkaAddr, kafka.WithTopic(cfg.KafkaTopic))
		if err != nil {
			a.Close()

			return nil, fmt.Errorf("could not create kafka adapter: %w", err)
		}

		a.add(k, k)
	}

	if cfg.GCPProject != "" {
		g, err := gcp.NewAdapter(ctx, cfg.GCPProject, gcp.WithTopic(cfg.GCPTopic))
		if err != nil {
			a.Close()

			return nil, fmt.Errorf("could not create gcp adapter: %w", err)
		}

		a.add(g, g)
	}

	if serve && cfg.WebsocketAddr != "" {
		a.hub = websocket.NewHub(
			websocket.WithClientBuffer(cfg.ClientBuffer),
			websocket.WithLogger(logger.With("component", "websocket")),
		)
		a.add(a.hub, nil)
	}

	return a, nil
}
