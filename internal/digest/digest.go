// Copyright (c) 2017 - The Event Horizon authors.
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

// Package digest periodically counts the cards that are due for review.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/looplab/recall"
	"github.com/looplab/recall/internal/domain/learning"
)

// ViewID is the ID of the published digest.
const ViewID = "digest"

// ErrNoNextTime is when the schedule has no more times.
var ErrNoNextTime = errors.New("schedule has no next time")

// View is the published digest. It is not persisted.
type View struct {
	ID    string    `json:"id"`
	Due   int       `json:"due"`
	Cards int       `json:"cards"`
	At    time.Time `json:"at"`
}

// Digest is a cron runner that publishes the number of due cards.
// It uses the cron syntax from https://github.com/gorhill/cronexpr.
type Digest struct {
	expr     *cronexpr.Expression
	cards    recall.ViewStore
	adapters []recall.OutboundAdapter
	now      func() time.Time
	logger   *slog.Logger
}

// Option is an option setter used to configure the Digest.
type Option func(*Digest)

// WithOutboundAdapters sets the adapters that the digest is published to.
func WithOutboundAdapters(adapters ...recall.OutboundAdapter) Option {
	return func(d *Digest) {
		d.adapters = append(d.adapters, adapters...)
	}
}

// WithClock sets the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(d *Digest) {
		d.now = now
	}
}

// WithLogger sets the logger of the Digest.
func WithLogger(l *slog.Logger) Option {
	return func(d *Digest) {
		d.logger = l
	}
}

// New creates a new Digest using a line in the crontab format. The store holds
// learning.ReviewableCard views.
func New(schedule string, cards recall.ViewStore, options ...Option) (*Digest, error) {
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("could not parse schedule: %w", err)
	}

	if cards == nil {
		return nil, errors.New("missing view store")
	}

	d := &Digest{
		expr:   expr,
		cards:  cards,
		now:    time.Now,
		logger: slog.Default().With("component", "digest"),
	}

	for _, option := range options {
		option(d)
	}

	return d, nil
}

// Run publishes the digest at every scheduled time until the context is
// cancelled. Failed digests are logged and do not stop the runner.
func (d *Digest) Run(ctx context.Context) error {
	for {
		now := d.now()

		next := d.expr.Next(now)
		if next.IsZero() {
			return ErrNoNextTime
		}

		t := time.NewTimer(next.Sub(now))

		select {
		case <-t.C:
			if _, err := d.Publish(ctx, next); err != nil {
				d.logger.Error("could not publish digest", "error", err)
			}
		case <-ctx.Done():
			t.Stop()

			return nil
		}
	}
}

// Publish counts the cards that are due at a time and sends the digest to
// all adapters.
func (d *Digest) Publish(ctx context.Context, at time.Time) (*View, error) {
	views, err := d.cards.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not find cards: %w", err)
	}

	v := &View{ID: ViewID, At: at}

	for _, view := range views {
		card, ok := view.(*learning.ReviewableCard)
		if !ok || card.Retired {
			continue
		}

		v.Cards++

		if card.State.IsDue(at) {
			v.Due++
		}
	}

	d.logger.Info("cards due for review",
		"due", v.Due,
		"cards", v.Cards,
	)

	var errs []error

	for _, a := range d.adapters {
		if err := a.OnUpdate(ctx, v, ViewID, nil); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return v, fmt.Errorf("could not notify outbound adapters: %w", errors.Join(errs...))
	}

	return v, nil
}
