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

package srs

import (
	"fmt"
	"time"

	"github.com/open-spaced-repetition/go-fsrs/v3"
)

// FSRS is a Scheduler using the Free Spaced Repetition Scheduler algorithm.
type FSRS struct {
	f *fsrs.FSRS
}

var _ = Scheduler(&FSRS{})

// Option is an option setter used to configure creation.
type Option func(*fsrs.Parameters) error

// WithDesiredRetention sets the probability of recall that reviews are
// scheduled for, in the range (0, 1).
func WithDesiredRetention(r float64) Option {
	return func(p *fsrs.Parameters) error {
		if r <= 0 || r >= 1 {
			return fmt.Errorf("desired retention out of range: %v", r)
		}

		p.RequestRetention = r

		return nil
	}
}

// WithMaximumInterval sets the longest interval between reviews, in days.
func WithMaximumInterval(days float64) Option {
	return func(p *fsrs.Parameters) error {
		if days < 1 {
			return fmt.Errorf("maximum interval must be at least one day: %v", days)
		}

		p.MaximumInterval = days

		return nil
	}
}

// NewFSRS creates a new FSRS scheduler, starting from the default parameters.
func NewFSRS(options ...Option) (*FSRS, error) {
	p := fsrs.DefaultParam()
	// Scheduling must be deterministic for replays.
	p.EnableFuzz = false

	for _, option := range options {
		if err := option(&p); err != nil {
			return nil, fmt.Errorf("error while applying option: %w", err)
		}
	}

	return &FSRS{f: fsrs.NewFSRS(p)}, nil
}

// Schedule implements the Schedule method of the Scheduler interface.
func (s *FSRS) Schedule(state CardState, rating Rating, now time.Time) (CardState, error) {
	if !rating.Valid() {
		return CardState{}, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}

	info, ok := s.f.Repeat(toCard(state), now)[fsrs.Rating(rating)]
	if !ok {
		return CardState{}, fmt.Errorf("%w: %s", ErrInvalidRating, rating)
	}

	return fromCard(info.Card), nil
}

func toCard(s CardState) fsrs.Card {
	return fsrs.Card{
		Due:           s.Due,
		Stability:     s.Stability,
		Difficulty:    s.Difficulty,
		ElapsedDays:   s.ElapsedDays,
		ScheduledDays: s.ScheduledDays,
		Reps:          s.Reps,
		Lapses:        s.Lapses,
		State:         fsrs.State(s.Phase),
		LastReview:    s.LastReview,
	}
}

func fromCard(c fsrs.Card) CardState {
	return CardState{
		Due:           c.Due,
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   c.ElapsedDays,
		ScheduledDays: c.ScheduledDays,
		Reps:          c.Reps,
		Lapses:        c.Lapses,
		Phase:         Phase(c.State),
		LastReview:    c.LastReview,
	}
}
