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

// Package srs holds the spaced repetition scheduling state of a card and the
// scheduler that advances it after a review.
package srs

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRating is when a review is scheduled with an unknown rating.
var ErrInvalidRating = errors.New("invalid rating")

// Rating is the self assessed recall quality of a review.
type Rating int

const (
	// Again is a failed recall.
	Again Rating = iota + 1
	// Hard is a recall with serious difficulty.
	Hard
	// Good is a recall after some hesitation.
	Good
	// Easy is a perfect recall.
	Easy
)

// Valid returns true for the four known ratings.
func (r Rating) Valid() bool {
	return r >= Again && r <= Easy
}

// String returns the string representation of a rating.
func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	default:
		return fmt.Sprintf("rating(%d)", int(r))
	}
}

// ParseRating parses the string representation of a rating.
func ParseRating(s string) (Rating, error) {
	for r := Again; r <= Easy; r++ {
		if r.String() == s {
			return r, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// Phase is the learning phase of a card.
type Phase int

const (
	// New is a card that was never reviewed.
	New Phase = iota
	// Learning is a card in its first short term steps.
	Learning
	// Review is a card in long term review.
	Review
	// Relearning is a reviewed card that was forgotten.
	Relearning
)

// CardState is the scheduling state of a single card.
type CardState struct {
	Due           time.Time `json:"due"            bson:"due"`
	Stability     float64   `json:"stability"      bson:"stability"`
	Difficulty    float64   `json:"difficulty"     bson:"difficulty"`
	ElapsedDays   uint64    `json:"elapsed_days"   bson:"elapsed_days"`
	ScheduledDays uint64    `json:"scheduled_days" bson:"scheduled_days"`
	Reps          uint64    `json:"reps"           bson:"reps"`
	Lapses        uint64    `json:"lapses"         bson:"lapses"`
	Phase         Phase     `json:"phase"          bson:"phase"`
	LastReview    time.Time `json:"last_review"    bson:"last_review"`
}

// NewCardState returns the state of a new card that is due at once.
func NewCardState(now time.Time) CardState {
	return CardState{
		Due:   now,
		Phase: New,
	}
}

// IsDue returns true if the card should be reviewed at the time.
func (s CardState) IsDue(now time.Time) bool {
	return !s.Due.After(now)
}

// Scheduler computes the next state of a card after a review. It must be a
// pure function of its arguments.
type Scheduler interface {
	Schedule(state CardState, rating Rating, now time.Time) (CardState, error)
}

// SchedulerFunc is a function that can be used as a scheduler.
type SchedulerFunc func(CardState, Rating, time.Time) (CardState, error)

// Schedule implements the Schedule method of the Scheduler interface.
func (f SchedulerFunc) Schedule(state CardState, rating Rating, now time.Time) (CardState, error) {
	return f(state, rating, now)
}
