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

package learning

import (
	"context"
	"fmt"

	"github.com/looplab/recall"
	"github.com/looplab/recall/aggregatestore/events"
	"github.com/looplab/recall/srs"
)

func init() {
	recall.RegisterAggregate(func(id string) recall.Aggregate {
		return NewScheduledReview(id)
	})
}

// ScheduledReviewAggregateType is the aggregate type for the scheduled review
// of a flashcard, its ID is the flashcard ID.
const ScheduledReviewAggregateType = recall.AggregateType("scheduled_review")

var (
	// ErrScheduledReviewAlreadyExists is when reviews of a card are scheduled twice.
	ErrScheduledReviewAlreadyExists = fmt.Errorf("scheduled review already exists: %w", recall.ErrAggregateAlreadyExists)
	// ErrScheduledReviewNotFound is when a scheduled review was never created.
	ErrScheduledReviewNotFound = fmt.Errorf("scheduled review not found: %w", recall.ErrAggregateNotFound)
	// ErrScheduledReviewRetired is when a retired scheduled review is retired again.
	ErrScheduledReviewRetired = fmt.Errorf("scheduled review is retired: %w", recall.ErrInvalidState)
)

// ScheduledReview is the aggregate that starts and stops the scheduling of a
// flashcard. The scheduling state itself lives in the ReviewableCard view.
type ScheduledReview struct {
	*events.AggregateBase

	created bool
	retired bool
}

var _ = events.VersionedAggregate(&ScheduledReview{})

// NewScheduledReview creates a new scheduled review aggregate with an ID.
func NewScheduledReview(id string) *ScheduledReview {
	return &ScheduledReview{
		AggregateBase: events.NewAggregateBase(ScheduledReviewAggregateType, id),
	}
}

// HandleCommand implements the HandleCommand method of the
// recall.Aggregate interface.
func (a *ScheduledReview) HandleCommand(ctx context.Context, cmd recall.Command) error {
	switch cmd.(type) {
	case *CreateScheduledReview:
		if a.created {
			return ErrScheduledReviewAlreadyExists
		}

		a.AppendEvent(ScheduledReviewCreated, &ScheduledReviewCreatedData{
			State: srs.NewCardState(TimeNow()),
		}, TimeNow())
	case *RetireScheduledReview:
		if !a.created {
			return ErrScheduledReviewNotFound
		}

		if a.retired {
			return ErrScheduledReviewRetired
		}

		a.AppendEvent(ScheduledReviewRetired, nil, TimeNow())
	default:
		return fmt.Errorf("could not handle command: %s", cmd.CommandType())
	}

	return nil
}

// ApplyEvent implements the ApplyEvent method of the
// events.VersionedAggregate interface.
func (a *ScheduledReview) ApplyEvent(ctx context.Context, event recall.Event) {
	switch event.EventType() {
	case ScheduledReviewCreated:
		a.created = true
	case ScheduledReviewRetired:
		a.retired = true
	}
}
