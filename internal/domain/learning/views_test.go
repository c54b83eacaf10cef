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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplab/recall"
	"github.com/looplab/recall/eventhandler/projector"
	"github.com/looplab/recall/srs"
	"github.com/looplab/recall/viewstore/memory"
)

func TestReviewableCardProjectors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewViewStore()
	ts := time.Date(2024, time.May, 10, 23, 0, 0, 0, time.UTC)

	reviews, err := projector.NewEventHandler[*ReviewableCard](&ReviewProjector{}, store)
	require.NoError(t, err)

	answers, err := projector.NewEventHandler[*ReviewableCard](&AnswerProjector{}, store,
		projector.WithViewIDStrategy(AnsweredCardID()))
	require.NoError(t, err)

	require.NoError(t, reviews.HandleEvents(ctx, "card-1", []recall.Event{
		recall.NewEvent(ScheduledReviewCreated, &ScheduledReviewCreatedData{
			State: srs.NewCardState(ts),
		}, ts, recall.ForAggregate(ScheduledReviewAggregateType, "card-1", 1)),
	}))

	next := srs.CardState{
		Due:        ts.AddDate(0, 0, 3),
		Stability:  3.1,
		Difficulty: 5.2,
		Reps:       1,
		Phase:      srs.Review,
		LastReview: ts,
	}

	// Answers arrive from the session, with the card ID in the event data.
	require.NoError(t, answers.HandleEvents(ctx, "session-1", []recall.Event{
		recall.NewEvent(CardAnswered, &CardAnsweredData{
			CardID: "card-1",
			Rating: srs.Good,
			State:  next,
		}, ts, recall.ForAggregate(SessionAggregateType, "session-1", 3)),
	}))

	v, err := store.Load(ctx, "card-1")
	require.NoError(t, err)
	assert.Equal(t, &ReviewableCard{
		ID:         "card-1",
		State:      next,
		Reviews:    1,
		LastRating: srs.Good,
	}, v)

	require.NoError(t, reviews.HandleEvents(ctx, "card-1", []recall.Event{
		recall.NewEvent(ScheduledReviewRetired, nil, ts,
			recall.ForAggregate(ScheduledReviewAggregateType, "card-1", 2)),
	}))

	v, vc, err := store.LoadWithContext(ctx, "card-1")
	require.NoError(t, err)
	assert.True(t, v.(*ReviewableCard).Retired)
	assert.Equal(t, 3, vc.Version)
}

func TestSessionProjector(t *testing.T) {
	ctx := context.Background()
	store := memory.NewViewStore()
	ts := time.Date(2024, time.May, 10, 23, 0, 0, 0, time.UTC)
	id := "session-1"

	h, err := projector.NewEventHandler[*SessionView](&SessionProjector{}, store,
		projector.WithIdempotentVersions())
	require.NoError(t, err)

	require.NoError(t, h.HandleEvents(ctx, id, []recall.Event{
		recall.NewEvent(SessionStarted, &SessionStartedData{
			DeckID:            "deck-1",
			Cards:             []string{"card-1", "card-2"},
			QuestionLanguages: []Language{Dutch},
			AnswerLanguages:   []Language{English, Pinyin},
		}, ts, recall.ForAggregate(SessionAggregateType, id, 1)),
		recall.NewEvent(CardPresented, &CardPresentedData{CardID: "card-1"}, ts,
			recall.ForAggregate(SessionAggregateType, id, 2)),
	}))

	v, err := store.Load(ctx, id)
	require.NoError(t, err)

	session := v.(*SessionView)
	assert.Equal(t, "deck-1", session.DeckID)
	assert.Equal(t, InProgress, session.Status)
	assert.Equal(t, []string{"card-2"}, session.Queue)
	assert.Equal(t, "card-1", session.Current)
	assert.Equal(t, []Language{Dutch}, session.QuestionLanguages)
	assert.Equal(t, []Language{English, Pinyin}, session.AnswerLanguages)
	assert.Empty(t, session.Answered)

	require.NoError(t, h.HandleEvents(ctx, id, []recall.Event{
		recall.NewEvent(CardAnswered, &CardAnsweredData{CardID: "card-1", Rating: srs.Hard}, ts,
			recall.ForAggregate(SessionAggregateType, id, 3)),
		recall.NewEvent(SessionAbandoned, nil, ts,
			recall.ForAggregate(SessionAggregateType, id, 4)),
	}))

	v, err = store.Load(ctx, id)
	require.NoError(t, err)

	session = v.(*SessionView)
	assert.Equal(t, Completed, session.Status)
	assert.Empty(t, session.Queue)
	assert.Empty(t, session.Current)
	assert.Equal(t, []AnsweredCard{{CardID: "card-1", Rating: srs.Hard}}, session.Answered)
}

func TestSessionProjectorPresentedCard(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2024, time.May, 10, 23, 0, 0, 0, time.UTC)
	p := &SessionProjector{}

	view, err := p.Project(ctx, recall.NewEvent(SessionStarted, &SessionStartedData{
		DeckID: "deck-1",
		Cards:  []string{"card-1", "card-2"},
	}, ts, recall.ForAggregate(SessionAggregateType, "session-1", 1)), &SessionView{})
	require.NoError(t, err)

	view, err = p.Project(ctx, recall.NewEvent(CardPresented, &CardPresentedData{CardID: "card-2"}, ts,
		recall.ForAggregate(SessionAggregateType, "session-1", 2)), view)
	require.NoError(t, err)
	assert.Equal(t, "card-2", view.Current)
	assert.Equal(t, []string{"card-1", "card-2"}, view.Queue)

	_, err = p.Project(ctx, recall.NewEvent(CardPresented, nil, ts,
		recall.ForAggregate(SessionAggregateType, "session-1", 3)), view)
	assert.ErrorIs(t, err, ErrInvalidEventData)
}
