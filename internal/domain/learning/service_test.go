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
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplab/recall"
	"github.com/looplab/recall/internal/domain/deck"
	"github.com/looplab/recall/mocks"
	"github.com/looplab/recall/srs"
	"github.com/looplab/recall/viewstore/memory"
)

type serviceFixture struct {
	commands *mocks.CommandHandler
	decks    *memory.ViewStore
	cards    *memory.ViewStore
	sessions *memory.ViewStore
	service  *Service
}

func newServiceFixture(t *testing.T, options ...ServiceOption) *serviceFixture {
	f := &serviceFixture{
		commands: &mocks.CommandHandler{},
		decks:    memory.NewViewStore(),
		cards:    memory.NewViewStore(),
		sessions: memory.NewViewStore(),
	}

	s, err := NewService(f.commands, f.decks, f.cards, f.sessions, options...)
	require.NoError(t, err)

	f.service = s

	NewSessionID = func() string { return "session-1" }

	t.Cleanup(func() { NewSessionID = uuid.NewString })

	return f
}

func (f *serviceFixture) put(t *testing.T, store *memory.ViewStore, id string, v recall.View) {
	require.NoError(t, store.UpdateView(context.Background(), v, recall.NewViewContext(id, 0)))
}

func TestServiceStartSessionForDeck(t *testing.T) {
	now := useFixedClock(t)
	ctx := context.Background()
	f := newServiceFixture(t)

	f.put(t, f.decks, "deck-1", &deck.View{
		ID:   "deck-1",
		Name: "D1",
		Flashcards: []deck.Flashcard{
			{ID: "card-due"},
			{ID: "card-later"},
			{ID: "card-retired"},
			{ID: "card-unscheduled"},
			{ID: "card-new"},
		},
	})
	f.put(t, f.cards, "card-due", &ReviewableCard{ID: "card-due", State: srs.CardState{Due: now.AddDate(0, 0, -1)}})
	f.put(t, f.cards, "card-later", &ReviewableCard{ID: "card-later", State: srs.CardState{Due: now.AddDate(0, 0, 2)}})
	f.put(t, f.cards, "card-retired", &ReviewableCard{ID: "card-retired", State: srs.NewCardState(now), Retired: true})
	f.put(t, f.cards, "card-new", &ReviewableCard{ID: "card-new", State: srs.NewCardState(now)})

	q, a := []Language{Mandarin}, []Language{Pinyin, English}

	id, err := f.service.StartSessionForDeck(ctx, "deck-1", q, a)
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)

	assert.Equal(t, []string{"session-1"}, f.commands.IDs)
	assert.Equal(t, []recall.Command{&StartSession{
		DeckID:            "deck-1",
		Cards:             []string{"card-due", "card-new"},
		QuestionLanguages: q,
		AnswerLanguages:   a,
	}}, f.commands.Commands)
}

func TestServiceStartSessionForDeckAllCards(t *testing.T) {
	now := useFixedClock(t)
	ctx := context.Background()
	f := newServiceFixture(t, WithDueOnly(false))

	f.put(t, f.decks, "deck-1", &deck.View{
		ID:         "deck-1",
		Flashcards: []deck.Flashcard{{ID: "card-later"}},
	})
	f.put(t, f.cards, "card-later", &ReviewableCard{ID: "card-later", State: srs.CardState{Due: now.AddDate(0, 0, 2)}})

	_, err := f.service.StartSessionForDeck(ctx, "deck-1", []Language{Dutch}, []Language{English})
	require.NoError(t, err)

	if assert.Len(t, f.commands.Commands, 1) {
		assert.Equal(t, []string{"card-later"}, f.commands.Commands[0].(*StartSession).Cards)
	}
}

func TestServiceStartSessionForDeckErrors(t *testing.T) {
	now := useFixedClock(t)
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.service.StartSessionForDeck(ctx, "deck-missing", []Language{Dutch}, []Language{English})
	assert.ErrorIs(t, err, deck.ErrDeckNotFound)

	f.put(t, f.decks, "deck-deleted", &deck.View{ID: "deck-deleted", Deleted: true})

	_, err = f.service.StartSessionForDeck(ctx, "deck-deleted", []Language{Dutch}, []Language{English})
	assert.ErrorIs(t, err, deck.ErrDeckNotFound)

	f.put(t, f.decks, "deck-1", &deck.View{ID: "deck-1", Flashcards: []deck.Flashcard{{ID: "card-later"}}})
	f.put(t, f.cards, "card-later", &ReviewableCard{ID: "card-later", State: srs.CardState{Due: now.AddDate(0, 0, 2)}})

	_, err = f.service.StartSessionForDeck(ctx, "deck-1", []Language{Dutch}, []Language{English})
	assert.ErrorIs(t, err, ErrNoCardsToReview)

	assert.Empty(t, f.commands.Commands)

	f.put(t, f.cards, "card-now", &ReviewableCard{ID: "card-now", State: srs.NewCardState(now)})
	f.put(t, f.decks, "deck-2", &deck.View{ID: "deck-2", Flashcards: []deck.Flashcard{{ID: "card-now"}}})

	f.commands.Err = errors.New("command error")

	_, err = f.service.StartSessionForDeck(ctx, "deck-2", []Language{Dutch}, []Language{English})
	assert.EqualError(t, err, "could not start session: command error")
}

func TestServiceAnswerCurrentCard(t *testing.T) {
	now := useFixedClock(t)
	ctx := context.Background()
	f := newServiceFixture(t)

	state := srs.CardState{Due: now, Reps: 2, Stability: 4.5, Phase: srs.Review}

	f.put(t, f.cards, "card-1", &ReviewableCard{ID: "card-1", State: state})
	f.put(t, f.sessions, "session-1", &SessionView{ID: "session-1", Status: InProgress, Current: "card-1"})
	f.put(t, f.sessions, "session-2", &SessionView{ID: "session-2", Status: Completed})

	require.NoError(t, f.service.AnswerCurrentCard(ctx, "session-1", srs.Easy))
	assert.Equal(t, []string{"session-1"}, f.commands.IDs)
	assert.Equal(t, []recall.Command{&AnswerCard{Rating: srs.Easy, CardState: state}}, f.commands.Commands)

	assert.ErrorIs(t, f.service.AnswerCurrentCard(ctx, "session-2", srs.Easy), ErrNoCardToAnswer)
	assert.ErrorIs(t, f.service.AnswerCurrentCard(ctx, "session-3", srs.Easy), ErrSessionNotFound)
}

func TestServiceAbandonSession(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	require.NoError(t, f.service.AbandonSession(ctx, "session-1"))
	assert.Equal(t, []recall.Command{&AbandonSession{}}, f.commands.Commands)

	f.commands.Err = ErrSessionNotActive
	assert.ErrorIs(t, f.service.AbandonSession(ctx, "session-1"), recall.ErrInvalidState)
}

func TestNewServiceErrors(t *testing.T) {
	store := memory.NewViewStore()

	_, err := NewService(nil, store, store, store)
	assert.Error(t, err)

	_, err = NewService(&mocks.CommandHandler{}, store, nil, store)
	assert.Error(t, err)
}
