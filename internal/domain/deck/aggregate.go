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

package deck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/looplab/recall"
	"github.com/looplab/recall/aggregatestore/events"
)

func init() {
	recall.RegisterAggregate(func(id string) recall.Aggregate {
		return NewAggregate(id)
	})
}

// AggregateType is the aggregate type for a deck.
const AggregateType = recall.AggregateType("deck")

var (
	// ErrDeckAlreadyExists is when a deck is created twice.
	ErrDeckAlreadyExists = fmt.Errorf("deck already exists: %w", recall.ErrAggregateAlreadyExists)
	// ErrDeckNotFound is when a command is for a deck that was never created,
	// or that is deleted.
	ErrDeckNotFound = fmt.Errorf("deck not found: %w", recall.ErrAggregateNotFound)
	// ErrFlashcardNotFound is when a command refers to a flashcard that is not
	// in the deck.
	ErrFlashcardNotFound = fmt.Errorf("flashcard not found: %w", recall.ErrDomainInvariantViolation)
	// ErrEmptyName is when a deck is given an empty name.
	ErrEmptyName = fmt.Errorf("empty deck name: %w", recall.ErrDomainInvariantViolation)
)

// NewID generates the IDs of new flashcards, it can be replaced in tests.
var NewID = uuid.NewString

// TimeNow is a mockable version of time.Now.
var TimeNow = time.Now

// Flashcard is a card of a deck.
type Flashcard struct {
	ID      string  `json:"id"      bson:"id"`
	Content Content `json:"content" bson:"content"`
}

// Aggregate is an aggregate for a deck of flashcards.
type Aggregate struct {
	*events.AggregateBase

	created    bool
	deleted    bool
	name       string
	flashcards []*Flashcard
}

var _ = events.VersionedAggregate(&Aggregate{})

// NewAggregate creates a new deck aggregate with an ID.
func NewAggregate(id string) *Aggregate {
	return &Aggregate{
		AggregateBase: events.NewAggregateBase(AggregateType, id),
	}
}

// HandleCommand implements the HandleCommand method of the
// recall.Aggregate interface.
func (a *Aggregate) HandleCommand(ctx context.Context, cmd recall.Command) error {
	switch cmd.(type) {
	case *CreateDeck:
		// A deck can only be created once.
		if a.created {
			return ErrDeckAlreadyExists
		}
	default:
		// All other commands require an existing deck.
		if !a.created || a.deleted {
			return ErrDeckNotFound
		}
	}

	switch cmd := cmd.(type) {
	case *CreateDeck:
		if strings.TrimSpace(cmd.Name) == "" {
			return ErrEmptyName
		}

		a.AppendEvent(DeckCreated, &DeckCreatedData{
			Name: cmd.Name,
		}, TimeNow())
	case *RenameDeck:
		if strings.TrimSpace(cmd.Name) == "" {
			return ErrEmptyName
		}

		if cmd.Name == a.name {
			// Don't emit events when nothing has changed.
			return nil
		}

		a.AppendEvent(DeckRenamed, &DeckRenamedData{
			Name: cmd.Name,
		}, TimeNow())
	case *DeleteDeck:
		ids := make([]string, len(a.flashcards))
		for i, card := range a.flashcards {
			ids[i] = card.ID
		}

		a.AppendEvent(DeckDeleted, &DeckDeletedData{
			FlashcardIDs: ids,
		}, TimeNow())
	case *AddFlashcard:
		a.AppendEvent(FlashcardAdded, &FlashcardAddedData{
			ID:      NewID(),
			Content: cmd.Content,
		}, TimeNow())
	case *RemoveFlashcard:
		if a.flashcard(cmd.FlashcardID) == nil {
			return fmt.Errorf("%w: %s", ErrFlashcardNotFound, cmd.FlashcardID)
		}

		a.AppendEvent(FlashcardRemoved, &FlashcardRemovedData{
			ID: cmd.FlashcardID,
		}, TimeNow())
	case *UpdateFlashcardContent:
		card := a.flashcard(cmd.FlashcardID)
		if card == nil {
			return fmt.Errorf("%w: %s", ErrFlashcardNotFound, cmd.FlashcardID)
		}

		if card.Content == cmd.Content {
			// Don't emit events when nothing has changed.
			return nil
		}

		a.AppendEvent(FlashcardContentUpdated, &FlashcardContentUpdatedData{
			ID:      cmd.FlashcardID,
			Content: cmd.Content,
		}, TimeNow())
	default:
		return fmt.Errorf("could not handle command: %s", cmd.CommandType())
	}

	return nil
}

// ApplyEvent implements the ApplyEvent method of the
// events.VersionedAggregate interface.
func (a *Aggregate) ApplyEvent(ctx context.Context, event recall.Event) {
	switch data := event.Data().(type) {
	case *DeckCreatedData:
		a.created = true
		a.name = data.Name
	case *DeckRenamedData:
		a.name = data.Name
	case *DeckDeletedData:
		a.deleted = true
		a.flashcards = nil
	case *FlashcardAddedData:
		a.flashcards = append(a.flashcards, &Flashcard{
			ID:      data.ID,
			Content: data.Content,
		})
	case *FlashcardRemovedData:
		for i, card := range a.flashcards {
			if card.ID == data.ID {
				a.flashcards = append(a.flashcards[:i], a.flashcards[i+1:]...)

				break
			}
		}
	case *FlashcardContentUpdatedData:
		if card := a.flashcard(data.ID); card != nil {
			card.Content = data.Content
		}
	}
}

// Name returns the current name of the deck.
func (a *Aggregate) Name() string {
	return a.name
}

// Flashcards returns the flashcards of the deck in the order they were added.
func (a *Aggregate) Flashcards() []Flashcard {
	cards := make([]Flashcard, len(a.flashcards))
	for i, card := range a.flashcards {
		cards[i] = *card
	}

	return cards
}

func (a *Aggregate) flashcard(id string) *Flashcard {
	for _, card := range a.flashcards {
		if card.ID == id {
			return card
		}
	}

	return nil
}
