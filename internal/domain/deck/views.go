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
	"errors"
	"fmt"
	"time"

	"github.com/looplab/recall"
	"github.com/looplab/recall/eventhandler/projector"
)

// ListViewID is the ID of the collection view of all decks.
const ListViewID = string(AggregateType) + "-collection"

// ErrInvalidEventData is when an event has data of an unexpected type.
var ErrInvalidEventData = errors.New("invalid event data")

// View is the read model of a single deck.
type View struct {
	ID         string      `json:"id"         bson:"id"`
	Name       string      `json:"name"       bson:"name"`
	Flashcards []Flashcard `json:"flashcards" bson:"flashcards"`
	Deleted    bool        `json:"deleted"    bson:"deleted"`
	CreatedAt  time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" bson:"updated_at"`
}

// Flashcard returns a flashcard of the deck by ID.
func (v *View) Flashcard(id string) (Flashcard, bool) {
	for _, card := range v.Flashcards {
		if card.ID == id {
			return card, true
		}
	}

	return Flashcard{}, false
}

// ListEntry is a deck in the ListView.
type ListEntry struct {
	Name  string `json:"name"  bson:"name"`
	Cards int    `json:"cards" bson:"cards"`
}

// ListView is the read model of all existing decks, keyed by deck ID.
type ListView struct {
	ID    string               `json:"id"    bson:"id"`
	Decks map[string]ListEntry `json:"decks" bson:"decks"`
}

// ViewProjector projects deck events on the View read model.
type ViewProjector struct{}

var _ = projector.Projector[*View](&ViewProjector{})

// ProjectorType implements the ProjectorType method of the
// projector.Projector interface.
func (p *ViewProjector) ProjectorType() projector.Type {
	return projector.Type(string(AggregateType) + "_view")
}

// NewView implements the NewView method of the projector.Projector interface.
func (p *ViewProjector) NewView(id string) *View {
	return &View{
		ID:         id,
		Flashcards: []Flashcard{}, // Prevents "null" in JSON.
	}
}

// Project implements the Project method of the projector.Projector interface.
func (p *ViewProjector) Project(ctx context.Context, event recall.Event, view *View) (*View, error) {
	switch event.EventType() {
	case DeckCreated:
		data, ok := event.Data().(*DeckCreatedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		view.Name = data.Name
		view.CreatedAt = event.Timestamp()
	case DeckRenamed:
		data, ok := event.Data().(*DeckRenamedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		view.Name = data.Name
	case DeckDeleted:
		view.Deleted = true
		view.Flashcards = []Flashcard{}
	case FlashcardAdded:
		data, ok := event.Data().(*FlashcardAddedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		view.Flashcards = append(view.Flashcards, Flashcard{
			ID:      data.ID,
			Content: data.Content,
		})
	case FlashcardRemoved:
		data, ok := event.Data().(*FlashcardRemovedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		for i, card := range view.Flashcards {
			if card.ID == data.ID {
				view.Flashcards = append(view.Flashcards[:i], view.Flashcards[i+1:]...)

				break
			}
		}
	case FlashcardContentUpdated:
		data, ok := event.Data().(*FlashcardContentUpdatedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		for i := range view.Flashcards {
			if view.Flashcards[i].ID == data.ID {
				view.Flashcards[i].Content = data.Content
			}
		}
	default:
		return view, fmt.Errorf("could not project event: %s", event.EventType())
	}

	view.UpdatedAt = event.Timestamp()

	return view, nil
}

// ListProjector projects deck events on the ListView read model.
type ListProjector struct{}

var _ = projector.Projector[*ListView](&ListProjector{})

// ProjectorType implements the ProjectorType method of the
// projector.Projector interface.
func (p *ListProjector) ProjectorType() projector.Type {
	return projector.Type(string(AggregateType) + "_list")
}

// NewView implements the NewView method of the projector.Projector interface.
func (p *ListProjector) NewView(id string) *ListView {
	return &ListView{
		ID:    id,
		Decks: map[string]ListEntry{},
	}
}

// Project implements the Project method of the projector.Projector interface.
func (p *ListProjector) Project(ctx context.Context, event recall.Event, view *ListView) (*ListView, error) {
	if view.Decks == nil {
		view.Decks = map[string]ListEntry{}
	}

	id := event.AggregateID()
	entry := view.Decks[id]

	switch event.EventType() {
	case DeckCreated:
		data, ok := event.Data().(*DeckCreatedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		view.Decks[id] = ListEntry{Name: data.Name}
	case DeckRenamed:
		data, ok := event.Data().(*DeckRenamedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		entry.Name = data.Name
		view.Decks[id] = entry
	case DeckDeleted:
		delete(view.Decks, id)
	case FlashcardAdded:
		entry.Cards++
		view.Decks[id] = entry
	case FlashcardRemoved:
		entry.Cards--
		view.Decks[id] = entry
	case FlashcardContentUpdated:
	default:
		return view, fmt.Errorf("could not project event: %s", event.EventType())
	}

	return view, nil
}
