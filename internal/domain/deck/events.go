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
	"github.com/looplab/recall"
)

const (
	// DeckCreated is the event after a deck is created.
	DeckCreated = recall.EventType("deck:created")
	// DeckRenamed is the event after a deck is renamed.
	DeckRenamed = recall.EventType("deck:renamed")
	// DeckDeleted is the event after a deck is deleted.
	DeckDeleted = recall.EventType("deck:deleted")

	// FlashcardAdded is the event after a flashcard is added.
	FlashcardAdded = recall.EventType("deck:flashcard_added")
	// FlashcardRemoved is the event after a flashcard is removed.
	FlashcardRemoved = recall.EventType("deck:flashcard_removed")
	// FlashcardContentUpdated is the event after the content of a flashcard is changed.
	FlashcardContentUpdated = recall.EventType("deck:flashcard_content_updated")
)

func init() {
	recall.RegisterEventData(DeckCreated, func() recall.EventData {
		return &DeckCreatedData{}
	})
	recall.RegisterEventData(DeckRenamed, func() recall.EventData {
		return &DeckRenamedData{}
	})
	recall.RegisterEventData(DeckDeleted, func() recall.EventData {
		return &DeckDeletedData{}
	})
	recall.RegisterEventData(FlashcardAdded, func() recall.EventData {
		return &FlashcardAddedData{}
	})
	recall.RegisterEventData(FlashcardRemoved, func() recall.EventData {
		return &FlashcardRemovedData{}
	})
	recall.RegisterEventData(FlashcardContentUpdated, func() recall.EventData {
		return &FlashcardContentUpdatedData{}
	})
}

// DeckCreatedData is the event data for the DeckCreated event.
type DeckCreatedData struct {
	Name string `json:"name" bson:"name"`
}

// DeckRenamedData is the event data for the DeckRenamed event.
type DeckRenamedData struct {
	Name string `json:"name" bson:"name"`
}

// DeckDeletedData is the event data for the DeckDeleted event. It holds the
// flashcards that the deck had when it was deleted.
type DeckDeletedData struct {
	FlashcardIDs []string `json:"flashcard_ids" bson:"flashcard_ids"`
}

// FlashcardAddedData is the event data for the FlashcardAdded event.
type FlashcardAddedData struct {
	ID      string  `json:"id"      bson:"id"`
	Content Content `json:"content" bson:"content"`
}

// FlashcardRemovedData is the event data for the FlashcardRemoved event.
type FlashcardRemovedData struct {
	ID string `json:"id" bson:"id"`
}

// FlashcardContentUpdatedData is the event data for the FlashcardContentUpdated event.
type FlashcardContentUpdatedData struct {
	ID      string  `json:"id"      bson:"id"`
	Content Content `json:"content" bson:"content"`
}
