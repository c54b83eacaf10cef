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
	// CreateDeckCommand is the type for the CreateDeck command.
	CreateDeckCommand = recall.CommandType("deck:create")
	// RenameDeckCommand is the type for the RenameDeck command.
	RenameDeckCommand = recall.CommandType("deck:rename")
	// DeleteDeckCommand is the type for the DeleteDeck command.
	DeleteDeckCommand = recall.CommandType("deck:delete")

	// AddFlashcardCommand is the type for the AddFlashcard command.
	AddFlashcardCommand = recall.CommandType("deck:add_flashcard")
	// RemoveFlashcardCommand is the type for the RemoveFlashcard command.
	RemoveFlashcardCommand = recall.CommandType("deck:remove_flashcard")
	// UpdateFlashcardContentCommand is the type for the UpdateFlashcardContent command.
	UpdateFlashcardContentCommand = recall.CommandType("deck:update_flashcard_content")
)

// Static type check that the recall.Command interface is implemented.
var _ = recall.Command(&CreateDeck{})
var _ = recall.Command(&RenameDeck{})
var _ = recall.Command(&DeleteDeck{})
var _ = recall.Command(&AddFlashcard{})
var _ = recall.Command(&RemoveFlashcard{})
var _ = recall.Command(&UpdateFlashcardContent{})

// Content is the text of a flashcard in all of its languages.
type Content struct {
	Dutch    string `json:"dutch"    bson:"dutch"`
	Mandarin string `json:"mandarin" bson:"mandarin"`
	Pinyin   string `json:"pinyin"   bson:"pinyin"`
	English  string `json:"english"  bson:"english"`
}

// CreateDeck creates a new, empty deck.
type CreateDeck struct {
	Name string `json:"name" validate:"required"`
}

func (c *CreateDeck) AggregateType() recall.AggregateType { return AggregateType }
func (c *CreateDeck) CommandType() recall.CommandType     { return CreateDeckCommand }

// RenameDeck renames an existing deck.
type RenameDeck struct {
	Name string `json:"name" validate:"required"`
}

func (c *RenameDeck) AggregateType() recall.AggregateType { return AggregateType }
func (c *RenameDeck) CommandType() recall.CommandType     { return RenameDeckCommand }

// DeleteDeck deletes a deck and all of its flashcards.
type DeleteDeck struct{}

func (c *DeleteDeck) AggregateType() recall.AggregateType { return AggregateType }
func (c *DeleteDeck) CommandType() recall.CommandType     { return DeleteDeckCommand }

// AddFlashcard adds a flashcard to a deck, the deck generates its ID.
type AddFlashcard struct {
	Content Content `json:"content"`
}

func (c *AddFlashcard) AggregateType() recall.AggregateType { return AggregateType }
func (c *AddFlashcard) CommandType() recall.CommandType     { return AddFlashcardCommand }

// RemoveFlashcard removes a flashcard from a deck.
type RemoveFlashcard struct {
	FlashcardID string `json:"flashcard_id" validate:"required"`
}

func (c *RemoveFlashcard) AggregateType() recall.AggregateType { return AggregateType }
func (c *RemoveFlashcard) CommandType() recall.CommandType     { return RemoveFlashcardCommand }

// UpdateFlashcardContent replaces the content of a flashcard in a deck.
type UpdateFlashcardContent struct {
	FlashcardID string  `json:"flashcard_id" validate:"required"`
	Content     Content `json:"content"`
}

func (c *UpdateFlashcardContent) AggregateType() recall.AggregateType { return AggregateType }
func (c *UpdateFlashcardContent) CommandType() recall.CommandType     { return UpdateFlashcardContentCommand }
