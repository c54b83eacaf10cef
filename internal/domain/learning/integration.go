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

	"github.com/looplab/recall"
	"github.com/looplab/recall/eventhandler/acl"
	"github.com/looplab/recall/internal/domain/deck"
)

// DeckTranslator schedules the flashcards of decks for review. Removed
// flashcards, and the flashcards of deleted decks, are retired.
type DeckTranslator struct{}

var _ = acl.Translator(&DeckTranslator{})

// DeckEvents matches the events that the DeckTranslator translates.
var DeckEvents = recall.MatchEvents(deck.FlashcardAdded, deck.FlashcardRemoved, deck.DeckDeleted)

// TranslatorType implements the TranslatorType method of the acl.Translator interface.
func (t *DeckTranslator) TranslatorType() acl.Type {
	return "deck_to_learning"
}

// Translate implements the Translate method of the acl.Translator interface.
func (t *DeckTranslator) Translate(ctx context.Context, event recall.Event) ([]acl.Target, error) {
	switch data := event.Data().(type) {
	case *deck.FlashcardAddedData:
		return []acl.Target{{
			AggregateID: data.ID,
			Command:     &CreateScheduledReview{},
			Idempotent:  true,
		}}, nil
	case *deck.FlashcardRemovedData:
		return []acl.Target{{
			AggregateID: data.ID,
			Command:     &RetireScheduledReview{},
		}}, nil
	case *deck.DeckDeletedData:
		targets := make([]acl.Target, len(data.FlashcardIDs))
		for i, id := range data.FlashcardIDs {
			targets[i] = acl.Target{
				AggregateID: id,
				Command:     &RetireScheduledReview{},
			}
		}

		return targets, nil
	}

	return nil, nil
}
