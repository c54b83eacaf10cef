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
	"github.com/looplab/recall"
	"github.com/looplab/recall/srs"
)

const (
	// ScheduledReviewCreated is the event after reviews of a card are scheduled.
	ScheduledReviewCreated = recall.EventType("scheduled_review:created")
	// ScheduledReviewRetired is the event after reviews of a card are stopped.
	ScheduledReviewRetired = recall.EventType("scheduled_review:retired")

	// SessionStarted is the event after a session is started.
	SessionStarted = recall.EventType("session:started")
	// CardPresented is the event after a card is presented for review.
	CardPresented = recall.EventType("session:card_presented")
	// CardAnswered is the event after the presented card is answered.
	CardAnswered = recall.EventType("session:card_answered")
	// SessionAbandoned is the event after a session is abandoned.
	SessionAbandoned = recall.EventType("session:abandoned")
	// SessionCompleted is the event after the last card of a session.
	SessionCompleted = recall.EventType("session:completed")
)

func init() {
	recall.RegisterEventData(ScheduledReviewCreated, func() recall.EventData {
		return &ScheduledReviewCreatedData{}
	})
	recall.RegisterEventData(SessionStarted, func() recall.EventData {
		return &SessionStartedData{}
	})
	recall.RegisterEventData(CardPresented, func() recall.EventData {
		return &CardPresentedData{}
	})
	recall.RegisterEventData(CardAnswered, func() recall.EventData {
		return &CardAnsweredData{}
	})
}

// ScheduledReviewCreatedData is the event data for the ScheduledReviewCreated event.
type ScheduledReviewCreatedData struct {
	State srs.CardState `json:"state" bson:"state"`
}

// SessionStartedData is the event data for the SessionStarted event. It
// holds the full initial queue of the session.
type SessionStartedData struct {
	DeckID            string     `json:"deck_id"            bson:"deck_id"`
	Cards             []string   `json:"cards"              bson:"cards"`
	QuestionLanguages []Language `json:"question_languages" bson:"question_languages"`
	AnswerLanguages   []Language `json:"answer_languages"   bson:"answer_languages"`
}

// CardPresentedData is the event data for the CardPresented event.
type CardPresentedData struct {
	CardID string `json:"card_id" bson:"card_id"`
}

// CardAnsweredData is the event data for the CardAnswered event. State is the
// scheduling state of the card after the review.
type CardAnsweredData struct {
	CardID string        `json:"card_id" bson:"card_id"`
	Rating srs.Rating    `json:"rating"  bson:"rating"`
	State  srs.CardState `json:"state"   bson:"state"`
}
