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
	// CreateScheduledReviewCommand is the type for the CreateScheduledReview command.
	CreateScheduledReviewCommand = recall.CommandType("scheduled_review:create")
	// RetireScheduledReviewCommand is the type for the RetireScheduledReview command.
	RetireScheduledReviewCommand = recall.CommandType("scheduled_review:retire")

	// StartSessionCommand is the type for the StartSession command.
	StartSessionCommand = recall.CommandType("session:start")
	// AbandonSessionCommand is the type for the AbandonSession command.
	AbandonSessionCommand = recall.CommandType("session:abandon")
	// AnswerCardCommand is the type for the AnswerCard command.
	AnswerCardCommand = recall.CommandType("session:answer_card")
)

// Static type check that the recall.Command interface is implemented.
var _ = recall.Command(&CreateScheduledReview{})
var _ = recall.Command(&RetireScheduledReview{})
var _ = recall.Command(&StartSession{})
var _ = recall.Command(&AbandonSession{})
var _ = recall.Command(&AnswerCard{})

// CreateScheduledReview starts scheduling reviews of a flashcard, it is
// addressed by the flashcard ID.
type CreateScheduledReview struct{}

func (c *CreateScheduledReview) AggregateType() recall.AggregateType {
	return ScheduledReviewAggregateType
}
func (c *CreateScheduledReview) CommandType() recall.CommandType { return CreateScheduledReviewCommand }

// RetireScheduledReview stops scheduling reviews of a flashcard.
type RetireScheduledReview struct{}

func (c *RetireScheduledReview) AggregateType() recall.AggregateType {
	return ScheduledReviewAggregateType
}
func (c *RetireScheduledReview) CommandType() recall.CommandType { return RetireScheduledReviewCommand }

// StartSession starts a session over cards that were selected by the caller.
type StartSession struct {
	DeckID            string     `json:"deck_id"            validate:"required"`
	Cards             []string   `json:"cards"`
	QuestionLanguages []Language `json:"question_languages" validate:"required,min=1"`
	AnswerLanguages   []Language `json:"answer_languages"   validate:"required,min=1"`
}

func (c *StartSession) AggregateType() recall.AggregateType { return SessionAggregateType }
func (c *StartSession) CommandType() recall.CommandType     { return StartSessionCommand }

// AbandonSession ends a session before all cards are answered.
type AbandonSession struct{}

func (c *AbandonSession) AggregateType() recall.AggregateType { return SessionAggregateType }
func (c *AbandonSession) CommandType() recall.CommandType     { return AbandonSessionCommand }

// AnswerCard answers the presented card. The scheduling state of the card
// before the review is supplied by the caller.
type AnswerCard struct {
	Rating    srs.Rating    `json:"rating"     validate:"min=1,max=4"`
	CardState srs.CardState `json:"card_state"`
}

func (c *AnswerCard) AggregateType() recall.AggregateType { return SessionAggregateType }
func (c *AnswerCard) CommandType() recall.CommandType     { return AnswerCardCommand }
