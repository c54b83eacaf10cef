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
	"fmt"

	"github.com/looplab/recall"
	"github.com/looplab/recall/eventhandler/projector"
	"github.com/looplab/recall/srs"
)

// ErrInvalidEventData is when an event has data of an unexpected type.
var ErrInvalidEventData = errors.New("invalid event data")

// ReviewableCard is the long term scheduling state of a single flashcard,
// keyed by the flashcard ID.
type ReviewableCard struct {
	ID         string        `json:"id"          bson:"id"`
	State      srs.CardState `json:"state"       bson:"state"`
	Retired    bool          `json:"retired"     bson:"retired"`
	Reviews    int           `json:"reviews"     bson:"reviews"`
	LastRating srs.Rating    `json:"last_rating" bson:"last_rating"`
}

// ReviewProjector projects scheduled review events on the ReviewableCard
// read model.
type ReviewProjector struct{}

var _ = projector.Projector[*ReviewableCard](&ReviewProjector{})

// ProjectorType implements the ProjectorType method of the
// projector.Projector interface.
func (p *ReviewProjector) ProjectorType() projector.Type {
	return projector.Type(string(ScheduledReviewAggregateType) + "_reviewable_card")
}

// NewView implements the NewView method of the projector.Projector interface.
func (p *ReviewProjector) NewView(id string) *ReviewableCard {
	return &ReviewableCard{ID: id}
}

// Project implements the Project method of the projector.Projector interface.
func (p *ReviewProjector) Project(ctx context.Context, event recall.Event, view *ReviewableCard) (*ReviewableCard, error) {
	switch event.EventType() {
	case ScheduledReviewCreated:
		data, ok := event.Data().(*ScheduledReviewCreatedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		view.State = data.State
	case ScheduledReviewRetired:
		view.Retired = true
	default:
		return view, fmt.Errorf("could not project event: %s", event.EventType())
	}

	return view, nil
}

// AnswerProjector projects answered cards of sessions on the ReviewableCard
// read model. It must use a view ID strategy that picks the card ID.
type AnswerProjector struct{}

var _ = projector.Projector[*ReviewableCard](&AnswerProjector{})

// AnsweredCardID is the view ID strategy for the AnswerProjector.
func AnsweredCardID() projector.ViewIDStrategy {
	return projector.ByEventData(func(d *CardAnsweredData) string {
		return d.CardID
	})
}

// ProjectorType implements the ProjectorType method of the
// projector.Projector interface.
func (p *AnswerProjector) ProjectorType() projector.Type {
	return projector.Type(string(SessionAggregateType) + "_reviewable_card")
}

// NewView implements the NewView method of the projector.Projector interface.
func (p *AnswerProjector) NewView(id string) *ReviewableCard {
	return &ReviewableCard{ID: id}
}

// Project implements the Project method of the projector.Projector interface.
func (p *AnswerProjector) Project(ctx context.Context, event recall.Event, view *ReviewableCard) (*ReviewableCard, error) {
	data, ok := event.Data().(*CardAnsweredData)
	if !ok {
		return view, ErrInvalidEventData
	}

	view.State = data.State
	view.LastRating = data.Rating
	view.Reviews++

	return view, nil
}

// AnsweredCard is a card that was answered in a session.
type AnsweredCard struct {
	CardID string     `json:"card_id" bson:"card_id"`
	Rating srs.Rating `json:"rating"  bson:"rating"`
}

// SessionView is the read model of a learning session.
type SessionView struct {
	ID                string         `json:"id"                 bson:"id"`
	DeckID            string         `json:"deck_id"            bson:"deck_id"`
	Status            Status         `json:"status"             bson:"status"`
	Queue             []string       `json:"queue"              bson:"queue"`
	Current           string         `json:"current"            bson:"current"`
	QuestionLanguages []Language     `json:"question_languages" bson:"question_languages"`
	AnswerLanguages   []Language     `json:"answer_languages"   bson:"answer_languages"`
	Answered          []AnsweredCard `json:"answered"           bson:"answered"`
}

// SessionProjector projects session events on the SessionView read model.
type SessionProjector struct{}

var _ = projector.Projector[*SessionView](&SessionProjector{})

// ProjectorType implements the ProjectorType method of the
// projector.Projector interface.
func (p *SessionProjector) ProjectorType() projector.Type {
	return projector.Type(string(SessionAggregateType) + "_view")
}

// NewView implements the NewView method of the projector.Projector interface.
func (p *SessionProjector) NewView(id string) *SessionView {
	return &SessionView{
		ID:       id,
		Status:   NotStarted,
		Queue:    []string{},
		Answered: []AnsweredCard{},
	}
}

// Project implements the Project method of the projector.Projector interface.
func (p *SessionProjector) Project(ctx context.Context, event recall.Event, view *SessionView) (*SessionView, error) {
	switch event.EventType() {
	case SessionStarted:
		data, ok := event.Data().(*SessionStartedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		view.DeckID = data.DeckID
		view.Queue = append([]string{}, data.Cards...)
		view.QuestionLanguages = data.QuestionLanguages
		view.AnswerLanguages = data.AnswerLanguages
		view.Status = InProgress
	case CardPresented:
		data, ok := event.Data().(*CardPresentedData)
		if !ok {
			return view, ErrInvalidEventData
		}

		view.Current = data.CardID
		if len(view.Queue) > 0 && view.Queue[0] == data.CardID {
			view.Queue = view.Queue[1:]
		}
	case CardAnswered:
		data, ok := event.Data().(*CardAnsweredData)
		if !ok {
			return view, ErrInvalidEventData
		}

		view.Answered = append(view.Answered, AnsweredCard{
			CardID: data.CardID,
			Rating: data.Rating,
		})
		view.Current = ""
	case SessionAbandoned, SessionCompleted:
		view.Queue = []string{}
		view.Current = ""
		view.Status = Completed
	default:
		return view, fmt.Errorf("could not project event: %s", event.EventType())
	}

	return view, nil
}
