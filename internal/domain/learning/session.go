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
	"fmt"
	"time"

	"github.com/looplab/recall"
	"github.com/looplab/recall/aggregatestore/events"
	"github.com/looplab/recall/srs"
)

func init() {
	recall.RegisterAggregate(func(id string) recall.Aggregate {
		return NewSession(id)
	})
}

// SessionAggregateType is the aggregate type for a learning session.
const SessionAggregateType = recall.AggregateType("learning_session")

var (
	// ErrSessionNotFound is when a command is sent to a session that was
	// never started.
	ErrSessionNotFound = fmt.Errorf("session not found: %w", recall.ErrAggregateNotFound)
	// ErrSessionAlreadyStarted is when a session is started twice.
	ErrSessionAlreadyStarted = fmt.Errorf("session already started: %w", recall.ErrInvalidState)
	// ErrSessionNotActive is when a session that is not in progress is abandoned.
	ErrSessionNotActive = fmt.Errorf("session is not active: %w", recall.ErrInvalidState)
	// ErrNoCardToAnswer is when there is no presented card to answer.
	ErrNoCardToAnswer = fmt.Errorf("no card to answer: %w", recall.ErrInvalidState)
	// ErrInvalidLanguage is when a session is started with an unknown language.
	ErrInvalidLanguage = fmt.Errorf("invalid language: %w", recall.ErrDomainInvariantViolation)
)

// Scheduler computes the state of answered cards, it can be replaced in tests.
var Scheduler srs.Scheduler = defaultScheduler()

// TimeNow is a mockable version of time.Now.
var TimeNow = time.Now

func defaultScheduler() srs.Scheduler {
	s, err := srs.NewFSRS()
	if err != nil {
		panic(fmt.Sprintf("learning: could not create scheduler: %v", err))
	}

	return s
}

// Language is a text representation of a flashcard.
type Language string

const (
	Dutch    Language = "dutch"
	Mandarin Language = "mandarin"
	Pinyin   Language = "pinyin"
	English  Language = "english"
)

// Valid returns true for the known languages.
func (l Language) Valid() bool {
	switch l {
	case Dutch, Mandarin, Pinyin, English:
		return true
	}

	return false
}

// Status is the status of a session.
type Status string

const (
	NotStarted Status = "not_started"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
)

// Session is the aggregate of a learning session. The cards to review are
// selected once, when the session is started, and are then presented one at
// a time until the queue is empty or the session is abandoned.
type Session struct {
	*events.AggregateBase

	status  Status
	queue   []string
	current string
}

var _ = events.VersionedAggregate(&Session{})

// NewSession creates a new session aggregate with an ID.
func NewSession(id string) *Session {
	return &Session{
		AggregateBase: events.NewAggregateBase(SessionAggregateType, id),
		status:        NotStarted,
	}
}

// HandleCommand implements the HandleCommand method of the
// recall.Aggregate interface.
func (a *Session) HandleCommand(ctx context.Context, cmd recall.Command) error {
	switch cmd := cmd.(type) {
	case *StartSession:
		if a.status != NotStarted {
			return ErrSessionAlreadyStarted
		}

		for _, l := range append(append([]Language{}, cmd.QuestionLanguages...), cmd.AnswerLanguages...) {
			if !l.Valid() {
				return fmt.Errorf("%w: %q", ErrInvalidLanguage, l)
			}
		}

		cards := append([]string{}, cmd.Cards...)

		a.AppendEvent(SessionStarted, &SessionStartedData{
			DeckID:            cmd.DeckID,
			Cards:             cards,
			QuestionLanguages: cmd.QuestionLanguages,
			AnswerLanguages:   cmd.AnswerLanguages,
		}, TimeNow())
		a.presentNext(cards)
	case *AbandonSession:
		if a.status == NotStarted {
			return ErrSessionNotFound
		}

		if a.status != InProgress {
			return ErrSessionNotActive
		}

		a.AppendEvent(SessionAbandoned, nil, TimeNow())
	case *AnswerCard:
		if a.status == NotStarted {
			return fmt.Errorf("%w: %w", ErrSessionNotFound, ErrNoCardToAnswer)
		}

		if a.status != InProgress || a.current == "" {
			return ErrNoCardToAnswer
		}

		now := TimeNow()

		state, err := Scheduler.Schedule(cmd.CardState, cmd.Rating, now)
		if err != nil {
			return fmt.Errorf("could not schedule card %s: %w", a.current, err)
		}

		a.AppendEvent(CardAnswered, &CardAnsweredData{
			CardID: a.current,
			Rating: cmd.Rating,
			State:  state,
		}, now)
		a.presentNext(a.queue)
	default:
		return fmt.Errorf("could not handle command: %s", cmd.CommandType())
	}

	return nil
}

// presentNext presents the head of the queue, or completes the session.
func (a *Session) presentNext(queue []string) {
	if len(queue) == 0 {
		a.AppendEvent(SessionCompleted, nil, TimeNow())

		return
	}

	a.AppendEvent(CardPresented, &CardPresentedData{
		CardID: queue[0],
	}, TimeNow())
}

// ApplyEvent implements the ApplyEvent method of the
// events.VersionedAggregate interface.
func (a *Session) ApplyEvent(ctx context.Context, event recall.Event) {
	switch event.EventType() {
	case SessionStarted:
		if data, ok := event.Data().(*SessionStartedData); ok {
			a.queue = append([]string{}, data.Cards...)
		}

		a.status = InProgress
	case CardPresented:
		data, ok := event.Data().(*CardPresentedData)
		if !ok {
			break
		}

		a.current = data.CardID
		if len(a.queue) > 0 && a.queue[0] == data.CardID {
			a.queue = a.queue[1:]
		}
	case CardAnswered:
		// Only drives the read side.
	case SessionAbandoned, SessionCompleted:
		a.queue = nil
		a.current = ""
		a.status = Completed
	}
}

// Status returns the status of the session.
func (a *Session) Status() Status {
	return a.status
}

// CurrentCard returns the presented card, or an empty string.
func (a *Session) CurrentCard() string {
	return a.current
}

// Queue returns the cards that are not yet presented.
func (a *Session) Queue() []string {
	return append([]string{}, a.queue...)
}
