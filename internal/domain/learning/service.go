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
	"log/slog"

	"github.com/google/uuid"

	"github.com/looplab/recall"
	"github.com/looplab/recall/internal/domain/deck"
	"github.com/looplab/recall/srs"
)

// ErrNoCardsToReview is when a session would be started without cards.
var ErrNoCardsToReview = errors.New("no cards to review")

// NewSessionID generates the IDs of new sessions, it can be replaced in tests.
var NewSessionID = uuid.NewString

// Service runs learning sessions over the cards of a deck. It selects the
// cards from the read side and then only talks to the aggregates through
// commands.
type Service struct {
	commands recall.CommandHandler
	decks    recall.ViewStore
	cards    recall.ViewStore
	sessions recall.ViewStore
	dueOnly  bool
	logger   *slog.Logger
}

// ServiceOption is an option setter used to configure the Service.
type ServiceOption func(*Service)

// WithDueOnly sets if only due cards are selected for new sessions, which is
// the default. Otherwise all reviewable cards of the deck are selected.
func WithDueOnly(dueOnly bool) ServiceOption {
	return func(s *Service) {
		s.dueOnly = dueOnly
	}
}

// WithServiceLogger sets the logger of the service.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a new Service. The view stores hold deck.View,
// ReviewableCard and SessionView views.
func NewService(commands recall.CommandHandler, decks, cards, sessions recall.ViewStore, options ...ServiceOption) (*Service, error) {
	if commands == nil {
		return nil, errors.New("missing command handler")
	}

	if decks == nil || cards == nil || sessions == nil {
		return nil, errors.New("missing view store")
	}

	s := &Service{
		commands: commands,
		decks:    decks,
		cards:    cards,
		sessions: sessions,
		dueOnly:  true,
		logger:   slog.Default().With("component", "learning"),
	}

	for _, option := range options {
		option(s)
	}

	return s, nil
}

// StartSessionForDeck starts a new session over the reviewable cards of a
// deck, in the order they were added, and returns the session ID.
func (s *Service) StartSessionForDeck(ctx context.Context, deckID string, questionLanguages, answerLanguages []Language) (string, error) {
	v, err := s.decks.Load(ctx, deckID)
	if errors.Is(err, recall.ErrViewNotFound) {
		return "", fmt.Errorf("%w: %s", deck.ErrDeckNotFound, deckID)
	} else if err != nil {
		return "", fmt.Errorf("could not load deck: %w", err)
	}

	d, ok := v.(*deck.View)
	if !ok {
		return "", fmt.Errorf("deck %s: %w", deckID, recall.ErrIncorrectViewType)
	}

	if d.Deleted {
		return "", fmt.Errorf("%w: %s", deck.ErrDeckNotFound, deckID)
	}

	now := TimeNow()

	var cards []string

	for _, card := range d.Flashcards {
		c, err := s.reviewableCard(ctx, card.ID)
		if errors.Is(err, recall.ErrViewNotFound) {
			// Not yet scheduled by the deck integration.
			continue
		} else if err != nil {
			return "", err
		}

		if c.Retired || (s.dueOnly && !c.State.IsDue(now)) {
			continue
		}

		cards = append(cards, card.ID)
	}

	if len(cards) == 0 {
		return "", fmt.Errorf("%w: deck %s", ErrNoCardsToReview, deckID)
	}

	id := NewSessionID()
	if err := s.commands.HandleCommand(ctx, id, &StartSession{
		DeckID:            deckID,
		Cards:             cards,
		QuestionLanguages: questionLanguages,
		AnswerLanguages:   answerLanguages,
	}); err != nil {
		return "", fmt.Errorf("could not start session: %w", err)
	}

	s.logger.Info("session started",
		"session_id", id,
		"deck_id", deckID,
		"cards", len(cards),
	)

	return id, nil
}

// AnswerCurrentCard answers the presented card of a session with a rating,
// using the current scheduling state of the card.
func (s *Service) AnswerCurrentCard(ctx context.Context, sessionID string, rating srs.Rating) error {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.Current == "" {
		return ErrNoCardToAnswer
	}

	card, err := s.reviewableCard(ctx, session.Current)
	if err != nil {
		return err
	}

	if err := s.commands.HandleCommand(ctx, sessionID, &AnswerCard{
		Rating:    rating,
		CardState: card.State,
	}); err != nil {
		return fmt.Errorf("could not answer card: %w", err)
	}

	return nil
}

// AbandonSession abandons a session that is in progress.
func (s *Service) AbandonSession(ctx context.Context, sessionID string) error {
	if err := s.commands.HandleCommand(ctx, sessionID, &AbandonSession{}); err != nil {
		return fmt.Errorf("could not abandon session: %w", err)
	}

	return nil
}

// Session returns the view of a session.
func (s *Service) Session(ctx context.Context, sessionID string) (*SessionView, error) {
	v, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, recall.ErrViewNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	} else if err != nil {
		return nil, fmt.Errorf("could not load session: %w", err)
	}

	session, ok := v.(*SessionView)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, recall.ErrIncorrectViewType)
	}

	return session, nil
}

func (s *Service) reviewableCard(ctx context.Context, id string) (*ReviewableCard, error) {
	v, err := s.cards.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not load reviewable card %s: %w", id, err)
	}

	c, ok := v.(*ReviewableCard)
	if !ok {
		return nil, fmt.Errorf("reviewable card %s: %w", id, recall.ErrIncorrectViewType)
	}

	return c, nil
}
