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

// Package seed creates decks from JSON files of flashcards.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/looplab/recall"
	"github.com/looplab/recall/internal/domain/deck"
)

// ErrMissingName is when a deck is seeded without a name.
var ErrMissingName = errors.New("missing deck name")

// Record is a flashcard in a seed file.
type Record struct {
	Dutch    string `json:"dutch"`
	Mandarin string `json:"mandarin"`
	Pinyin   string `json:"pinyin"`
	English  string `json:"english"`
}

// Decode reads a JSON array of records.
func Decode(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("could not decode records: %w", err)
	}

	return records, nil
}

// Seeder creates decks through the command handler.
type Seeder struct {
	commands recall.CommandHandler
	logger   *slog.Logger
}

// Option is an option setter used to configure the Seeder.
type Option func(*Seeder)

// WithLogger sets the logger of the Seeder.
func WithLogger(l *slog.Logger) Option {
	return func(s *Seeder) {
		s.logger = l
	}
}

// New creates a new Seeder.
func New(commands recall.CommandHandler, options ...Option) (*Seeder, error) {
	if commands == nil {
		return nil, errors.New("missing command handler")
	}

	s := &Seeder{
		commands: commands,
		logger:   slog.Default().With("component", "seed"),
	}

	for _, option := range options {
		option(s)
	}

	return s, nil
}

// SeedFile creates a deck from a seed file. The deck ID is the base name of
// the file. It returns the deck ID.
func (s *Seeder) SeedFile(ctx context.Context, path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not open seed file: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	id := filepath.Base(path)
	if err := s.Seed(ctx, id, name, records); err != nil {
		return "", err
	}

	return id, nil
}

// Seed creates a deck with one flashcard per record.
func (s *Seeder) Seed(ctx context.Context, id, name string, records []Record) error {
	if name == "" {
		return ErrMissingName
	}

	if err := s.commands.HandleCommand(ctx, id, &deck.CreateDeck{Name: name}); err != nil {
		return fmt.Errorf("could not create deck %s: %w", id, err)
	}

	for i, r := range records {
		if err := s.commands.HandleCommand(ctx, id, &deck.AddFlashcard{
			Content: deck.Content{
				Dutch:    r.Dutch,
				Mandarin: r.Mandarin,
				Pinyin:   r.Pinyin,
				English:  r.English,
			},
		}); err != nil {
			return fmt.Errorf("could not add flashcard %d to deck %s: %w", i, id, err)
		}
	}

	s.logger.Info("deck seeded",
		"deck_id", id,
		"name", name,
		"flashcards", len(records),
	)

	return nil
}
