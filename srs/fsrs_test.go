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

package srs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFSRS(t *testing.T) {
	s, err := NewFSRS(WithDesiredRetention(0.85), WithMaximumInterval(365))
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = NewFSRS(WithDesiredRetention(1.5))
	assert.Error(t, err, "retention above 1 should be rejected")

	_, err = NewFSRS(WithMaximumInterval(0))
	assert.Error(t, err, "a zero maximum interval should be rejected")
}

func TestFSRS_Schedule(t *testing.T) {
	s, err := NewFSRS()
	require.NoError(t, err)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	card := NewCardState(now)

	assert.True(t, card.IsDue(now))
	assert.Equal(t, New, card.Phase)

	good, err := s.Schedule(card, Good, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, good.Reps)
	assert.True(t, good.Due.After(now), "the card should be due later: %v", good.Due)
	assert.NotEqual(t, New, good.Phase)

	again, err := s.Schedule(card, Again, now)
	require.NoError(t, err)

	easy, err := s.Schedule(card, Easy, now)
	require.NoError(t, err)
	assert.True(t, again.Due.Before(easy.Due), "again should be due before easy")

	// Scheduling is a pure function.
	again2, err := s.Schedule(card, Again, now)
	require.NoError(t, err)
	assert.Equal(t, again, again2)
}

func TestFSRS_InvalidRating(t *testing.T) {
	s, err := NewFSRS()
	require.NoError(t, err)

	now := time.Now()

	if _, err := s.Schedule(NewCardState(now), Rating(7), now); !errors.Is(err, ErrInvalidRating) {
		t.Error("there should be an invalid rating error:", err)
	}
}

func TestParseRating(t *testing.T) {
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		parsed, err := ParseRating(r.String())
		if err != nil {
			t.Error("there should be no error:", err)
		}

		if parsed != r {
			t.Error("the rating should be correct:", parsed)
		}
	}

	if _, err := ParseRating("perfect"); !errors.Is(err, ErrInvalidRating) {
		t.Error("there should be an invalid rating error:", err)
	}

	if Rating(0).Valid() {
		t.Error("a zero rating should not be valid")
	}
}
