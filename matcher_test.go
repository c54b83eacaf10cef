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

package recall

import (
	"testing"
	"time"
)

func TestMatchAny(t *testing.T) {
	m := MatchAny()

	if !m(nil) {
		t.Error("match any should always match")
	}

	e := NewEvent("test", nil, time.Now())
	if !m(e) {
		t.Error("match any should always match")
	}
}

func TestMatchEvents(t *testing.T) {
	m := MatchEvents("et1", "et2")

	if m(nil) {
		t.Error("match events should not match nil event")
	}

	if !m(NewEvent("et2", nil, time.Now())) {
		t.Error("match events should match the event")
	}

	if m(NewEvent("other", nil, time.Now())) {
		t.Error("match events should not match the event")
	}
}

func TestMatchAggregates(t *testing.T) {
	m := MatchAggregates("test")

	if m(nil) {
		t.Error("match aggregates should not match nil event")
	}

	e := NewEvent("test", nil, time.Now(), ForAggregate("test", "id", 1))
	if !m(e) {
		t.Error("match aggregates should match the event")
	}

	e = NewEvent("test", nil, time.Now(), ForAggregate("other", "id", 1))
	if m(e) {
		t.Error("match aggregates should not match the event")
	}
}

func TestMatchAnyOf(t *testing.T) {
	m := MatchAnyOf(
		MatchEvents("et1"),
		MatchAggregates("at1"),
	)

	if !m(NewEvent("et1", nil, time.Now())) {
		t.Error("match any of should match the first matcher")
	}

	if !m(NewEvent("et2", nil, time.Now(), ForAggregate("at1", "id", 1))) {
		t.Error("match any of should match the second matcher")
	}

	if m(NewEvent("et2", nil, time.Now())) {
		t.Error("match any of should not match the event")
	}
}

func TestMatcherFilter(t *testing.T) {
	e1 := NewEvent("et1", nil, time.Now())
	e2 := NewEvent("et2", nil, time.Now())
	e3 := NewEvent("et1", nil, time.Now())

	matched := MatchEvents("et1").Filter([]Event{e1, e2, e3})
	if len(matched) != 2 || matched[0] != e1 || matched[1] != e3 {
		t.Error("the filtered events should be correct:", matched)
	}

	var none EventMatcher
	if len(none.Filter([]Event{e1, e2})) != 2 {
		t.Error("a nil matcher should keep all events")
	}
}
