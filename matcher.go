// Copyright (c) 2014 - Max Ekman <max@looplab.se>
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

// EventMatcher is a func that can match event to a criteria.
type EventMatcher func(Event) bool

// MatchAny matches any event.
func MatchAny() EventMatcher {
	return func(e Event) bool {
		return true
	}
}

// MatchEvents matches any of the event types, nil events never match.
func MatchEvents(types ...EventType) EventMatcher {
	return func(e Event) bool {
		if e == nil {
			return false
		}

		for _, t := range types {
			if e.EventType() == t {
				return true
			}
		}

		return false
	}
}

// MatchAggregates matches any of the aggregate types, nil events never match.
func MatchAggregates(types ...AggregateType) EventMatcher {
	return func(e Event) bool {
		if e == nil {
			return false
		}

		for _, t := range types {
			if e.AggregateType() == t {
				return true
			}
		}

		return false
	}
}

// MatchAnyOf matches if any of several matchers matches.
func MatchAnyOf(matchers ...EventMatcher) EventMatcher {
	return func(e Event) bool {
		for _, m := range matchers {
			if m(e) {
				return true
			}
		}

		return false
	}
}

// Filter returns the events that match, keeping their order.
func (m EventMatcher) Filter(events []Event) []Event {
	if m == nil {
		return events
	}

	var matched []Event
	for _, e := range events {
		if m(e) {
			matched = append(matched, e)
		}
	}

	return matched
}
