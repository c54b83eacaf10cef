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
	"fmt"
	"reflect"
)

// CompareConfig is a config for the CompareEvents function.
type CompareConfig struct {
	ignoreTimestamp bool
	ignoreVersion   bool
	ignorePosition  bool
}

// CompareOption is an option setter used to configure comparing of events.
type CompareOption func(*CompareConfig)

// IgnoreTimestamp ignores the timestamps of events when comparing.
func IgnoreTimestamp() CompareOption {
	return func(o *CompareConfig) {
		o.ignoreTimestamp = true
	}
}

// IgnoreVersion ignores the versions of events when comparing.
func IgnoreVersion() CompareOption {
	return func(o *CompareConfig) {
		o.ignoreVersion = true
	}
}

// IgnorePositionMetadata ignores the position that database stores add to
// the metadata when comparing events.
func IgnorePositionMetadata() CompareOption {
	return func(o *CompareConfig) {
		o.ignorePosition = true
	}
}

// CompareEvents compares two events, with options for ignoring timestamp,
// version etc.
func CompareEvents(e1, e2 Event, options ...CompareOption) error {
	var opts CompareConfig

	for _, o := range options {
		if o == nil {
			continue
		}

		o(&opts)
	}

	if e1.EventType() != e2.EventType() {
		return fmt.Errorf("incorrect event type: %s (should be %s)", e1.EventType(), e2.EventType())
	}

	if !reflect.DeepEqual(e1.Data(), e2.Data()) {
		return fmt.Errorf("incorrect event data: %v (should be %v)", e1.Data(), e2.Data())
	}

	if !opts.ignoreTimestamp && !e1.Timestamp().Equal(e2.Timestamp()) {
		return fmt.Errorf("incorrect timestamp: %s (should be %s)", e1.Timestamp(), e2.Timestamp())
	}

	if e1.AggregateType() != e2.AggregateType() {
		return fmt.Errorf("incorrect aggregate type: %s (should be %s)", e1.AggregateType(), e2.AggregateType())
	}

	if e1.AggregateID() != e2.AggregateID() {
		return fmt.Errorf("incorrect aggregate ID: %s (should be %s)", e1.AggregateID(), e2.AggregateID())
	}

	if !opts.ignoreVersion && e1.Version() != e2.Version() {
		return fmt.Errorf("incorrect version: %d (should be %d)", e1.Version(), e2.Version())
	}

	if e1.SchemaVersion() != e2.SchemaVersion() {
		return fmt.Errorf("incorrect schema version: %s (should be %s)", e1.SchemaVersion(), e2.SchemaVersion())
	}

	m1, m2 := e1.Metadata(), e2.Metadata()
	if opts.ignorePosition {
		m1, m2 = withoutPosition(m1), withoutPosition(m2)
	}

	if !reflect.DeepEqual(m1, m2) {
		return fmt.Errorf("incorrect event metadata: %v (should be %v)", m1, m2)
	}

	return nil
}

func withoutPosition(m map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}

	for k, v := range m {
		if k == "position" {
			continue
		}

		out[k] = v
	}

	return out
}

// CompareEventSlices compares two slices of events, using options.
func CompareEventSlices(evts1, evts2 []Event, opts ...CompareOption) bool {
	if len(evts1) != len(evts2) {
		return false
	}

	for i, e1 := range evts1 {
		if err := CompareEvents(e1, evts2[i], opts...); err != nil {
			return false
		}
	}

	return true
}
