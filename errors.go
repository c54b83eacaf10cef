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

import "errors"

// The error kinds of the core. Errors returned by stores, aggregates and
// handlers wrap one of these, test for them with errors.Is.
var (
	// ErrAggregateAlreadyExists is when a creation command is handled by an
	// aggregate that already has an identity.
	ErrAggregateAlreadyExists = errors.New("aggregate already exists")
	// ErrAggregateNotFound is when a command other than a creation command is
	// handled by an aggregate without identity, or when loading an unknown id.
	ErrAggregateNotFound = errors.New("aggregate not found")
	// ErrInvalidState is when a command is not permitted in the current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrDomainInvariantViolation is when a command references an entity that
	// does not exist within the aggregate.
	ErrDomainInvariantViolation = errors.New("domain invariant violation")
	// ErrConcurrencyConflict is when an optimistic append or view update failed
	// because the stored version has advanced since it was read.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrPersistence is when the underlying storage failed.
	ErrPersistence = errors.New("persistence error")
)

// joinErrs returns the non nil errors, used by the Unwrap methods of the
// typed errors that carry both a kind and a driver error.
func joinErrs(errs ...error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}

	return out
}
