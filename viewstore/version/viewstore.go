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

package version

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"github.com/looplab/recall"
)

// ViewStore is a middleware that adds version waiting to a view store, used
// to read your own writes from an asynchronously updated view.
type ViewStore struct {
	recall.ViewStore
}

// NewViewStore creates a new ViewStore.
func NewViewStore(store recall.ViewStore) *ViewStore {
	return &ViewStore{
		ViewStore: store,
	}
}

// Load implements the Load method of the recall.ViewStore interface.
func (s *ViewStore) Load(ctx context.Context, id string) (recall.View, error) {
	v, _, err := s.LoadWithContext(ctx, id)

	return v, err
}

// LoadWithContext implements the LoadWithContext method of the recall.ViewStore
// interface. If the context contains a min version set by
// NewContextWithMinVersion it will only return a view if its version is at
// least min version. If a deadline is set on the context it will repeatedly try
// to get the view until either the version matches or the deadline is reached.
func (s *ViewStore) LoadWithContext(ctx context.Context, id string) (recall.View, recall.ViewContext, error) {
	minVersion, ok := MinVersionFromContext(ctx)
	if !ok || minVersion < 1 {
		return s.ViewStore.LoadWithContext(ctx, id)
	}

	delay := &backoff.Backoff{
		Min: 5 * time.Millisecond,
		Max: 500 * time.Millisecond,
	}
	_, hasDeadline := ctx.Deadline()

	for {
		v, vc, err := s.ViewStore.LoadWithContext(ctx, id)
		if err == nil && vc.Version < minVersion {
			err = &recall.ViewStoreError{
				Err:     recall.ErrIncorrectViewVersion,
				BaseErr: fmt.Errorf("version %d, want at least %d", vc.Version, minVersion),
				Op:      recall.ViewStoreOpLoad,
				ViewID:  id,
			}
		}

		if err == nil {
			return v, vc, nil
		}

		// Only an old or missing view is worth waiting for.
		if !errors.Is(err, recall.ErrIncorrectViewVersion) && !errors.Is(err, recall.ErrViewNotFound) {
			return nil, recall.ViewContext{}, err
		}

		if !hasDeadline {
			return nil, recall.ViewContext{}, err
		}

		select {
		case <-time.After(delay.Duration()):
		case <-ctx.Done():
			return nil, recall.ViewContext{}, ctx.Err()
		}
	}
}
