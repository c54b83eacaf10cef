// Copyright (c) 2020 - The Event Horizon authors.
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

package tracing

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/looplab/recall"
)

// ViewStore is a view store that adds tracing.
type ViewStore struct {
	recall.ViewStore
}

var _ = recall.ViewStore(&ViewStore{})

// NewViewStore creates a new ViewStore.
func NewViewStore(store recall.ViewStore) *ViewStore {
	return &ViewStore{ViewStore: store}
}

// Load implements the Load method of the recall.ViewStore interface.
func (s *ViewStore) Load(ctx context.Context, id string) (recall.View, error) {
	v, _, err := s.LoadWithContext(ctx, id)

	return v, err
}

// LoadWithContext implements the LoadWithContext method of the recall.ViewStore interface.
func (s *ViewStore) LoadWithContext(ctx context.Context, id string) (recall.View, recall.ViewContext, error) {
	sp, ctx := opentracing.StartSpanFromContext(ctx, "ViewStore.Load")

	v, vc, err := s.ViewStore.LoadWithContext(ctx, id)
	if err != nil && !errors.Is(err, recall.ErrViewNotFound) {
		ext.LogError(sp, err)
	}

	sp.SetTag("recall.view_id", id)
	sp.SetTag("recall.view_version", vc.Version)

	sp.Finish()

	return v, vc, err
}

// UpdateView implements the UpdateView method of the recall.ViewStore interface.
func (s *ViewStore) UpdateView(ctx context.Context, view recall.View, vc recall.ViewContext) error {
	sp, ctx := opentracing.StartSpanFromContext(ctx, "ViewStore.UpdateView")

	err := s.ViewStore.UpdateView(ctx, view, vc)
	if err != nil && !errors.Is(err, recall.ErrConcurrencyConflict) {
		ext.LogError(sp, err)
	}

	sp.SetTag("recall.view_id", vc.ViewID)
	sp.SetTag("recall.view_version", vc.Version)

	sp.Finish()

	return err
}

// FindAll implements the FindAll method of the recall.ViewStore interface.
func (s *ViewStore) FindAll(ctx context.Context) ([]recall.View, error) {
	sp, ctx := opentracing.StartSpanFromContext(ctx, "ViewStore.FindAll")

	views, err := s.ViewStore.FindAll(ctx)
	if err != nil {
		ext.LogError(sp, err)
	}

	sp.SetTag("recall.views", len(views))

	sp.Finish()

	return views, err
}
