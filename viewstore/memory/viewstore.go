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

package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/looplab/recall"
	"github.com/looplab/recall/copyutils"
)

// ViewStore implements an in memory store of views. Each view ID has its own
// record and lock, there is no lock over the whole store. Views are copied
// on the way in and out.
type ViewStore struct {
	records sync.Map // string -> *record
	seq     atomic.Int64
}

type record struct {
	sync.Mutex

	seq     int64
	view    recall.View
	version int
}

var _ = recall.ViewStore(&ViewStore{})

// NewViewStore creates a new ViewStore.
func NewViewStore() *ViewStore {
	return &ViewStore{}
}

// Load implements the Load method of the recall.ViewStore interface.
func (s *ViewStore) Load(ctx context.Context, id string) (recall.View, error) {
	v, _, err := s.LoadWithContext(ctx, id)

	return v, err
}

// LoadWithContext implements the LoadWithContext method of the recall.ViewStore interface.
func (s *ViewStore) LoadWithContext(ctx context.Context, id string) (recall.View, recall.ViewContext, error) {
	r, ok := s.records.Load(id)
	if !ok {
		return nil, recall.ViewContext{}, &recall.ViewStoreError{
			Err:    recall.ErrViewNotFound,
			Op:     recall.ViewStoreOpLoad,
			ViewID: id,
		}
	}

	rec := r.(*record)

	rec.Lock()
	defer rec.Unlock()

	if rec.view == nil {
		return nil, recall.ViewContext{}, &recall.ViewStoreError{
			Err:    recall.ErrViewNotFound,
			Op:     recall.ViewStoreOpLoad,
			ViewID: id,
		}
	}

	v, err := copyView(rec.view)
	if err != nil {
		return nil, recall.ViewContext{}, &recall.ViewStoreError{
			Err:     recall.ErrPersistence,
			BaseErr: err,
			Op:      recall.ViewStoreOpLoad,
			ViewID:  id,
		}
	}

	return v, recall.NewViewContext(id, rec.version), nil
}

// UpdateView implements the UpdateView method of the recall.ViewStore interface.
func (s *ViewStore) UpdateView(ctx context.Context, view recall.View, vc recall.ViewContext) error {
	if vc.ViewID == "" {
		return &recall.ViewStoreError{
			Err: recall.ErrMissingViewID,
			Op:  recall.ViewStoreOpUpdate,
		}
	}

	if view == nil {
		return &recall.ViewStoreError{
			Err:    recall.ErrMissingView,
			Op:     recall.ViewStoreOpUpdate,
			ViewID: vc.ViewID,
		}
	}

	v, err := copyView(view)
	if err != nil {
		return &recall.ViewStoreError{
			Err:     recall.ErrPersistence,
			BaseErr: err,
			Op:      recall.ViewStoreOpUpdate,
			ViewID:  vc.ViewID,
		}
	}

	r, _ := s.records.LoadOrStore(vc.ViewID, &record{seq: s.seq.Add(1)})
	rec := r.(*record)

	rec.Lock()
	defer rec.Unlock()

	if rec.version != vc.Version {
		return &recall.ViewStoreError{
			Err:     recall.ErrIncorrectViewVersion,
			BaseErr: fmt.Errorf("stored version %d, update based on %d", rec.version, vc.Version),
			Op:      recall.ViewStoreOpUpdate,
			ViewID:  vc.ViewID,
		}
	}

	rec.view = v
	rec.version = vc.NextVersion()

	return nil
}

// FindAll implements the FindAll method of the recall.ViewStore interface.
// Views are returned in order of creation.
func (s *ViewStore) FindAll(ctx context.Context) ([]recall.View, error) {
	type entry struct {
		seq  int64
		view recall.View
	}

	var (
		entries []entry
		err     error
	)

	s.records.Range(func(key, value any) bool {
		rec := value.(*record)

		rec.Lock()
		defer rec.Unlock()

		if rec.view == nil {
			return true
		}

		var v recall.View
		if v, err = copyView(rec.view); err != nil {
			err = &recall.ViewStoreError{
				Err:     recall.ErrPersistence,
				BaseErr: err,
				Op:      recall.ViewStoreOpFindAll,
				ViewID:  key.(string),
			}

			return false
		}

		entries = append(entries, entry{seq: rec.seq, view: v})

		return true
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	views := make([]recall.View, len(entries))
	for i, e := range entries {
		views[i] = e.view
	}

	return views, nil
}

// Close implements the Close method of the recall.ViewStore interface.
func (s *ViewStore) Close() error {
	return nil
}

// copyView makes a deep copy of a view, keeping pointer views as pointers.
func copyView(v recall.View) (recall.View, error) {
	t := reflect.TypeOf(v)

	if t.Kind() == reflect.Ptr {
		c := reflect.New(t.Elem())
		if err := copyutils.DeepCopy(c.Interface(), v); err != nil {
			return nil, fmt.Errorf("could not copy view: %w", err)
		}

		return c.Interface(), nil
	}

	c := reflect.New(t)
	if err := copyutils.DeepCopy(c.Interface(), v); err != nil {
		return nil, fmt.Errorf("could not copy view: %w", err)
	}

	return c.Elem().Interface(), nil
}
