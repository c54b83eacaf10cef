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

import (
	"context"
	"errors"
	"fmt"
)

// View is a read optimized materialization of events, stored in a ViewStore
// under a view id. Views should be pointers to structs.
type View interface{}

// ViewContext is the concurrency context of a loaded view. Version is the
// version the view had when it was loaded, which is the number of events that
// had been folded into it.
type ViewContext struct {
	ViewID  string
	Version int

	folded int
}

// NewViewContext creates a context for a view loaded at a version.
func NewViewContext(id string, version int) ViewContext {
	return ViewContext{
		ViewID:  id,
		Version: version,
	}
}

// Fold records that one more event has been folded into the view.
func (c *ViewContext) Fold() {
	c.folded++
}

// Folded returns the number of events folded since the view was loaded.
func (c ViewContext) Folded() int {
	return c.folded
}

// NextVersion is the version the view is stored at by UpdateView.
func (c ViewContext) NextVersion() int {
	return c.Version + c.folded
}

// ViewStore is a keyed store of views.
type ViewStore interface {
	// Load returns the view for an id, or an error wrapping ErrViewNotFound.
	Load(ctx context.Context, id string) (View, error)

	// LoadWithContext returns the view and its context for an id, or an error
	// wrapping ErrViewNotFound.
	LoadWithContext(ctx context.Context, id string) (View, ViewContext, error)

	// UpdateView stores a view at the context's next version. The stored
	// version must be equal to the context's version, otherwise the update is
	// rejected with an error wrapping ErrIncorrectViewVersion.
	UpdateView(ctx context.Context, view View, vc ViewContext) error

	// FindAll returns all views in the store.
	FindAll(ctx context.Context) ([]View, error)

	// Close closes the ViewStore.
	Close() error
}

var (
	// ErrViewNotFound is when a view could not be found.
	ErrViewNotFound = errors.New("could not find view")
	// ErrMissingViewID is when a view is updated without an ID.
	ErrMissingViewID = errors.New("missing view ID")
	// ErrMissingView is when a nil view is updated.
	ErrMissingView = errors.New("missing view")
	// ErrIncorrectViewVersion is when a view update is based on another
	// version than the stored one.
	ErrIncorrectViewVersion = fmt.Errorf("incorrect view version: %w", ErrConcurrencyConflict)
	// ErrIncorrectViewType is when a loaded view is not of the expected type.
	ErrIncorrectViewType = errors.New("incorrect view type")
)

// ViewStoreOperation is the operation done when an error happened.
type ViewStoreOperation string

const (
	// Errors during loading of views.
	ViewStoreOpLoad = "load"
	// Errors during updating of views.
	ViewStoreOpUpdate = "update"
	// Errors during find all.
	ViewStoreOpFindAll = "find all"
)

// ViewStoreError is an error in the view store.
type ViewStoreError struct {
	// Err is the error.
	Err error
	// BaseErr is an optional underlying error, for example from the DB driver.
	BaseErr error
	// Op is the operation for the error.
	Op ViewStoreOperation
	// ViewID of related operation.
	ViewID string
}

// Error implements the Error method of the errors.Error interface.
func (e *ViewStoreError) Error() string {
	str := "view store: "

	if e.Op != "" {
		str += string(e.Op) + ": "
	}

	if e.Err != nil {
		str += e.Err.Error()
	} else {
		str += "unknown error"
	}

	if e.BaseErr != nil {
		str += ": " + e.BaseErr.Error()
	}

	if e.ViewID != "" {
		str += " (" + e.ViewID + ")"
	}

	return str
}

// Unwrap implements the errors.Unwrap method.
func (e *ViewStoreError) Unwrap() []error {
	return joinErrs(e.Err, e.BaseErr)
}
