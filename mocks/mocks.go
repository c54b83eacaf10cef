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

package mocks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/looplab/recall"
)

func init() {
	recall.RegisterAggregate(func(id string) recall.Aggregate {
		return NewAggregate(id)
	})

	recall.RegisterEventData(EventType, func() recall.EventData { return &EventData{} })
	recall.RegisterEventData(EventOtherType, func() recall.EventData { return &EventData{} })
}

const (
	// AggregateType is the type for Aggregate.
	AggregateType recall.AggregateType = "Aggregate"
	// OtherAggregateType is a second aggregate type, not registered.
	OtherAggregateType recall.AggregateType = "OtherAggregate"

	// EventType is a the type for Event.
	EventType recall.EventType = "Event"
	// EventOtherType is the type for EventOther.
	EventOtherType recall.EventType = "EventOther"

	// CommandType is the type for Command.
	CommandType recall.CommandType = "Command"
	// CommandOtherType is the type for CommandOther.
	CommandOtherType recall.CommandType = "CommandOther"
)

// Aggregate is a mocked recall.Aggregate, useful in testing. It appends one
// Event for each Command it handles.
type Aggregate struct {
	ID       string
	Commands []recall.Command
	Events   []recall.Event
	Context  context.Context
	// Used to simulate errors in HandleCommand.
	Err error

	version     int
	uncommitted []recall.Event
}

var _ = recall.Aggregate(&Aggregate{})

// NewAggregate returns a new Aggregate.
func NewAggregate(id string) *Aggregate {
	return &Aggregate{
		ID:       id,
		Commands: []recall.Command{},
		Events:   []recall.Event{},
	}
}

// EntityID implements the EntityID method of the recall.Entity interface.
func (a *Aggregate) EntityID() string {
	return a.ID
}

// AggregateType implements the AggregateType method of the recall.Aggregate interface.
func (a *Aggregate) AggregateType() recall.AggregateType {
	return AggregateType
}

// HandleCommand implements the HandleCommand method of the recall.Aggregate interface.
func (a *Aggregate) HandleCommand(ctx context.Context, cmd recall.Command) error {
	if a.Err != nil {
		return a.Err
	}

	a.Commands = append(a.Commands, cmd)
	a.Context = ctx

	var content string

	switch c := cmd.(type) {
	case Command:
		content = c.Content
	case *Command:
		content = c.Content
	default:
		return nil
	}

	a.uncommitted = append(a.uncommitted, recall.NewEvent(
		EventType, &EventData{Content: content}, time.Now(),
		recall.ForAggregate(AggregateType, a.ID, a.version+len(a.uncommitted)+1),
	))

	return nil
}

// AggregateVersion returns the number of applied events.
func (a *Aggregate) AggregateVersion() int {
	return a.version
}

// SetAggregateVersion sets the version.
func (a *Aggregate) SetAggregateVersion(v int) {
	a.version = v
}

// UncommittedEvents returns the events appended by HandleCommand.
func (a *Aggregate) UncommittedEvents() []recall.Event {
	return a.uncommitted
}

// ClearUncommittedEvents clears the uncommitted events.
func (a *Aggregate) ClearUncommittedEvents() {
	a.uncommitted = nil
}

// ApplyEvent records the applied event.
func (a *Aggregate) ApplyEvent(ctx context.Context, event recall.Event) {
	a.Events = append(a.Events, event)
	a.Context = ctx
}

// EventData is a mocked event data, useful in testing.
type EventData struct {
	Content string
}

// Command is a mocked recall.Command, useful in testing.
type Command struct {
	Content string `validate:"required"`
}

var _ = recall.Command(Command{})

// AggregateType implements the AggregateType method of the recall.Command interface.
func (t Command) AggregateType() recall.AggregateType { return AggregateType }

// CommandType implements the CommandType method of the recall.Command interface.
func (t Command) CommandType() recall.CommandType { return CommandType }

// CommandOther is a mocked recall.Command, useful in testing.
type CommandOther struct {
	Content string
}

var _ = recall.Command(CommandOther{})

// AggregateType implements the AggregateType method of the recall.Command interface.
func (t CommandOther) AggregateType() recall.AggregateType { return AggregateType }

// CommandType implements the CommandType method of the recall.Command interface.
func (t CommandOther) CommandType() recall.CommandType { return CommandOtherType }

// View is a mocked view, useful in testing.
type View struct {
	ID      string   `json:"id" bson:"_id"`
	Content string   `json:"content" bson:"content"`
	Items   []string `json:"items" bson:"items"`
}

// CommandHandler is a mocked recall.CommandHandler, useful in testing.
type CommandHandler struct {
	sync.Mutex

	IDs      []string
	Commands []recall.Command
	Context  context.Context
	// Used to simulate errors when handling.
	Err error
}

// HandleCommand implements the HandleCommand method of the recall.CommandHandler interface.
func (h *CommandHandler) HandleCommand(ctx context.Context, id string, cmd recall.Command) error {
	h.Lock()
	defer h.Unlock()

	h.IDs = append(h.IDs, id)
	h.Commands = append(h.Commands, cmd)
	h.Context = ctx

	return h.Err
}

// EventHandler is a mocked recall.EventHandler, useful in testing.
type EventHandler struct {
	sync.Mutex

	Type    recall.EventHandlerType
	Batches [][]recall.Event
	Events  []recall.Event
	Context context.Context
	Recv    chan []recall.Event
	// Used to simulate errors when handling.
	Err error
}

var _ = recall.EventHandler(&EventHandler{})

// NewEventHandler creates a new EventHandler.
func NewEventHandler(handlerType recall.EventHandlerType) *EventHandler {
	return &EventHandler{
		Type:    handlerType,
		Context: context.Background(),
		Recv:    make(chan []recall.Event, 10),
	}
}

// HandlerType implements the HandlerType method of the recall.EventHandler interface.
func (m *EventHandler) HandlerType() recall.EventHandlerType {
	return m.Type
}

// HandleEvents implements the HandleEvents method of the recall.EventHandler interface.
func (m *EventHandler) HandleEvents(ctx context.Context, id string, events []recall.Event) error {
	m.Lock()
	defer m.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.Batches = append(m.Batches, events)
	m.Events = append(m.Events, events...)
	m.Context = ctx

	select {
	case m.Recv <- events:
	default:
	}

	return nil
}

// WaitForEvents is a helper to wait until a batch has been handled, it
// timeouts after 1 second.
func (m *EventHandler) WaitForEvents(t *testing.T) {
	select {
	case <-m.Recv:
		return
	case <-time.After(time.Second):
		t.Error("did not receive events in time")
	}
}

// EventStore is a mocked recall.EventStore, useful in testing.
type EventStore struct {
	Events  []recall.Event
	Loaded  string
	Context context.Context
	// Used to simulate errors in the store.
	Err error
}

var _ = recall.EventStore(&EventStore{})

// Save implements the Save method of the recall.EventStore interface.
func (m *EventStore) Save(ctx context.Context, events []recall.Event, originalVersion int) error {
	if m.Err != nil {
		return m.Err
	}

	m.Events = append(m.Events, events...)
	m.Context = ctx

	return nil
}

// Load implements the Load method of the recall.EventStore interface.
func (m *EventStore) Load(ctx context.Context, id string) ([]recall.Event, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.Loaded = id
	m.Context = ctx

	return m.Events, nil
}

// Close implements the Close method of the recall.EventStore interface.
func (m *EventStore) Close() error {
	return nil
}

// OutboundAdapter is a mocked recall.OutboundAdapter, useful in testing.
type OutboundAdapter struct {
	sync.Mutex

	Views   []recall.View
	ViewIDs []string
	Events  [][]recall.Event
	// Used to simulate errors when notifying.
	Err error
}

// OnUpdate implements the OnUpdate method of the recall.OutboundAdapter interface.
func (a *OutboundAdapter) OnUpdate(ctx context.Context, view recall.View, id string, events []recall.Event) error {
	a.Lock()
	defer a.Unlock()

	a.Views = append(a.Views, view)
	a.ViewIDs = append(a.ViewIDs, id)
	a.Events = append(a.Events, events)

	return a.Err
}

// ViewStore is a mocked recall.ViewStore, useful in testing. Views are
// stored as is, without copies.
type ViewStore struct {
	sync.Mutex

	Views    map[string]recall.View
	Versions map[string]int
	Updates  int
	Context  context.Context
	// Used to simulate errors when loading.
	LoadErr error
	// Used to simulate errors when updating, consumed one per update.
	UpdateErrs []error
}

var _ = recall.ViewStore(&ViewStore{})

// NewViewStore creates a new ViewStore.
func NewViewStore() *ViewStore {
	return &ViewStore{
		Views:    map[string]recall.View{},
		Versions: map[string]int{},
	}
}

// Load implements the Load method of the recall.ViewStore interface.
func (s *ViewStore) Load(ctx context.Context, id string) (recall.View, error) {
	v, _, err := s.LoadWithContext(ctx, id)

	return v, err
}

// LoadWithContext implements the LoadWithContext method of the recall.ViewStore interface.
func (s *ViewStore) LoadWithContext(ctx context.Context, id string) (recall.View, recall.ViewContext, error) {
	s.Lock()
	defer s.Unlock()

	s.Context = ctx

	if s.LoadErr != nil {
		return nil, recall.ViewContext{}, s.LoadErr
	}

	v, ok := s.Views[id]
	if !ok {
		return nil, recall.ViewContext{}, &recall.ViewStoreError{
			Err:    recall.ErrViewNotFound,
			Op:     recall.ViewStoreOpLoad,
			ViewID: id,
		}
	}

	return v, recall.NewViewContext(id, s.Versions[id]), nil
}

// UpdateView implements the UpdateView method of the recall.ViewStore interface.
func (s *ViewStore) UpdateView(ctx context.Context, view recall.View, vc recall.ViewContext) error {
	s.Lock()
	defer s.Unlock()

	s.Context = ctx
	s.Updates++

	if len(s.UpdateErrs) > 0 {
		err := s.UpdateErrs[0]
		s.UpdateErrs = s.UpdateErrs[1:]

		if err != nil {
			return err
		}
	}

	s.Views[vc.ViewID] = view
	s.Versions[vc.ViewID] = vc.NextVersion()

	return nil
}

// FindAll implements the FindAll method of the recall.ViewStore interface.
func (s *ViewStore) FindAll(ctx context.Context) ([]recall.View, error) {
	s.Lock()
	defer s.Unlock()

	views := make([]recall.View, 0, len(s.Views))
	for _, v := range s.Views {
		views = append(views, v)
	}

	return views, nil
}

// Close implements the Close method of the recall.ViewStore interface.
func (s *ViewStore) Close() error {
	return nil
}
