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

package validate

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/looplab/recall"
	"github.com/looplab/recall/mocks"
)

func TestMiddleware_Immediate(t *testing.T) {
	inner := &mocks.CommandHandler{}
	h := recall.UseCommandHandlerMiddleware(inner, NewMiddleware())
	cmd := &mocks.Command{Content: "content"}

	if err := h.HandleCommand(context.Background(), "id", cmd); err != nil {
		t.Error("there should be no error:", err)
	}

	if !reflect.DeepEqual(inner.Commands, []recall.Command{cmd}) {
		t.Error("the command should have been handled:", inner.Commands)
	}
}

func TestMiddleware_WithValidationError(t *testing.T) {
	inner := &mocks.CommandHandler{}
	h := recall.UseCommandHandlerMiddleware(inner, NewMiddleware())
	cmd := &mocks.Command{Content: "content"}

	e := errors.New("a validation error")
	c := CommandWithValidation(cmd, func() error { return e })

	err := h.HandleCommand(context.Background(), "id", c)

	validateErr := &Error{}
	if !errors.As(err, &validateErr) {
		t.Error("there should be a validate error:", err)
	}

	if !errors.Is(err, e) || !errors.Is(err, ErrInvalidCommand) {
		t.Error("the validation error should be correct:", err)
	}

	if len(inner.Commands) != 0 {
		t.Error("the command should not have been handled:", inner.Commands)
	}
}

func TestMiddleware_WithValidationNoError(t *testing.T) {
	inner := &mocks.CommandHandler{}
	h := recall.UseCommandHandlerMiddleware(inner, NewMiddleware())
	c := CommandWithValidation(&mocks.Command{Content: "content"}, func() error { return nil })

	if err := h.HandleCommand(context.Background(), "id", c); err != nil {
		t.Error("there should be no error:", err)
	}

	if !reflect.DeepEqual(inner.Commands, []recall.Command{c}) {
		t.Error("the command should have been handled:", inner.Commands)
	}
}

type taggedCommand struct {
	Name   string `validate:"required"`
	Rating int    `validate:"min=1,max=4"`
}

func (c *taggedCommand) AggregateType() recall.AggregateType { return mocks.AggregateType }
func (c *taggedCommand) CommandType() recall.CommandType     { return "tagged" }

func TestMiddleware_StructTags(t *testing.T) {
	inner := &mocks.CommandHandler{}
	h := recall.UseCommandHandlerMiddleware(inner, NewMiddleware())

	err := h.HandleCommand(context.Background(), "id", &taggedCommand{Name: "", Rating: 7})
	if !errors.Is(err, ErrInvalidCommand) {
		t.Error("there should be an invalid command error:", err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) != 2 {
		t.Error("both fields should be invalid:", err)
	}

	if err := h.HandleCommand(context.Background(), "id", &taggedCommand{Name: "n", Rating: 2}); err != nil {
		t.Error("there should be no error:", err)
	}

	if len(inner.Commands) != 1 {
		t.Error("only the valid command should be handled:", inner.Commands)
	}
}
