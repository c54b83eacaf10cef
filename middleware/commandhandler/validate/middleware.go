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
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/looplab/recall"
)

// ErrInvalidCommand is wrapped by all validation errors.
var ErrInvalidCommand = errors.New("invalid command")

// Command is a command with its own validation method.
type Command interface {
	recall.Command

	// Validate returns the error when validating the command.
	Validate() error
}

// CommandWithValidation returns a wrapped command with a validation method.
func CommandWithValidation(cmd recall.Command, v func() error) Command {
	return &command{Command: cmd, validate: v}
}

// NewMiddleware returns a new middleware that validates commands before they
// reach the aggregate. Commands with a `Validate() error` method are
// validated by it, all other commands by their `validate` struct tags.
func NewMiddleware() recall.CommandHandlerMiddleware {
	v := validator.New(validator.WithRequiredStructEnabled())

	return recall.CommandHandlerMiddleware(func(h recall.CommandHandler) recall.CommandHandler {
		return recall.CommandHandlerFunc(func(ctx context.Context, id string, cmd recall.Command) error {
			if err := validateCommand(v, cmd); err != nil {
				return &Error{Err: err, CommandType: cmd.CommandType()}
			}

			return h.HandleCommand(ctx, id, cmd)
		})
	})
}

func validateCommand(v *validator.Validate, cmd recall.Command) error {
	if c, ok := cmd.(Command); ok {
		return c.Validate()
	}

	err := v.Struct(cmd)

	// Commands that are not structs have no tags to validate.
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}

	return err
}

// Error is a validation error.
type Error struct {
	Err         error
	CommandType recall.CommandType
}

// Error implements the Error method of the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("invalid command %s: %s", e.CommandType, e.Err.Error())
}

// Unwrap implements the errors.Unwrap method.
func (e *Error) Unwrap() []error {
	return []error{ErrInvalidCommand, e.Err}
}

// private implementation to wrap ordinary commands and add a validation method.
type command struct {
	recall.Command
	validate func() error
}

// Validate implements the Validate method of the Command interface
func (c *command) Validate() error {
	return c.validate()
}
