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

// Package copyutils deep copies event data and views, so that stored and
// dispatched values never share memory with the caller.
package copyutils

import (
	"time"

	"github.com/jinzhu/copier"
)

// Struct fields of time.Time are all unexported and would be zeroed by a field
// by field deep copy, so they are assigned as values.
var timeConverter = copier.TypeConverter{
	SrcType: time.Time{},
	DstType: time.Time{},
	Fn: func(src interface{}) (interface{}, error) {
		return src, nil
	},
}

// DeepCopy copies from into to, which must be a pointer. Slices, maps and
// pointers are copied recursively.
func DeepCopy(to, from interface{}) error {
	return copier.CopyWithOption(to, from, copier.Option{
		DeepCopy:   true,
		Converters: []copier.TypeConverter{timeConverter},
	})
}
