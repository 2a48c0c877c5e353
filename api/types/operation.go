/*
 * Copyright 2026 The Textsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import "time"

// Operation is the wire form of an edit.
type Operation struct {
	ID          string    `json:"id,omitempty"`
	Kind        string    `json:"kind" validate:"required,op_kind"`
	Position    int       `json:"position" validate:"min=0"`
	Text        string    `json:"text,omitempty"`
	Length      int       `json:"length,omitempty" validate:"min=0"`
	BaseVersion int64     `json:"base_version" validate:"min=0"`
	AuthorID    string    `json:"author_id,omitempty"`
	AuthorName  string    `json:"author_name,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`

	// Version is the version the operation produced. It is only set on
	// operations sent by the server.
	Version int64 `json:"resulting_version,omitempty"`
}
