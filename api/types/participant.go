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

// Range is a selection in a document, in code points.
type Range struct {
	Start int `json:"start" validate:"min=0"`
	End   int `json:"end" validate:"min=0,gtefield=Start"`
}

// Participant is a user connected to a document.
type Participant struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"username"`
	Cursor      int       `json:"cursor"`
	Selection   *Range    `json:"selection,omitempty"`
	Typing      bool      `json:"typing,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
