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

// Comment is a note anchored to a range of a document. The anchor follows
// the edits applied after the comment was added.
type Comment struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Content    string    `json:"content"`
	Position   int       `json:"position"`
	Length     int       `json:"length"`
	Resolved   bool      `json:"is_resolved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CommentRequest is the body of a comment creation or update. An update
// only changes the fields it carries.
type CommentRequest struct {
	UserID   string  `json:"user_id" validate:"max=128"`
	Username string  `json:"username" validate:"max=128"`
	Content  *string `json:"content" validate:"omitempty,min=1,max=4096"`
	Position int     `json:"position" validate:"min=0"`
	Length   int     `json:"length" validate:"min=0"`
	Resolved *bool   `json:"is_resolved"`
}

// DocumentUsers lists the users present in a document.
type DocumentUsers struct {
	DocumentID  string        `json:"document_id"`
	Users       []Participant `json:"users"`
	Connections int           `json:"connections"`
}
