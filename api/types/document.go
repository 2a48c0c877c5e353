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

// Snapshot is the state a client receives when joining a document.
type Snapshot struct {
	DocumentID   string
	Content      string
	Version      int64
	Participants []Participant
	Comments     []Comment
	LockedBy     string
}

// Ack acknowledges a submitted operation with the version it produced and
// its form after rebasing.
type Ack struct {
	Operation Operation
	Version   int64
}

// History is the list of operations applied after a version.
type History struct {
	DocumentID  string      `json:"document_id"`
	FromVersion int64       `json:"from_version"`
	Version     int64       `json:"version"`
	Operations  []Operation `json:"operations"`
}

// DocumentSummary describes a document for listings.
type DocumentSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title,omitempty"`
	Version       int64     `json:"version"`
	ActiveUsers   int       `json:"active_users"`
	ContentLength int       `json:"content_length"`
	Locked        bool      `json:"locked"`
	LockedBy      string    `json:"locked_by,omitempty"`
	Loaded        bool      `json:"loaded"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// DocumentContent is a document's content at a version.
type DocumentContent struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
	Version int64  `json:"version"`
}

// CreateDocumentRequest is the body of a document creation request.
type CreateDocumentRequest struct {
	ID      string `json:"id" validate:"omitempty,doc_id,max=128"`
	Title   string `json:"title" validate:"max=256"`
	Content string `json:"content"`
	Owner   string `json:"owner" validate:"max=128"`
}
