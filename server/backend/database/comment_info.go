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

package database

import (
	"time"

	"github.com/lexdesk/textsync/api/types"
)

// CommentInfo is a structure representing a comment anchored to a range of a
// document.
type CommentInfo struct {
	// ID is the unique ID of the comment.
	ID string `bson:"_id"`

	// DocumentID is the ID of the document the comment belongs to.
	DocumentID string `bson:"doc_id"`

	// UserID and Username identify the author of the comment.
	UserID   string `bson:"user_id"`
	Username string `bson:"username"`

	// Content is the text of the comment.
	Content string `bson:"content"`

	// Position and Length are the anchored range of the document, valid at
	// Version.
	Position int   `bson:"position"`
	Length   int   `bson:"length"`
	Version  int64 `bson:"version"`

	// Resolved reports whether the discussion of the comment is closed.
	Resolved bool `bson:"resolved"`

	// CreatedAt is the time when the comment is created.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the time when the comment is last changed.
	UpdatedAt time.Time `bson:"updated_at"`
}

// DeepCopy returns a deep copy of this CommentInfo.
func (info *CommentInfo) DeepCopy() *CommentInfo {
	if info == nil {
		return nil
	}

	clone := *info
	return &clone
}

// NewCommentInfo creates the persisted form of the comment with its anchor
// valid at version.
func NewCommentInfo(comment *types.Comment, version int64) *CommentInfo {
	return &CommentInfo{
		ID:         comment.ID,
		DocumentID: comment.DocumentID,
		UserID:     comment.UserID,
		Username:   comment.Username,
		Content:    comment.Content,
		Position:   comment.Position,
		Length:     comment.Length,
		Version:    version,
		Resolved:   comment.Resolved,
		CreatedAt:  comment.CreatedAt,
		UpdatedAt:  comment.UpdatedAt,
	}
}

// ToComment returns the comment this info represents.
func (info *CommentInfo) ToComment() *types.Comment {
	return &types.Comment{
		ID:         info.ID,
		DocumentID: info.DocumentID,
		UserID:     info.UserID,
		Username:   info.Username,
		Content:    info.Content,
		Position:   info.Position,
		Length:     info.Length,
		Resolved:   info.Resolved,
		CreatedAt:  info.CreatedAt,
		UpdatedAt:  info.UpdatedAt,
	}
}
