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

// MessageType is the type of a sync protocol message.
type MessageType string

// Messages sent by clients.
const (
	MessageAuth            MessageType = "auth"
	MessageOperationSubmit MessageType = "operation_submit"
	MessageCursorUpdate    MessageType = "cursor_update"
	MessageTypingStart     MessageType = "typing_start"
	MessageTypingStop      MessageType = "typing_stop"
	MessageHistoryRequest  MessageType = "history_request"
	MessageLockDocument    MessageType = "lock_document"
	MessageUnlockDocument  MessageType = "unlock_document"
	MessageCommentAdd      MessageType = "comment_add"
	MessageCommentUpdate   MessageType = "comment_update"
	MessageCommentDelete   MessageType = "comment_delete"
	MessagePing            MessageType = "ping"
)

// Messages sent by the server.
const (
	MessageAuthAck          MessageType = "auth_ack"
	MessageAck              MessageType = "ack"
	MessageOperationApplied MessageType = "operation_applied"
	MessagePresence         MessageType = "presence"
	MessageTyping           MessageType = "typing"
	MessageHistoryResponse  MessageType = "history_response"
	MessageDocumentLocked   MessageType = "document_locked"
	MessageDocumentUnlocked MessageType = "document_unlocked"
	MessageCommentAdded     MessageType = "comment_added"
	MessageCommentUpdated   MessageType = "comment_updated"
	MessageCommentDeleted   MessageType = "comment_deleted"
	MessageResync           MessageType = "resync"
	MessageError            MessageType = "error"
	MessagePong             MessageType = "pong"
)

// Message is the envelope of every sync protocol message. Which fields are
// set depends on Type.
type Message struct {
	Type       MessageType `json:"type" validate:"required"`
	DocumentID string      `json:"document_id,omitempty"`

	// auth, presence
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`

	// operation_submit, ack, operation_applied. The operation is validated
	// on its own when converted.
	Operation *Operation `json:"operation,omitempty" validate:"-"`
	Version   int64      `json:"version,omitempty"`

	// cursor_update, presence
	Cursor    *int   `json:"cursor,omitempty"`
	Selection *Range `json:"selection,omitempty"`
	Typing    bool   `json:"typing,omitempty"`

	// history_request, history_response
	FromVersion *int64      `json:"from_version,omitempty"`
	Operations  []Operation `json:"operations,omitempty"`

	// auth_ack, resync
	Content      *string       `json:"content,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Comments     []Comment     `json:"comments,omitempty"`

	// comment_add, comment_update and their broadcasts, comment_delete.
	// An update replaces the content and the resolved state of the comment.
	CommentID string   `json:"comment_id,omitempty"`
	Comment   *Comment `json:"comment,omitempty" validate:"-"`

	// error, document_locked, resync
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewError creates an error message with the given protocol code.
func NewError(docID, code, reason string) *Message {
	return &Message{
		Type:       MessageError,
		DocumentID: docID,
		Code:       code,
		Reason:     reason,
		Timestamp:  time.Now(),
	}
}
