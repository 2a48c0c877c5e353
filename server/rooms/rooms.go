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

package rooms

import (
	"context"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/pkg/errors"
	"github.com/lexdesk/textsync/server/backend/database"
)

var (
	// ErrDocumentNotFound is returned when the document is neither live nor
	// persisted.
	ErrDocumentNotFound = database.ErrDocumentNotFound

	// ErrCommentNotFound is returned when the comment is not in the
	// document.
	ErrCommentNotFound = database.ErrCommentNotFound

	// ErrDocumentLocked is returned when a user edits a document another
	// user locked.
	ErrDocumentLocked = errors.FailedPrecond("document is locked").WithCode("document_locked")

	// ErrNotLockOwner is returned when a user releases a lock held by
	// another user.
	ErrNotLockOwner = errors.PermissionDenied("document is locked by another user").WithCode("not_lock_owner")

	// ErrNotJoined is returned when a connection acts on a document it has
	// not joined.
	ErrNotJoined = errors.FailedPrecond("connection has not joined the document").WithCode("not_joined")

	// ErrTransportFailure is returned when a message could not be delivered
	// to the connection it was meant for.
	ErrTransportFailure = errors.Unavailable("transport failure").WithCode("transport_failure")

	// ErrInvalidRequest is returned when a request fails validation.
	ErrInvalidRequest = errors.InvalidArgument("invalid request").WithCode("invalid_argument")
)

// Transport delivers messages to connections. Attach and Detach control
// which connections a broadcast to a document reaches.
type Transport interface {
	// Attach adds the connection to the broadcast group of the document.
	Attach(ctx context.Context, docID string, connID types.ID) error

	// Detach removes the connection from the broadcast group of the document.
	Detach(ctx context.Context, docID string, connID types.ID)

	// Send delivers the message to a single connection.
	Send(ctx context.Context, connID types.ID, msg *types.Message) error

	// Broadcast delivers the message to every connection of the document
	// except exclude.
	Broadcast(ctx context.Context, docID string, msg *types.Message, exclude types.ID) error
}
