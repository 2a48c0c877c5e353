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

// Package database provides the persistence interface for documents.
package database

import (
	"context"

	"github.com/lexdesk/textsync/pkg/errors"
)

var (
	// ErrDocumentNotFound is returned when the document could not be found.
	ErrDocumentNotFound = errors.NotFound("document not found").WithCode("not_found")

	// ErrDocumentAlreadyExists is returned when a document with the same ID
	// already exists.
	ErrDocumentAlreadyExists = errors.AlreadyExists("document already exists").WithCode("already_exists")

	// ErrCommentNotFound is returned when the comment could not be found.
	ErrCommentNotFound = errors.NotFound("comment not found").WithCode("comment_not_found")
)

// Database represents the persistent store of documents. The in-memory
// state of a live document is never durable on its own; the registry
// checkpoints it here.
type Database interface {
	// Close all resources of this database.
	Close() error

	// CreateDocument creates a new document. An empty ID is replaced with a
	// generated one.
	CreateDocument(ctx context.Context, id, title, owner, content string) (*DocInfo, error)

	// LoadDocument returns the persisted state of the given document.
	LoadDocument(ctx context.Context, id string) (*DocInfo, error)

	// SaveDocument stores the content of the document at the given version,
	// creating the document when it does not exist. A save carrying a version
	// older than the stored one is ignored.
	SaveDocument(ctx context.Context, id, content string, version int64) error

	// ListDocuments returns all persisted documents ordered by ID.
	ListDocuments(ctx context.Context) ([]*DocInfo, error)

	// DeleteDocument deletes the given document and its comments.
	DeleteDocument(ctx context.Context, id string) error

	// ListComments returns the comments of the given document ordered by ID.
	ListComments(ctx context.Context, docID string) ([]*CommentInfo, error)

	// SaveComments stores the given comments of the document, creating the
	// ones that do not exist.
	SaveComments(ctx context.Context, docID string, comments []*CommentInfo) error

	// DeleteComment deletes the given comment of the document.
	DeleteComment(ctx context.Context, docID, commentID string) error
}
