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

// Package memory implements the database interface using in-memory database.
package memory

import (
	"context"
	"fmt"
	gotime "time"

	"github.com/hashicorp/go-memdb"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/backend/database"
)

// DB is an in-memory database for testing or temporarily.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// CreateDocument creates a new document.
func (d *DB) CreateDocument(
	_ context.Context,
	id, title, owner, content string,
) (*database.DocInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	if id == "" {
		id = types.NewID().String()
	}

	raw, err := txn.First(tblDocuments, "id", id)
	if err != nil {
		return nil, fmt.Errorf("create document %s: %w", id, err)
	}
	if raw != nil {
		return nil, fmt.Errorf("create document %s: %w", id, database.ErrDocumentAlreadyExists)
	}

	now := gotime.Now()
	info := &database.DocInfo{
		ID:        id,
		Title:     title,
		Owner:     owner,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := txn.Insert(tblDocuments, info); err != nil {
		return nil, fmt.Errorf("create document %s: %w", id, err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// LoadDocument returns the document of the given ID.
func (d *DB) LoadDocument(_ context.Context, id string) (*database.DocInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("find document %s: %w", id, database.ErrDocumentNotFound)
	}

	return raw.(*database.DocInfo).DeepCopy(), nil
}

// SaveDocument stores the content of the document at the given version.
func (d *DB) SaveDocument(_ context.Context, id, content string, version int64) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", id)
	if err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}

	now := gotime.Now()
	var info *database.DocInfo
	if raw == nil {
		info = &database.DocInfo{ID: id, CreatedAt: now}
	} else {
		info = raw.(*database.DocInfo).DeepCopy()
		if info.Version > version {
			return nil
		}
	}

	info.Content = content
	info.Version = version
	info.UpdatedAt = now
	if err := txn.Insert(tblDocuments, info); err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}
	txn.Commit()

	return nil
}

// ListDocuments returns all documents ordered by ID.
func (d *DB) ListDocuments(_ context.Context) ([]*database.DocInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblDocuments, "id")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var infos []*database.DocInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		infos = append(infos, raw.(*database.DocInfo).DeepCopy())
	}

	return infos, nil
}

// DeleteDocument deletes the document of the given ID.
func (d *DB) DeleteDocument(_ context.Context, id string) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if raw == nil {
		return fmt.Errorf("delete document %s: %w", id, database.ErrDocumentNotFound)
	}

	if err := txn.Delete(tblDocuments, raw); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if _, err := txn.DeleteAll(tblComments, "doc_id", id); err != nil {
		return fmt.Errorf("delete comments of %s: %w", id, err)
	}
	txn.Commit()

	return nil
}

// ListComments returns the comments of the given document ordered by ID.
func (d *DB) ListComments(_ context.Context, docID string) ([]*database.CommentInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblComments, "doc_id", docID)
	if err != nil {
		return nil, fmt.Errorf("list comments of %s: %w", docID, err)
	}

	var infos []*database.CommentInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		infos = append(infos, raw.(*database.CommentInfo).DeepCopy())
	}

	return infos, nil
}

// SaveComments stores the given comments of the document.
func (d *DB) SaveComments(_ context.Context, docID string, comments []*database.CommentInfo) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	for _, comment := range comments {
		info := comment.DeepCopy()
		info.DocumentID = docID
		if err := txn.Insert(tblComments, info); err != nil {
			return fmt.Errorf("save comment %s of %s: %w", info.ID, docID, err)
		}
	}
	txn.Commit()

	return nil
}

// DeleteComment deletes the given comment of the document.
func (d *DB) DeleteComment(_ context.Context, docID, commentID string) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblComments, "id", commentID)
	if err != nil {
		return fmt.Errorf("delete comment %s: %w", commentID, err)
	}
	if raw == nil || raw.(*database.CommentInfo).DocumentID != docID {
		return fmt.Errorf("delete comment %s of %s: %w", commentID, docID, database.ErrCommentNotFound)
	}

	if err := txn.Delete(tblComments, raw); err != nil {
		return fmt.Errorf("delete comment %s: %w", commentID, err)
	}
	txn.Commit()

	return nil
}
