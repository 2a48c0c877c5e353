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
	"fmt"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/internal/validation"
	"github.com/lexdesk/textsync/server/logging"
)

// Comments returns the comments of the document ordered by ID.
func (r *Registry) Comments(ctx context.Context, docID string) ([]types.Comment, error) {
	rm, unlock, err := r.acquire(ctx, docID, false)
	if err != nil {
		return nil, err
	}
	comments := rm.commentList()
	unlock()

	return comments, nil
}

// AddComment anchors a new comment of the requesting user to the document.
// The anchor is clamped to the content. Every participant receives a
// comment_added.
func (r *Registry) AddComment(ctx context.Context, docID string, req *types.CommentRequest) (*types.Comment, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidRequest)
	}
	if req.Content == nil || *req.Content == "" || req.UserID == "" {
		return nil, fmt.Errorf("comment without content or author: %w", ErrInvalidRequest)
	}

	rm, unlock, err := r.acquire(ctx, docID, false)
	if err != nil {
		return nil, err
	}

	length := rm.doc.Len()
	position := clamp(req.Position, 0, length)
	now := r.now()
	comment := types.Comment{
		ID:         types.NewID().String(),
		DocumentID: docID,
		UserID:     req.UserID,
		Username:   req.Username,
		Content:    *req.Content,
		Position:   position,
		Length:     clamp(req.Length, 0, length-position),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rm.putComment(comment)

	r.commentChanged(ctx, rm, unlock, &types.Message{
		Type:       types.MessageCommentAdded,
		DocumentID: docID,
		UserID:     comment.UserID,
		Username:   comment.Username,
		CommentID:  comment.ID,
		Comment:    &comment,
		Timestamp:  now,
	})
	return &comment, nil
}

// UpdateComment changes the content or the resolved state of the comment.
// Every participant receives a comment_updated.
func (r *Registry) UpdateComment(
	ctx context.Context,
	docID string,
	commentID string,
	req *types.CommentRequest,
) (*types.Comment, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidRequest)
	}

	rm, unlock, err := r.acquire(ctx, docID, false)
	if err != nil {
		return nil, err
	}

	comment, ok := rm.comment(commentID)
	if !ok {
		unlock()
		return nil, fmt.Errorf("update %s of %s: %w", commentID, docID, ErrCommentNotFound)
	}
	if req.Content != nil {
		comment.Content = *req.Content
	}
	if req.Resolved != nil {
		comment.Resolved = *req.Resolved
	}
	comment.UpdatedAt = r.now()
	rm.putComment(comment)

	r.commentChanged(ctx, rm, unlock, &types.Message{
		Type:       types.MessageCommentUpdated,
		DocumentID: docID,
		UserID:     req.UserID,
		Username:   req.Username,
		CommentID:  comment.ID,
		Comment:    &comment,
		Timestamp:  comment.UpdatedAt,
	})
	return &comment, nil
}

// DeleteComment removes the comment from the document. Every participant
// receives a comment_deleted.
func (r *Registry) DeleteComment(ctx context.Context, docID, commentID string) error {
	rm, unlock, err := r.acquire(ctx, docID, false)
	if err != nil {
		return err
	}

	if !rm.removeComment(commentID) {
		unlock()
		return fmt.Errorf("delete %s of %s: %w", commentID, docID, ErrCommentNotFound)
	}

	r.commentChanged(ctx, rm, unlock, &types.Message{
		Type:       types.MessageCommentDeleted,
		DocumentID: docID,
		CommentID:  commentID,
		Timestamp:  r.now(),
	})
	return nil
}

// commentChanged releases the document locker, delivers msg to every
// participant and saves the document with its comments. A failed save is retried by the next
// checkpoint.
func (r *Registry) commentChanged(ctx context.Context, rm *room, unlock func(), msg *types.Message) {
	rm.sendMu.Lock()
	unlock()
	r.broadcast(ctx, rm.id, msg, "")
	rm.sendMu.Unlock()

	if _, _, err := r.save(ctx, rm); err != nil {
		logging.From(ctx).Warnf("save comments of %s: %v", rm.id, err)
	}
	logging.From(ctx).Infof("%s %s in %s", msg.Type, msg.CommentID, rm.id)
}
