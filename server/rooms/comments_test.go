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

package rooms_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/backend"
	"github.com/lexdesk/textsync/server/rooms"
)

func comment(userID, content string, pos, length int) *types.CommentRequest {
	return &types.CommentRequest{
		UserID:   userID,
		Username: "user " + userID,
		Content:  &content,
		Position: pos,
		Length:   length,
	}
}

func TestRegistryComments(t *testing.T) {
	ctx := context.Background()

	t.Run("comments are shared with every participant test", func(t *testing.T) {
		reg, be, transport := newRegistry(t, nil)
		join(t, reg, "doc", "c1", "alice")
		join(t, reg, "doc", "c2", "bob")
		_, err := reg.Submit(ctx, "doc", "c1", insert(0, "hello world", 0))
		require.NoError(t, err)

		added, err := reg.AddComment(ctx, "doc", comment("alice", "greeting", 0, 5))
		require.NoError(t, err)
		assert.NotEmpty(t, added.ID)
		assert.Equal(t, "doc", added.DocumentID)
		for _, connID := range []types.ID{"c1", "c2"} {
			msgs := transport.messages(connID, types.MessageCommentAdded)
			require.Len(t, msgs, 1)
			assert.Equal(t, added.ID, msgs[0].Comment.ID)
		}

		resolved := true
		updated, err := reg.UpdateComment(ctx, "doc", added.ID, &types.CommentRequest{Resolved: &resolved})
		require.NoError(t, err)
		assert.True(t, updated.Resolved)
		assert.Equal(t, "greeting", updated.Content)
		require.Len(t, transport.messages("c2", types.MessageCommentUpdated), 1)

		infos, err := be.DB.ListComments(ctx, "doc")
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.True(t, infos[0].Resolved)

		require.NoError(t, reg.DeleteComment(ctx, "doc", added.ID))
		deleted := transport.messages("c1", types.MessageCommentDeleted)
		require.Len(t, deleted, 1)
		assert.Equal(t, added.ID, deleted[0].CommentID)

		comments, err := reg.Comments(ctx, "doc")
		require.NoError(t, err)
		assert.Empty(t, comments)
		infos, err = be.DB.ListComments(ctx, "doc")
		require.NoError(t, err)
		assert.Empty(t, infos)

		assert.ErrorIs(t, reg.DeleteComment(ctx, "doc", added.ID), rooms.ErrCommentNotFound)
		_, err = reg.UpdateComment(ctx, "doc", added.ID, &types.CommentRequest{Resolved: &resolved})
		assert.ErrorIs(t, err, rooms.ErrCommentNotFound)
	})

	t.Run("anchors follow the edits test", func(t *testing.T) {
		reg, _, _ := newRegistry(t, nil)
		join(t, reg, "doc", "c1", "alice")
		_, err := reg.Submit(ctx, "doc", "c1", insert(0, "hello world", 0))
		require.NoError(t, err)

		world, err := reg.AddComment(ctx, "doc", comment("alice", "planet", 6, 5))
		require.NoError(t, err)
		hello, err := reg.AddComment(ctx, "doc", comment("alice", "word", 0, 5))
		require.NoError(t, err)

		// "hello world" -> ">> hello world" -> ">> hello wd" -> ">> hel wd"
		// -> ">> help wd". Text typed right after an anchor stays outside.
		_, err = reg.Submit(ctx, "doc", "c1", insert(0, ">> ", 1))
		require.NoError(t, err)
		_, err = reg.Submit(ctx, "doc", "c1", del(10, 3, 2))
		require.NoError(t, err)
		_, err = reg.Submit(ctx, "doc", "c1", del(6, 2, 3))
		require.NoError(t, err)
		_, err = reg.Submit(ctx, "doc", "c1", insert(6, "p", 4))
		require.NoError(t, err)

		comments, err := reg.Comments(ctx, "doc")
		require.NoError(t, err)
		byID := map[string]types.Comment{}
		for _, c := range comments {
			byID[c.ID] = c
		}
		assert.Equal(t, 3, byID[hello.ID].Position)
		assert.Equal(t, 3, byID[hello.ID].Length)
		assert.Equal(t, 8, byID[world.ID].Position)
		assert.Equal(t, 2, byID[world.ID].Length)
	})

	t.Run("anchors are clamped to the content test", func(t *testing.T) {
		reg, _, _ := newRegistry(t, nil)
		_, err := reg.Create(ctx, &types.CreateDocumentRequest{ID: "doc", Content: "abc"})
		require.NoError(t, err)

		added, err := reg.AddComment(ctx, "doc", comment("alice", "far away", 10, 4))
		require.NoError(t, err)
		assert.Equal(t, 3, added.Position)
		assert.Equal(t, 0, added.Length)
	})

	t.Run("comments survive eviction test", func(t *testing.T) {
		reg, _, _ := newRegistry(t, &backend.Config{EvictOnEmpty: true})
		join(t, reg, "doc", "c1", "alice")
		_, err := reg.Submit(ctx, "doc", "c1", insert(0, "hello", 0))
		require.NoError(t, err)
		added, err := reg.AddComment(ctx, "doc", comment("alice", "note", 1, 3))
		require.NoError(t, err)
		_, err = reg.Submit(ctx, "doc", "c1", insert(0, "oh ", 1))
		require.NoError(t, err)
		require.NoError(t, reg.Leave(ctx, "doc", "c1"))

		snapshot := join(t, reg, "doc", "c2", "bob")
		assert.Equal(t, "oh hello", snapshot.Content)
		require.Len(t, snapshot.Comments, 1)
		assert.Equal(t, added.ID, snapshot.Comments[0].ID)
		assert.Equal(t, 4, snapshot.Comments[0].Position)
		assert.Equal(t, 3, snapshot.Comments[0].Length)
	})

	t.Run("invalid comments are rejected test", func(t *testing.T) {
		reg, _, _ := newRegistry(t, nil)
		join(t, reg, "doc", "c1", "alice")

		_, err := reg.AddComment(ctx, "doc", &types.CommentRequest{UserID: "alice"})
		assert.ErrorIs(t, err, rooms.ErrInvalidRequest)

		_, err = reg.AddComment(ctx, "doc", comment("alice", "", 0, 0))
		assert.ErrorIs(t, err, rooms.ErrInvalidRequest)

		_, err = reg.AddComment(ctx, "missing", comment("alice", "note", 0, 0))
		assert.ErrorIs(t, err, rooms.ErrDocumentNotFound)
	})
}
