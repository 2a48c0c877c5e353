//go:build integration

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

package mongo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/server/backend/database"
	"github.com/lexdesk/textsync/server/backend/database/mongo"
)

func setupClient(t *testing.T) *mongo.Client {
	config := &mongo.Config{
		ConnectionTimeout: "5s",
		ConnectionURI:     "mongodb://localhost:27017",
		Database:          fmt.Sprintf("textsync-test-%d", time.Now().UnixNano()),
		PingTimeout:       "5s",
	}
	require.NoError(t, config.Validate())

	cli, err := mongo.Dial(config)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, cli.Close())
	})

	return cli
}

func TestClient(t *testing.T) {
	cli := setupClient(t)
	ctx := context.Background()

	t.Run("create and load document test", func(t *testing.T) {
		_, err := cli.LoadDocument(ctx, t.Name())
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		_, err = cli.CreateDocument(ctx, t.Name(), "Notes", "alice", "hello")
		require.NoError(t, err)

		_, err = cli.CreateDocument(ctx, t.Name(), "Notes", "alice", "hello")
		assert.ErrorIs(t, err, database.ErrDocumentAlreadyExists)

		info, err := cli.LoadDocument(ctx, t.Name())
		require.NoError(t, err)
		assert.Equal(t, "hello", info.Content)
		assert.Equal(t, "alice", info.Owner)
	})

	t.Run("save ignores older versions test", func(t *testing.T) {
		require.NoError(t, cli.SaveDocument(ctx, t.Name(), "abc", 3))
		require.NoError(t, cli.SaveDocument(ctx, t.Name(), "ab", 2))

		info, err := cli.LoadDocument(ctx, t.Name())
		require.NoError(t, err)
		assert.Equal(t, "abc", info.Content)
		assert.Equal(t, int64(3), info.Version)
	})

	t.Run("delete document test", func(t *testing.T) {
		require.NoError(t, cli.SaveDocument(ctx, t.Name(), "abc", 1))
		require.NoError(t, cli.DeleteDocument(ctx, t.Name()))
		assert.ErrorIs(t, cli.DeleteDocument(ctx, t.Name()), database.ErrDocumentNotFound)

		infos, err := cli.ListDocuments(ctx)
		require.NoError(t, err)
		for _, info := range infos {
			assert.NotEqual(t, t.Name(), info.ID)
		}
	})

	t.Run("comments test", func(t *testing.T) {
		require.NoError(t, cli.SaveDocument(ctx, t.Name(), "hello world", 1))
		require.NoError(t, cli.SaveComments(ctx, t.Name(), []*database.CommentInfo{
			{ID: t.Name() + "-b", Content: "second", Position: 6, Length: 5},
			{ID: t.Name() + "-a", Content: "first", Length: 5},
		}))

		infos, err := cli.ListComments(ctx, t.Name())
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, t.Name()+"-a", infos[0].ID)

		require.NoError(t, cli.DeleteComment(ctx, t.Name(), t.Name()+"-a"))
		assert.ErrorIs(t, cli.DeleteComment(ctx, t.Name(), t.Name()+"-a"), database.ErrCommentNotFound)

		require.NoError(t, cli.DeleteDocument(ctx, t.Name()))
		infos, err = cli.ListComments(ctx, t.Name())
		require.NoError(t, err)
		assert.Empty(t, infos)
	})
}
