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

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/pkg/errors"
	"github.com/lexdesk/textsync/server/rpc/auth"
)

func TestTokenManager(t *testing.T) {
	t.Run("generate and verify test", func(t *testing.T) {
		manager := auth.NewTokenManager("secret", time.Hour)

		token, err := manager.Generate("u-1", "alice")
		require.NoError(t, err)

		user, err := manager.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, auth.User{ID: "u-1", Name: "alice"}, user)
	})

	t.Run("verified token cache test", func(t *testing.T) {
		manager := auth.NewTokenManager("secret", time.Hour)

		token, err := manager.Generate("u-1", "alice")
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			user, err := manager.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, "u-1", user.ID)
		}
		assert.Equal(t, int64(1), manager.CacheStats().Misses())
		assert.Equal(t, int64(2), manager.CacheStats().Hits())
	})

	t.Run("username defaults to the subject test", func(t *testing.T) {
		manager := auth.NewTokenManager("secret", time.Hour)

		token, err := manager.Generate("u-1", "")
		require.NoError(t, err)

		user, err := manager.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "u-1", user.Name)
	})

	t.Run("invalid tokens test", func(t *testing.T) {
		manager := auth.NewTokenManager("secret", time.Hour)

		_, err := manager.Verify("")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)

		_, err = manager.Verify("not-a-token")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		assert.Equal(t, errors.ErrCodeUnauthenticated, errors.StatusOf(err))

		other, err := auth.NewTokenManager("other", time.Hour).Generate("u-1", "alice")
		require.NoError(t, err)
		_, err = manager.Verify(other)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)

		expired, err := auth.NewTokenManager("secret", -time.Hour).Generate("u-1", "alice")
		require.NoError(t, err)
		_, err = manager.Verify(expired)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)

		noSubject, err := manager.Generate("", "alice")
		require.NoError(t, err)
		_, err = manager.Verify(noSubject)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestUserContext(t *testing.T) {
	_, ok := auth.UserFromCtx(context.Background())
	assert.False(t, ok)

	ctx := auth.CtxWithUser(context.Background(), auth.User{ID: "u-1", Name: "alice"})
	user, ok := auth.UserFromCtx(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u-1", user.ID)
}
