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

package database_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/backend/database"
)

func TestCommentInfo(t *testing.T) {
	t.Run("comment conversion test", func(t *testing.T) {
		now := time.Now().UTC()
		comment := &types.Comment{
			ID:         "c-1",
			DocumentID: "doc-1",
			UserID:     "u-1",
			Username:   "alice",
			Content:    "typo",
			Position:   3,
			Length:     2,
			Resolved:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		info := database.NewCommentInfo(comment, 7)
		assert.Equal(t, int64(7), info.Version)
		assert.Equal(t, comment, info.ToComment())

		clone := info.DeepCopy()
		clone.Content = "changed"
		assert.Equal(t, "typo", info.Content)
	})
}
