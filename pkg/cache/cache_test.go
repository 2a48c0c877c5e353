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

package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lexdesk/textsync/pkg/cache"
)

func TestLRUWithExpires(t *testing.T) {
	t.Run("hit and miss test", func(t *testing.T) {
		c := cache.NewLRUWithExpires[string, int](2, time.Minute)
		c.Add("a", 1)

		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		_, ok = c.Get("b")
		assert.False(t, ok)

		assert.Equal(t, int64(1), c.Stats().Hits())
		assert.Equal(t, int64(1), c.Stats().Misses())
		assert.Equal(t, 50.0, c.Stats().HitRate())
	})

	t.Run("eviction test", func(t *testing.T) {
		c := cache.NewLRUWithExpires[string, int](2, time.Minute)
		c.Add("a", 1)
		c.Add("b", 2)
		assert.True(t, c.Add("c", 3))

		_, ok := c.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 2, c.Len())

		assert.True(t, c.Remove("b"))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("expiration test", func(t *testing.T) {
		c := cache.NewLRUWithExpires[string, int](2, 10*time.Millisecond)
		c.Add("a", 1)

		assert.Eventually(t, func() bool {
			_, ok := c.Get("a")
			return !ok
		}, time.Second, 5*time.Millisecond)
	})
}
