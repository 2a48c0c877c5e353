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

package cmap_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lexdesk/textsync/pkg/cmap"
)

type docID string

func TestMap(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		m := cmap.New[docID, int]()

		m.Set("a", 1)
		v, exists := m.Get("a")
		assert.True(t, exists)
		assert.Equal(t, 1, v)

		v, exists = m.Get("b")
		assert.False(t, exists)
		assert.Equal(t, 0, v)
	})

	t.Run("upsert", func(t *testing.T) {
		m := cmap.New[docID, int]()
		incr := func(val int, exists bool) int {
			if exists {
				return val + 1
			}
			return 1
		}

		assert.Equal(t, 1, m.Upsert("a", incr))
		assert.Equal(t, 2, m.Upsert("a", incr))
	})

	t.Run("get or create", func(t *testing.T) {
		m := cmap.New[docID, *int]()
		calls := 0
		create := func() *int {
			calls++
			v := calls
			return &v
		}

		first, created := m.GetOrCreate("a", create)
		assert.True(t, created)
		second, created := m.GetOrCreate("a", create)
		assert.False(t, created)
		assert.Same(t, first, second)
		assert.Equal(t, 1, calls)
	})

	t.Run("delete", func(t *testing.T) {
		m := cmap.New[docID, int]()

		m.Set("a", 1)
		assert.False(t, m.Delete("a", func(val int, exists bool) bool {
			return val > 1
		}))
		assert.True(t, m.Delete("a", func(val int, exists bool) bool {
			assert.Equal(t, 1, val)
			return exists
		}))
		assert.False(t, m.Delete("a", func(val int, exists bool) bool {
			return true
		}))

		_, exists := m.Get("a")
		assert.False(t, exists)
	})

	t.Run("keys and values are ordered", func(t *testing.T) {
		m := cmap.New[docID, string]()
		m.Set("c", "3")
		m.Set("a", "1")
		m.Set("b", "2")

		assert.Equal(t, []docID{"a", "b", "c"}, m.Keys())
		assert.Equal(t, []string{"1", "2", "3"}, m.Values())
		assert.Equal(t, 3, m.Len())
	})
}

func TestConcurrentMap(t *testing.T) {
	m := cmap.New[string, int]()
	const numRoutines = 50
	const numOperations = 100

	var wg sync.WaitGroup
	wg.Add(numRoutines * 2)

	for i := 0; i < numRoutines; i++ {
		go func(routineID int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				m.Set(fmt.Sprintf("key-%d-%d", routineID, j), j)
			}
		}(i)
	}

	for i := 0; i < numRoutines; i++ {
		go func(routineID int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				m.GetOrCreate(fmt.Sprintf("other-%d-%d", routineID, j), func() int { return j })
			}
		}(i)
	}

	wg.Wait()
	assert.Equal(t, numRoutines*numOperations*2, m.Len())
}
