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

// Package cmap provides a concurrent map keyed by string-like IDs.
package cmap

import (
	"hash/fnv"
	"sort"
	"sync"
)

// numShards is the number of shards.
const numShards = 32

type shard[K ~string, V any] struct {
	sync.RWMutex
	items map[K]V
}

// Map is a concurrent map split into shards to reduce lock contention.
type Map[K ~string, V any] struct {
	shards [numShards]shard[K, V]
}

// New creates a new Map.
func New[K ~string, V any]() *Map[K, V] {
	m := &Map[K, V]{}
	for i := range m.shards {
		m.shards[i].items = make(map[K]V)
	}
	return m
}

func (m *Map[K, V]) shardForKey(key K) *shard[K, V] {
	hash := fnv.New32a()
	// Write on a hash.Hash never returns an error.
	_, _ = hash.Write([]byte(key))
	return &m.shards[hash.Sum32()%numShards]
}

// Set sets a key-value pair.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardForKey(key)

	s.Lock()
	defer s.Unlock()

	s.items[key] = value
}

// UpsertFunc is a function to insert or update a key-value pair.
type UpsertFunc[V any] func(value V, exists bool) V

// Upsert inserts or updates a key-value pair under the shard lock.
func (m *Map[K, V]) Upsert(key K, upsertFunc UpsertFunc[V]) V {
	s := m.shardForKey(key)

	s.Lock()
	defer s.Unlock()

	v, exists := s.items[key]
	res := upsertFunc(v, exists)
	s.items[key] = res
	return res
}

// GetOrCreate returns the value of key, creating it with create when absent.
// The second result reports whether the value was created.
func (m *Map[K, V]) GetOrCreate(key K, create func() V) (V, bool) {
	s := m.shardForKey(key)

	s.Lock()
	defer s.Unlock()

	if v, ok := s.items[key]; ok {
		return v, false
	}
	v := create()
	s.items[key] = v
	return v, true
}

// Get retrieves a value from the map.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardForKey(key)

	s.RLock()
	defer s.RUnlock()

	value, exists := s.items[key]
	return value, exists
}

// DeleteFunc decides whether to delete a value, under the shard lock.
type DeleteFunc[V any] func(value V, exists bool) bool

// Delete removes the value of key if deleteFunc agrees.
func (m *Map[K, V]) Delete(key K, deleteFunc DeleteFunc[V]) bool {
	s := m.shardForKey(key)

	s.Lock()
	defer s.Unlock()

	value, exists := s.items[key]
	del := deleteFunc(value, exists)
	if del && exists {
		delete(s.items, key)
	}

	return del && exists
}

// Len returns the number of items in the map.
func (m *Map[K, V]) Len() int {
	count := 0
	for i := range m.shards {
		s := &m.shards[i]

		s.RLock()
		count += len(s.items)
		s.RUnlock()
	}
	return count
}

// Keys returns the keys of the map in ascending order.
func (m *Map[K, V]) Keys() []K {
	var keys []K
	for i := range m.shards {
		s := &m.shards[i]

		s.RLock()
		for k := range s.items {
			keys = append(keys, k)
		}
		s.RUnlock()
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Values returns the values of the map ordered by key.
func (m *Map[K, V]) Values() []V {
	keys := m.Keys()
	values := make([]V, 0, len(keys))
	for _, k := range keys {
		if v, ok := m.Get(k); ok {
			values = append(values, v)
		}
	}
	return values
}
