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

package presence

import (
	"context"
	"sort"
	gosync "sync"
	"time"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/pkg/cmap"
)

type entry struct {
	participant types.Participant
	expiresAt   time.Time
}

// members is the set of participants of a single document.
type members struct {
	mu      gosync.Mutex
	entries map[string]*entry
}

// MemoryStore is a Store kept in the memory of this process.
type MemoryStore struct {
	ttl  time.Duration
	now  func() time.Time
	docs *cmap.Map[string, *members]
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:  ttl,
		now:  time.Now,
		docs: cmap.New[string, *members](),
	}
}

// Put stores or refreshes the participant of the given document.
func (s *MemoryStore) Put(_ context.Context, docID string, participant types.Participant) error {
	m, _ := s.docs.GetOrCreate(docID, func() *members {
		return &members{entries: make(map[string]*entry)}
	})

	now := s.now()
	e := &entry{participant: participant}
	if e.participant.UpdatedAt.IsZero() {
		e.participant.UpdatedAt = now
	}
	if s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
	}

	m.mu.Lock()
	m.entries[participant.UserID] = e
	m.mu.Unlock()

	return nil
}

// Remove removes the user from the given document.
func (s *MemoryStore) Remove(_ context.Context, docID, userID string) error {
	m, ok := s.docs.Get(docID)
	if !ok {
		return nil
	}

	m.mu.Lock()
	delete(m.entries, userID)
	m.mu.Unlock()

	s.docs.Delete(docID, func(m *members, exists bool) bool {
		if !exists {
			return false
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.entries) == 0
	})

	return nil
}

// List returns the live participants of the given document.
func (s *MemoryStore) List(_ context.Context, docID string) ([]types.Participant, error) {
	m, ok := s.docs.Get(docID)
	if !ok {
		return nil, nil
	}

	now := s.now()
	m.mu.Lock()
	participants := make([]types.Participant, 0, len(m.entries))
	for userID, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, userID)
			continue
		}
		participants = append(participants, e.participant)
	}
	m.mu.Unlock()

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].UserID < participants[j].UserID
	})
	return participants, nil
}

// Clear removes every participant of the given document.
func (s *MemoryStore) Clear(_ context.Context, docID string) error {
	s.docs.Delete(docID, func(_ *members, exists bool) bool {
		return exists
	})
	return nil
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	return nil
}
