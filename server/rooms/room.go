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
	"sort"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/pkg/document"
	"github.com/lexdesk/textsync/pkg/operation"
	"github.com/lexdesk/textsync/pkg/transform"
	"github.com/lexdesk/textsync/server/backend/database"
)

// room is a live document with the connections that joined it.
//
// doc is guarded by the document locker of the registry. sendMu is taken
// before the document locker is released, so the messages of a change are
// delivered in version order without doing I/O under the document locker.
// saveMu is taken before the document locker by saves, so checkpoints of a
// room reach the database in the order they were taken. The other fields
// are guarded by mu; comments only change with the document locker held.
type room struct {
	id  string
	doc *document.Document

	sendMu gosync.Mutex
	saveMu gosync.Mutex

	closed  atomic.Bool
	version atomic.Int64
	length  atomic.Int64

	mu           gosync.RWMutex
	title        string
	savedVersion int64
	participants map[types.ID]*types.Participant
	lockedBy     string
	lockedByName string
	emptySince   time.Time
	updatedAt    time.Time

	comments map[string]*types.Comment
	// unsavedComments maps the comments changed since their last save,
	// deleted ones included, to the sequence of their last change.
	unsavedComments map[string]int64
	commentSeq      int64
}

func newRoom(id string, now time.Time) *room {
	return &room{
		id:              id,
		participants:    make(map[types.ID]*types.Participant),
		emptySince:      now,
		updatedAt:       now,
		comments:        make(map[string]*types.Comment),
		unsavedComments: make(map[string]int64),
	}
}

// applied records the state of the document after a change.
func (rm *room) applied(version int64, length int, now time.Time) {
	rm.version.Store(version)
	rm.length.Store(int64(length))

	rm.mu.Lock()
	rm.updatedAt = now
	rm.mu.Unlock()
}

func (rm *room) markSaved(version int64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if version > rm.savedVersion {
		rm.savedVersion = version
	}
}

func (rm *room) dirty() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return rm.version.Load() > rm.savedVersion || len(rm.unsavedComments) > 0
}

func (rm *room) participant(connID types.ID) (types.Participant, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	p, ok := rm.participants[connID]
	if !ok {
		return types.Participant{}, false
	}
	return *p, true
}

func (rm *room) addParticipant(connID types.ID, p types.Participant) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.participants[connID] = &p
	rm.emptySince = time.Time{}
}

// removeParticipant removes the connection and reports how many other
// connections its user still has.
func (rm *room) removeParticipant(connID types.ID, now time.Time) (types.Participant, int, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	p, ok := rm.participants[connID]
	if !ok {
		return types.Participant{}, 0, false
	}
	delete(rm.participants, connID)

	remaining := 0
	for _, other := range rm.participants {
		if other.UserID == p.UserID {
			remaining++
		}
	}
	if len(rm.participants) == 0 {
		rm.emptySince = now
	}

	return *p, remaining, true
}

// updateParticipant applies update to the participant of the connection.
func (rm *room) updateParticipant(connID types.ID, update func(p *types.Participant)) (types.Participant, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	p, ok := rm.participants[connID]
	if !ok {
		return types.Participant{}, false
	}

	updated := *p
	update(&updated)
	rm.participants[connID] = &updated
	return updated, true
}

// participantList returns one entry per user, the most recently updated
// connection of the user winning, ordered by user ID.
func (rm *room) participantList() []types.Participant {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return rm.participantListLocked()
}

func (rm *room) participantListLocked() []types.Participant {
	byUser := make(map[string]types.Participant, len(rm.participants))
	for _, p := range rm.participants {
		if cur, ok := byUser[p.UserID]; !ok || p.UpdatedAt.After(cur.UpdatedAt) {
			byUser[p.UserID] = *p
		}
	}

	list := make([]types.Participant, 0, len(byUser))
	for _, p := range byUser {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UserID < list[j].UserID
	})
	return list
}

func (rm *room) connIDs() []types.ID {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	ids := make([]types.ID, 0, len(rm.participants))
	for connID := range rm.participants {
		ids = append(ids, connID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}

func (rm *room) lockHolder() string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return rm.lockedBy
}

// idleFor reports whether the room had no participants for at least d.
func (rm *room) idleFor(now time.Time, d time.Duration) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return len(rm.participants) == 0 && !rm.emptySince.IsZero() && now.Sub(rm.emptySince) >= d
}

func (rm *room) summary() types.DocumentSummary {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return types.DocumentSummary{
		ID:            rm.id,
		Title:         rm.title,
		Version:       rm.version.Load(),
		ActiveUsers:   len(rm.participantListLocked()),
		ContentLength: int(rm.length.Load()),
		Locked:        rm.lockedBy != "",
		LockedBy:      rm.lockedBy,
		Loaded:        true,
		UpdatedAt:     rm.updatedAt,
	}
}

// loadComments sets the persisted comments of the document, clamping their
// anchors to the content.
func (rm *room) loadComments(infos []*database.CommentInfo, length int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for _, info := range infos {
		c := info.ToComment()
		c.DocumentID = rm.id
		c.Position = min(c.Position, length)
		c.Length = min(c.Length, length-c.Position)
		rm.comments[c.ID] = c
	}
}

func (rm *room) comment(id string) (types.Comment, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	c, ok := rm.comments[id]
	if !ok {
		return types.Comment{}, false
	}
	return *c, true
}

// commentList returns the comments ordered by ID, which is their creation
// order.
func (rm *room) commentList() []types.Comment {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	list := make([]types.Comment, 0, len(rm.comments))
	for _, c := range rm.comments {
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

func (rm *room) putComment(c types.Comment) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.comments[c.ID] = &c
	rm.markCommentChangedLocked(c.ID)
}

func (rm *room) removeComment(id string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.comments[id]; !ok {
		return false
	}
	delete(rm.comments, id)
	rm.markCommentChangedLocked(id)
	return true
}

func (rm *room) markCommentChangedLocked(id string) {
	rm.commentSeq++
	rm.unsavedComments[id] = rm.commentSeq
}

// rebaseComments moves the anchors of the comments over an applied
// operation. An anchor is a retain, so text inserted inside it widens it and
// deleted text shrinks it.
func (rm *room) rebaseComments(op operation.Operation) error {
	if op.IsNoop() {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	for id, c := range rm.comments {
		anchor, _, err := transform.Transform(operation.NewRetain(c.Position, c.Length), op)
		if err != nil {
			return err
		}
		if anchor.Position() == c.Position && anchor.Length() == c.Length {
			continue
		}

		moved := *c
		moved.Position, moved.Length = anchor.Position(), anchor.Length()
		rm.comments[id] = &moved
		rm.markCommentChangedLocked(id)
	}
	return nil
}

// commentChanges returns the comments to save and to delete, and the
// sequences they were taken at.
func (rm *room) commentChanges(version int64) ([]*database.CommentInfo, []string, map[string]int64) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var saves []*database.CommentInfo
	var deletes []string
	seqs := make(map[string]int64, len(rm.unsavedComments))
	for id, seq := range rm.unsavedComments {
		seqs[id] = seq
		if c, ok := rm.comments[id]; ok {
			saves = append(saves, database.NewCommentInfo(c, version))
		} else {
			deletes = append(deletes, id)
		}
	}
	sort.Slice(saves, func(i, j int) bool {
		return saves[i].ID < saves[j].ID
	})
	sort.Strings(deletes)
	return saves, deletes, seqs
}

// markCommentsSaved clears the changes taken at seqs. Comments changed again
// since stay unsaved.
func (rm *room) markCommentsSaved(seqs map[string]int64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for id, seq := range seqs {
		if rm.unsavedComments[id] == seq {
			delete(rm.unsavedComments, id)
		}
	}
}
