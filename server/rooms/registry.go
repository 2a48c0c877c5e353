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

// Package rooms keeps the live documents of the server and the connections
// editing them. Every change of a document goes through its room: the room
// rebases and applies operations under the document locker, then delivers
// the results to the participants in version order.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lexdesk/textsync/api/converter"
	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/internal/validation"
	"github.com/lexdesk/textsync/pkg/cmap"
	"github.com/lexdesk/textsync/pkg/document"
	"github.com/lexdesk/textsync/pkg/operation"
	"github.com/lexdesk/textsync/server/backend"
	"github.com/lexdesk/textsync/server/backend/database"
	"github.com/lexdesk/textsync/server/backend/messagebroker"
	"github.com/lexdesk/textsync/server/backend/sync"
	"github.com/lexdesk/textsync/server/logging"
)

// Registry is the set of live documents of a server.
type Registry struct {
	be        *backend.Backend
	transport Transport
	rooms     *cmap.Map[string, *room]
	now       func() time.Time
}

// New creates a registry on top of the given backend. Messages are delivered
// through transport.
func New(be *backend.Backend, transport Transport) *Registry {
	return &Registry{
		be:        be,
		transport: transport,
		rooms:     cmap.New[string, *room](),
		now:       time.Now,
	}
}

// acquire returns the room of the document with its document locker held,
// loading the document from the database when it is not live. With create,
// a document missing from the database starts empty.
func (r *Registry) acquire(ctx context.Context, docID string, create bool) (*room, func(), error) {
	for {
		rm, _ := r.rooms.GetOrCreate(docID, func() *room {
			return newRoom(docID, r.now())
		})

		unlock, err := r.lock(ctx, docID)
		if err != nil {
			return nil, nil, err
		}
		if rm.closed.Load() {
			unlock()
			continue
		}

		if rm.doc == nil {
			if err := r.load(ctx, rm, create); err != nil {
				r.closeLocked(rm)
				unlock()
				return nil, nil, err
			}
		}

		return rm, unlock, nil
	}
}

// acquireLive is acquire for documents that must already be live.
func (r *Registry) acquireLive(ctx context.Context, docID string) (*room, func(), error) {
	for {
		rm, ok := r.rooms.Get(docID)
		if !ok {
			return nil, nil, fmt.Errorf("%s is not live: %w", docID, ErrDocumentNotFound)
		}

		unlock, err := r.lock(ctx, docID)
		if err != nil {
			return nil, nil, err
		}
		if rm.closed.Load() {
			unlock()
			continue
		}
		if rm.doc == nil {
			unlock()
			return nil, nil, fmt.Errorf("%s is not live: %w", docID, ErrDocumentNotFound)
		}

		return rm, unlock, nil
	}
}

// live returns the live room of the document without locking it.
func (r *Registry) live(docID string) (*room, error) {
	rm, ok := r.rooms.Get(docID)
	if !ok || rm.closed.Load() {
		return nil, fmt.Errorf("%s is not live: %w", docID, ErrDocumentNotFound)
	}
	return rm, nil
}

func (r *Registry) lock(ctx context.Context, docID string) (func(), error) {
	locker := r.be.Lockers.Locker(sync.DocKey(docID))
	if err := locker.Lock(ctx); err != nil {
		return nil, err
	}

	return func() {
		if err := locker.Unlock(); err != nil {
			logging.From(ctx).Error(err)
		}
	}, nil
}

func (r *Registry) load(ctx context.Context, rm *room, create bool) error {
	info, err := r.be.DB.LoadDocument(ctx, rm.id)
	switch {
	case err == nil:
		comments, err := r.be.DB.ListComments(ctx, rm.id)
		if err != nil {
			return err
		}
		rm.doc = document.NewFromSnapshot(rm.id, info.Content, info.Version)
		rm.loadComments(comments, rm.doc.Len())
		rm.mu.Lock()
		rm.title = info.Title
		rm.savedVersion = info.Version
		rm.updatedAt = info.UpdatedAt
		rm.mu.Unlock()
	case errors.Is(err, database.ErrDocumentNotFound) && create:
		rm.doc = document.New(rm.id)
	default:
		return err
	}

	rm.version.Store(rm.doc.Version())
	rm.length.Store(int64(rm.doc.Len()))
	r.be.Metrics.SetLiveDocuments(r.be.Config.Hostname, r.rooms.Len())

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf("load %s at v%d", rm.id, rm.doc.Version())
	}
	return nil
}

// closeLocked drops the room from the registry. The document locker must be
// held.
func (r *Registry) closeLocked(rm *room) {
	rm.closed.Store(true)
	r.rooms.Delete(rm.id, func(v *room, exists bool) bool {
		return exists && v == rm
	})
	r.be.Metrics.SetLiveDocuments(r.be.Config.Hostname, r.rooms.Len())
}

// Join adds the connection to the document, creating the document when it
// does not exist. The joining connection receives an auth_ack with the
// content, and the other participants a presence update.
func (r *Registry) Join(
	ctx context.Context,
	docID string,
	connID types.ID,
	participant types.Participant,
) (*types.Snapshot, error) {
	rm, unlock, err := r.acquire(ctx, docID, true)
	if err != nil {
		return nil, err
	}

	// Changes applied before this join may still be in delivery. Attaching
	// only once they are done keeps them out of the new connection, whose
	// auth_ack already contains them.
	rm.sendMu.Lock()
	if err := r.transport.Attach(ctx, docID, connID); err != nil {
		rm.sendMu.Unlock()
		unlock()
		return nil, err
	}

	participant.Cursor = clamp(participant.Cursor, 0, rm.doc.Len())
	participant.Selection = nil
	participant.Typing = false
	participant.UpdatedAt = r.now()
	rm.addParticipant(connID, participant)

	content, version := rm.doc.Content()
	participants := rm.participantList()
	comments := rm.commentList()
	lockedBy := rm.lockHolder()

	unlock()
	defer rm.sendMu.Unlock()

	if err := r.be.Presence.Put(ctx, docID, participant); err != nil {
		logging.From(ctx).Warnf("put presence of %s in %s: %v", participant.UserID, docID, err)
	}
	r.broadcast(ctx, docID, presenceMessage(docID, &participant, participants), connID)

	snapshot := &types.Snapshot{
		DocumentID:   docID,
		Content:      content,
		Version:      version,
		Participants: participants,
		Comments:     comments,
		LockedBy:     lockedBy,
	}
	if err := r.transport.Send(ctx, connID, &types.Message{
		Type:         types.MessageAuthAck,
		DocumentID:   docID,
		UserID:       participant.UserID,
		Username:     participant.DisplayName,
		Content:      &content,
		Version:      version,
		Participants: participants,
		Comments:     comments,
		Timestamp:    r.now(),
	}); err != nil {
		return snapshot, fmt.Errorf("auth_ack to %s: %w", connID, ErrTransportFailure)
	}
	if lockedBy != "" {
		if err := r.transport.Send(ctx, connID, &types.Message{
			Type:       types.MessageDocumentLocked,
			DocumentID: docID,
			UserID:     lockedBy,
			Timestamp:  r.now(),
		}); err != nil {
			return snapshot, fmt.Errorf("document_locked to %s: %w", connID, ErrTransportFailure)
		}
	}

	logging.From(ctx).Infof("JOIN %s by %s(%s) at v%d", docID, participant.UserID, connID, version)
	return snapshot, nil
}

// Submit rebases the operation of the connection onto the operations applied
// since its base version and applies it. Other participants receive the
// rebased operation, then the submitter its ack.
func (r *Registry) Submit(
	ctx context.Context,
	docID string,
	connID types.ID,
	pbOp *types.Operation,
) (*types.Ack, error) {
	start := r.now()

	rm, unlock, err := r.acquireLive(ctx, docID)
	if err != nil {
		return nil, err
	}

	p, ok := rm.participant(connID)
	if !ok {
		unlock()
		return nil, fmt.Errorf("submit %s to %s: %w", connID, docID, ErrNotJoined)
	}
	if holder := rm.lockHolder(); holder != "" && holder != p.UserID {
		unlock()
		return nil, fmt.Errorf("submit to %s locked by %s: %w", docID, holder, ErrDocumentLocked)
	}

	op, err := converter.FromOperation(pbOp, p.UserID, p.DisplayName)
	if err != nil {
		unlock()
		return nil, err
	}

	depth := rm.doc.Version() - op.BaseVersion()
	rebased, version, err := rm.doc.Apply(op)
	if err != nil {
		unlock()
		if !isClientError(err) {
			r.Abort(ctx, docID, err.Error())
		}
		return nil, err
	}
	rm.applied(version, rm.doc.Len(), r.now())
	if err := rm.rebaseComments(rebased); err != nil {
		unlock()
		r.Abort(ctx, docID, err.Error())
		return nil, err
	}
	wireOp := converter.ToOperation(rebased, version)

	rm.sendMu.Lock()
	unlock()
	defer rm.sendMu.Unlock()

	// The submitter going away must not stop the others from receiving
	// the operation.
	bgCtx := context.WithoutCancel(ctx)
	r.broadcast(bgCtx, docID, &types.Message{
		Type:       types.MessageOperationApplied,
		DocumentID: docID,
		Operation:  &wireOp,
		Version:    version,
		UserID:     p.UserID,
		Username:   p.DisplayName,
		Timestamp:  r.now(),
	}, connID)

	if err := r.be.MsgBrokers.Operations().Produce(bgCtx, messagebroker.OperationAppliedMessage{
		DocumentID: docID,
		Version:    version,
		Operation:  wireOp,
		Timestamp:  r.now(),
	}); err != nil {
		logging.From(ctx).Warnf("produce operation v%d of %s: %v", version, docID, err)
	}

	r.be.Metrics.AddOperationApplied(r.be.Config.Hostname, rebased.Kind().String())
	r.be.Metrics.ObserveSubmitRebaseDepth(int(depth))
	r.be.Metrics.ObserveSubmitResponseSeconds(r.now().Sub(start).Seconds())

	ack := &types.Ack{Operation: wireOp, Version: version}
	if err := r.transport.Send(ctx, connID, &types.Message{
		Type:       types.MessageAck,
		DocumentID: docID,
		Operation:  &wireOp,
		Version:    version,
		Timestamp:  r.now(),
	}); err != nil {
		return ack, fmt.Errorf("ack v%d to %s: %w", version, connID, ErrTransportFailure)
	}

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf("SUBMIT %s %s by %s, depth %d -> v%d", docID, rebased, p.UserID, depth, version)
	}
	return ack, nil
}

// Leave removes the connection from the document. When the user has no
// other connection, their presence is dropped and their lock released. An
// empty document is checkpointed and evicted when the backend evicts on
// empty.
func (r *Registry) Leave(ctx context.Context, docID string, connID types.ID) error {
	rm, unlock, err := r.acquireLive(ctx, docID)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	p, remaining, ok := rm.removeParticipant(connID, r.now())
	if !ok {
		unlock()
		return nil
	}
	r.transport.Detach(ctx, docID, connID)

	released := false
	if remaining == 0 {
		rm.mu.Lock()
		if rm.lockedBy == p.UserID {
			rm.lockedBy, rm.lockedByName = "", ""
			released = true
		}
		rm.mu.Unlock()
	}

	participants := rm.participantList()

	rm.sendMu.Lock()
	unlock()

	if remaining == 0 {
		if err := r.be.Presence.Remove(ctx, docID, p.UserID); err != nil {
			logging.From(ctx).Warnf("remove presence of %s in %s: %v", p.UserID, docID, err)
		}
		r.broadcast(ctx, docID, &types.Message{
			Type:         types.MessagePresence,
			DocumentID:   docID,
			UserID:       p.UserID,
			Username:     p.DisplayName,
			Participants: participants,
			Timestamp:    r.now(),
		}, connID)
	}
	if released {
		r.broadcastUnlocked(ctx, docID, p)
	}
	rm.sendMu.Unlock()

	if r.be.Config.EvictOnEmpty && len(rm.connIDs()) == 0 {
		if _, err := r.evict(ctx, rm, func() bool {
			return len(rm.connIDs()) == 0
		}); err != nil {
			logging.From(ctx).Warnf("checkpoint %s before eviction: %v", docID, err)
		}
	}

	logging.From(ctx).Infof("LEAVE %s by %s(%s)", docID, p.UserID, connID)
	return nil
}

// UpdatePresence sets the cursor and selection of the connection and shares
// them with the other participants. Positions are clamped to the document.
func (r *Registry) UpdatePresence(
	ctx context.Context,
	docID string,
	connID types.ID,
	cursor int,
	selection *types.Range,
) error {
	rm, err := r.live(docID)
	if err != nil {
		return err
	}

	length := int(rm.length.Load())
	p, ok := rm.updateParticipant(connID, func(p *types.Participant) {
		p.Cursor = clamp(cursor, 0, length)
		p.Selection = nil
		if selection != nil {
			start := clamp(selection.Start, 0, length)
			p.Selection = &types.Range{Start: start, End: clamp(selection.End, start, length)}
		}
		p.UpdatedAt = r.now()
	})
	if !ok {
		return fmt.Errorf("presence of %s in %s: %w", connID, docID, ErrNotJoined)
	}

	if err := r.be.Presence.Put(ctx, docID, p); err != nil {
		logging.From(ctx).Warnf("put presence of %s in %s: %v", p.UserID, docID, err)
	}
	r.broadcast(ctx, docID, presenceMessage(docID, &p, rm.participantList()), connID)
	return nil
}

// SetTyping shares whether the user of the connection is typing.
func (r *Registry) SetTyping(ctx context.Context, docID string, connID types.ID, typing bool) error {
	rm, err := r.live(docID)
	if err != nil {
		return err
	}

	p, ok := rm.updateParticipant(connID, func(p *types.Participant) {
		p.Typing = typing
		p.UpdatedAt = r.now()
	})
	if !ok {
		return fmt.Errorf("typing of %s in %s: %w", connID, docID, ErrNotJoined)
	}

	r.broadcast(ctx, docID, &types.Message{
		Type:       types.MessageTyping,
		DocumentID: docID,
		UserID:     p.UserID,
		Username:   p.DisplayName,
		Typing:     typing,
		Timestamp:  r.now(),
	}, connID)
	return nil
}

// Lock gives the user of the connection exclusive editing of the document.
// Locking a document the user already holds succeeds.
func (r *Registry) Lock(ctx context.Context, docID string, connID types.ID) error {
	rm, err := r.live(docID)
	if err != nil {
		return err
	}
	p, ok := rm.participant(connID)
	if !ok {
		return fmt.Errorf("lock %s by %s: %w", docID, connID, ErrNotJoined)
	}

	rm.mu.Lock()
	if rm.lockedBy != "" && rm.lockedBy != p.UserID {
		holder := rm.lockedBy
		rm.mu.Unlock()
		return fmt.Errorf("lock %s held by %s: %w", docID, holder, ErrDocumentLocked)
	}
	rm.lockedBy, rm.lockedByName = p.UserID, p.DisplayName
	rm.mu.Unlock()

	r.broadcast(ctx, docID, &types.Message{
		Type:       types.MessageDocumentLocked,
		DocumentID: docID,
		UserID:     p.UserID,
		Username:   p.DisplayName,
		Timestamp:  r.now(),
	}, "")
	r.produceEvent(ctx, docID, messagebroker.DocumentLockedEvent, p.UserID, rm.version.Load())
	return nil
}

// Unlock releases the lock the user of the connection holds. Unlocking an
// unlocked document succeeds.
func (r *Registry) Unlock(ctx context.Context, docID string, connID types.ID) error {
	rm, err := r.live(docID)
	if err != nil {
		return err
	}
	p, ok := rm.participant(connID)
	if !ok {
		return fmt.Errorf("unlock %s by %s: %w", docID, connID, ErrNotJoined)
	}

	rm.mu.Lock()
	if rm.lockedBy == "" {
		rm.mu.Unlock()
		return nil
	}
	if rm.lockedBy != p.UserID {
		holder := rm.lockedBy
		rm.mu.Unlock()
		return fmt.Errorf("unlock %s held by %s: %w", docID, holder, ErrNotLockOwner)
	}
	rm.lockedBy, rm.lockedByName = "", ""
	rm.mu.Unlock()

	r.broadcastUnlocked(ctx, docID, p)
	return nil
}

func (r *Registry) broadcastUnlocked(ctx context.Context, docID string, p types.Participant) {
	r.broadcast(ctx, docID, &types.Message{
		Type:       types.MessageDocumentUnlocked,
		DocumentID: docID,
		UserID:     p.UserID,
		Username:   p.DisplayName,
		Timestamp:  r.now(),
	}, "")

	version := int64(0)
	if rm, err := r.live(docID); err == nil {
		version = rm.version.Load()
	}
	r.produceEvent(ctx, docID, messagebroker.DocumentUnlockedEvent, p.UserID, version)
}

// History returns the operations applied to the document after fromVersion.
func (r *Registry) History(ctx context.Context, docID string, fromVersion int64) (*types.History, error) {
	rm, unlock, err := r.acquire(ctx, docID, false)
	if err != nil {
		return nil, err
	}
	entries, err := rm.doc.OperationsSince(fromVersion)
	version := rm.doc.Version()
	unlock()
	if err != nil {
		return nil, err
	}

	return &types.History{
		DocumentID:  docID,
		FromVersion: fromVersion,
		Version:     version,
		Operations:  converter.ToOperations(entries),
	}, nil
}

// Document returns the content of the document, live or persisted.
func (r *Registry) Document(ctx context.Context, docID string) (*types.DocumentContent, error) {
	if rm, unlock, err := r.acquireLive(ctx, docID); err == nil {
		content, version := rm.doc.Content()
		unlock()

		rm.mu.RLock()
		title := rm.title
		rm.mu.RUnlock()
		return &types.DocumentContent{ID: docID, Title: title, Content: content, Version: version}, nil
	} else if !errors.Is(err, ErrDocumentNotFound) {
		return nil, err
	}

	info, err := r.be.DB.LoadDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	return &types.DocumentContent{ID: info.ID, Title: info.Title, Content: info.Content, Version: info.Version}, nil
}

// Documents lists the persisted and live documents ordered by ID. Live
// documents report their in-memory state.
func (r *Registry) Documents(ctx context.Context) ([]types.DocumentSummary, error) {
	infos, err := r.be.DB.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]types.DocumentSummary, len(infos))
	for _, info := range infos {
		byID[info.ID] = types.DocumentSummary{
			ID:            info.ID,
			Title:         info.Title,
			Version:       info.Version,
			ContentLength: info.ContentLength(),
			UpdatedAt:     info.UpdatedAt,
		}
	}
	for _, rm := range r.rooms.Values() {
		if rm.closed.Load() || rm.version.Load() == 0 && len(rm.connIDs()) == 0 {
			continue
		}
		summary := rm.summary()
		if persisted, ok := byID[rm.id]; ok && summary.Title == "" {
			summary.Title = persisted.Title
		}
		byID[rm.id] = summary
	}

	summaries := make([]types.DocumentSummary, 0, len(byID))
	for _, summary := range byID {
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

// Create creates a persisted document.
func (r *Registry) Create(ctx context.Context, req *types.CreateDocumentRequest) (*types.DocumentSummary, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidRequest)
	}
	if req.ID != "" {
		if _, err := r.live(req.ID); err == nil {
			return nil, fmt.Errorf("create %s: %w", req.ID, database.ErrDocumentAlreadyExists)
		}
	}

	info, err := r.be.DB.CreateDocument(ctx, req.ID, req.Title, req.Owner, req.Content)
	if err != nil {
		return nil, err
	}
	r.produceEvent(ctx, info.ID, messagebroker.DocumentCreatedEvent, req.Owner, 0)

	return &types.DocumentSummary{
		ID:            info.ID,
		Title:         info.Title,
		ContentLength: info.ContentLength(),
		UpdatedAt:     info.UpdatedAt,
	}, nil
}

// Delete removes the document from memory and from the database. Its
// participants are told and detached.
func (r *Registry) Delete(ctx context.Context, docID string) error {
	wasLive := false
	if rm, unlock, err := r.acquireLive(ctx, docID); err == nil {
		wasLive = true
		r.closeLocked(rm)
		unlock()
		r.evictParticipants(ctx, rm, types.NewError(docID, ErrDocumentNotFound.Code(), "document deleted"))
	} else if !errors.Is(err, ErrDocumentNotFound) {
		return err
	}

	if err := r.be.Presence.Clear(ctx, docID); err != nil {
		logging.From(ctx).Warnf("clear presence of %s: %v", docID, err)
	}

	if err := r.be.DB.DeleteDocument(ctx, docID); err != nil {
		if !wasLive || !errors.Is(err, database.ErrDocumentNotFound) {
			return err
		}
	}
	r.produceEvent(ctx, docID, messagebroker.DocumentDeletedEvent, "", 0)

	logging.From(ctx).Infof("DELETE %s", docID)
	return nil
}

// Abort tears the room of the document down after an invariant violation.
// The in-memory state is discarded and the participants are asked to
// resync; the document is loaded from the database on the next join.
func (r *Registry) Abort(ctx context.Context, docID string, reason string) {
	rm, unlock, err := r.acquireLive(ctx, docID)
	if err != nil {
		return
	}
	r.closeLocked(rm)
	unlock()

	logging.From(ctx).Errorf("ABORT %s: %s", docID, reason)
	r.evictParticipants(ctx, rm, &types.Message{
		Type:       types.MessageResync,
		DocumentID: docID,
		Code:       document.ErrCorrupted.Code(),
		Reason:     reason,
		Timestamp:  r.now(),
	})

	if err := r.be.Presence.Clear(ctx, docID); err != nil {
		logging.From(ctx).Warnf("clear presence of %s: %v", docID, err)
	}
}

// evictParticipants sends msg to every connection of a closed room and
// detaches them.
func (r *Registry) evictParticipants(ctx context.Context, rm *room, msg *types.Message) {
	rm.sendMu.Lock()
	defer rm.sendMu.Unlock()

	for _, connID := range rm.connIDs() {
		if err := r.transport.Send(ctx, connID, msg); err != nil {
			logging.From(ctx).Warnf("%s to %s: %v", msg.Type, connID, err)
		}
		r.transport.Detach(ctx, rm.id, connID)
	}
}

// Save checkpoints the document and its comments to the database and
// returns the saved version. The log is verified first; a document that
// fails verification is aborted instead of saved.
func (r *Registry) Save(ctx context.Context, docID string) (int64, error) {
	for {
		rm, err := r.live(docID)
		if errors.Is(err, ErrDocumentNotFound) {
			info, err := r.be.DB.LoadDocument(ctx, docID)
			if err != nil {
				return 0, err
			}
			return info.Version, nil
		}
		if err != nil {
			return 0, err
		}

		version, saved, err := r.save(ctx, rm)
		if err != nil {
			return 0, err
		}
		if saved {
			r.produceEvent(ctx, docID, messagebroker.DocumentSavedEvent, "", version)
			return version, nil
		}
	}
}

// save checkpoints the room. It reports false when the room was closed
// before the checkpoint could be taken.
func (r *Registry) save(ctx context.Context, rm *room) (int64, bool, error) {
	rm.saveMu.Lock()
	defer rm.saveMu.Unlock()

	unlock, err := r.lock(ctx, rm.id)
	if err != nil {
		return 0, false, err
	}
	if rm.closed.Load() || rm.doc == nil {
		unlock()
		return 0, false, nil
	}

	cp, err := takeCheckpoint(rm, true)
	unlock()
	if err != nil {
		r.Abort(ctx, rm.id, err.Error())
		return 0, false, err
	}

	if err := r.persist(ctx, rm, cp); err != nil {
		return 0, false, err
	}
	return cp.version, true, nil
}

// checkpoint is what a save writes, taken with the document locker held and
// written once it is released.
type checkpoint struct {
	saveDocument bool
	content      string
	version      int64
	comments     []*database.CommentInfo
	deleted      []string
	seqs         map[string]int64
}

// takeCheckpoint verifies the document and copies its unsaved state. With
// force the content is written even when it did not change. The document
// locker must be held.
func takeCheckpoint(rm *room, force bool) (*checkpoint, error) {
	if err := rm.doc.Verify(); err != nil {
		return nil, err
	}

	content, version := rm.doc.Content()
	comments, deleted, seqs := rm.commentChanges(version)

	rm.mu.RLock()
	saveDocument := force || version > rm.savedVersion
	rm.mu.RUnlock()

	return &checkpoint{
		saveDocument: saveDocument,
		content:      content,
		version:      version,
		comments:     comments,
		deleted:      deleted,
		seqs:         seqs,
	}, nil
}

// persist writes the checkpoint of the room. rm.saveMu must be held. The
// content goes first, so persisted anchors never refer to a newer version
// than the persisted content.
func (r *Registry) persist(ctx context.Context, rm *room, cp *checkpoint) error {
	if cp.saveDocument {
		if err := r.be.DB.SaveDocument(ctx, rm.id, cp.content, cp.version); err != nil {
			return err
		}
		rm.markSaved(cp.version)
		r.be.Metrics.AddCheckpoints(r.be.Config.Hostname, 1)
	}

	if err := r.be.DB.SaveComments(ctx, rm.id, cp.comments); err != nil {
		return err
	}
	for _, id := range cp.deleted {
		err := r.be.DB.DeleteComment(ctx, rm.id, id)
		if err != nil && !errors.Is(err, database.ErrCommentNotFound) {
			return err
		}
	}
	rm.markCommentsSaved(cp.seqs)

	return nil
}

// evict saves the room and drops it from the registry while evictable
// holds. The save runs without the document locker; a room that changed or
// stopped being evictable meanwhile stays live, as does one whose save
// failed.
func (r *Registry) evict(ctx context.Context, rm *room, evictable func() bool) (bool, error) {
	rm.saveMu.Lock()
	defer rm.saveMu.Unlock()

	unlock, err := r.lock(ctx, rm.id)
	if err != nil {
		return false, err
	}
	if rm.closed.Load() || rm.doc == nil || !evictable() {
		unlock()
		return false, nil
	}

	var cp *checkpoint
	if rm.dirty() {
		cp, err = takeCheckpoint(rm, false)
	}
	unlock()
	if err != nil {
		return false, err
	}

	if cp != nil {
		if err := r.persist(ctx, rm, cp); err != nil {
			return false, err
		}
	}

	unlock, err = r.lock(ctx, rm.id)
	if err != nil {
		return false, err
	}
	defer unlock()

	if rm.closed.Load() || rm.dirty() || !evictable() {
		return false, nil
	}
	r.closeLocked(rm)
	return true, nil
}

// Checkpoint saves every live document changed since its last save.
func (r *Registry) Checkpoint(ctx context.Context) (int, error) {
	saved := 0
	var errs []error
	for _, rm := range r.rooms.Values() {
		if rm.closed.Load() || !rm.dirty() {
			continue
		}

		if _, err := r.Save(ctx, rm.id); err != nil {
			errs = append(errs, fmt.Errorf("checkpoint %s: %w", rm.id, err))
			continue
		}
		saved++
	}

	return saved, errors.Join(errs...)
}

// EvictIdle checkpoints and drops the documents that had no participants
// for idleFor.
func (r *Registry) EvictIdle(ctx context.Context, idleFor time.Duration) (int, error) {
	evicted := 0
	var errs []error
	for _, rm := range r.rooms.Values() {
		if rm.closed.Load() || !rm.idleFor(r.now(), idleFor) {
			continue
		}

		ok, err := r.evict(ctx, rm, func() bool {
			return rm.idleFor(r.now(), idleFor)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("evict %s: %w", rm.id, err))
			continue
		}
		if ok {
			evicted++
		}
	}

	return evicted, errors.Join(errs...)
}

// TruncateLogs keeps the last keep operations of every live document.
func (r *Registry) TruncateLogs(ctx context.Context, keep int) int {
	dropped := 0
	for _, rm := range r.rooms.Values() {
		live, unlock, err := r.acquireLive(ctx, rm.id)
		if err != nil {
			continue
		}
		if live == rm {
			dropped += rm.doc.Truncate(keep)
		}
		unlock()
	}
	return dropped
}

// Close checkpoints every live document.
func (r *Registry) Close(ctx context.Context) error {
	saved, err := r.Checkpoint(ctx)
	logging.From(ctx).Infof("registry closed, %d documents saved", saved)
	return err
}

// broadcast sends msg to the participants of the document except exclude.
// Failures are counted and logged but never reported to the caller.
func (r *Registry) broadcast(ctx context.Context, docID string, msg *types.Message, exclude types.ID) {
	if err := r.transport.Broadcast(ctx, docID, msg, exclude); err != nil {
		r.be.Metrics.AddBroadcastFailure(r.be.Config.Hostname, string(msg.Type))
		logging.From(ctx).Warnf("broadcast %s of %s: %v", msg.Type, docID, err)
	}
}

func (r *Registry) produceEvent(
	ctx context.Context,
	docID string,
	eventType messagebroker.DocumentEventType,
	userID string,
	version int64,
) {
	if err := r.be.MsgBrokers.DocumentEvents().Produce(ctx, messagebroker.DocumentEventMessage{
		DocumentID: docID,
		EventType:  eventType,
		UserID:     userID,
		Version:    version,
		Timestamp:  r.now(),
	}); err != nil {
		logging.From(ctx).Warnf("produce %s of %s: %v", eventType, docID, err)
	}
}

func presenceMessage(docID string, p *types.Participant, participants []types.Participant) *types.Message {
	cursor := p.Cursor
	return &types.Message{
		Type:         types.MessagePresence,
		DocumentID:   docID,
		UserID:       p.UserID,
		Username:     p.DisplayName,
		Cursor:       &cursor,
		Selection:    p.Selection,
		Typing:       p.Typing,
		Participants: participants,
		Timestamp:    p.UpdatedAt,
	}
}

// isClientError reports whether err is caused by the submitted operation
// rather than by the state of the document.
func isClientError(err error) bool {
	return errors.Is(err, operation.ErrInvalidOperation) ||
		errors.Is(err, document.ErrVersionConflict)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
