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

// Package pubsub delivers sync protocol messages to connections. Each
// connection owns a Subscription whose queue is drained by its writer, and
// subscriptions are attached to the documents the connection edits.
package pubsub

import (
	"context"
	"fmt"
	"sync"
	gotime "time"

	"go.uber.org/zap"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/pkg/cmap"
	"github.com/lexdesk/textsync/pkg/errors"
	"github.com/lexdesk/textsync/server/logging"
)

var (
	// ErrSubscriptionNotFound is returned when sending to an unknown
	// connection.
	ErrSubscriptionNotFound = errors.NotFound("subscription not found").WithCode("subscription_not_found")

	// ErrTooManySubscribers is returned when a document reached its limit of
	// connections.
	ErrTooManySubscribers = errors.FailedPrecond("subscription limit exceeded").WithCode("too_many_subscribers")

	// ErrPublishFailed is returned when a message could not be queued for
	// one or more connections.
	ErrPublishFailed = errors.Unavailable("publish failed").WithCode("transport_failure")
)

// Options configures a PubSub.
type Options struct {
	// BufferSize is the queue length of each subscription.
	BufferSize int

	// PresenceWindow batches presence messages of a document and only
	// delivers the latest one per user every window. Zero delivers them
	// immediately.
	PresenceWindow gotime.Duration

	// MaxSubscribersPerDocument limits the connections per document. Zero
	// means unlimited.
	MaxSubscribersPerDocument int
}

// PubSub is the in-memory message fan-out of a single server.
type PubSub struct {
	options Options
	subs    *cmap.Map[types.ID, *Subscription]
	docs    *cmap.Map[string, *DocSubscriptions]
}

// New creates an instance of PubSub.
func New(options Options) *PubSub {
	if options.BufferSize <= 0 {
		options.BufferSize = 64
	}

	return &PubSub{
		options: options,
		subs:    cmap.New[types.ID, *Subscription](),
		docs:    cmap.New[string, *DocSubscriptions](),
	}
}

// Subscribe registers a new connection.
func (m *PubSub) Subscribe(ctx context.Context, subscriber string) *Subscription {
	sub := NewSubscription(subscriber, m.options.BufferSize)
	m.subs.Set(sub.ID(), sub)

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Subscribe(%s,%s)`, sub.ID(), subscriber)
	}
	return sub
}

// Unsubscribe detaches the connection from every document and closes its
// queue.
func (m *PubSub) Unsubscribe(ctx context.Context, sub *Subscription) {
	for _, docID := range m.docs.Keys() {
		m.Detach(ctx, docID, sub.ID())
	}

	m.subs.Delete(sub.ID(), func(_ *Subscription, exists bool) bool {
		return exists
	})
	sub.Close()

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Unsubscribe(%s,%s)`, sub.ID(), sub.Subscriber())
	}
}

// Attach attaches the connection to the document.
func (m *PubSub) Attach(ctx context.Context, docID string, connID types.ID) error {
	sub, ok := m.subs.Get(connID)
	if !ok {
		return fmt.Errorf("attach %s: %w", connID, ErrSubscriptionNotFound)
	}

	var attached bool
	var onBoard int
	m.docs.Upsert(docID, func(subs *DocSubscriptions, exists bool) *DocSubscriptions {
		if !exists {
			subs = newDocSubscriptions(docID)
			if m.options.PresenceWindow > 0 {
				subs.publisher = NewBatchPublisher(m, subs, m.options.PresenceWindow)
			}
		}

		onBoard = subs.Len()
		limit := m.options.MaxSubscribersPerDocument
		if _, already := subs.internalMap.Get(connID); already || limit <= 0 || onBoard < limit {
			subs.Set(sub)
			attached = true
		}
		return subs
	})

	if !attached {
		return fmt.Errorf("%d subscribers allowed per document: %w", onBoard, ErrTooManySubscribers)
	}

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Attach(%s,%s)`, docID, connID)
	}
	return nil
}

// Detach detaches the connection from the document. The document entry is
// removed with its last connection.
func (m *PubSub) Detach(ctx context.Context, docID string, connID types.ID) {
	subs, ok := m.docs.Get(docID)
	if !ok {
		return
	}
	subs.Delete(connID)

	m.docs.Delete(docID, func(subs *DocSubscriptions, exists bool) bool {
		if !exists || 0 < subs.Len() {
			return false
		}

		subs.Close()
		return true
	})

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Detach(%s,%s)`, docID, connID)
	}
}

// Members returns the connections attached to the document.
func (m *PubSub) Members(docID string) []types.ID {
	subs, ok := m.docs.Get(docID)
	if !ok {
		return nil
	}

	var ids []types.ID
	for _, sub := range subs.Values() {
		ids = append(ids, sub.ID())
	}
	return ids
}

// Send queues the message for a single connection.
func (m *PubSub) Send(ctx context.Context, connID types.ID, msg *types.Message) error {
	sub, ok := m.subs.Get(connID)
	if !ok {
		return fmt.Errorf("send %s to %s: %w", msg.Type, connID, ErrSubscriptionNotFound)
	}

	if !sub.Publish(ctx, msg) {
		return fmt.Errorf("send %s to %s: %w", msg.Type, connID, ErrPublishFailed)
	}
	return nil
}

// Broadcast queues the message for every connection attached to the
// document except exclude. A slow or closed connection does not prevent
// delivery to the others, its failure is reported in the returned error.
func (m *PubSub) Broadcast(ctx context.Context, docID string, msg *types.Message, exclude types.ID) error {
	subs, ok := m.docs.Get(docID)
	if !ok {
		return nil
	}

	if msg.Type == types.MessagePresence && subs.publisher != nil {
		subs.publisher.Publish(msg, exclude)
		return nil
	}

	return m.deliver(ctx, subs, msg, exclude)
}

func (m *PubSub) deliver(ctx context.Context, subs *DocSubscriptions, msg *types.Message, exclude types.ID) error {
	var mu sync.Mutex
	var failed []types.ID

	var wg sync.WaitGroup
	for _, sub := range subs.Values() {
		if sub.ID() == exclude {
			continue
		}

		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			if !sub.Publish(ctx, msg) {
				mu.Lock()
				failed = append(failed, sub.ID())
				mu.Unlock()
			}
		}(sub)
	}
	wg.Wait()

	if len(failed) > 0 {
		logging.From(ctx).Warnf(
			"Broadcast(%s,%s) to %d connections timeout or closed: %v",
			subs.docID, msg.Type, len(failed), failed,
		)
		return fmt.Errorf("broadcast %s to %d connections: %w", msg.Type, len(failed), ErrPublishFailed)
	}
	return nil
}
