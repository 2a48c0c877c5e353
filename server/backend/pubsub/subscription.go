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

package pubsub

import (
	"context"
	"sync"
	gotime "time"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/pkg/cmap"
)

const (
	// publishTimeout is the timeout for publishing a message to one
	// subscriber.
	publishTimeout = 100 * gotime.Millisecond
)

// Subscription is the outbound queue of a single connection.
type Subscription struct {
	id         types.ID
	subscriber string
	mu         sync.Mutex
	closed     bool
	events     chan *types.Message
}

// NewSubscription creates a new instance of Subscription with the given
// buffer size.
func NewSubscription(subscriber string, bufSize int) *Subscription {
	return &Subscription{
		id:         types.NewID(),
		subscriber: subscriber,
		events:     make(chan *types.Message, bufSize),
	}
}

// ID returns the id of this subscription, which is also the connection ID.
func (s *Subscription) ID() types.ID {
	return s.id
}

// Subscriber returns the user of this subscription.
func (s *Subscription) Subscriber() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.subscriber
}

// SetSubscriber sets the user of this subscription once it authenticated.
func (s *Subscription) SetSubscriber(subscriber string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriber = subscriber
}

// Events returns the message channel of this subscription.
func (s *Subscription) Events() <-chan *types.Message {
	return s.events
}

// Close closes all resources of this Subscription.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Publish queues the given message. It returns false when the subscription
// is closed or its queue stays full for publishTimeout.
func (s *Subscription) Publish(ctx context.Context, msg *types.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- msg:
		return true
	case <-ctx.Done():
		return false
	case <-gotime.After(publishTimeout):
		return false
	}
}

// DocSubscriptions is the set of subscriptions attached to a document.
type DocSubscriptions struct {
	docID       string
	internalMap *cmap.Map[types.ID, *Subscription]
	publisher   *BatchPublisher
}

func newDocSubscriptions(docID string) *DocSubscriptions {
	return &DocSubscriptions{
		docID:       docID,
		internalMap: cmap.New[types.ID, *Subscription](),
	}
}

// Set adds the given subscription.
func (s *DocSubscriptions) Set(sub *Subscription) {
	s.internalMap.Set(sub.ID(), sub)
}

// Values returns the subscriptions ordered by ID.
func (s *DocSubscriptions) Values() []*Subscription {
	return s.internalMap.Values()
}

// Delete removes the subscription of the given id. The subscription itself
// stays open since the connection may be attached to other documents.
func (s *DocSubscriptions) Delete(id types.ID) {
	s.internalMap.Delete(id, func(sub *Subscription, exists bool) bool {
		return exists
	})
}

// Len returns the number of subscriptions.
func (s *DocSubscriptions) Len() int {
	return s.internalMap.Len()
}

// Close stops the batch publisher of these subscriptions, if any.
func (s *DocSubscriptions) Close() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}
