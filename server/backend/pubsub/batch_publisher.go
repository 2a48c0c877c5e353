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
	"strconv"
	gosync "sync"
	"sync/atomic"
	gotime "time"

	"go.uber.org/zap"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/logging"
)

var publisherID loggerID

type loggerID int32

func (c *loggerID) next() string {
	next := atomic.AddInt32((*int32)(c), 1)
	return "p" + strconv.Itoa(int(next))
}

type batchedMessage struct {
	msg     *types.Message
	exclude types.ID
}

// BatchPublisher coalesces presence messages of a document. Within a window
// only the latest message of each user is kept, which bounds the traffic of
// fast cursor movement.
type BatchPublisher struct {
	logger    *zap.SugaredLogger
	mutex     gosync.Mutex
	events    []batchedMessage
	window    gotime.Duration
	closeChan chan struct{}
	closeOnce gosync.Once
	pubsub    *PubSub
	subs      *DocSubscriptions
}

// NewBatchPublisher creates a new instance of BatchPublisher.
func NewBatchPublisher(pubsub *PubSub, subs *DocSubscriptions, window gotime.Duration) *BatchPublisher {
	bp := &BatchPublisher{
		logger:    logging.New(publisherID.next()),
		window:    window,
		closeChan: make(chan struct{}),
		pubsub:    pubsub,
		subs:      subs,
	}

	go bp.processLoop()
	return bp
}

// Publish adds the given message to the batch, replacing an older one of the
// same user.
func (bp *BatchPublisher) Publish(msg *types.Message, exclude types.ID) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	for i, e := range bp.events {
		if e.msg.UserID == msg.UserID && e.exclude == exclude {
			bp.events[i].msg = msg
			return
		}
	}
	bp.events = append(bp.events, batchedMessage{msg: msg, exclude: exclude})
}

func (bp *BatchPublisher) processLoop() {
	ticker := gotime.NewTicker(bp.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bp.publish()
		case <-bp.closeChan:
			bp.publish()
			return
		}
	}
}

func (bp *BatchPublisher) publish() {
	bp.mutex.Lock()

	if len(bp.events) == 0 {
		bp.mutex.Unlock()
		return
	}

	events := bp.events
	bp.events = nil

	bp.mutex.Unlock()

	if logging.Enabled(zap.DebugLevel) {
		bp.logger.Debugf(
			"Publishing batch of %d presence messages for document %s",
			len(events),
			bp.subs.docID,
		)
	}

	for _, e := range events {
		if err := bp.pubsub.deliver(context.Background(), bp.subs, e.msg, e.exclude); err != nil {
			bp.logger.Infof("publish presence of %s: %v", e.msg.UserID, err)
		}
	}
}

// Close flushes pending messages and stops the batch publisher.
func (bp *BatchPublisher) Close() {
	bp.closeOnce.Do(func() {
		close(bp.closeChan)
	})
}
