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

// Package background tracks the long-lived goroutines of the backend, such as
// the writers of WebSocket connections, so that shutdown can wait for them.
package background

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/lexdesk/textsync/pkg/errors"
	"github.com/lexdesk/textsync/server/logging"
	"github.com/lexdesk/textsync/server/profiling/prometheus"
)

// ErrClosed is returned when a goroutine is attached after Close started.
var ErrClosed = errors.Unavailable("background closed").WithCode("background_closed")

// Background runs goroutines on behalf of the backend. Close waits for every
// goroutine it started.
type Background struct {
	// closing is closed when Close starts.
	closing chan struct{}

	// mu keeps Add on wg from racing with Close.
	mu sync.RWMutex
	wg sync.WaitGroup

	lastID  atomic.Int32
	metrics *prometheus.Metrics
}

// New creates a new background service.
func New(metrics *prometheus.Metrics) *Background {
	return &Background{
		closing: make(chan struct{}),
		metrics: metrics,
	}
}

// AttachGoroutine runs f in a goroutine tracked by Close and counted under
// taskType. The context given to f carries a logger named after the
// goroutine. Once Close started, f is not run and ErrClosed is returned.
func (b *Background) AttachGoroutine(f func(ctx context.Context), taskType string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	select {
	case <-b.closing:
		return ErrClosed
	default:
	}

	b.wg.Add(1)
	logger := logging.New("b" + strconv.Itoa(int(b.lastID.Add(1))))
	b.metrics.AddBackgroundGoroutines(taskType)
	go func() {
		defer func() {
			b.metrics.RemoveBackgroundGoroutines(taskType)
			b.wg.Done()
		}()
		f(logging.With(context.Background(), logger))
	}()
	return nil
}

// Close stops accepting goroutines and waits for the running ones to exit.
func (b *Background) Close() {
	b.mu.Lock()
	close(b.closing)
	b.mu.Unlock()

	b.wg.Wait()
}
