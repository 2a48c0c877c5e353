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

package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexdesk/textsync/server/backend/sync"
	"github.com/lexdesk/textsync/server/logging"
)

const (
	runKey = "housekeeping/run"
)

// Target is what the housekeeping service maintains. It is implemented by
// the room registry.
type Target interface {
	// Checkpoint saves every live document changed since its last save and
	// returns the number of saved documents.
	Checkpoint(ctx context.Context) (int, error)

	// EvictIdle removes the documents that had no participants for the given
	// duration and returns the number of evicted documents.
	EvictIdle(ctx context.Context, idleFor time.Duration) (int, error)

	// TruncateLogs drops the operations older than the last keep of every
	// live document and returns the number of dropped operations.
	TruncateLogs(ctx context.Context, keep int) int
}

// Housekeeping is the housekeeping service. It periodically runs housekeeping
// tasks.
type Housekeeping struct {
	target  Target
	lockers *sync.LockerManager

	interval      time.Duration
	idleThreshold time.Duration
	logRetention  int

	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Start starts the housekeeping service.
func Start(
	conf *Config,
	target Target,
	lockers *sync.LockerManager,
) (*Housekeeping, error) {
	h, err := New(conf, target, lockers)
	if err != nil {
		return nil, err
	}
	if err := h.Start(); err != nil {
		return nil, err
	}

	return h, nil
}

// New creates a new housekeeping instance.
func New(
	conf *Config,
	target Target,
	lockers *sync.LockerManager,
) (*Housekeeping, error) {
	interval, err := conf.ParseInterval()
	if err != nil {
		return nil, err
	}
	idleThreshold, err := conf.ParseIdleThreshold()
	if err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())

	return &Housekeeping{
		target:  target,
		lockers: lockers,

		interval:      interval,
		idleThreshold: idleThreshold,
		logRetention:  conf.LogRetention,

		ctx:        ctx,
		cancelFunc: cancelFunc,
		done:       make(chan struct{}),
	}, nil
}

// Start starts the housekeeping service.
func (h *Housekeeping) Start() error {
	go h.run()
	return nil
}

// Stop stops the housekeeping service and waits for the running pass.
func (h *Housekeeping) Stop() error {
	h.cancelFunc()
	<-h.done

	return nil
}

// run is the housekeeping loop.
func (h *Housekeeping) run() {
	defer close(h.done)

	for {
		select {
		case <-time.After(h.interval):
		case <-h.ctx.Done():
			return
		}

		if err := h.RunOnce(h.ctx); err != nil && !errors.Is(err, sync.ErrAlreadyLocked) {
			logging.From(h.ctx).Error(err)
		}
	}
}

// RunOnce runs a single housekeeping pass. It returns sync.ErrAlreadyLocked
// when another pass is running.
func (h *Housekeeping) RunOnce(ctx context.Context) error {
	start := time.Now()
	locker := h.lockers.Locker(sync.NewKey(runKey))
	if err := locker.TryLock(); err != nil {
		return err
	}
	defer func() {
		if err := locker.Unlock(); err != nil {
			logging.From(ctx).Error(err)
		}
	}()

	saved, err := h.target.Checkpoint(ctx)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	evicted, err := h.target.EvictIdle(ctx, h.idleThreshold)
	if err != nil {
		return fmt.Errorf("evict idle documents: %w", err)
	}

	truncated := 0
	if h.logRetention > 0 {
		truncated = h.target.TruncateLogs(ctx, h.logRetention)
	}

	if saved > 0 || evicted > 0 || truncated > 0 {
		logging.From(ctx).Infof(
			"HSKP: saved %d, evicted %d, truncated %d, %s",
			saved,
			evicted,
			truncated,
			time.Since(start),
		)
	}

	return nil
}
