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
 *
 * This file was written with reference to moby/locker.
 *   https://github.com/moby/locker
 */

/*
Package locker provides named mutexes, so that work on one document does not
wait for work on another.

A lock with a given name is created on first use and removed on Unlock once
nobody else waits for it. Lock takes a context so that a caller can give up
waiting.
*/
package locker

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoSuchLock is returned when the requested lock does not exist.
	ErrNoSuchLock = errors.New("no such lock")

	// ErrNotLocked is returned when unlocking a lock that is not held.
	ErrNotLocked = errors.New("not locked")
)

// Locker provides a locking mechanism based on the passed in reference name.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockCtr
}

// lockCtr is a single named lock. The lock is held while sem carries a
// token.
type lockCtr struct {
	sem chan struct{}

	// waiters is the number of callers waiting to acquire the lock. It is
	// guarded by Locker.mu.
	waiters int
}

// New creates a new Locker.
func New() *Locker {
	return &Locker{
		locks: make(map[string]*lockCtr),
	}
}

// acquire returns the named lock and registers the caller as a waiter.
func (l *Locker) acquire(name string) *lockCtr {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctr, ok := l.locks[name]
	if !ok {
		ctr = &lockCtr{sem: make(chan struct{}, 1)}
		l.locks[name] = ctr
	}
	ctr.waiters++
	return ctr
}

// release unregisters a waiter and drops the lock when it is unused.
func (l *Locker) release(name string, ctr *lockCtr) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctr.waiters--
	if ctr.waiters == 0 && len(ctr.sem) == 0 {
		delete(l.locks, name)
	}
}

// Lock locks the named mutex, waiting until it is available or ctx is done.
func (l *Locker) Lock(ctx context.Context, name string) error {
	ctr := l.acquire(name)

	select {
	case ctr.sem <- struct{}{}:
		l.mu.Lock()
		ctr.waiters--
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		l.release(name, ctr)
		return ctx.Err()
	}
}

// TryLock locks the named mutex if it is not held.
func (l *Locker) TryLock(name string) bool {
	ctr := l.acquire(name)

	select {
	case ctr.sem <- struct{}{}:
		l.mu.Lock()
		ctr.waiters--
		l.mu.Unlock()
		return true
	default:
		l.release(name, ctr)
		return false
	}
}

// Unlock unlocks the named mutex. The lock is removed if nobody waits for it.
func (l *Locker) Unlock(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctr, ok := l.locks[name]
	if !ok {
		return ErrNoSuchLock
	}

	select {
	case <-ctr.sem:
	default:
		return ErrNotLocked
	}

	if ctr.waiters == 0 {
		delete(l.locks, name)
	}
	return nil
}

// Len returns the number of locks currently held or waited for.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
