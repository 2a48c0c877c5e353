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

// Package sync provides the critical sections of the server: a named lock
// per document and per background task.
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexdesk/textsync/pkg/locker"
)

// ErrAlreadyLocked is returned when the lock is already locked.
var ErrAlreadyLocked = errors.New("already locked")

// Key represents key of Locker.
type Key string

// NewKey creates a new instance of Key.
func NewKey(key string) Key {
	return Key(key)
}

// DocKey returns the key of the lock serializing edits of a document.
func DocKey(docID string) Key {
	return Key(fmt.Sprintf("doc/%s", docID))
}

// String returns a string representation of this Key.
func (k Key) String() string {
	return string(k)
}

// LockerManager manages Lockers.
type LockerManager struct {
	locks *locker.Locker
}

// New creates a new instance of LockerManager.
func New() *LockerManager {
	return &LockerManager{
		locks: locker.New(),
	}
}

// Locker returns the locker of the given key.
func (c *LockerManager) Locker(key Key) Locker {
	return &internalLocker{
		key:   key.String(),
		locks: c.locks,
	}
}

// Len returns the number of locks currently held or waited for.
func (c *LockerManager) Len() int {
	return c.locks.Len()
}

// A Locker represents an object that can be locked and unlocked.
type Locker interface {
	// Lock locks the mutex, giving up when ctx is done.
	Lock(ctx context.Context) error

	// TryLock locks the mutex if not already locked by another session.
	TryLock() error

	// Unlock unlocks the mutex.
	Unlock() error
}

type internalLocker struct {
	key   string
	locks *locker.Locker
}

// Lock locks the mutex.
func (il *internalLocker) Lock(ctx context.Context) error {
	if err := il.locks.Lock(ctx, il.key); err != nil {
		return fmt.Errorf("lock %s: %w", il.key, err)
	}

	return nil
}

// TryLock locks the mutex if not already locked by another session.
func (il *internalLocker) TryLock() error {
	if !il.locks.TryLock(il.key) {
		return fmt.Errorf("lock %s: %w", il.key, ErrAlreadyLocked)
	}

	return nil
}

// Unlock unlocks the mutex.
func (il *internalLocker) Unlock() error {
	if err := il.locks.Unlock(il.key); err != nil {
		return fmt.Errorf("unlock %s: %w", il.key, err)
	}

	return nil
}
