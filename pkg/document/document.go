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

// Package document provides the authoritative state of a shared text
// document: its content, its version and the log of applied operations.
package document

import (
	"fmt"

	"github.com/lexdesk/textsync/pkg/errors"
	"github.com/lexdesk/textsync/pkg/operation"
	"github.com/lexdesk/textsync/pkg/transform"
)

var (
	// ErrVersionConflict is returned when an operation or a history request
	// refers to a version the document cannot rebase from, either because
	// it is in the future or because the log no longer covers it.
	ErrVersionConflict = errors.FailedPrecond("version conflict").WithCode("version_conflict")

	// ErrCorrupted is returned when replaying the log does not reproduce
	// the content.
	ErrCorrupted = errors.Internal("document corrupted").WithCode("corrupted")
)

// Document is a text document with a linear history.
//
// Version counts the operations ever applied. Only the operations after
// BaseVersion are kept in memory, the content they were applied to is kept
// as the base content. A fresh document has an empty base at version 0.
//
// Document is not safe for concurrent use. Callers serialize access per
// document.
type Document struct {
	id      string
	content []rune
	version int64

	baseContent []rune
	baseVersion int64

	log     []operation.Entry
	lengths []int
}

// New creates an empty document at version 0.
func New(id string) *Document {
	return &Document{id: id}
}

// NewFromSnapshot creates a document from persisted content. Operations
// prior to version are unknown, so clients based on older versions get
// ErrVersionConflict.
func NewFromSnapshot(id, content string, version int64) *Document {
	runes := []rune(content)
	return &Document{
		id:          id,
		content:     runes,
		version:     version,
		baseContent: runes,
		baseVersion: version,
	}
}

// ID returns the ID of the document.
func (d *Document) ID() string {
	return d.id
}

// Version returns the current version.
func (d *Document) Version() int64 {
	return d.version
}

// BaseVersion returns the oldest version operations can be based on.
func (d *Document) BaseVersion() int64 {
	return d.baseVersion
}

// Len returns the length of the content in code points.
func (d *Document) Len() int {
	return len(d.content)
}

// Content returns the content and the version it belongs to.
func (d *Document) Content() (string, int64) {
	return string(d.content), d.version
}

// Apply rebases op onto the operations applied since its base version and
// applies it. It returns the rebased operation and the new version. On error
// the document is left unchanged.
func (d *Document) Apply(op operation.Operation) (operation.Operation, int64, error) {
	if op.BaseVersion() > d.version || op.BaseVersion() < d.baseVersion {
		return operation.Operation{}, 0, fmt.Errorf(
			"base v%d outside [v%d, v%d]: %w",
			op.BaseVersion(), d.baseVersion, d.version, ErrVersionConflict,
		)
	}

	if err := op.ValidateAgainst(d.lengthAt(op.BaseVersion())); err != nil {
		return operation.Operation{}, 0, fmt.Errorf("validate op at v%d: %w", op.BaseVersion(), err)
	}

	rebased, err := transform.AgainstHistory(op, d.log[op.BaseVersion()-d.baseVersion:])
	if err != nil {
		return operation.Operation{}, 0, err
	}

	if err := rebased.ValidateAgainst(len(d.content)); err != nil {
		return operation.Operation{}, 0, fmt.Errorf("validate rebased op at v%d: %w", d.version, err)
	}

	d.content = rebased.Apply(d.content)
	d.version++
	rebased = rebased.WithBaseVersion(d.version - 1)
	d.log = append(d.log, operation.Entry{Operation: rebased, Version: d.version})
	d.lengths = append(d.lengths, len(d.content))

	return rebased, d.version, nil
}

// OperationsSince returns the entries with a version greater than v, in
// order.
func (d *Document) OperationsSince(v int64) ([]operation.Entry, error) {
	if v > d.version || v < d.baseVersion {
		return nil, fmt.Errorf(
			"history from v%d outside [v%d, v%d]: %w",
			v, d.baseVersion, d.version, ErrVersionConflict,
		)
	}

	since := d.log[v-d.baseVersion:]
	entries := make([]operation.Entry, len(since))
	copy(entries, since)
	return entries, nil
}

// Verify replays the log over the base content and checks that it
// reproduces the content and the version.
func (d *Document) Verify() error {
	if d.version != d.baseVersion+int64(len(d.log)) {
		return fmt.Errorf(
			"version v%d, base v%d with %d entries: %w",
			d.version, d.baseVersion, len(d.log), ErrCorrupted,
		)
	}

	text := d.baseContent
	for _, entry := range d.log {
		if err := entry.Operation.ValidateAgainst(len(text)); err != nil {
			return fmt.Errorf("replay v%d: %s: %w", entry.Version, err.Error(), ErrCorrupted)
		}
		text = entry.Operation.Apply(text)
	}

	if string(text) != string(d.content) {
		return fmt.Errorf("replay does not reproduce content: %w", ErrCorrupted)
	}

	return nil
}

// Truncate drops all but the last keep entries of the log and moves the base
// forward accordingly. Operations based on dropped versions are rejected
// afterwards.
func (d *Document) Truncate(keep int) int {
	drop := len(d.log) - max(keep, 0)
	if drop <= 0 {
		return 0
	}

	text := d.baseContent
	for _, entry := range d.log[:drop] {
		text = entry.Operation.Apply(text)
	}

	d.baseContent = text
	d.baseVersion += int64(drop)
	d.log = append([]operation.Entry(nil), d.log[drop:]...)
	d.lengths = append([]int(nil), d.lengths[drop:]...)

	return drop
}

// lengthAt returns the length of the content at version v, which must be
// within [baseVersion, version].
func (d *Document) lengthAt(v int64) int {
	if v == d.baseVersion {
		return len(d.baseContent)
	}
	return d.lengths[v-d.baseVersion-1]
}
